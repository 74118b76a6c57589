package api

import (
	"time"

	"github.com/Roguelazer/advsearch/pkg/core"
)

type SearchResponse struct {
	Query         string        `json:"query"`
	Results       []core.Result `json:"results"`
	TotalCount    int           `json:"total_count"`
	Page          int           `json:"page"`
	PerPage       int           `json:"per_page"`
	NumPages      int           `json:"num_pages"`
	HasNext       bool          `json:"has_next"`
	HasPrev       bool          `json:"has_prev"`
	StartPoints   string        `json:"start_points,omitempty"`
	SourceFilters []string      `json:"source_filters"`
	Warnings      []string      `json:"warnings,omitempty"`
}

type ProviderInfo struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Sources []string `json:"sources"`
}

type ListProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
	Count     int            `json:"count"`
}

type UpsertDocumentResponse struct {
	Document core.Document `json:"document"`
}

type DeleteDocumentResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type StatsResponse struct {
	Providers     []ProviderInfo `json:"providers"`
	ProviderCount int            `json:"provider_count"`
	SourceFilters []string       `json:"source_filters"`
	FeedListeners int            `json:"feed_listeners"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
