package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/search"
	"github.com/Roguelazer/advsearch/pkg/version"
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	criteria, page, err := search.ParseCriteria(r.URL.Query(), s.registry.ListProviders())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid date format", err.Error())
		return
	}

	results, err := s.searchService.Search(r.Context(), criteria, page)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	response := SearchResponse{
		Query:         results.Query,
		Results:       results.Results,
		TotalCount:    results.TotalCount,
		Page:          results.Page,
		PerPage:       results.PerPage,
		NumPages:      results.NumPages,
		HasNext:       results.HasNext,
		HasPrev:       results.HasPrev,
		StartPoints:   results.StartPoints,
		SourceFilters: results.SourceFilters,
		Warnings:      results.Warnings,
	}
	if response.Results == nil {
		response.Results = []core.Result{}
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	if !s.ingestLimiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "Rate limited", "Too many document writes, slow down")
		return
	}

	var doc core.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid document", err.Error())
		return
	}

	stored, err := s.ingestService.Upsert(r.Context(), doc)
	if err != nil {
		var validationErr core.ValidationError
		if errors.As(err, &validationErr) {
			s.writeError(w, http.StatusBadRequest, "Invalid document", err.Error())
			return
		}
		s.writeError(w, http.StatusBadGateway, "Indexing failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, UpsertDocumentResponse{Document: stored})
}

func (s *Server) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !s.ingestLimiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, "Rate limited", "Too many document writes, slow down")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Document id is required")
		return
	}

	if err := s.ingestService.Delete(r.Context(), id); err != nil {
		s.writeError(w, http.StatusBadGateway, "Delete failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, DeleteDocumentResponse{ID: id, Deleted: true})
}

func (s *Server) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	infos := s.providerInfos()
	response := ListProvidersResponse{
		Providers: infos,
		Count:     len(infos),
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	infos := s.providerInfos()
	response := StatsResponse{
		Providers:     infos,
		ProviderCount: len(infos),
		SourceFilters: s.registry.SourceFilters(),
	}
	if s.hub != nil {
		response.FeedListeners = s.hub.Size()
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) providerInfos() []ProviderInfo {
	names := s.registry.ListProviders()
	infos := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		provider, err := s.registry.GetProvider(name)
		if err != nil {
			continue
		}
		infos = append(infos, ProviderInfo{
			Name:    provider.Name(),
			Type:    provider.Type(),
			Sources: provider.Sources(),
		})
	}
	return infos
}

