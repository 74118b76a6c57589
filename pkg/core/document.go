package core

import (
	"fmt"
	"time"
)

// Document is the write-side unit: one indexable item from any source.
// Fields carries source-specific attributes (ticket component, wiki page
// version) that providers may index or ignore.
type Document struct {
	ID      string                 `json:"id"`
	Source  string                 `json:"source"`
	Title   string                 `json:"title"`
	Author  string                 `json:"author"`
	Updated time.Time              `json:"updated"`
	Body    string                 `json:"body"`
	Comment string                 `json:"comment,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

func (d Document) Validate() error {
	if d.ID == "" {
		return ValidationError{Field: "id", Reason: "required"}
	}
	if d.Source == "" {
		return ValidationError{Field: "source", Reason: "required"}
	}
	return nil
}

// Result is one scored hit from a provider. Backend is filled during
// merging with the name of the provider the hit came from; Href is
// resolved afterwards for sources with linkable pages.
type Result struct {
	Title    string    `json:"title"`
	Score    float64   `json:"score"`
	Source   string    `json:"source"`
	Summary  string    `json:"summary,omitempty"`
	Date     time.Time `json:"date"`
	Author   string    `json:"author,omitempty"`
	TicketID int       `json:"ticket_id,omitempty"`
	Backend  string    `json:"backend_name"`
	Href     string    `json:"href,omitempty"`
}

// Criteria is one parsed search request. StartPoints maps provider names
// to the number of results that provider has already contributed on
// earlier pages; a provider absent from the map starts at zero.
type Criteria struct {
	Query       string
	Authors     []string
	Sources     []string
	DateStart   *time.Time
	DateEnd     *time.Time
	PerPage     int
	StartPoints map[string]int
}

// StartPoint returns the offset for the named provider.
func (c Criteria) StartPoint(provider string) int {
	if c.StartPoints == nil {
		return 0
	}
	return c.StartPoints[provider]
}

// Empty reports whether the criteria constrain nothing searchable.
// Source filters alone do not make a search: with no query, authors or
// date bounds there is nothing to rank.
func (c Criteria) Empty() bool {
	return c.Query == "" &&
		len(c.Authors) == 0 &&
		c.DateStart == nil &&
		c.DateEnd == nil
}

// ValidationError reports a document field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid document: %s %s", e.Field, e.Reason)
}
