package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Roguelazer/advsearch/pkg/core"
)

// WikiPage is the write-side shape for wiki content. Document() produces
// the conventional "wiki_<name>" identifier so repeated updates of the same
// page replace each other in every index.
type WikiPage struct {
	Name    string    `json:"name"`
	Version int       `json:"version"`
	Time    time.Time `json:"time"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Comment string    `json:"comment,omitempty"`
}

// Document converts the page to an indexable document.
func (p WikiPage) Document() core.Document {
	return core.Document{
		ID:      "wiki_" + p.Name,
		Source:  "wiki",
		Title:   p.Name,
		Author:  p.Author,
		Updated: p.Time,
		Body:    p.Text,
		Comment: p.Comment,
		Fields: map[string]interface{}{
			"name":    p.Name,
			"version": p.Version,
		},
	}
}

// Ticket is the write-side shape for ticket content.
type Ticket struct {
	ID          int       `json:"id"`
	Reporter    string    `json:"reporter"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	Changetime  time.Time `json:"changetime,omitempty"`
	Type        string    `json:"type,omitempty"`
	Component   string    `json:"component,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Milestone   string    `json:"milestone,omitempty"`
	Status      string    `json:"status,omitempty"`
	Resolution  string    `json:"resolution,omitempty"`
	Keywords    string    `json:"keywords,omitempty"`
	Version     string    `json:"version,omitempty"`
}

// Document converts the ticket to an indexable document. The ticket number
// rides along in Fields so result links can be built without parsing the
// document ID.
func (t Ticket) Document() core.Document {
	updated := t.Changetime
	if updated.IsZero() {
		updated = t.Time
	}
	return core.Document{
		ID:      fmt.Sprintf("ticket_%d", t.ID),
		Source:  "ticket",
		Title:   t.Summary,
		Author:  t.Reporter,
		Updated: updated,
		Body:    t.Description,
		Fields: map[string]interface{}{
			"ticket_id":  t.ID,
			"type":       t.Type,
			"component":  t.Component,
			"severity":   t.Severity,
			"priority":   t.Priority,
			"owner":      t.Owner,
			"milestone":  t.Milestone,
			"status":     t.Status,
			"resolution": t.Resolution,
			"keywords":   t.Keywords,
			"version":    t.Version,
		},
	}
}

// UpsertWikiPage indexes one wiki page in every provider.
func (s *Service) UpsertWikiPage(ctx context.Context, page WikiPage) error {
	_, err := s.Upsert(ctx, page.Document())
	return err
}

// DeleteWikiPage removes a wiki page by name from every provider.
func (s *Service) DeleteWikiPage(ctx context.Context, name string) error {
	return s.Delete(ctx, "wiki_"+name)
}

// RenameWikiPage removes the entry for the old name and indexes the page
// under its new name.
func (s *Service) RenameWikiPage(ctx context.Context, oldName string, page WikiPage) error {
	if err := s.DeleteWikiPage(ctx, oldName); err != nil {
		return err
	}
	return s.UpsertWikiPage(ctx, page)
}

// UpsertTicket indexes one ticket in every provider. Ticket changes reuse
// the same path; the upsert replaces the previous version.
func (s *Service) UpsertTicket(ctx context.Context, ticket Ticket) error {
	_, err := s.Upsert(ctx, ticket.Document())
	return err
}

// DeleteTicket removes a ticket by number from every provider.
func (s *Service) DeleteTicket(ctx context.Context, id int) error {
	return s.Delete(ctx, fmt.Sprintf("ticket_%d", id))
}
