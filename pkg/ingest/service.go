// Package ingest distributes document updates to every registered search
// backend. It is the write-side counterpart of pkg/search: an upsert or
// delete fans out to all providers, partial failures are tolerated and
// logged, and successful operations are announced on the realtime hub.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/log"
	"github.com/Roguelazer/advsearch/pkg/realtime"
)

// Service fans document operations out to all providers.
type Service struct {
	registry *core.Registry
	hub      *realtime.Hub
	logger   *log.Logger
}

// NewService creates an ingest service. hub may be nil when no realtime
// feed is wanted.
func NewService(registry *core.Registry, hub *realtime.Hub) *Service {
	return &Service{
		registry: registry,
		hub:      hub,
		logger:   log.ForService("ingest"),
	}
}

// Upsert inserts or updates one document in every provider index. A
// missing ID is filled with a generated one; the (possibly updated)
// document is returned.
//
// Provider failures do not stop the fan-out: the document lands in every
// provider that accepts it. An error is returned only when validation
// fails or every provider rejects the document.
func (s *Service) Upsert(ctx context.Context, doc core.Document) (core.Document, error) {
	if doc.ID == "" {
		doc.ID = "doc_" + uuid.NewString()
	}
	if doc.Updated.IsZero() {
		doc.Updated = time.Now().UTC()
	}
	if err := doc.Validate(); err != nil {
		return doc, err
	}

	providers := s.registry.OrderedProviders()
	if len(providers) == 0 {
		return doc, fmt.Errorf("no search providers registered")
	}

	var accepted []string
	var errs []error
	for _, provider := range providers {
		if err := provider.UpsertDocument(ctx, doc); err != nil {
			s.logger.Errorf("upserting %s into %s: %v", doc.ID, provider.Name(), err)
			errs = append(errs, core.NewBackendError(provider.Name(), "upsert", err))
			continue
		}
		accepted = append(accepted, provider.Name())
	}

	if len(accepted) == 0 {
		return doc, errors.Join(errs...)
	}

	s.publish(realtime.DocumentEvent{
		Action:   "upsert",
		ID:       doc.ID,
		Source:   doc.Source,
		Title:    doc.Title,
		Time:     time.Now().UTC(),
		Backends: accepted,
		Errors:   len(errs),
	})
	return doc, nil
}

// Delete removes the document from every provider index. Unknown IDs are
// not an error; provider failures follow the same partial-tolerance rules
// as Upsert.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("document id required")
	}

	providers := s.registry.OrderedProviders()
	if len(providers) == 0 {
		return fmt.Errorf("no search providers registered")
	}

	var accepted []string
	var errs []error
	for _, provider := range providers {
		if err := provider.DeleteDocument(ctx, id); err != nil {
			s.logger.Errorf("deleting %s from %s: %v", id, provider.Name(), err)
			errs = append(errs, core.NewBackendError(provider.Name(), "delete", err))
			continue
		}
		accepted = append(accepted, provider.Name())
	}

	if len(accepted) == 0 {
		return errors.Join(errs...)
	}

	s.publish(realtime.DocumentEvent{
		Action:   "delete",
		ID:       id,
		Time:     time.Now().UTC(),
		Backends: accepted,
		Errors:   len(errs),
	})
	return nil
}

func (s *Service) publish(event realtime.DocumentEvent) {
	if s.hub != nil {
		s.hub.Broadcast(event)
	}
}
