package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/log"
)

// maxConcurrentProviders bounds how many provider queries run at once.
const maxConcurrentProviders = 8

// defaultProviderTimeout bounds a single provider query.
const defaultProviderTimeout = 10 * time.Second

// Results is one merged, paginated page plus the metadata the API and web
// surfaces need to render it.
type Results struct {
	// Query echoes the search text.
	Query string

	// Results is the merged page: tagged with provider names, sorted by
	// score descending, truncated to PerPage, links resolved.
	Results []core.Result

	// TotalCount is the sum of every provider's reported total.
	TotalCount int

	Page     int
	PerPage  int
	NumPages int
	HasNext  bool
	HasPrev  bool

	// StartPoints carries the serialized next-page cursors. Only set when
	// HasNext is true.
	StartPoints string

	// SourceFilters is the union of all providers' source kinds, for the
	// filter UI.
	SourceFilters []string

	// Warnings collects provider failures and advisory messages. A failed
	// provider never fails the whole search.
	Warnings []string
}

// Service fans queries out to every registered provider and merges the
// results into pages.
type Service struct {
	registry *core.Registry
	siteURL  string
	timeout  time.Duration
	logger   *log.Logger
}

// NewService creates a search service over the given provider registry.
// siteURL is the base used to resolve result links.
func NewService(registry *core.Registry, siteURL string) *Service {
	return &Service{
		registry: registry,
		siteURL:  siteURL,
		timeout:  defaultProviderTimeout,
		logger:   log.ForService("search"),
	}
}

// SetProviderTimeout overrides the per-provider query deadline.
func (s *Service) SetProviderTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// Search runs the criteria against every provider, merges the results by
// score and computes pagination metadata.
//
// Provider failures become warnings, not errors: the page is built from
// whichever providers answered. Empty criteria (no query, author or date
// bound) short-circuit without querying any provider.
func (s *Service) Search(ctx context.Context, criteria core.Criteria, page int) (*Results, error) {
	if page < 1 {
		page = 1
	}
	if criteria.PerPage <= 0 {
		criteria.PerPage = DefaultPerPage
	}

	results := &Results{
		Query:         criteria.Query,
		Page:          page,
		PerPage:       criteria.PerPage,
		NumPages:      1,
		SourceFilters: s.registry.SourceFilters(),
	}

	providers := s.registry.OrderedProviders()
	if len(providers) == 0 {
		results.Warnings = append(results.Warnings,
			"No search providers found. You must register a search backend.")
		return results, nil
	}

	if criteria.Empty() {
		return results, nil
	}

	resultMap := make(map[string][]core.Result, len(providers))
	totalCount := 0

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProviders)

	for _, provider := range providers {
		g.Go(func() error {
			queryCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			count, list, err := provider.Search(queryCtx, criteria)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warnf("provider %s failed: %v", provider.Name(), err)
				results.Warnings = append(results.Warnings,
					fmt.Sprintf("search backend %s failed: %v", provider.Name(), err))
				return nil
			}
			totalCount += count
			resultMap[provider.Name()] = list
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("querying providers: %w", err)
	}

	merged := Merge(resultMap, criteria.PerPage)
	ResolveLinks(merged, s.siteURL)

	results.Results = merged
	results.TotalCount = totalCount
	results.NumPages = (totalCount + criteria.PerPage - 1) / criteria.PerPage
	if results.NumPages < 1 {
		results.NumPages = 1
	}
	results.HasNext = page*criteria.PerPage < totalCount
	results.HasPrev = page > 1

	if len(merged) == 0 {
		results.Warnings = append(results.Warnings, "No results.")
	}

	if results.HasNext {
		startPoints, err := FormatStartPoints(AdvanceStartPoints(merged, criteria.StartPoints))
		if err != nil {
			return nil, err
		}
		results.StartPoints = startPoints
	}

	return results, nil
}
