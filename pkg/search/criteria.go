// Package search maps incoming requests to a shared criteria record, fans
// queries out to every registered backend provider, merges the per-provider
// results by relevance score and keeps the per-provider pagination cursors
// ("start points") that make next-page navigation possible across
// independently paged backends.
package search

import (
	"net/url"
	"strconv"
	"time"

	"github.com/Roguelazer/advsearch/pkg/core"
)

// DefaultPerPage is the page size used when the request carries no usable
// per_page value.
const DefaultPerPage = 10

// MaxPerPage caps the page size accepted from requests.
const MaxPerPage = 100

// ParseCriteria maps request parameters to the criteria record passed to
// every provider, plus the requested page number.
//
// Supported parameters:
//   - q: search text
//   - author: author filter (repeatable, empty values dropped)
//   - source_filters: source filter (repeatable)
//   - date_start, date_end: YYYY-MM-DD bounds (end is set to end of day)
//   - page: 1-based page number, defaults to 1 on missing or bad input
//   - per_page: page size, defaults to DefaultPerPage on missing or bad input
//   - provider_start_point:<name>: consumed-result offset per provider,
//     defaults to 0 on missing or bad input
//
// providerNames decides which start-point parameters are looked up; it
// should be the registry's sorted provider list.
func ParseCriteria(values url.Values, providerNames []string) (core.Criteria, int, error) {
	criteria := core.Criteria{
		Query:       values.Get("q"),
		PerPage:     DefaultPerPage,
		StartPoints: ParseStartPoints(values, providerNames),
	}

	for _, author := range values["author"] {
		if author != "" {
			criteria.Authors = append(criteria.Authors, author)
		}
	}

	criteria.Sources = append(criteria.Sources, values["source_filters"]...)

	if perPageStr := values.Get("per_page"); perPageStr != "" {
		if parsed, err := strconv.Atoi(perPageStr); err == nil && parsed > 0 {
			criteria.PerPage = parsed
		}
	}
	if criteria.PerPage > MaxPerPage {
		criteria.PerPage = MaxPerPage
	}

	page := 1
	if pageStr := values.Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if dateStr := values.Get("date_start"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return criteria, page, err
		}
		criteria.DateStart = &parsed
	}

	if dateStr := values.Get("date_end"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return criteria, page, err
		}
		endOfDay := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, 999999999, parsed.Location())
		criteria.DateEnd = &endOfDay
	}

	return criteria, page, nil
}
