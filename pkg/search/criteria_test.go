package search

import (
	"net/url"
	"testing"
	"time"
)

func TestParseCriteria(t *testing.T) {
	providers := []string{"solr"}

	tests := []struct {
		name         string
		query        string
		wantQuery    string
		wantAuthors  []string
		wantSources  []string
		wantPerPage  int
		wantPage     int
		wantHasDates bool
		hasError     bool
	}{
		{
			name:        "basic query",
			query:       "q=trac+help&page=2&per_page=25",
			wantQuery:   "trac help",
			wantPerPage: 25,
			wantPage:    2,
		},
		{
			name:        "defaults when no params",
			query:       "",
			wantPerPage: DefaultPerPage,
			wantPage:    1,
		},
		{
			name:        "non-integer page and per_page fall back",
			query:       "q=test&page=two&per_page=many",
			wantQuery:   "test",
			wantPerPage: DefaultPerPage,
			wantPage:    1,
		},
		{
			name:        "negative values fall back",
			query:       "q=test&page=-1&per_page=0",
			wantQuery:   "test",
			wantPerPage: DefaultPerPage,
			wantPage:    1,
		},
		{
			name:        "per_page is capped",
			query:       "q=test&per_page=5000",
			wantQuery:   "test",
			wantPerPage: MaxPerPage,
			wantPage:    1,
		},
		{
			name:        "author list with empties dropped",
			query:       "q=test&author=admin&author=&author=joe",
			wantQuery:   "test",
			wantAuthors: []string{"admin", "joe"},
			wantPerPage: DefaultPerPage,
			wantPage:    1,
		},
		{
			name:        "source filters",
			query:       "q=test&source_filters=wiki&source_filters=ticket",
			wantQuery:   "test",
			wantSources: []string{"wiki", "ticket"},
			wantPerPage: DefaultPerPage,
			wantPage:    1,
		},
		{
			name:         "date range",
			query:        "q=test&date_start=2011-04-01&date_end=2011-04-30",
			wantQuery:    "test",
			wantPerPage:  DefaultPerPage,
			wantPage:     1,
			wantHasDates: true,
		},
		{
			name:     "invalid date start",
			query:    "q=test&date_start=april",
			hasError: true,
		},
		{
			name:     "invalid date end",
			query:    "q=test&date_end=2011-04-99",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parsing query string: %v", err)
			}

			criteria, page, err := ParseCriteria(values, providers)

			if tt.hasError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if criteria.Query != tt.wantQuery {
				t.Errorf("Query: expected %q, got %q", tt.wantQuery, criteria.Query)
			}
			if page != tt.wantPage {
				t.Errorf("page: expected %d, got %d", tt.wantPage, page)
			}
			if criteria.PerPage != tt.wantPerPage {
				t.Errorf("PerPage: expected %d, got %d", tt.wantPerPage, criteria.PerPage)
			}

			if len(criteria.Authors) != len(tt.wantAuthors) {
				t.Errorf("Authors: expected %v, got %v", tt.wantAuthors, criteria.Authors)
			} else {
				for i := range tt.wantAuthors {
					if criteria.Authors[i] != tt.wantAuthors[i] {
						t.Errorf("Authors: expected %v, got %v", tt.wantAuthors, criteria.Authors)
						break
					}
				}
			}

			if len(criteria.Sources) != len(tt.wantSources) {
				t.Errorf("Sources: expected %v, got %v", tt.wantSources, criteria.Sources)
			}

			if tt.wantHasDates {
				if criteria.DateStart == nil || criteria.DateEnd == nil {
					t.Fatal("expected both date bounds set")
				}
				if criteria.DateEnd.Hour() != 23 || criteria.DateEnd.Minute() != 59 {
					t.Errorf("DateEnd should be end of day, got %v", criteria.DateEnd)
				}
			} else if criteria.DateStart != nil || criteria.DateEnd != nil {
				t.Errorf("expected no date bounds, got %v / %v", criteria.DateStart, criteria.DateEnd)
			}
		})
	}
}

func TestParseCriteriaStartPoints(t *testing.T) {
	values, _ := url.ParseQuery("q=test&provider_start_point:solr=30")
	criteria, _, err := ParseCriteria(values, []string{"solr", "local"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if criteria.StartPoint("solr") != 30 {
		t.Errorf("solr start point: expected 30, got %d", criteria.StartPoint("solr"))
	}
	if criteria.StartPoint("local") != 0 {
		t.Errorf("local start point: expected 0, got %d", criteria.StartPoint("local"))
	}
}

func TestParseCriteriaEndDateIsEndOfDay(t *testing.T) {
	values, _ := url.ParseQuery("q=x&date_end=2023-06-15")
	criteria, _, err := ParseCriteria(values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2023, 6, 15, 23, 59, 59, 999999999, time.UTC)
	if !criteria.DateEnd.Equal(want) {
		t.Errorf("expected %v, got %v", want, criteria.DateEnd)
	}
}
