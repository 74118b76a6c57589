package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/Roguelazer/advsearch/pkg/core"
)

type stubProvider struct {
	name    string
	sources []string
	total   int
	results []core.Result
	err     error
	got     core.Criteria
}

func (p *stubProvider) Type() string { return "stub" }
func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Sources() []string {
	if len(p.sources) > 0 {
		return p.sources
	}
	return []string{"wiki"}
}

func (p *stubProvider) UpsertDocument(ctx context.Context, doc core.Document) error { return nil }
func (p *stubProvider) DeleteDocument(ctx context.Context, id string) error         { return nil }

func (p *stubProvider) Search(ctx context.Context, criteria core.Criteria) (int, []core.Result, error) {
	p.got = criteria
	if p.err != nil {
		return 0, nil, p.err
	}
	return p.total, p.results, nil
}

func (p *stubProvider) ConfigType() interface{}            { return nil }
func (p *stubProvider) SetConfig(config interface{}) error { return nil }
func (p *stubProvider) GetConfig() interface{}             { return nil }
func (p *stubProvider) Close() error                       { return nil }

func (p *stubProvider) Factory(instanceName string, config interface{}) (core.Provider, error) {
	return &stubProvider{name: instanceName}, nil
}

func TestServiceSearchMergesAcrossProviders(t *testing.T) {
	solr := &stubProvider{
		name:  "solr",
		total: 2,
		results: []core.Result{
			{Title: "TracHelp", Score: 0.9, Source: "wiki"},
			{Title: "TracLinks", Score: 0.4, Source: "wiki"},
		},
	}
	local := &stubProvider{
		name:  "local",
		total: 1,
		results: []core.Result{
			{Title: "Fix login", Score: 0.7, Source: "ticket", TicketID: 12},
		},
	}

	svc := NewService(installStubsWithFactory(t, solr, local), "https://trac.example.com")
	results, err := svc.Search(context.Background(), core.Criteria{Query: "trac", PerPage: 10}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if results.TotalCount != 3 {
		t.Errorf("TotalCount: expected 3, got %d", results.TotalCount)
	}
	if len(results.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results.Results))
	}

	if results.Results[0].Title != "TracHelp" || results.Results[0].Backend != "solr" {
		t.Errorf("first result: got %+v", results.Results[0])
	}
	if results.Results[1].Title != "Fix login" || results.Results[1].Backend != "local" {
		t.Errorf("second result: got %+v", results.Results[1])
	}
	if results.Results[1].Href != "https://trac.example.com/ticket/12" {
		t.Errorf("ticket href: got %q", results.Results[1].Href)
	}
	if results.Results[0].Href != "https://trac.example.com/wiki/TracHelp" {
		t.Errorf("wiki href: got %q", results.Results[0].Href)
	}
}

// installStubsWithFactory wires prepared stubs so that the registry's
// instances are the stubs themselves.
func installStubsWithFactory(t *testing.T, providers ...*stubProvider) *core.Registry {
	t.Helper()
	registry := core.NewRegistry()
	for _, p := range providers {
		if err := registry.RegisterPrototype(p.name, &identityFactory{p}); err != nil {
			t.Fatalf("registering prototype: %v", err)
		}
		if err := registry.CreateProvider(p.name, p.name, nil); err != nil {
			t.Fatalf("creating provider: %v", err)
		}
	}
	return registry
}

// identityFactory returns the wrapped stub from Factory so prepared state
// survives instance creation.
type identityFactory struct {
	*stubProvider
}

func (f *identityFactory) Factory(instanceName string, config interface{}) (core.Provider, error) {
	return f.stubProvider, nil
}

func TestServiceSearchProviderFailureBecomesWarning(t *testing.T) {
	good := &stubProvider{
		name:    "good",
		total:   1,
		results: []core.Result{{Title: "hit", Score: 0.5, Source: "wiki"}},
	}
	bad := &stubProvider{
		name: "bad",
		err:  core.NewBackendError("bad", "query", fmt.Errorf("connection refused")),
	}

	svc := NewService(installStubsWithFactory(t, good, bad), "https://trac.example.com")
	results, err := svc.Search(context.Background(), core.Criteria{Query: "x", PerPage: 10}, 1)
	if err != nil {
		t.Fatalf("search should not fail: %v", err)
	}

	if len(results.Results) != 1 {
		t.Errorf("expected 1 result from surviving provider, got %d", len(results.Results))
	}

	found := false
	for _, warning := range results.Warnings {
		if strings.Contains(warning, "bad") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning mentioning failed provider, got %v", results.Warnings)
	}
}

func TestServiceSearchEmptyCriteriaShortCircuits(t *testing.T) {
	stub := &stubProvider{name: "solr", total: 5}
	stub.got.Query = "sentinel"

	svc := NewService(installStubsWithFactory(t, stub), "https://trac.example.com")
	results, err := svc.Search(context.Background(), core.Criteria{Sources: []string{"wiki"}}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if results.TotalCount != 0 || len(results.Results) != 0 {
		t.Errorf("empty criteria should produce no results, got %+v", results)
	}
	if stub.got.Query != "sentinel" {
		t.Error("provider should not have been queried for empty criteria")
	}
}

func TestServiceSearchNoProvidersWarns(t *testing.T) {
	svc := NewService(core.NewRegistry(), "https://trac.example.com")
	results, err := svc.Search(context.Background(), core.Criteria{Query: "x"}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results.Warnings) == 0 || !strings.Contains(results.Warnings[0], "No search providers") {
		t.Errorf("expected missing-provider warning, got %v", results.Warnings)
	}
}

func TestServiceSearchPagination(t *testing.T) {
	// 25 total matches, page size 10.
	pageResults := make([]core.Result, 10)
	for i := range pageResults {
		pageResults[i] = core.Result{Title: fmt.Sprintf("r%d", i), Score: float64(10 - i), Source: "wiki"}
	}
	stub := &stubProvider{name: "solr", total: 25, results: pageResults}

	svc := NewService(installStubsWithFactory(t, stub), "https://trac.example.com")

	criteria := core.Criteria{Query: "x", PerPage: 10, StartPoints: map[string]int{"solr": 0}}
	results, err := svc.Search(context.Background(), criteria, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if !results.HasNext {
		t.Error("expected HasNext on page 1 of 3")
	}
	if results.HasPrev {
		t.Error("did not expect HasPrev on page 1")
	}
	if results.NumPages != 3 {
		t.Errorf("NumPages: expected 3, got %d", results.NumPages)
	}

	// Next-page cursors: all 10 shown records came from solr.
	if results.StartPoints == "" {
		t.Fatal("expected serialized start points when HasNext")
	}
	var pairs []struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	if err := json.Unmarshal([]byte(results.StartPoints), &pairs); err != nil {
		t.Fatalf("start points not valid JSON: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Name != "provider_start_point:solr" || pairs[0].Value != 10 {
		t.Errorf("start points: got %v", pairs)
	}

	// Last page: no next, no cursors.
	results, err = svc.Search(context.Background(), criteria, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results.HasNext {
		t.Error("did not expect HasNext on last page")
	}
	if !results.HasPrev {
		t.Error("expected HasPrev on page 3")
	}
	if results.StartPoints != "" {
		t.Errorf("expected no start points on last page, got %q", results.StartPoints)
	}
}

func TestServiceSearchPassesCriteriaUnmodified(t *testing.T) {
	stub := &stubProvider{name: "solr"}
	svc := NewService(installStubsWithFactory(t, stub), "https://trac.example.com")

	criteria := core.Criteria{
		Query:       "trac help",
		Authors:     []string{"admin", "joe"},
		Sources:     []string{"wiki"},
		PerPage:     10,
		StartPoints: map[string]int{"solr": 20},
	}
	if _, err := svc.Search(context.Background(), criteria, 1); err != nil {
		t.Fatalf("search: %v", err)
	}

	if stub.got.Query != "trac help" {
		t.Errorf("query: got %q", stub.got.Query)
	}
	if len(stub.got.Authors) != 2 {
		t.Errorf("authors: got %v", stub.got.Authors)
	}
	if stub.got.StartPoint("solr") != 20 {
		t.Errorf("start point: got %d", stub.got.StartPoint("solr"))
	}
}
