package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeConfig struct {
	Sources []string
	Broken  bool
}

func (c *fakeConfig) Validate() error {
	if c.Broken {
		return fmt.Errorf("broken config")
	}
	return nil
}

type fakeProvider struct {
	name    string
	config  *fakeConfig
	closed  bool
	results []Result
}

func (p *fakeProvider) Type() string { return "fake" }
func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Sources() []string {
	if p.config != nil && len(p.config.Sources) > 0 {
		return p.config.Sources
	}
	return []string{"wiki"}
}

func (p *fakeProvider) UpsertDocument(ctx context.Context, doc Document) error { return nil }
func (p *fakeProvider) DeleteDocument(ctx context.Context, id string) error    { return nil }

func (p *fakeProvider) Search(ctx context.Context, criteria Criteria) (int, []Result, error) {
	return len(p.results), p.results, nil
}

func (p *fakeProvider) ConfigType() interface{} { return &fakeConfig{} }

func (p *fakeProvider) SetConfig(config interface{}) error {
	cfg, ok := config.(*fakeConfig)
	if !ok {
		return fmt.Errorf("invalid config type")
	}
	p.config = cfg
	return nil
}

func (p *fakeProvider) GetConfig() interface{} { return p.config }

func (p *fakeProvider) Factory(instanceName string, config interface{}) (Provider, error) {
	cfg, _ := config.(*fakeConfig)
	return &fakeProvider{name: instanceName, config: cfg}, nil
}

func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

func TestRegistryCreateProvider(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}

	if err := registry.CreateProvider("local", "fake", nil); err != nil {
		t.Fatalf("creating provider: %v", err)
	}

	provider, err := registry.GetProvider("local")
	if err != nil {
		t.Fatalf("getting provider: %v", err)
	}
	if provider.Name() != "local" {
		t.Errorf("expected name local, got %s", provider.Name())
	}
}

func TestRegistryUnknownPrototype(t *testing.T) {
	registry := NewRegistry()
	if err := registry.CreateProvider("local", "missing", nil); err == nil {
		t.Fatal("expected error for unknown prototype")
	}
}

func TestRegistryDuplicatePrototype(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err == nil {
		t.Fatal("expected error for duplicate prototype")
	}
}

func TestRegistryConfigValidation(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}

	if err := registry.CreateProvider("local", "fake", &fakeConfig{Broken: true}); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestRegistryListProvidersSorted(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := registry.CreateProvider(name, "fake", nil); err != nil {
			t.Fatalf("creating provider %s: %v", name, err)
		}
	}

	names := registry.ListProviders()
	expected := []string{"alpha", "mid", "zeta"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d providers, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("position %d: expected %s, got %s", i, name, names[i])
		}
	}
}

func TestRegistrySourceFilters(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}

	if err := registry.CreateProvider("a", "fake", &fakeConfig{Sources: []string{"wiki", "ticket"}}); err != nil {
		t.Fatalf("creating provider a: %v", err)
	}
	if err := registry.CreateProvider("b", "fake", &fakeConfig{Sources: []string{"wiki", "changeset"}}); err != nil {
		t.Fatalf("creating provider b: %v", err)
	}

	filters := registry.SourceFilters()
	expected := []string{"changeset", "ticket", "wiki"}
	if len(filters) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, filters)
	}
	for i := range expected {
		if filters[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, filters)
			break
		}
	}
}

func TestRegistryReplaceClosesExisting(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}
	if err := registry.CreateProvider("local", "fake", nil); err != nil {
		t.Fatalf("creating provider: %v", err)
	}

	first, _ := registry.GetProvider("local")
	if err := registry.CreateProvider("local", "fake", nil); err != nil {
		t.Fatalf("replacing provider: %v", err)
	}

	if !first.(*fakeProvider).closed {
		t.Error("expected replaced provider to be closed")
	}
}

func TestRegistryClose(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterPrototype("fake", &fakeProvider{}); err != nil {
		t.Fatalf("registering prototype: %v", err)
	}
	if err := registry.CreateProvider("local", "fake", nil); err != nil {
		t.Fatalf("creating provider: %v", err)
	}

	provider, _ := registry.GetProvider("local")
	if err := registry.Close(); err != nil {
		t.Fatalf("closing registry: %v", err)
	}

	if !provider.(*fakeProvider).closed {
		t.Error("expected provider to be closed")
	}
	if len(registry.ListProviders()) != 0 {
		t.Error("expected no providers after close")
	}
}

func TestCriteriaStartPoint(t *testing.T) {
	c := Criteria{StartPoints: map[string]int{"solr": 20}}
	if got := c.StartPoint("solr"); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
	if got := c.StartPoint("missing"); got != 0 {
		t.Errorf("expected 0 for unknown provider, got %d", got)
	}

	var empty Criteria
	if got := empty.StartPoint("solr"); got != 0 {
		t.Errorf("expected 0 with nil map, got %d", got)
	}
}

func TestCriteriaEmpty(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		criteria Criteria
		empty    bool
	}{
		{"zero value", Criteria{}, true},
		{"query set", Criteria{Query: "trac"}, false},
		{"author set", Criteria{Authors: []string{"admin"}}, false},
		{"date start set", Criteria{DateStart: &now}, false},
		{"date end set", Criteria{DateEnd: &now}, false},
		{"only source filters", Criteria{Sources: []string{"wiki"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.Empty(); got != tt.empty {
				t.Errorf("Empty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestDocumentValidate(t *testing.T) {
	doc := Document{ID: "wiki_TracHelp", Source: "wiki"}
	if err := doc.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := (Document{Source: "wiki"}).Validate(); err == nil {
		t.Error("expected error for missing id")
	}
	if err := (Document{ID: "x"}).Validate(); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestBackendError(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := NewBackendError("solr", "query", base)

	wrapped := fmt.Errorf("searching: %w", err)
	be, ok := AsBackendError(wrapped)
	if !ok {
		t.Fatal("expected backend error")
	}
	if be.Backend != "solr" {
		t.Errorf("expected backend solr, got %s", be.Backend)
	}

	if _, ok := AsBackendError(base); ok {
		t.Error("plain error should not be a backend error")
	}
}
