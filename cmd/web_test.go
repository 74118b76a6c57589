package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/search"
)

type fakeProvider struct {
	name    string
	total   int
	results []core.Result
}

func (p *fakeProvider) Type() string      { return "fake" }
func (p *fakeProvider) Name() string      { return p.name }
func (p *fakeProvider) Sources() []string { return []string{"wiki", "ticket"} }

func (p *fakeProvider) UpsertDocument(ctx context.Context, doc core.Document) error { return nil }
func (p *fakeProvider) DeleteDocument(ctx context.Context, id string) error         { return nil }

func (p *fakeProvider) Search(ctx context.Context, criteria core.Criteria) (int, []core.Result, error) {
	return p.total, p.results, nil
}

func (p *fakeProvider) ConfigType() interface{}              { return nil }
func (p *fakeProvider) SetConfig(config interface{}) error   { return nil }
func (p *fakeProvider) GetConfig() interface{}               { return nil }
func (p *fakeProvider) Close() error                         { return nil }

func (p *fakeProvider) Factory(instanceName string, config interface{}) (core.Provider, error) {
	return p, nil
}

func newTestWebServer(t *testing.T, providers ...*fakeProvider) *WebServer {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	registry := core.NewRegistry()
	for _, p := range providers {
		if err := registry.RegisterPrototype(p.name, p); err != nil {
			t.Fatalf("registering prototype: %v", err)
		}
		if err := registry.CreateProvider(p.name, p.name, nil); err != nil {
			t.Fatalf("creating provider: %v", err)
		}
	}

	cfg, err := config.GetDefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	searchService := search.NewService(registry, "http://trac.example.org")
	return NewWebServer(cfg, registry, searchService)
}

func serveWeb(t *testing.T, server *WebServer, target string) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestWebSearchPageRendersResults(t *testing.T) {
	provider := &fakeProvider{
		name:  "local",
		total: 25,
		results: []core.Result{
			{Title: "DeploymentGuide", Score: 4.2, Source: "wiki", Summary: "How to deploy"},
		},
	}
	server := newTestWebServer(t, provider)

	rec := serveWeb(t, server, "/advsearch?q=deploy")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"DeploymentGuide",
		"http://trac.example.org/wiki/DeploymentGuide",
		"25 results",
		"provider_start_point:local",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestWebSearchPageWithoutQuery(t *testing.T) {
	server := newTestWebServer(t, &fakeProvider{name: "local"})

	rec := serveWeb(t, server, "/advsearch")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "results</div>") {
		t.Error("empty criteria should not render a result count")
	}
}

func TestWebSearchPageInvalidDate(t *testing.T) {
	server := newTestWebServer(t, &fakeProvider{name: "local"})

	rec := serveWeb(t, server, "/advsearch?q=x&date_start=nonsense")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebHomeRedirects(t *testing.T) {
	server := newTestWebServer(t, &fakeProvider{name: "local"})

	rec := serveWeb(t, server, "/")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/advsearch" {
		t.Errorf("expected redirect to /advsearch, got %q", got)
	}
}

func TestWebStaticAssets(t *testing.T) {
	server := newTestWebServer(t, &fakeProvider{name: "local"})

	for _, asset := range []string{"/static/advsearch.css", "/static/advsearch.js"} {
		rec := serveWeb(t, server, asset)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for %s, got %d", asset, rec.Code)
		}
	}
}

func TestWebUpdateConfig(t *testing.T) {
	server := newTestWebServer(t, &fakeProvider{name: "local"})

	updated, err := config.GetDefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	updated.MenuLabel = "Unified Search"
	server.UpdateConfig(updated)

	rec := serveWeb(t, server, "/advsearch")
	if !strings.Contains(rec.Body.String(), "Unified Search") {
		t.Error("updated menu label not rendered")
	}
}
