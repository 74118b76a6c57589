package cmd

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/Roguelazer/advsearch/pkg/config"
	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/search"
)

//go:embed web/static/*
var staticFS embed.FS

//go:embed web/templates/*
var templateFS embed.FS

// WebServer serves the HTML search interface.
type WebServer struct {
	mu            sync.RWMutex
	config        *config.Config
	registry      *core.Registry
	searchService *search.Service
	templates     *template.Template
}

func NewWebServer(cfg *config.Config, registry *core.Registry, searchService *search.Service) *WebServer {
	templates := template.Must(template.ParseFS(templateFS, "web/templates/*.html"))
	return &WebServer{
		config:        cfg,
		registry:      registry,
		searchService: searchService,
		templates:     templates,
	}
}

// UpdateConfig swaps the config after a reload.
func (s *WebServer) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *WebServer) currentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *WebServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /advsearch", s.handleSearchPage)
	mux.HandleFunc("GET /advsearch/{$}", s.handleSearchPage)
	mux.HandleFunc("GET /{$}", s.handleHome)
	staticRoot, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	static := http.StripPrefix("/static/", http.FileServerFS(staticRoot))
	mux.HandleFunc("GET /static/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	})
}

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/advsearch", http.StatusFound)
}

type sourceFilterOption struct {
	Name    string
	Checked bool
}

type searchPageData struct {
	Title     string
	MenuLabel string

	Query     string
	Author    string
	DateStart string
	DateEnd   string
	PerPage   int
	Sources   []sourceFilterOption

	Searched bool
	Results  []core.Result
	Total    int
	Page     int
	NumPages int
	HasNext  bool
	HasPrev  bool
	NextPage int

	// StartPoints is the serialized cursor map handed to next_page().
	StartPoints string

	Warnings []string
}

func (s *WebServer) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	cfg := s.currentConfig()
	values := r.URL.Query()

	criteria, page, err := search.ParseCriteria(values, s.registry.ListProviders())
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid search parameters: %v", err), http.StatusBadRequest)
		return
	}
	if values.Get("per_page") == "" && cfg.PerPage > 0 {
		criteria.PerPage = cfg.PerPage
	}

	data := searchPageData{
		Title:     cfg.MenuLabel,
		MenuLabel: cfg.MenuLabel,
		Query:     criteria.Query,
		Author:    strings.Join(criteria.Authors, " "),
		DateStart: values.Get("date_start"),
		DateEnd:   values.Get("date_end"),
		PerPage:   criteria.PerPage,
		Searched:  !criteria.Empty(),
	}

	results, err := s.searchService.Search(r.Context(), criteria, page)
	if err != nil {
		http.Error(w, fmt.Sprintf("Search failed: %v", err), http.StatusInternalServerError)
		return
	}

	selected := make(map[string]bool, len(criteria.Sources))
	for _, source := range criteria.Sources {
		selected[source] = true
	}
	for _, source := range results.SourceFilters {
		data.Sources = append(data.Sources, sourceFilterOption{
			Name: source,
			// With no explicit filter every source is searched.
			Checked: selected[source] || len(criteria.Sources) == 0,
		})
	}

	data.Results = results.Results
	data.Total = results.TotalCount
	data.Page = results.Page
	data.NumPages = results.NumPages
	data.HasNext = results.HasNext
	data.HasPrev = results.HasPrev
	data.NextPage = results.Page + 1
	data.StartPoints = results.StartPoints
	data.Warnings = results.Warnings

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "advsearch.html", data); err != nil {
		http.Error(w, fmt.Sprintf("Rendering failed: %v", err), http.StatusInternalServerError)
	}
}
