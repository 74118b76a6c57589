package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// API routes with method-specific routing
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("PUT /api/documents", s.HandleUpsertDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.HandleDeleteDocument)
	mux.HandleFunc("GET /api/providers", s.HandleListProviders)
	mux.HandleFunc("GET /api/stats", s.HandleStats)
	mux.HandleFunc("GET /api/feed", s.HandleFeed)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
