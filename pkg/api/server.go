package api

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/ingest"
	"github.com/Roguelazer/advsearch/pkg/log"
	"github.com/Roguelazer/advsearch/pkg/realtime"
	"github.com/Roguelazer/advsearch/pkg/search"
)

type Server struct {
	registry      *core.Registry
	searchService *search.Service
	ingestService *ingest.Service
	hub           *realtime.Hub

	// ingestLimiter throttles document writes so bulk re-indexing
	// cannot starve searches.
	ingestLimiter *rate.Limiter

	logger *log.Logger
}

func NewServer(registry *core.Registry, searchService *search.Service, ingestService *ingest.Service, hub *realtime.Hub) *Server {
	return &Server{
		registry:      registry,
		searchService: searchService,
		ingestService: ingestService,
		hub:           hub,
		ingestLimiter: rate.NewLimiter(rate.Limit(100), 200),
		logger:        log.ForService("api"),
	}
}

// SetIngestRate overrides the write throttle (events per second and burst).
func (s *Server) SetIngestRate(perSecond float64, burst int) {
	s.ingestLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
