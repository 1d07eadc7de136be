package routes

import (
	"net/http"

	"github.com/sportatlas/backend/internal/api/handlers"
	"github.com/sportatlas/backend/internal/api/middleware"
	"github.com/sportatlas/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	agentHandler *handlers.AgentHandler
	eventHandler *handlers.EventHandler
	nluHandler   *handlers.NLUHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	agentHandler *handlers.AgentHandler,
	eventHandler *handlers.EventHandler,
	nluHandler *handlers.NLUHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:          http.NewServeMux(),
		agentHandler: agentHandler,
		eventHandler: eventHandler,
		nluHandler:   nluHandler,
		metrics:      metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Agent endpoint: natural-language query resolution
	r.mux.HandleFunc("GET /api/agent/query", r.agentHandler.HandleQuery)

	// Direct store endpoints
	r.mux.HandleFunc("GET /api/nearest-matches", r.eventHandler.NearestMatches)
	r.mux.HandleFunc("GET /api/venues/near", r.eventHandler.VenuesNear)
	r.mux.HandleFunc("GET /api/venues/{id}/next", r.eventHandler.NextAtVenue)
	r.mux.HandleFunc("GET /api/competitions", r.eventHandler.ListCompetitions)

	// Oracle passthrough endpoints (debugging slot resolution)
	if r.nluHandler != nil {
		r.mux.HandleFunc("GET /api/geocode", r.nluHandler.Geocode)
		r.mux.HandleFunc("GET /api/extract-cities", r.nluHandler.ExtractCities)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
