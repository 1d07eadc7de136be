package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sportatlas/backend/internal/application/pipeline"
)

// AgentHandler exposes the natural-language query pipeline.
type AgentHandler struct {
	pipeline *pipeline.Pipeline
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(p *pipeline.Pipeline) *AgentHandler {
	return &AgentHandler{pipeline: p}
}

// HandleQuery handles GET /api/agent/query
func (h *AgentHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	req := pipeline.Request{
		Query: query,
		Lat:   parseFloatParam(r, "lat"),
		Lon:   parseFloatParam(r, "lon"),
		Limit: parseIntParam(r, "limit"),
	}

	state := h.pipeline.Run(r.Context(), req)
	resp := pipeline.BuildResponse(state)

	if state.HasError() {
		respondWithJSON(w, statusForErrorCode(state.ErrorCode), resp)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// statusForErrorCode maps pipeline error codes to HTTP statuses.
// Clarification requests are client errors; store and aggregation failures
// are server errors.
func statusForErrorCode(code string) int {
	switch code {
	case pipeline.ErrCodeClassify, pipeline.ErrCodeUnclearQuery, pipeline.ErrCodeNoLocation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseFloatParam(r *http.Request, name string) *float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseIntParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
