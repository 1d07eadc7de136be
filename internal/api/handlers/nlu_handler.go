package handlers

import (
	"net/http"
	"strings"

	"github.com/sportatlas/backend/internal/domain/providers"
)

// NLUHandler exposes oracle passthrough endpoints for debugging slot
// resolution without running the full pipeline.
type NLUHandler struct {
	oracle providers.NLUProvider
}

// NewNLUHandler creates a new NLU handler
func NewNLUHandler(oracle providers.NLUProvider) *NLUHandler {
	return &NLUHandler{oracle: oracle}
}

// Geocode handles GET /api/geocode
func (h *NLUHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "q is required")
		return
	}

	result, err := h.oracle.Geocode(r.Context(), query)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "geocoding failed")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ExtractCities handles GET /api/extract-cities
func (h *NLUHandler) ExtractCities(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "q is required")
		return
	}

	mentions, err := h.oracle.ExtractCities(r.Context(), query)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "city extraction failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"mentions": mentions,
		"count":    len(mentions),
	})
}
