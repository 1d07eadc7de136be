package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/internal/domain/repositories"
	"github.com/sportatlas/backend/pkg/config"
)

// EventHandler exposes direct store queries, bypassing the language
// pipeline.
type EventHandler struct {
	events       repositories.EventRepository
	venues       repositories.VenueRepository
	competitions repositories.CompetitionRepository
	cfg          config.PipelineConfig
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	events repositories.EventRepository,
	venues repositories.VenueRepository,
	competitions repositories.CompetitionRepository,
	cfg config.PipelineConfig,
) *EventHandler {
	return &EventHandler{
		events:       events,
		venues:       venues,
		competitions: competitions,
		cfg:          cfg,
	}
}

// NearestMatches handles GET /api/nearest-matches
func (h *EventHandler) NearestMatches(w http.ResponseWriter, r *http.Request) {
	lat := parseFloatParam(r, "lat")
	lon := parseFloatParam(r, "lon")
	if lat == nil || lon == nil {
		respondWithError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	if coord := (entities.Coordinate{Lat: *lat, Lon: *lon}); !coord.Valid() {
		respondWithError(w, http.StatusBadRequest, "lat and lon out of range")
		return
	}

	radius := h.cfg.DefaultRadiusKm
	if raw := parseFloatParam(r, "radius_km"); raw != nil && *raw > 0 {
		radius = *raw
		if radius > h.cfg.MaxRadiusKm {
			radius = h.cfg.MaxRadiusKm
		}
		if radius < h.cfg.MinRadiusKm {
			radius = h.cfg.MinRadiusKm
		}
	}

	limit := parseIntParam(r, "limit")
	if limit <= 0 {
		limit = h.cfg.DefaultLimit
	}
	if limit > h.cfg.MaxLimit {
		limit = h.cfg.MaxLimit
	}

	events, err := h.events.FindNear(r.Context(), entities.EventSearchParams{
		Lat:            *lat,
		Lon:            *lon,
		RadiusKm:       radius,
		DateFrom:       r.URL.Query().Get("date_from"),
		DateTo:         r.URL.Query().Get("date_to"),
		CompetitionIDs: parseIDListParam(r, "competition_ids"),
		VenueIDs:       parseIDListParam(r, "venue_ids"),
		Limit:          limit,
	})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to search events")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": events,
		"count":   len(events),
	})
}

// NextAtVenue handles GET /api/venues/{id}/next
func (h *EventHandler) NextAtVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid venue id")
		return
	}

	limit := parseIntParam(r, "limit")
	if limit <= 0 {
		limit = 1
	}
	if limit > h.cfg.MaxLimit {
		limit = h.cfg.MaxLimit
	}

	events, err := h.events.NextAtVenue(r.Context(), venueID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to look up next events")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": events,
		"count":   len(events),
	})
}

// VenuesNear handles GET /api/venues/near
func (h *EventHandler) VenuesNear(w http.ResponseWriter, r *http.Request) {
	lat := parseFloatParam(r, "lat")
	lon := parseFloatParam(r, "lon")
	if lat == nil || lon == nil {
		respondWithError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	radius := h.cfg.DefaultRadiusKm
	if raw := parseFloatParam(r, "radius_km"); raw != nil && *raw > 0 {
		radius = *raw
		if radius > h.cfg.MaxRadiusKm {
			radius = h.cfg.MaxRadiusKm
		}
	}

	limit := parseIntParam(r, "limit")
	if limit <= 0 {
		limit = h.cfg.DefaultLimit
	}

	venues, err := h.venues.NearbyVenues(r.Context(), *lat, *lon, radius, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to search venues")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"venues": venues,
		"count":  len(venues),
	})
}

// ListCompetitions handles GET /api/competitions
func (h *EventHandler) ListCompetitions(w http.ResponseWriter, r *http.Request) {
	competitions, err := h.competitions.List(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list competitions")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"competitions": competitions,
		"count":        len(competitions),
	})
}

func parseIDListParam(r *http.Request, name string) []int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
