package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportatlas/backend/internal/application/pipeline"
	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/pkg/config"
)

type stubOracle struct {
	intent entities.Intent
	slots  entities.IntentSlots
	coord  *entities.Coordinate
	fail   bool
}

func (s *stubOracle) ClassifyIntent(context.Context, string) (*entities.IntentDecision, error) {
	if s.fail {
		return nil, errors.New("oracle down")
	}
	return &entities.IntentDecision{Intent: s.intent, Slots: s.slots}, nil
}

func (s *stubOracle) NormalizeDates(context.Context, string, time.Time) (*entities.DateRange, error) {
	return &entities.DateRange{Status: entities.DateNoTime}, nil
}

func (s *stubOracle) ExtractCities(context.Context, string) ([]entities.CityMention, error) {
	return nil, nil
}

func (s *stubOracle) Geocode(context.Context, string) (*entities.GeocodeResult, error) {
	if s.coord == nil {
		return &entities.GeocodeResult{Status: entities.GeocodeUnknown}, nil
	}
	return &entities.GeocodeResult{
		Lat: &s.coord.Lat, Lon: &s.coord.Lon,
		Confidence: 95, Status: entities.GeocodeOK,
	}, nil
}

type stubEventRepo struct {
	events []*entities.Event
	err    error
}

func (s *stubEventRepo) FindNear(context.Context, entities.EventSearchParams) ([]*entities.Event, error) {
	return s.events, s.err
}

func (s *stubEventRepo) NextAtVenue(context.Context, int64, int) ([]*entities.Event, error) {
	return s.events, s.err
}

type stubVenueRepo struct {
	venues []*entities.Venue
	err    error
}

func (s *stubVenueRepo) List(context.Context) ([]*entities.Venue, error) {
	return s.venues, s.err
}

func (s *stubVenueRepo) NearbyVenues(context.Context, float64, float64, float64, int) ([]*entities.Venue, error) {
	return s.venues, s.err
}

func (s *stubVenueRepo) IDsByNames(context.Context, []string) ([]int64, error) {
	return nil, nil
}

type stubCompetitionRepo struct {
	competitions []*entities.Competition
	err          error
}

func (s *stubCompetitionRepo) List(context.Context) ([]*entities.Competition, error) {
	return s.competitions, s.err
}

func (s *stubCompetitionRepo) IDsByNames(context.Context, []string) ([]int64, error) {
	return nil, nil
}

func newAgentHandler(oracle *stubOracle, events *stubEventRepo) *AgentHandler {
	cfg := config.PipelineConfig{
		DefaultRadiusKm: 25, MinRadiusKm: 1, MaxRadiusKm: 100,
		MaxFanOut: 5, FallbackWindowDays: 10, MaxDateDriftDays: 500,
		DefaultLimit: 20, MaxLimit: 100, PerCoordinateLimit: 50,
		RegionMinLat: 49.2, RegionMaxLat: 51.8, RegionMinLon: 2.2, RegionMaxLon: 6.6,
	}
	p := pipeline.NewPipeline(oracle, events, &stubVenueRepo{}, &stubCompetitionRepo{
		competitions: []*entities.Competition{{ID: 1, Name: "Jupiler Pro League"}},
	}, nil, nil, cfg)
	return NewAgentHandler(p)
}

func doQuery(t *testing.T, handler *AgentHandler, target string) (*httptest.ResponseRecorder, *pipeline.QueryResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.HandleQuery(rec, req)

	var resp pipeline.QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, &resp
}

func TestHandleQuerySuccess(t *testing.T) {
	oracle := &stubOracle{
		intent: entities.IntentEventsInCities,
		slots:  entities.IntentSlots{Cities: []string{"Brussels"}},
		coord:  &entities.Coordinate{Lat: 50.8503, Lon: 4.3517},
	}
	events := &stubEventRepo{events: []*entities.Event{
		{ID: 1, Name: "Union SG vs Genk", DistanceKm: 3.1},
	}}

	rec, resp := doQuery(t, newAgentHandler(oracle, events), "/api/agent/query?q=Brussels+matches")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entities.IntentEventsInCities, resp.Intent)
	assert.Equal(t, 1, resp.Count)
	require.NotNil(t, resp.Filters)
	assert.Equal(t, []string{"Brussels"}, resp.Filters.Cities)
	assert.NotEmpty(t, resp.ProcessingSteps)
}

func TestHandleQueryUnclearQueryIs422(t *testing.T) {
	oracle := &stubOracle{intent: entities.IntentUnclearQuery}

	rec, resp := doQuery(t, newAgentHandler(oracle, &stubEventRepo{}), "/api/agent/query?q=gibberish+text")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.ErrCodeUnclearQuery, resp.Error)
	assert.Equal(t, pipeline.UserMessage(pipeline.ErrCodeUnclearQuery), resp.Message)
}

func TestHandleQueryEmptyQueryIs422(t *testing.T) {
	rec, resp := doQuery(t, newAgentHandler(&stubOracle{}, &stubEventRepo{}), "/api/agent/query")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.ErrCodeClassify, resp.Error)
}

func TestHandleQueryNoLocationIs422(t *testing.T) {
	oracle := &stubOracle{intent: entities.IntentEventsNear}

	rec, resp := doQuery(t, newAgentHandler(oracle, &stubEventRepo{}), "/api/agent/query?q=events+near+me")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.ErrCodeNoLocation, resp.Error)
}

func TestHandleQuerySearchErrorIs500(t *testing.T) {
	oracle := &stubOracle{
		intent: entities.IntentEventsInCities,
		slots:  entities.IntentSlots{Cities: []string{"Brussels"}},
		coord:  &entities.Coordinate{Lat: 50.8503, Lon: 4.3517},
	}
	events := &stubEventRepo{err: errors.New("store down")}

	rec, resp := doQuery(t, newAgentHandler(oracle, events), "/api/agent/query?q=Brussels+matches")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, pipeline.ErrCodeSearch, resp.Error)
}

func TestHandleQueryCallerCoordinates(t *testing.T) {
	oracle := &stubOracle{intent: entities.IntentEventsNear}
	events := &stubEventRepo{events: []*entities.Event{{ID: 1, DistanceKm: 0.5}}}

	rec, resp := doQuery(t, newAgentHandler(oracle, events),
		"/api/agent/query?q=matches+near+me&lat=50.85&lon=4.35&limit=5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resp.Count)
}

func TestStatusForErrorCode(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusForErrorCode(pipeline.ErrCodeClassify))
	assert.Equal(t, http.StatusUnprocessableEntity, statusForErrorCode(pipeline.ErrCodeUnclearQuery))
	assert.Equal(t, http.StatusUnprocessableEntity, statusForErrorCode(pipeline.ErrCodeNoLocation))
	assert.Equal(t, http.StatusInternalServerError, statusForErrorCode(pipeline.ErrCodeSearch))
	assert.Equal(t, http.StatusInternalServerError, statusForErrorCode(pipeline.ErrCodePost))
}
