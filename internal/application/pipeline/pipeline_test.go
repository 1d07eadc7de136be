package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportatlas/backend/internal/domain/entities"
)

type fakeOracle struct {
	classifyFn func(text string) (*entities.IntentDecision, error)
	datesFn    func(text string, now time.Time) (*entities.DateRange, error)
	citiesFn   func(text string) ([]entities.CityMention, error)
	geocodeFn  func(text string) (*entities.GeocodeResult, error)

	classifyCalls int
	datesCalls    int
	citiesCalls   int
	geocodeCalls  int
}

func (f *fakeOracle) ClassifyIntent(_ context.Context, text string) (*entities.IntentDecision, error) {
	f.classifyCalls++
	if f.classifyFn == nil {
		return nil, errors.New("classify not configured")
	}
	return f.classifyFn(text)
}

func (f *fakeOracle) NormalizeDates(_ context.Context, text string, now time.Time) (*entities.DateRange, error) {
	f.datesCalls++
	if f.datesFn == nil {
		return nil, errors.New("dates not configured")
	}
	return f.datesFn(text, now)
}

func (f *fakeOracle) ExtractCities(_ context.Context, text string) ([]entities.CityMention, error) {
	f.citiesCalls++
	if f.citiesFn == nil {
		return nil, nil
	}
	return f.citiesFn(text)
}

func (f *fakeOracle) Geocode(_ context.Context, text string) (*entities.GeocodeResult, error) {
	f.geocodeCalls++
	if f.geocodeFn == nil {
		return nil, errors.New("geocode not configured")
	}
	return f.geocodeFn(text)
}

type fakeEventRepo struct {
	findNearFn    func(params entities.EventSearchParams) ([]*entities.Event, error)
	nextAtVenueFn func(venueID int64, limit int) ([]*entities.Event, error)

	findNearCalls int
}

func (f *fakeEventRepo) FindNear(_ context.Context, params entities.EventSearchParams) ([]*entities.Event, error) {
	f.findNearCalls++
	if f.findNearFn == nil {
		return nil, nil
	}
	return f.findNearFn(params)
}

func (f *fakeEventRepo) NextAtVenue(_ context.Context, venueID int64, limit int) ([]*entities.Event, error) {
	if f.nextAtVenueFn == nil {
		return nil, nil
	}
	return f.nextAtVenueFn(venueID, limit)
}

// ctxRecordingEventRepo captures the context each store query arrives with.
type ctxRecordingEventRepo struct {
	mu          sync.Mutex
	calls       int
	sawDeadline bool
	err         error
}

func (f *ctxRecordingEventRepo) FindNear(ctx context.Context, _ entities.EventSearchParams) ([]*entities.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	_, f.sawDeadline = ctx.Deadline()
	return nil, f.err
}

func (f *ctxRecordingEventRepo) NextAtVenue(context.Context, int64, int) ([]*entities.Event, error) {
	return nil, nil
}

type fakeVenueRepo struct {
	nearbyFn func(lat, lon, radiusKm float64, limit int) ([]*entities.Venue, error)
	idsFn    func(names []string) ([]int64, error)
}

func (f *fakeVenueRepo) List(context.Context) ([]*entities.Venue, error) {
	return nil, nil
}

func (f *fakeVenueRepo) NearbyVenues(_ context.Context, lat, lon, radiusKm float64, limit int) ([]*entities.Venue, error) {
	if f.nearbyFn == nil {
		return nil, nil
	}
	return f.nearbyFn(lat, lon, radiusKm, limit)
}

func (f *fakeVenueRepo) IDsByNames(_ context.Context, names []string) ([]int64, error) {
	if f.idsFn == nil {
		return nil, nil
	}
	return f.idsFn(names)
}

type fakeCompetitionRepo struct {
	listFn func() ([]*entities.Competition, error)
	idsFn  func(names []string) ([]int64, error)

	listCalls int
}

func (f *fakeCompetitionRepo) List(_ context.Context) ([]*entities.Competition, error) {
	f.listCalls++
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn()
}

func (f *fakeCompetitionRepo) IDsByNames(_ context.Context, names []string) ([]int64, error) {
	if f.idsFn == nil {
		return nil, nil
	}
	return f.idsFn(names)
}

func geocodeOK(lat, lon float64) *entities.GeocodeResult {
	return &entities.GeocodeResult{Lat: &lat, Lon: &lon, Confidence: 95, Status: entities.GeocodeOK}
}

func geocodeUnknown() *entities.GeocodeResult {
	return &entities.GeocodeResult{Status: entities.GeocodeUnknown}
}

func decision(intent entities.Intent, slots entities.IntentSlots) func(string) (*entities.IntentDecision, error) {
	return func(string) (*entities.IntentDecision, error) {
		return &entities.IntentDecision{Intent: intent, Slots: slots}, nil
	}
}

func newTestPipeline(oracle *fakeOracle, events *fakeEventRepo, venues *fakeVenueRepo, comps *fakeCompetitionRepo) *Pipeline {
	p := NewPipeline(oracle, events, venues, comps, nil, nil, testPipelineConfig())
	p.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	return p
}

func hasStep(state *State, prefix string) bool {
	for _, step := range state.Steps {
		if strings.HasPrefix(step, prefix) {
			return true
		}
	}
	return false
}

func TestRunEmptyQueryFailsWithoutOracleCall(t *testing.T) {
	oracle := &fakeOracle{}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: ""})

	assert.Equal(t, ErrCodeClassify, state.ErrorCode)
	assert.Equal(t, UserMessage(ErrCodeClassify), state.ErrorMessage)
	assert.Zero(t, oracle.classifyCalls, "oracle must not be consulted for an empty query")

	state = p.Run(context.Background(), Request{Query: "  a  "})
	assert.Equal(t, ErrCodeClassify, state.ErrorCode)
	assert.Zero(t, oracle.classifyCalls)
}

func TestRunUnclearQueryShortCircuits(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentUnclearQuery, entities.IntentSlots{}),
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "asdf qwerty zzz"})

	assert.Equal(t, ErrCodeUnclearQuery, state.ErrorCode)
	assert.Equal(t, UserMessage(ErrCodeUnclearQuery), state.ErrorMessage)
	assert.Zero(t, oracle.datesCalls, "no further resolution after unclear_query")
	assert.Zero(t, oracle.geocodeCalls)
}

func TestRunOracleFailureIsClassifyError(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: func(string) (*entities.IntentDecision, error) {
			return nil, errors.New("connection refused")
		},
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "matches near me"})

	assert.Equal(t, ErrCodeClassify, state.ErrorCode)
}

func TestRunListCompetitionsSkipsDatesAndLocation(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentListCompetitions, entities.IntentSlots{}),
	}
	comps := &fakeCompetitionRepo{
		listFn: func() ([]*entities.Competition, error) {
			return []*entities.Competition{
				{ID: 1, Name: "Jupiler Pro League"},
				{ID: 2, Name: "Challenger Pro League"},
			}, nil
		},
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, comps)

	state := p.Run(context.Background(), Request{Query: "which leagues do you cover"})

	require.False(t, state.HasError())
	assert.Len(t, state.Competitions, 2)
	assert.Equal(t, 1, comps.listCalls)

	assert.Zero(t, oracle.datesCalls)
	assert.Zero(t, oracle.geocodeCalls)
	assert.False(t, hasStep(state, "resolve_dates"), "dates stage must not run")
	assert.False(t, hasStep(state, "resolve_location"), "location stage must not run")
	assert.True(t, hasStep(state, "post_skipped: list_competitions"))
}

func TestRunBrusselsWeekendEndToEnd(t *testing.T) {
	kickoffSat := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	kickoffSun := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)

	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities: []string{"Brussels"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{
				Status:      entities.DateOK,
				TimeKeyword: entities.KeywordThisWeekend,
				From:        "2026-08-29",
				To:          "2026-08-30",
				Confidence:  95,
			}, nil
		},
		geocodeFn: func(text string) (*entities.GeocodeResult, error) {
			require.Equal(t, "Brussels", text)
			return geocodeOK(50.8503, 4.3517), nil
		},
	}

	events := &fakeEventRepo{
		findNearFn: func(params entities.EventSearchParams) ([]*entities.Event, error) {
			assert.InDelta(t, 50.8503, params.Lat, 0.001)
			assert.Equal(t, "2026-08-29", params.DateFrom)
			assert.Equal(t, "2026-08-30", params.DateTo)
			assert.Equal(t, 25.0, params.RadiusKm)
			return []*entities.Event{
				{ID: 10, Name: "Union SG vs Genk", StartsAt: kickoffSun, DistanceKm: 3.1},
				{ID: 11, Name: "Anderlecht vs Club Brugge", StartsAt: kickoffSat, DistanceKm: 5.4},
				{ID: 10, Name: "Union SG vs Genk", StartsAt: kickoffSun, DistanceKm: 7.7},
			}, nil
		},
	}

	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "Brussels matches this weekend", Limit: 10})

	require.False(t, state.HasError(), "steps: %v", state.Steps)
	assert.Equal(t, 1, events.findNearCalls, "one coordinate, one store query")

	require.Len(t, state.Events, 2, "duplicate event ids collapse")
	assert.Equal(t, int64(10), state.Events[0].ID)
	assert.InDelta(t, 3.1, state.Events[0].DistanceKm, 0.001, "min distance kept for duplicate")
	assert.Equal(t, int64(11), state.Events[1].ID)

	assert.False(t, state.UnclearTimeFallback)
	assert.True(t, hasStep(state, "location_from_city: Brussels"))
	assert.True(t, hasStep(state, "dates_resolved:"))
}

func TestRunCallerCoordinateWinsOverCitySlots(t *testing.T) {
	lat, lon := 51.2194, 4.4025

	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsNear, entities.IntentSlots{
			Cities: []string{"Brussels"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
	}
	events := &fakeEventRepo{
		findNearFn: func(params entities.EventSearchParams) ([]*entities.Event, error) {
			assert.InDelta(t, lat, params.Lat, 0.0001)
			assert.InDelta(t, lon, params.Lon, 0.0001)
			return nil, nil
		},
	}
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "matches near me", Lat: &lat, Lon: &lon})

	require.False(t, state.HasError())
	assert.Zero(t, oracle.geocodeCalls, "city slots are ignored when caller coordinates exist")
	assert.True(t, hasStep(state, "location_from_user_coords"))
	assert.Equal(t, "2026-08-28", state.DateFrom, "NO_TIME defaults to today only")
	assert.Equal(t, "2026-08-28", state.DateTo)
}

func TestRunNoLocationError(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsNear, entities.IntentSlots{}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		citiesFn: func(string) ([]entities.CityMention, error) {
			return nil, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeUnknown(), nil
		},
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "events near me"})

	assert.Equal(t, ErrCodeNoLocation, state.ErrorCode)
	assert.Equal(t, UserMessage(ErrCodeNoLocation), state.ErrorMessage)
}

func TestRunUnclearTimeFallsBackToTenDays(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities: []string{"Ghent"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateUnclear, TimeKeyword: entities.KeywordSoon}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(51.0543, 3.7174), nil
		},
	}
	events := &fakeEventRepo{
		findNearFn: func(params entities.EventSearchParams) ([]*entities.Event, error) {
			assert.Equal(t, "2026-08-28", params.DateFrom)
			assert.Equal(t, "2026-09-07", params.DateTo)
			return []*entities.Event{{ID: 1, DistanceKm: 2}}, nil
		},
	}
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "Ghent matches soon"})

	require.False(t, state.HasError(), "unclear time is a fallback, not an error")
	assert.True(t, state.UnclearTimeFallback)
	assert.True(t, hasStep(state, "unclear_time_fallback:"))
	assert.Len(t, state.Events, 1)

	resp := BuildResponse(state)
	require.NotNil(t, resp.FallbackInfo)
	assert.Equal(t, "unclear_time", resp.FallbackInfo.Type)
	assert.Equal(t, "next_10_days", resp.FallbackInfo.FallbackPeriod)
}

func TestRunDateSanityViolationTriggersFallback(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities: []string{"Ghent"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			// Claims OK but the range is inverted.
			return &entities.DateRange{
				Status: entities.DateOK, From: "2026-09-10", To: "2026-09-01", Confidence: 99,
			}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(51.0543, 3.7174), nil
		},
	}
	events := &fakeEventRepo{}
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "Ghent matches whenever"})

	require.False(t, state.HasError())
	assert.True(t, state.UnclearTimeFallback, "sanity violations use the fallback window")
	assert.Equal(t, "2026-08-28", state.DateFrom)
	assert.Equal(t, "2026-09-07", state.DateTo)
}

func TestRunMultiCityFanOutWithPartialFailure(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities: []string{"Brussels", "Atlantis", "Ghent", "brussels"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(text string) (*entities.GeocodeResult, error) {
			switch text {
			case "Brussels":
				return geocodeOK(50.8503, 4.3517), nil
			case "Ghent":
				return geocodeOK(51.0543, 3.7174), nil
			default:
				return geocodeUnknown(), nil
			}
		},
	}
	repo := &fakeEventRepo{
		findNearFn: func(params entities.EventSearchParams) ([]*entities.Event, error) {
			return nil, nil
		},
	}
	p := newTestPipeline(oracle, repo, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "games in Brussels and Ghent"})

	require.False(t, state.HasError(), "unresolvable city is skipped, not fatal")
	assert.Len(t, state.Coords, 2, "duplicate city geocoded once, unknown city skipped")
	assert.Equal(t, 3, oracle.geocodeCalls, "each unique city geocoded exactly once")
	assert.Equal(t, 2, repo.findNearCalls, "one store query per resolved coordinate")
	assert.True(t, hasStep(state, "location_city_unknown: Atlantis"))
}

func TestRunOutOfRegionCoordinateRejected(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities: []string{"Paris"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(text string) (*entities.GeocodeResult, error) {
			if text == "Paris" {
				return geocodeOK(48.8566, 2.3522), nil
			}
			return geocodeUnknown(), nil
		},
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "matches in Paris"})

	assert.Equal(t, ErrCodeNoLocation, state.ErrorCode)
	assert.True(t, hasStep(state, "location_out_of_region: Paris"))
}

func TestRunSearchErrorWhenAllCoordinatesFail(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities: []string{"Brussels"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8503, 4.3517), nil
		},
	}
	events := &fakeEventRepo{
		findNearFn: func(entities.EventSearchParams) ([]*entities.Event, error) {
			return nil, errors.New("store down")
		},
	}
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "Brussels matches"})

	assert.Equal(t, ErrCodeSearch, state.ErrorCode)
	assert.Equal(t, UserMessage(ErrCodeSearch), state.ErrorMessage)
}

func TestRunVenuesNear(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentVenuesNear, entities.IntentSlots{
			Cities: []string{"Leuven"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8798, 4.7005), nil
		},
	}
	venues := &fakeVenueRepo{
		nearbyFn: func(lat, lon, radiusKm float64, limit int) ([]*entities.Venue, error) {
			return []*entities.Venue{
				{ID: 1, Name: "King Power at Den Dreef", DistanceKm: 1.2},
			}, nil
		},
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, venues, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "stadiums near Leuven"})

	require.False(t, state.HasError())
	require.Len(t, state.Venues, 1)
	assert.Equal(t, "King Power at Den Dreef", state.Venues[0].Name)
}

func TestRunNextAtVenue(t *testing.T) {
	kickoff := time.Date(2026, 9, 2, 20, 45, 0, 0, time.UTC)

	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentNextAtVenue, entities.IntentSlots{
			Venues: []string{"Lotto Park"},
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		citiesFn: func(string) ([]entities.CityMention, error) { return nil, nil },
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8342, 4.2985), nil
		},
	}
	venues := &fakeVenueRepo{
		idsFn: func(names []string) ([]int64, error) {
			assert.Equal(t, []string{"Lotto Park"}, names)
			return []int64{5}, nil
		},
	}
	events := &fakeEventRepo{
		nextAtVenueFn: func(venueID int64, limit int) ([]*entities.Event, error) {
			assert.Equal(t, int64(5), venueID)
			return []*entities.Event{{ID: 42, Name: "Anderlecht vs Standard", StartsAt: kickoff, VenueID: 5}}, nil
		},
	}
	p := newTestPipeline(oracle, events, venues, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "next match at Lotto Park"})

	require.False(t, state.HasError(), "steps: %v", state.Steps)
	require.Len(t, state.Events, 1)
	assert.Equal(t, int64(42), state.Events[0].ID)
}

func TestRunCityExtractionSupplementsEmptySlots(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsNear, entities.IntentSlots{}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		citiesFn: func(string) ([]entities.CityMention, error) {
			return []entities.CityMention{
				{Text: "Antwerp", Normalized: "Antwerpen", Type: entities.MentionCity, Confidence: 92},
			}, nil
		},
		geocodeFn: func(text string) (*entities.GeocodeResult, error) {
			if text == "Antwerpen" {
				return geocodeOK(51.2194, 4.4025), nil
			}
			return geocodeUnknown(), nil
		},
	}
	events := &fakeEventRepo{}
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "what can I watch around the Antwerp area"})

	require.False(t, state.HasError())
	assert.True(t, hasStep(state, "location_from_city: Antwerpen"))
}

func TestRunRadiusSlotAdopted(t *testing.T) {
	radius := 500.0
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{
			Cities:   []string{"Brussels"},
			RadiusKm: &radius,
		}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8503, 4.3517), nil
		},
	}
	events := &fakeEventRepo{
		findNearFn: func(params entities.EventSearchParams) ([]*entities.Event, error) {
			assert.Equal(t, 100.0, params.RadiusKm, "oversized slot radius clamps to max")
			return nil, nil
		},
	}
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "Brussels matches within 500 km"})
	require.False(t, state.HasError())
}

func TestBuildResponseErrorPayload(t *testing.T) {
	state := NewState(Request{Query: "???"})
	state.SetError(ErrCodeUnclearQuery, "query classified as unclear")
	state.ErrorMessage = UserMessage(ErrCodeUnclearQuery)

	resp := BuildResponse(state)

	assert.Equal(t, ErrCodeUnclearQuery, resp.Error)
	assert.Equal(t, UserMessage(ErrCodeUnclearQuery), resp.Message)
	assert.Zero(t, resp.Count)
	assert.Nil(t, resp.Filters)
}

func TestRunRejectsUnknownIntentFromProvider(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.Intent("events_by_timeframe"), entities.IntentSlots{}),
	}
	p := newTestPipeline(oracle, &fakeEventRepo{}, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "games tomorrow"})

	assert.Equal(t, ErrCodeClassify, state.ErrorCode)
	assert.Zero(t, oracle.datesCalls, "an out-of-set intent must not reach later stages")
}

func TestRunSearchBoundsStoreQueries(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{Cities: []string{"Brussels"}}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8503, 4.3517), nil
		},
	}
	repo := &ctxRecordingEventRepo{}
	p := NewPipeline(oracle, repo, &fakeVenueRepo{}, &fakeCompetitionRepo{}, nil, nil, testPipelineConfig())
	p.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }

	state := p.Run(context.Background(), Request{Query: "Brussels matches"})

	require.False(t, state.HasError())
	assert.Equal(t, 1, repo.calls)
	assert.True(t, repo.sawDeadline, "store queries must carry a deadline")
}

func TestRunSearchFanOutHonorsCancellation(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{Cities: []string{"Brussels"}}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8503, 4.3517), nil
		},
	}
	repo := &ctxRecordingEventRepo{}
	p := NewPipeline(oracle, repo, &fakeVenueRepo{}, &fakeCompetitionRepo{}, nil, nil, testPipelineConfig())
	p.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := p.Run(ctx, Request{Query: "Brussels matches"})

	assert.Equal(t, ErrCodeSearch, state.ErrorCode)
	assert.Zero(t, repo.calls, "no store query once the request context is gone")
}

func TestRunSearchRetriesTransientStoreFailure(t *testing.T) {
	oracle := &fakeOracle{
		classifyFn: decision(entities.IntentEventsInCities, entities.IntentSlots{Cities: []string{"Brussels"}}),
		datesFn: func(string, time.Time) (*entities.DateRange, error) {
			return &entities.DateRange{Status: entities.DateNoTime}, nil
		},
		geocodeFn: func(string) (*entities.GeocodeResult, error) {
			return geocodeOK(50.8503, 4.3517), nil
		},
	}
	events := &fakeEventRepo{
		findNearFn: func(entities.EventSearchParams) ([]*entities.Event, error) {
			return nil, errors.New("connection reset")
		},
	}
	events.findNearFn = func() func(entities.EventSearchParams) ([]*entities.Event, error) {
		return func(entities.EventSearchParams) ([]*entities.Event, error) {
			if events.findNearCalls == 1 {
				return nil, errors.New("connection reset")
			}
			return []*entities.Event{{ID: 1, Name: "Union SG vs Genk", DistanceKm: 2.4}}, nil
		}
	}()
	p := newTestPipeline(oracle, events, &fakeVenueRepo{}, &fakeCompetitionRepo{})

	state := p.Run(context.Background(), Request{Query: "Brussels matches"})

	require.False(t, state.HasError(), "one transient failure is absorbed by the retry")
	assert.Equal(t, 2, events.findNearCalls)
	assert.Len(t, state.Events, 1)
}
