package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/internal/domain/providers"
	"github.com/sportatlas/backend/internal/domain/repositories"
	"github.com/sportatlas/backend/internal/infrastructure/observability"
	"github.com/sportatlas/backend/pkg/config"
	"github.com/sportatlas/backend/pkg/retry"
)

// Pipeline orchestrates query resolution: classification, date and location
// resolution, geospatial search and result aggregation. One Run call is one
// independent execution over a request-scoped State.
type Pipeline struct {
	oracle       providers.NLUProvider
	events       repositories.EventRepository
	venues       repositories.VenueRepository
	competitions repositories.CompetitionRepository

	// nameSearch is optional; nil or failing lookups fall back to the
	// repositories' exact matching.
	nameSearch repositories.NameSearchRepository

	metrics *observability.Metrics
	cfg     config.PipelineConfig

	now func() time.Time
}

// NewPipeline creates a pipeline. nameSearch and metrics may be nil.
func NewPipeline(
	oracle providers.NLUProvider,
	events repositories.EventRepository,
	venues repositories.VenueRepository,
	competitions repositories.CompetitionRepository,
	nameSearch repositories.NameSearchRepository,
	metrics *observability.Metrics,
	cfg config.PipelineConfig,
) *Pipeline {
	return &Pipeline{
		oracle:       oracle,
		events:       events,
		venues:       venues,
		competitions: competitions,
		nameSearch:   nameSearch,
		metrics:      metrics,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Run executes the state machine to completion and returns the final state.
func (p *Pipeline) Run(ctx context.Context, req Request) *State {
	ctx, span := observability.StartSpan(ctx, "pipeline.Run")
	defer span.End()

	state := NewState(req)
	state.Limit = resolveLimit(req.Limit, p.cfg)

	for stage := StageClassify; stage != StageDone; {
		start := time.Now()
		next := p.transition(ctx, stage, state)
		if p.metrics != nil {
			observability.RecordStageMetric(ctx, p.metrics, stage.String(), time.Since(start))
		}
		stage = next
	}

	if state.HasError() && p.metrics != nil {
		observability.RecordPipelineError(ctx, p.metrics, state.ErrorCode)
	}

	return state
}

// transition runs one stage and returns the next. Branching is confined to
// the list_competitions skip and the error short-circuit.
func (p *Pipeline) transition(ctx context.Context, stage Stage, state *State) Stage {
	switch stage {
	case StageClassify:
		p.classify(ctx, state)
		if state.HasError() {
			return StageError
		}
		if state.Intent == entities.IntentListCompetitions {
			return StageSearch
		}
		return StageDates

	case StageDates:
		p.resolveDates(ctx, state)
		if state.HasError() {
			return StageError
		}
		return StageLocation

	case StageLocation:
		p.resolveLocation(ctx, state)
		if state.HasError() {
			return StageError
		}
		return StageSearch

	case StageSearch:
		p.search(ctx, state)
		if state.HasError() {
			return StageError
		}
		return StagePost

	case StagePost:
		p.post(state)
		if state.HasError() {
			return StageError
		}
		return StageDone

	case StageError:
		p.handleError(state)
		return StageDone
	}

	return StageDone
}

func (p *Pipeline) classify(ctx context.Context, state *State) {
	state.AddStep("classify_intent")

	if countNonSpace(state.Query) < 2 {
		state.SetError(ErrCodeClassify, "empty or too short query")
		return
	}

	decision, err := p.oracle.ClassifyIntent(ctx, state.Query)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("intent classification failed")
		state.SetError(ErrCodeClassify, "intent classification failed")
		return
	}

	// The intent set is closed; an out-of-set answer from any provider is a
	// classification failure, never a default.
	if !decision.Intent.IsValid() {
		state.SetError(ErrCodeClassify, "unknown intent returned")
		return
	}

	if decision.Intent == entities.IntentUnclearQuery {
		state.SetError(ErrCodeUnclearQuery, "query classified as unclear")
		return
	}

	state.Intent = decision.Intent
	state.Slots = decision.Slots
	state.RadiusKm = resolveRadius(decision.Slots.RadiusKm, p.cfg)
	if decision.Slots.Sort.IsValid() {
		state.Sort = decision.Slots.Sort
	}

	state.AddStep("intent_classified: %s", state.Intent)
}

func (p *Pipeline) resolveDates(ctx context.Context, state *State) {
	state.AddStep("resolve_dates")

	now := p.now()

	// Explicit ISO dates in the slots win over a second oracle round-trip.
	dr := &entities.DateRange{
		Status: entities.DateOK,
		From:   state.Slots.DateFrom,
		To:     state.Slots.DateTo,
	}
	if state.Slots.DateFrom == "" || state.Slots.DateTo == "" {
		var err error
		dr, err = p.oracle.NormalizeDates(ctx, state.Query, now)
		if err != nil {
			// Degrades to the unclear-time fallback rather than failing
			// the whole request over a date hint.
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("date normalization failed")
			state.AddStep("dates_oracle_error")
			dr = &entities.DateRange{Status: entities.DateUnclear}
		}
	}

	sanitizeDateRange(dr, now, p.cfg.MaxDateDriftDays)

	switch dr.Status {
	case entities.DateOK:
		state.DateStatus = entities.DateOK
		state.TimeKeyword = dr.TimeKeyword
		state.DateFrom = dr.From
		state.DateTo = dr.To
		state.AddStep("dates_resolved: %s to %s (keyword: %s)", state.DateFrom, state.DateTo, state.TimeKeyword)

	case entities.DateNoTime:
		today := now.Format(entities.DateLayout)
		state.DateStatus = entities.DateNoTime
		state.DateFrom = today
		state.DateTo = today
		state.AddStep("dates_default: %s", today)

	case entities.DateUnclear:
		state.DateStatus = entities.DateUnclear
		state.DateFrom = now.Format(entities.DateLayout)
		state.DateTo = now.AddDate(0, 0, p.cfg.FallbackWindowDays).Format(entities.DateLayout)
		state.UnclearTimeFallback = true
		state.AddStep("dates_fallback_10days: %s to %s", state.DateFrom, state.DateTo)
		state.AddStep("unclear_time_fallback: showing next %d days", p.cfg.FallbackWindowDays)
	}
}

func (p *Pipeline) resolveLocation(ctx context.Context, state *State) {
	state.AddStep("resolve_location")

	// Caller coordinates always win; city slots are ignored when present.
	if state.Lat != nil && state.Lon != nil {
		coord := entities.Coordinate{Lat: *state.Lat, Lon: *state.Lon}
		if coord.Valid() {
			state.Coords = append(state.Coords, coord)
			state.AddStep("location_from_user_coords")
			state.AddStep("location_resolved: %d coordinates", len(state.Coords))
			return
		}
	}

	region := entities.BoundingBox{
		MinLat: p.cfg.RegionMinLat,
		MaxLat: p.cfg.RegionMaxLat,
		MinLon: p.cfg.RegionMinLon,
		MaxLon: p.cfg.RegionMaxLon,
	}

	cities := state.Slots.Cities
	if len(cities) == 0 {
		// The classifier may leave city slots empty on phrasings the
		// extractor still recognizes ("games around the Ghent area").
		mentions, err := p.oracle.ExtractCities(ctx, state.Query)
		if err == nil {
			for _, mention := range mentions {
				name := mention.Normalized
				if name == "" {
					name = mention.Text
				}
				cities = append(cities, name)
			}
		}
	}

	for _, city := range dedupeNames(cities) {
		result, err := p.oracle.Geocode(ctx, city)
		if err != nil {
			state.AddStep("location_city_error: %s", city)
			continue
		}
		coord, ok := result.Coordinate()
		if !ok {
			state.AddStep("location_city_unknown: %s", city)
			continue
		}
		if !region.Contains(coord) {
			state.AddStep("location_out_of_region: %s", city)
			continue
		}
		state.Coords = append(state.Coords, coord)
		state.AddStep("location_from_city: %s", city)
	}

	// Last resort: geocode the raw query text.
	if len(state.Coords) == 0 {
		if result, err := p.oracle.Geocode(ctx, state.Query); err == nil {
			if coord, ok := result.Coordinate(); ok && region.Contains(coord) {
				state.Coords = append(state.Coords, coord)
				state.AddStep("location_from_query")
			}
		}
	}

	if len(state.Coords) == 0 {
		state.SetError(ErrCodeNoLocation, "no coordinate resolved")
		return
	}

	state.AddStep("location_resolved: %d coordinates", len(state.Coords))
}

func (p *Pipeline) search(ctx context.Context, state *State) {
	state.AddStep("search_events")

	switch state.Intent {
	case entities.IntentListCompetitions:
		var competitions []*entities.Competition
		err := p.storeCall(ctx, func(qctx context.Context) error {
			var listErr error
			competitions, listErr = p.competitions.List(qctx)
			return listErr
		})
		if err != nil {
			state.SetError(ErrCodeSearch, "competition list failed")
			return
		}
		state.Competitions = competitions
		state.AddStep("search_competitions_completed: %d", len(competitions))

	case entities.IntentVenuesNear:
		p.searchVenuesNear(ctx, state)

	case entities.IntentNextAtVenue:
		p.searchNextAtVenue(ctx, state)

	default:
		p.searchEventsNear(ctx, state)
	}
}

func (p *Pipeline) searchVenuesNear(ctx context.Context, state *State) {
	coord := state.Coords[0]
	var venues []*entities.Venue
	err := p.storeCall(ctx, func(qctx context.Context) error {
		var searchErr error
		venues, searchErr = p.venues.NearbyVenues(qctx, coord.Lat, coord.Lon, state.RadiusKm, state.Limit)
		return searchErr
	})
	if err != nil {
		state.SetError(ErrCodeSearch, "venue search failed")
		return
	}
	state.Venues = venues
	state.AddStep("search_venues_completed: %d", len(venues))
}

func (p *Pipeline) searchNextAtVenue(ctx context.Context, state *State) {
	ids := p.resolveVenueIDs(ctx, state)
	if len(ids) == 0 {
		state.AddStep("search_completed: 0 unique results")
		return
	}

	var events []*entities.Event
	err := p.storeCall(ctx, func(qctx context.Context) error {
		var lookupErr error
		events, lookupErr = p.events.NextAtVenue(qctx, ids[0], state.Limit)
		return lookupErr
	})
	if err != nil {
		state.SetError(ErrCodeSearch, "next event lookup failed")
		return
	}
	state.Events = events
	state.AddStep("search_completed: %d unique results", len(events))
}

// searchEventsNear issues one proximity query per resolved coordinate,
// concurrently, capped at the fan-out limit. Individual coordinate failures
// are traced and skipped; the stage fails only when every query failed.
func (p *Pipeline) searchEventsNear(ctx context.Context, state *State) {
	compIDs := p.resolveCompetitionIDs(ctx, state)
	venueIDs := p.resolveVenueIDs(ctx, state)

	coords := state.Coords
	if len(coords) > p.cfg.MaxFanOut {
		coords = coords[:p.cfg.MaxFanOut]
	}

	var (
		mu      sync.Mutex
		rows    []*entities.Event
		steps   = make([]string, len(coords))
		failed  int
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxFanOut)

	for i, coord := range coords {
		g.Go(func() error {
			var found []*entities.Event
			err := p.storeCall(gctx, func(qctx context.Context) error {
				var searchErr error
				found, searchErr = p.events.FindNear(qctx, entities.EventSearchParams{
					Lat:            coord.Lat,
					Lon:            coord.Lon,
					RadiusKm:       state.RadiusKm,
					DateFrom:       state.DateFrom,
					DateTo:         state.DateTo,
					CompetitionIDs: compIDs,
					VenueIDs:       venueIDs,
					Limit:          p.cfg.PerCoordinateLimit,
				})
				return searchErr
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				steps[i] = "search_coord_error: " + err.Error()
				return nil
			}
			rows = append(rows, found...)
			steps[i] = stepSearchCoord(coord, len(found))
			return nil
		})
	}
	_ = g.Wait()

	for _, step := range steps {
		if step != "" {
			state.AddStep("%s", step)
		}
	}

	if failed == len(coords) && lastErr != nil {
		state.SetError(ErrCodeSearch, "all coordinate searches failed")
		return
	}

	// Dedupe here so the post stage works on unique events; distance
	// re-ranking still happens there.
	state.Events = aggregateEvents(rows, state.Sort, 0)
	state.AddStep("search_completed: %d unique results", len(state.Events))
}

func (p *Pipeline) post(state *State) {
	state.AddStep("post_process")

	switch state.Intent {
	case entities.IntentListCompetitions:
		state.AddStep("post_skipped: list_competitions")

	case entities.IntentVenuesNear:
		if state.Limit > 0 && len(state.Venues) > state.Limit {
			state.Venues = state.Venues[:state.Limit]
		}
		state.AddStep("post_completed: %d final results", len(state.Venues))

	default:
		state.Events = aggregateEvents(state.Events, state.Sort, state.Limit)
		state.AddStep("post_completed: %d final results", len(state.Events))
	}
}

func (p *Pipeline) handleError(state *State) {
	state.AddStep("handle_error")
	state.ErrorMessage = UserMessage(state.ErrorCode)
	state.AddStep("error_handled: %s", state.ErrorCode)
}

// resolveCompetitionIDs is best-effort: fuzzy index first, exact database
// matching as fallback. An empty result means no filter, never an error.
func (p *Pipeline) resolveCompetitionIDs(ctx context.Context, state *State) []int64 {
	names := dedupeNames(state.Slots.Competitions)
	if len(names) == 0 {
		return nil
	}

	qctx, cancel := context.WithTimeout(ctx, p.storeTimeout())
	defer cancel()

	if p.nameSearch != nil {
		if ids, err := p.nameSearch.SearchCompetitionIDs(qctx, names); err == nil && len(ids) > 0 {
			state.AddStep("competition_ids_resolved: %d", len(ids))
			return ids
		}
	}

	ids, err := p.competitions.IDsByNames(qctx, names)
	if err != nil {
		state.AddStep("competition_ids_error")
		return nil
	}
	state.AddStep("competition_ids_resolved: %d", len(ids))
	return ids
}

func (p *Pipeline) resolveVenueIDs(ctx context.Context, state *State) []int64 {
	names := dedupeNames(state.Slots.Venues)
	if len(names) == 0 {
		return nil
	}

	qctx, cancel := context.WithTimeout(ctx, p.storeTimeout())
	defer cancel()

	if p.nameSearch != nil {
		if ids, err := p.nameSearch.SearchVenueIDs(qctx, names); err == nil && len(ids) > 0 {
			state.AddStep("venue_ids_resolved: %d", len(ids))
			return ids
		}
	}

	ids, err := p.venues.IDsByNames(qctx, names)
	if err != nil {
		state.AddStep("venue_ids_error")
		return nil
	}
	state.AddStep("venue_ids_resolved: %d", len(ids))
	return ids
}

func (p *Pipeline) storeTimeout() time.Duration {
	if p.cfg.StoreTimeoutSeconds > 0 {
		return time.Duration(p.cfg.StoreTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}

// storeCall runs one store query with a per-attempt deadline and the small
// bounded retry granted to in-request store access. A stalled connection is
// cut off by the deadline instead of holding the request open.
func (p *Pipeline) storeCall(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, retry.TransientConfig(), func() error {
		qctx, cancel := context.WithTimeout(ctx, p.storeTimeout())
		defer cancel()
		return fn(qctx)
	}, nil)
}

func stepSearchCoord(coord entities.Coordinate, count int) string {
	return fmt.Sprintf("search_coord: %.3f,%.3f -> %d results", coord.Lat, coord.Lon, count)
}

func countNonSpace(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}
