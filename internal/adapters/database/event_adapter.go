package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/internal/domain/repositories"
	"github.com/sportatlas/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/sportatlas/backend/pkg/errors"
)

// EventAdapter implements EventRepository against the PostGIS store.
type EventAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.EventRepository = (*EventAdapter)(nil)

// NewEventAdapter creates a new event adapter
func NewEventAdapter(client *postgres.Client) *EventAdapter {
	return &EventAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// FindNear returns events within the radius of the given point, ordered by
// geodesic distance ascending. Distances are geography-cast metres divided
// down to kilometres.
func (a *EventAdapter) FindNear(ctx context.Context, params entities.EventSearchParams) ([]*entities.Event, error) {
	ds := a.db.Select(
		goqu.I("e.id"),
		goqu.I("e.name"),
		goqu.I("e.starts_at"),
		goqu.I("e.week"),
		goqu.I("c.id").As("competition_id"),
		goqu.I("c.name").As("competition"),
		goqu.I("v.id").As("venue_id"),
		goqu.I("v.name").As("venue"),
		goqu.I("v.city"),
		goqu.I("v.country"),
		goqu.I("v.latitude"),
		goqu.I("v.longitude"),
		goqu.L(
			"ST_Distance(v.geom::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) / 1000.0",
			params.Lon, params.Lat,
		).As("distance_km"),
	).
		From(goqu.T("events").As("e")).
		Join(goqu.T("venues").As("v"), goqu.On(goqu.I("e.venue_id").Eq(goqu.I("v.id")))).
		Join(goqu.T("competitions").As("c"), goqu.On(goqu.I("e.competition_id").Eq(goqu.I("c.id")))).
		Where(goqu.L(
			"ST_DWithin(v.geom::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)",
			params.Lon, params.Lat, params.RadiusKm*1000,
		))

	if params.DateFrom != "" {
		ds = ds.Where(goqu.L("e.starts_at::date >= ?", params.DateFrom))
	}
	if params.DateTo != "" {
		ds = ds.Where(goqu.L("e.starts_at::date <= ?", params.DateTo))
	}
	if len(params.CompetitionIDs) > 0 {
		ds = ds.Where(goqu.L("e.competition_id = ANY(?)", pq.Array(params.CompetitionIDs)))
	}
	if len(params.VenueIDs) > 0 {
		ds = ds.Where(goqu.L("e.venue_id = ANY(?)", pq.Array(params.VenueIDs)))
	}

	ds = ds.Order(goqu.I("distance_km").Asc())
	if params.Limit > 0 {
		ds = ds.Limit(uint(params.Limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build event search query", err)
	}

	return a.queryEvents(ctx, query, args...)
}

// NextAtVenue returns upcoming events at a venue, soonest first.
func (a *EventAdapter) NextAtVenue(ctx context.Context, venueID int64, limit int) ([]*entities.Event, error) {
	ds := a.db.Select(
		goqu.I("e.id"),
		goqu.I("e.name"),
		goqu.I("e.starts_at"),
		goqu.I("e.week"),
		goqu.I("c.id").As("competition_id"),
		goqu.I("c.name").As("competition"),
		goqu.I("v.id").As("venue_id"),
		goqu.I("v.name").As("venue"),
		goqu.I("v.city"),
		goqu.I("v.country"),
		goqu.I("v.latitude"),
		goqu.I("v.longitude"),
		goqu.L("0.0").As("distance_km"),
	).
		From(goqu.T("events").As("e")).
		Join(goqu.T("venues").As("v"), goqu.On(goqu.I("e.venue_id").Eq(goqu.I("v.id")))).
		Join(goqu.T("competitions").As("c"), goqu.On(goqu.I("e.competition_id").Eq(goqu.I("c.id")))).
		Where(
			goqu.I("e.venue_id").Eq(venueID),
			goqu.L("e.starts_at >= ?", time.Now()),
		).
		Order(goqu.I("e.starts_at").Asc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build next event query", err)
	}

	return a.queryEvents(ctx, query, args...)
}

func (a *EventAdapter) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*entities.Event, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query events", err)
	}
	defer rows.Close()

	var events []*entities.Event
	for rows.Next() {
		event := &entities.Event{}
		var week sql.NullInt64

		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.StartsAt,
			&week,
			&event.CompetitionID,
			&event.Competition,
			&event.VenueID,
			&event.Venue,
			&event.City,
			&event.Country,
			&event.Latitude,
			&event.Longitude,
			&event.DistanceKm,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan event", err)
		}

		if week.Valid {
			w := int(week.Int64)
			event.Week = &w
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate events", err)
	}

	return events, nil
}
