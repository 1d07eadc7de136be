package database

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/internal/domain/repositories"
	"github.com/sportatlas/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/sportatlas/backend/pkg/errors"
)

// VenueAdapter implements VenueRepository
type VenueAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.VenueRepository = (*VenueAdapter)(nil)

// NewVenueAdapter creates a new venue adapter
func NewVenueAdapter(client *postgres.Client) *VenueAdapter {
	return &VenueAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List returns all venues ordered by name.
func (a *VenueAdapter) List(ctx context.Context) ([]*entities.Venue, error) {
	query, args, err := a.db.Select("id", "name", "city", "country", "latitude", "longitude").
		From("venues").
		Order(goqu.I("name").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build venue list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list venues", err)
	}
	defer rows.Close()

	var venues []*entities.Venue
	for rows.Next() {
		venue := &entities.Venue{}
		err := rows.Scan(
			&venue.ID,
			&venue.Name,
			&venue.City,
			&venue.Country,
			&venue.Latitude,
			&venue.Longitude,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan venue", err)
		}
		venues = append(venues, venue)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate venues", err)
	}

	return venues, nil
}

// NearbyVenues returns venues within the radius of the given point, ordered
// by geodesic distance ascending.
func (a *VenueAdapter) NearbyVenues(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]*entities.Venue, error) {
	ds := a.db.Select(
		goqu.I("v.id"),
		goqu.I("v.name"),
		goqu.I("v.city"),
		goqu.I("v.country"),
		goqu.I("v.latitude"),
		goqu.I("v.longitude"),
		goqu.L(
			"ST_Distance(v.geom::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) / 1000.0",
			lon, lat,
		).As("distance_km"),
	).
		From(goqu.T("venues").As("v")).
		Where(goqu.L(
			"ST_DWithin(v.geom::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)",
			lon, lat, radiusKm*1000,
		)).
		Order(goqu.I("distance_km").Asc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build venue search query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query venues", err)
	}
	defer rows.Close()

	var venues []*entities.Venue
	for rows.Next() {
		venue := &entities.Venue{}
		err := rows.Scan(
			&venue.ID,
			&venue.Name,
			&venue.City,
			&venue.Country,
			&venue.Latitude,
			&venue.Longitude,
			&venue.DistanceKm,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan venue", err)
		}
		venues = append(venues, venue)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate venues", err)
	}

	return venues, nil
}

// IDsByNames resolves venue names to ids, case-insensitively. Unknown names
// are skipped.
func (a *VenueAdapter) IDsByNames(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			lowered = append(lowered, trimmed)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	query, args, err := a.db.Select("id").
		From("venues").
		Where(goqu.L("LOWER(name) = ANY(?)", pq.Array(lowered))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build venue lookup query", err)
	}

	return queryIDs(ctx, a.client, query, args...)
}
