package repositories

import (
	"context"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// EventRepository is the geospatial store contract for fixtures.
type EventRepository interface {
	// FindNear returns events within the radius of the given point,
	// filtered by date range and optional competition/venue ids, ordered
	// by geodesic distance ascending.
	FindNear(ctx context.Context, params entities.EventSearchParams) ([]*entities.Event, error)

	// NextAtVenue returns upcoming events at a venue, soonest first.
	// Past events are excluded.
	NextAtVenue(ctx context.Context, venueID int64, limit int) ([]*entities.Event, error)
}
