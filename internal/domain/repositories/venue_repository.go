package repositories

import (
	"context"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// VenueRepository provides venue lookups.
type VenueRepository interface {
	// List returns all venues, ordered by name.
	List(ctx context.Context) ([]*entities.Venue, error)

	// NearbyVenues returns venues within the radius of the given point,
	// ordered by distance ascending.
	NearbyVenues(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]*entities.Venue, error)

	// IDsByNames resolves venue names to ids, case-insensitively.
	// Unknown names are skipped; an empty result is not an error.
	IDsByNames(ctx context.Context, names []string) ([]int64, error)
}
