package repositories

import (
	"context"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// CompetitionRepository provides competition lookups.
type CompetitionRepository interface {
	// List returns all competitions ordered by name.
	List(ctx context.Context) ([]*entities.Competition, error)

	// IDsByNames resolves competition names to ids, case-insensitively.
	// Unknown names are skipped; an empty result is not an error.
	IDsByNames(ctx context.Context, names []string) ([]int64, error)
}
