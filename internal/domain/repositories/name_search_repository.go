package repositories

import "context"

// NameSearchRepository resolves fuzzy venue/competition name references to
// store ids (typo-tolerant, unlike the repositories' exact matching). It is
// an optional collaborator: the search stage falls back to exact matching
// when it is absent or fails.
type NameSearchRepository interface {
	SearchVenueIDs(ctx context.Context, names []string) ([]int64, error)
	SearchCompetitionIDs(ctx context.Context, names []string) ([]int64, error)
}
