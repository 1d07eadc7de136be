package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/internal/domain/repositories"
	"github.com/sportatlas/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/sportatlas/backend/pkg/errors"
)

// CompetitionAdapter implements CompetitionRepository
type CompetitionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.CompetitionRepository = (*CompetitionAdapter)(nil)

// NewCompetitionAdapter creates a new competition adapter
func NewCompetitionAdapter(client *postgres.Client) *CompetitionAdapter {
	return &CompetitionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List returns all competitions ordered by name.
func (a *CompetitionAdapter) List(ctx context.Context) ([]*entities.Competition, error) {
	query, args, err := a.db.Select("id", "name", "season", "country").
		From("competitions").
		Order(goqu.I("name").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build competition list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query competitions", err)
	}
	defer rows.Close()

	var competitions []*entities.Competition
	for rows.Next() {
		competition := &entities.Competition{}
		var season, country sql.NullString

		err := rows.Scan(&competition.ID, &competition.Name, &season, &country)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan competition", err)
		}

		competition.Season = season.String
		competition.Country = country.String
		competitions = append(competitions, competition)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate competitions", err)
	}

	return competitions, nil
}

// IDsByNames resolves competition names to ids, case-insensitively. Unknown
// names are skipped.
func (a *CompetitionAdapter) IDsByNames(ctx context.Context, names []string) ([]int64, error) {
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
		From("competitions").
		Where(goqu.L("LOWER(name) = ANY(?)", pq.Array(lowered))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build competition lookup query", err)
	}

	return queryIDs(ctx, a.client, query, args...)
}

// queryIDs runs an id-projection query and collects the results.
func queryIDs(ctx context.Context, client *postgres.Client, query string, args ...interface{}) ([]int64, error) {
	rows, err := client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate ids", err)
	}

	return ids, nil
}
