package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/sportatlas/backend/internal/domain/repositories"
	tsclient "github.com/sportatlas/backend/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter resolves fuzzy venue and competition name references to
// store ids. Hits are typo-tolerant; callers fall back to exact database
// matching when this adapter is unavailable.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.NameSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// SearchVenueIDs resolves venue name references against the venues index.
func (a *TypesenseAdapter) SearchVenueIDs(ctx context.Context, names []string) ([]int64, error) {
	return a.searchIDs(ctx, tsclient.VenuesCollection, "name,aliases", names)
}

// SearchCompetitionIDs resolves competition name references against the
// competitions index.
func (a *TypesenseAdapter) SearchCompetitionIDs(ctx context.Context, names []string) ([]int64, error) {
	return a.searchIDs(ctx, tsclient.CompetitionsCollection, "name,aliases", names)
}

func (a *TypesenseAdapter) searchIDs(ctx context.Context, collection, queryBy string, names []string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)

	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}

		searchParams := &api.SearchCollectionParams{
			Q:                   pointer.String(trimmed),
			QueryBy:             pointer.String(queryBy),
			PerPage:             pointer.Int(3),
			NumTypos:            pointer.String("2"),
			DropTokensThreshold: pointer.Int(1),
		}

		result, err := a.client.Client().Collection(collection).Documents().Search(ctx, searchParams)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", collection, err)
		}

		if result.Hits == nil {
			continue
		}
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			doc := *hit.Document

			rawID, ok := doc["id"].(string)
			if !ok {
				continue
			}
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				continue
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}
