package pipeline

import (
	"sort"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// aggregateEvents deduplicates multi-coordinate search results by event id,
// keeping the minimum-distance occurrence, then stable-sorts by the
// requested mode and truncates to limit. Ties keep the store's natural row
// order.
func aggregateEvents(events []*entities.Event, mode entities.SortMode, limit int) []*entities.Event {
	best := make(map[int64]int, len(events))
	deduped := make([]*entities.Event, 0, len(events))

	for _, event := range events {
		idx, ok := best[event.ID]
		if !ok {
			best[event.ID] = len(deduped)
			deduped = append(deduped, event)
			continue
		}
		if event.DistanceKm < deduped[idx].DistanceKm {
			deduped[idx] = event
		}
	}

	if mode == entities.SortByTime {
		sort.SliceStable(deduped, func(i, j int) bool {
			return deduped[i].StartsAt.Before(deduped[j].StartsAt)
		})
	} else {
		sort.SliceStable(deduped, func(i, j int) bool {
			return deduped[i].DistanceKm < deduped[j].DistanceKm
		})
	}

	if limit > 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}

	return deduped
}
