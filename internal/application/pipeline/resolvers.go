package pipeline

import (
	"strings"
	"time"

	"github.com/sportatlas/backend/internal/domain/entities"
	"github.com/sportatlas/backend/pkg/config"
)

// resolveRadius returns the slot radius when present and positive, clamped
// to the configured range, and the default otherwise. Zero and negative
// values fall back to the default rather than clamping to the minimum.
func resolveRadius(slot *float64, cfg config.PipelineConfig) float64 {
	if slot == nil || *slot <= 0 {
		return cfg.DefaultRadiusKm
	}

	radius := *slot
	if radius < cfg.MinRadiusKm {
		return cfg.MinRadiusKm
	}
	if radius > cfg.MaxRadiusKm {
		return cfg.MaxRadiusKm
	}
	return radius
}

// resolveLimit clamps the caller's limit to the configured range.
func resolveLimit(limit int, cfg config.PipelineConfig) int {
	if limit <= 0 {
		return cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		return cfg.MaxLimit
	}
	return limit
}

// sanitizeDateRange re-validates an OK range against its invariants. The
// oracle's confidence is ignored: from <= to must hold and both bounds must
// lie within the drift window around now. Violations downgrade the range to
// UNCLEAR with null dates.
func sanitizeDateRange(dr *entities.DateRange, now time.Time, maxDriftDays int) {
	if dr.Status != entities.DateOK {
		return
	}

	from, to, err := dr.Dates()
	if err != nil {
		dr.Downgrade()
		return
	}
	if from.After(to) {
		dr.Downgrade()
		return
	}

	drift := time.Duration(maxDriftDays) * 24 * time.Hour
	earliest := now.Add(-drift)
	latest := now.Add(drift)
	if from.Before(earliest) || to.After(latest) {
		dr.Downgrade()
	}
}

// dedupeNames removes case-insensitive duplicates, preserving first-seen
// order. Blank entries are dropped. Keeps the geocode fan-out deterministic
// regardless of oracle output order.
func dedupeNames(names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}

	return out
}
