package providers

import (
	"context"
	"time"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// NLUProvider is the contract for the external natural-language oracle the
// pipeline consults for intent, date, and geocoding decisions. The pipeline
// treats it as a black box: implementations must fail closed, so a network or
// parse failure surfaces as an error, never as a guessed answer.
type NLUProvider interface {
	// ClassifyIntent maps free text to an intent plus extracted slots.
	ClassifyIntent(ctx context.Context, text string) (*entities.IntentDecision, error)

	// NormalizeDates resolves temporal language in the text relative to now.
	NormalizeDates(ctx context.Context, text string, now time.Time) (*entities.DateRange, error)

	// ExtractCities lists place references mentioned in the text.
	ExtractCities(ctx context.Context, text string) ([]entities.CityMention, error)

	// Geocode resolves a free-text place reference to coordinates.
	// Low-confidence answers are reported as UNKNOWN.
	Geocode(ctx context.Context, text string) (*entities.GeocodeResult, error)
}
