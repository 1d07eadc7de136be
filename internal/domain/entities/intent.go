package entities

// Intent is the closed set of query intents the oracle may return.
// Anything outside this set is a hard classification error, never a
// silent default.
type Intent string

const (
	IntentEventsNear          Intent = "events_near"
	IntentEventsInCities      Intent = "events_in_cities"
	IntentEventsByCompetition Intent = "events_by_competition"
	IntentEventsByVenue       Intent = "events_by_venue"
	IntentNextAtVenue         Intent = "next_at_venue"
	IntentVenuesNear          Intent = "venues_near"
	IntentListCompetitions    Intent = "list_competitions"
	IntentUnclearQuery        Intent = "unclear_query"
)

// IsValid checks if the intent value is one of the defined constants.
func (i Intent) IsValid() bool {
	switch i {
	case IntentEventsNear, IntentEventsInCities, IntentEventsByCompetition,
		IntentEventsByVenue, IntentNextAtVenue, IntentVenuesNear,
		IntentListCompetitions, IntentUnclearQuery:
		return true
	}
	return false
}

// SortMode determines result ordering.
type SortMode string

const (
	SortByDistance SortMode = "distance"
	SortByTime     SortMode = "time"
)

// IsValid checks if the sort mode is one of the defined constants.
func (s SortMode) IsValid() bool {
	return s == SortByDistance || s == SortByTime
}

// IntentSlots holds the typed parameters the oracle extracted from free text.
type IntentSlots struct {
	Cities       []string `json:"cities"`
	Competitions []string `json:"competitions"`
	Venues       []string `json:"venues"`
	RadiusKm     *float64 `json:"radius_km,omitempty"`
	DateFrom     string   `json:"date_from,omitempty"`
	DateTo       string   `json:"date_to,omitempty"`
	Sort         SortMode `json:"sort,omitempty"`
}

// IntentDecision is the oracle's classification verdict for a query.
type IntentDecision struct {
	Intent Intent      `json:"intent"`
	Slots  IntentSlots `json:"slots"`
}
