package entities

// EventSearchParams describes one proximity query against the store.
type EventSearchParams struct {
	Lat            float64
	Lon            float64
	RadiusKm       float64
	DateFrom       string // DateLayout, optional
	DateTo         string // DateLayout, optional
	CompetitionIDs []int64
	VenueIDs       []int64
	Limit          int
}
