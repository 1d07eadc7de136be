package entities

import "time"

// Event represents a single fixture row returned by the store. Rows are
// read-only: they are sourced fresh per request and never mutated or cached
// by the query pipeline.
type Event struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	StartsAt      time.Time `json:"starts_at"`
	Week          *int      `json:"week,omitempty"`
	CompetitionID int64     `json:"competition_id"`
	Competition   string    `json:"competition"`
	VenueID       int64     `json:"venue_id"`
	Venue         string    `json:"venue"`
	City          string    `json:"city,omitempty"`
	Country       string    `json:"country"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`

	// DistanceKm is computed by the store relative to the query point.
	// Different query points yield different distances for the same event.
	DistanceKm float64 `json:"distance_km"`
}
