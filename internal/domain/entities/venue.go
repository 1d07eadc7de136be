package entities

// Venue represents a sports venue.
type Venue struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// DistanceKm is populated by proximity queries, zero otherwise.
	DistanceKm float64 `json:"distance_km,omitempty"`
}
