package entities

// Competition represents a league or tournament.
type Competition struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Season  string `json:"season,omitempty"`
	Country string `json:"country,omitempty"`
}
