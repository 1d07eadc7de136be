package entities

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies on the globe at all.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// BoundingBox is a lat/lon rectangle used to reject geocoding results far
// outside the service region (a hallucinating oracle can place "Brussels"
// anywhere).
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the coordinate falls inside the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// GeocodeStatus marks a geocoding outcome.
type GeocodeStatus string

const (
	GeocodeOK      GeocodeStatus = "OK"
	GeocodeUnknown GeocodeStatus = "UNKNOWN"
)

// GeocodeResult is the oracle's answer for a free-text place reference.
type GeocodeResult struct {
	Lat        *float64      `json:"lat"`
	Lon        *float64      `json:"lon"`
	Confidence int           `json:"confidence"`
	Status     GeocodeStatus `json:"status"`
	SourceText string        `json:"source_text,omitempty"`
}

// Coordinate returns the resolved point, or false if the result carries no
// usable coordinates.
func (g *GeocodeResult) Coordinate() (Coordinate, bool) {
	if g.Status != GeocodeOK || g.Lat == nil || g.Lon == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *g.Lat, Lon: *g.Lon}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}

// CityMentionType classifies an extracted place reference.
type CityMentionType string

const (
	MentionCity         CityMentionType = "city"
	MentionMunicipality CityMentionType = "municipality"
	MentionRegion       CityMentionType = "region"
)

// CityMention is one place reference extracted from query text.
type CityMention struct {
	Text       string          `json:"text"`
	Normalized string          `json:"normalized"`
	Type       CityMentionType `json:"type"`
	Confidence int             `json:"confidence"`
}
