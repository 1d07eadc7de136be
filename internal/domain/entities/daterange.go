package entities

import "time"

// DateStatus describes how the oracle resolved temporal language in a query.
type DateStatus string

const (
	// DateOK means a concrete (from, to) range was resolved.
	DateOK DateStatus = "OK"

	// DateUnclear means temporal language was present but ambiguous
	// ("soon", "later"). The pipeline substitutes a fallback window.
	DateUnclear DateStatus = "UNCLEAR"

	// DateNoTime means the query contained no temporal language at all.
	DateNoTime DateStatus = "NO_TIME"
)

// TimeKeyword is the symbolic time expression the oracle recognized.
type TimeKeyword string

const (
	KeywordToday       TimeKeyword = "today"
	KeywordTonight     TimeKeyword = "tonight"
	KeywordTomorrow    TimeKeyword = "tomorrow"
	KeywordThisWeekend TimeKeyword = "this_weekend"
	KeywordNextWeekend TimeKeyword = "next_weekend"
	KeywordThisWeek    TimeKeyword = "this_week"
	KeywordNextWeek    TimeKeyword = "next_week"
	KeywordWeeksAhead  TimeKeyword = "weeks_ahead"
	KeywordNextYear    TimeKeyword = "next_year"
	KeywordSoon        TimeKeyword = "soon"
	KeywordLater       TimeKeyword = "later"
)

// DateLayout is the wire format for dates exchanged with the oracle and the
// store (ISO calendar dates, Europe/Brussels local).
const DateLayout = "2006-01-02"

// DateRange is the oracle's normalization of temporal language.
// Invariant when Status == DateOK: From <= To and both parse as DateLayout.
// The pipeline re-validates this regardless of Confidence; the oracle is
// not trusted unconditionally.
type DateRange struct {
	Status      DateStatus  `json:"status"`
	TimeKeyword TimeKeyword `json:"time_keyword,omitempty"`
	From        string      `json:"date_from,omitempty"`
	To          string      `json:"date_to,omitempty"`
	Confidence  int         `json:"confidence"`
}

// Dates parses the range bounds. Returns an error if either bound is
// missing or malformed.
func (d *DateRange) Dates() (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, d.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(DateLayout, d.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// Downgrade coerces the range to UNCLEAR and drops the dates. Used by the
// sanity checker when an OK range violates its invariants.
func (d *DateRange) Downgrade() {
	d.Status = DateUnclear
	d.From = ""
	d.To = ""
}
