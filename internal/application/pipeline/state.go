package pipeline

import (
	"fmt"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// Stage identifies one state of the query resolution machine. The machine is
// linear with a single conditional skip (list_competitions bypasses Dates,
// Location and Post) and an error short-circuit from any stage.
type Stage int

const (
	StageClassify Stage = iota
	StageDates
	StageLocation
	StageSearch
	StagePost
	StageError
	StageDone
)

// String returns the stage name used in traces and metrics.
func (s Stage) String() string {
	switch s {
	case StageClassify:
		return "classify"
	case StageDates:
		return "dates"
	case StageLocation:
		return "location"
	case StageSearch:
		return "search"
	case StagePost:
		return "post"
	case StageError:
		return "error"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// Error codes carried by the state. All are terminal for the request.
const (
	ErrCodeClassify     = "CLASSIFY_ERROR"
	ErrCodeUnclearQuery = "UNCLEAR_QUERY"
	ErrCodeNoLocation   = "NO_LOCATION"
	ErrCodeSearch       = "SEARCH_ERROR"
	ErrCodePost         = "POST_ERROR"
)

// UserMessage maps an error code to its fixed user-facing message.
func UserMessage(code string) string {
	switch code {
	case ErrCodeClassify:
		return "Query not understood, please use a clearer expression."
	case ErrCodeUnclearQuery:
		return "I didn't understand your request. Please ask about sports events, competitions, or venues in Belgium."
	case ErrCodeNoLocation:
		return "Location not specified, please add a city name or share your coordinates."
	case ErrCodeSearch:
		return "Error occurred during search."
	case ErrCodePost:
		return "Something went wrong while preparing your results."
	}
	return fmt.Sprintf("Unexpected error: %s", code)
}

// Request is the immutable input to one pipeline run.
type Request struct {
	Query string
	Lat   *float64
	Lon   *float64
	Limit int
}

// State is the machine's working memory for one request. It is created per
// request and never shared; the pipeline mutates it in place as stages run.
type State struct {
	Query string
	Lat   *float64
	Lon   *float64
	Limit int

	Intent entities.Intent
	Slots  entities.IntentSlots

	RadiusKm    float64
	Sort        entities.SortMode
	DateStatus  entities.DateStatus
	TimeKeyword entities.TimeKeyword
	DateFrom    string
	DateTo      string

	// UnclearTimeFallback marks that the 10-day window was substituted for
	// an ambiguous time expression. Success with a caveat, not an error.
	UnclearTimeFallback bool

	Coords []entities.Coordinate

	Events       []*entities.Event
	Venues       []*entities.Venue
	Competitions []*entities.Competition

	ErrorCode    string
	ErrorMessage string

	Steps []string
}

// NewState creates the working state for a request.
func NewState(req Request) *State {
	return &State{
		Query: req.Query,
		Lat:   req.Lat,
		Lon:   req.Lon,
		Limit: req.Limit,
		Sort:  entities.SortByDistance,
	}
}

// AddStep appends a formatted entry to the processing trace.
func (s *State) AddStep(format string, args ...interface{}) {
	if len(args) == 0 {
		s.Steps = append(s.Steps, format)
		return
	}
	s.Steps = append(s.Steps, fmt.Sprintf(format, args...))
}

// SetError records a terminal error code and routes the machine to the
// error handler.
func (s *State) SetError(code, detail string) {
	s.ErrorCode = code
	s.ErrorMessage = detail
	s.AddStep("ERROR: %s - %s", code, detail)
}

// HasError reports whether a terminal error has been recorded.
func (s *State) HasError() bool {
	return s.ErrorCode != ""
}
