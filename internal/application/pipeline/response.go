package pipeline

import (
	"fmt"

	"github.com/sportatlas/backend/internal/domain/entities"
)

// FilterEcho mirrors the resolved filters back to the caller so ambiguous
// queries can be debugged from the response alone.
type FilterEcho struct {
	Cities       []string             `json:"cities"`
	Competitions []string             `json:"competitions"`
	Venues       []string             `json:"venues"`
	RadiusKm     float64              `json:"radius_km"`
	DateFrom     string               `json:"date_from,omitempty"`
	DateTo       string               `json:"date_to,omitempty"`
	TimeKeyword  entities.TimeKeyword `json:"time_keyword,omitempty"`
	Sort         entities.SortMode    `json:"sort"`
}

// FallbackInfo annotates a successful response that substituted a fallback
// window for an ambiguous time expression.
type FallbackInfo struct {
	Type           string `json:"type"`
	FallbackPeriod string `json:"fallback_period"`
	OriginalQuery  string `json:"original_query"`
}

// QueryResponse is the public result of one pipeline run.
type QueryResponse struct {
	Intent          entities.Intent         `json:"intent,omitempty"`
	Query           string                  `json:"query"`
	Count           int                     `json:"count"`
	Results         []*entities.Event       `json:"results,omitempty"`
	Venues          []*entities.Venue       `json:"venues,omitempty"`
	Competitions    []*entities.Competition `json:"competitions,omitempty"`
	Filters         *FilterEcho             `json:"filters,omitempty"`
	ProcessingSteps []string                `json:"processing_steps"`
	Message         string                  `json:"message,omitempty"`
	FallbackInfo    *FallbackInfo           `json:"fallback_info,omitempty"`
	Error           string                  `json:"error,omitempty"`
}

// BuildResponse converts a final state into the response payload.
func BuildResponse(state *State) *QueryResponse {
	resp := &QueryResponse{
		Intent:          state.Intent,
		Query:           state.Query,
		ProcessingSteps: state.Steps,
	}

	if state.HasError() {
		resp.Error = state.ErrorCode
		resp.Message = state.ErrorMessage
		return resp
	}

	switch state.Intent {
	case entities.IntentListCompetitions:
		resp.Competitions = state.Competitions
		resp.Count = len(state.Competitions)
	case entities.IntentVenuesNear:
		resp.Venues = state.Venues
		resp.Count = len(state.Venues)
	default:
		resp.Results = state.Events
		resp.Count = len(state.Events)
	}

	resp.Filters = &FilterEcho{
		Cities:       state.Slots.Cities,
		Competitions: state.Slots.Competitions,
		Venues:       state.Slots.Venues,
		RadiusKm:     state.RadiusKm,
		DateFrom:     state.DateFrom,
		DateTo:       state.DateTo,
		TimeKeyword:  state.TimeKeyword,
		Sort:         state.Sort,
	}

	if state.UnclearTimeFallback {
		days := fallbackDaysFromRange(state)
		resp.Message = fmt.Sprintf("The time expression was unclear, showing events for the next %d days.", days)
		resp.FallbackInfo = &FallbackInfo{
			Type:           "unclear_time",
			FallbackPeriod: fmt.Sprintf("next_%d_days", days),
			OriginalQuery:  state.Query,
		}
	}

	return resp
}

func fallbackDaysFromRange(state *State) int {
	from, to, err := (&entities.DateRange{
		Status: entities.DateOK,
		From:   state.DateFrom,
		To:     state.DateTo,
	}).Dates()
	if err != nil {
		return 10
	}
	return int(to.Sub(from).Hours() / 24)
}
