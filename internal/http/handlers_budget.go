package http

import (
	"net/http"
	"strings"

	"smarttravel/internal/core"
)

type recommendationRequest struct {
	City         string `json:"city"`
	TravelerType string `json:"traveler_type"`
	DurationDays int    `json:"duration_days"`
	Currency     string `json:"currency"`
}

type recommendationResponse struct {
	City         string                   `json:"city"`
	Country      string                   `json:"country"`
	Currency     string                   `json:"currency"`
	Converted    bool                     `json:"is_converted"`
	TravelerType string                   `json:"traveler_type"`
	DurationDays int                      `json:"duration_days"`
	DailyTotal   float64                  `json:"daily_total"`
	TripTotal    float64                  `json:"trip_total"`
	PerCategory  []categoryAmountResponse `json:"per_category"`
}

// handleBudgetRecommendation answers POST /api/budget/recommendation. An
// unknown city is a 404; the traveler type and duration are validated with
// field-level detail.
func (s *Server) handleBudgetRecommendation(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req recommendationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if strings.TrimSpace(req.City) == "" {
		writeError(w, r, &core.ValidationError{Field: "city", Err: core.ErrEmptyName})
		return
	}

	traveler := core.TravelerType(strings.ToLower(strings.TrimSpace(req.TravelerType)))
	if traveler == "" {
		traveler = core.TravelerMedium
	}
	if !traveler.Valid() {
		writeError(w, r, &core.ValidationError{Field: "traveler_type", Err: core.ErrInvalidTraveler})
		return
	}

	if req.DurationDays < 0 {
		writeError(w, r, &core.ValidationError{Field: "duration_days", Err: core.ErrInvalidAmount})
		return
	}
	durationDays := req.DurationDays
	if durationDays == 0 {
		durationDays = 1
	}

	currency := req.Currency
	if currency == "" {
		currency = user.Currency
	}

	rec, err := s.calculator.Recommend(r.Context(), req.City, traveler, durationDays, currency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := recommendationResponse{
		City:         rec.City,
		Country:      rec.Country,
		Currency:     rec.Currency,
		Converted:    rec.Converted,
		TravelerType: string(rec.TravelerType),
		DurationDays: rec.DurationDays,
		DailyTotal:   rec.DailyTotal.Float64(),
		TripTotal:    rec.TripTotal.Float64(),
		PerCategory:  []categoryAmountResponse{},
	}
	for _, ca := range rec.PerCategory {
		resp.PerCategory = append(resp.PerCategory, categoryAmountResponse{
			Category: string(ca.Category),
			Amount:   ca.Amount.Float64(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type destinationResponse struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

func (s *Server) handleListDestinations(w http.ResponseWriter, _ *http.Request) {
	cities := s.catalog.Cities()
	resp := make([]destinationResponse, 0, len(cities))
	for _, c := range cities {
		resp = append(resp, destinationResponse{City: c.City, Country: c.Country, Currency: c.Currency})
	}
	writeJSON(w, http.StatusOK, resp)
}
