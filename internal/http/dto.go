package http

import (
	"errors"
	"net/http"
	"strconv"

	"smarttravel/internal/core"
	"smarttravel/internal/storage"
)

type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Currency  string `json:"currency"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Currency:  u.Currency,
	}
}

type tripResponse struct {
	ID           int64   `json:"id"`
	OwnerID      int64   `json:"owner_id"`
	TripName     string  `json:"trip_name"`
	Destination  string  `json:"destination"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	TotalBudget  float64 `json:"total_budget"`
	Savings      float64 `json:"savings"`
	TravelerType string  `json:"traveler_type"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"duration_days"`
}

func toTripResponse(t core.Trip) tripResponse {
	return tripResponse{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		TripName:     t.Name,
		Destination:  t.Destination,
		StartDate:    t.StartDate.String(),
		EndDate:      t.EndDate.String(),
		TotalBudget:  t.TotalBudget.Float64(),
		Savings:      t.Savings.Float64(),
		TravelerType: string(t.TravelerType),
		Currency:     t.Currency,
		DurationDays: t.DurationDays(),
	}
}

type expenseResponse struct {
	ID          int64   `json:"id"`
	TripID      int64   `json:"trip_id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Currency    string  `json:"currency"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		TripID:      e.TripID,
		Amount:      e.Amount.Float64(),
		Date:        e.Date.String(),
		Category:    string(e.Category),
		Description: e.Description,
		Currency:    e.Currency,
	}
}

type categoryAmountResponse struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type dailyAmountResponse struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type summaryResponse struct {
	TripID       int64                    `json:"trip_id"`
	TripName     string                   `json:"trip_name"`
	Currency     string                   `json:"currency"`
	Converted    bool                     `json:"is_converted"`
	TotalBudget  float64                  `json:"total_budget"`
	TotalSpent   float64                  `json:"total_spent"`
	Remaining    float64                  `json:"remaining"`
	DailyAverage float64                  `json:"daily_average"`
	DurationDays int                      `json:"duration_days"`
	ByCategory   []categoryAmountResponse `json:"by_category"`
	ByDay        []dailyAmountResponse    `json:"by_day"`
}

func toSummaryResponse(s core.TripSummary) summaryResponse {
	resp := summaryResponse{
		TripID:       s.TripID,
		TripName:     s.TripName,
		Currency:     s.Currency,
		Converted:    s.Converted,
		TotalBudget:  s.TotalBudget.Float64(),
		TotalSpent:   s.TotalSpent.Float64(),
		Remaining:    s.Remaining.Float64(),
		DailyAverage: s.DailyAverage.Float64(),
		DurationDays: s.DurationDays,
		ByCategory:   []categoryAmountResponse{},
		ByDay:        []dailyAmountResponse{},
	}
	for _, ca := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{
			Category: string(ca.Category),
			Amount:   ca.Amount.Float64(),
		})
	}
	for _, da := range s.ByDay {
		resp.ByDay = append(resp.ByDay, dailyAmountResponse{
			Date:   da.Date.String(),
			Amount: da.Amount.Float64(),
		})
	}
	return resp
}

type overviewResponse struct {
	Currency    string            `json:"currency"`
	Converted   bool              `json:"is_converted"`
	TotalBudget float64           `json:"total_budget"`
	TotalSpent  float64           `json:"total_spent"`
	Remaining   float64           `json:"remaining"`
	Trips       []summaryResponse `json:"trips"`
}

func toOverviewResponse(o core.TripsOverview) overviewResponse {
	resp := overviewResponse{
		Currency:    o.Currency,
		Converted:   o.Converted,
		TotalBudget: o.TotalBudget.Float64(),
		TotalSpent:  o.TotalSpent.Float64(),
		Remaining:   o.Remaining.Float64(),
		Trips:       []summaryResponse{},
	}
	for _, s := range o.Trips {
		resp.Trips = append(resp.Trips, toSummaryResponse(s))
	}
	return resp
}

type activityResponse struct {
	ID        int64  `json:"id"`
	TripID    int64  `json:"trip_id"`
	ActorID   int64  `json:"actor_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}

func toActivityResponse(a storage.ActivityEntry) activityResponse {
	return activityResponse{
		ID:        a.ID,
		TripID:    a.TripID,
		ActorID:   a.ActorID,
		Action:    a.Action,
		Detail:    a.Detail,
		CreatedAt: a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// pathID parses the named integer path segment.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, &core.ValidationError{Field: name, Err: errors.New("invalid id")}
	}
	return id, nil
}
