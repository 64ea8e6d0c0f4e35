package http

import (
	"net/http"
	"strconv"

	"smarttravel/internal/core"
)

type tripRequest struct {
	TripName     string `json:"trip_name"`
	Destination  string `json:"destination"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	TotalBudget  string `json:"total_budget"`
	Savings      string `json:"savings"`
	TravelerType string `json:"traveler_type"`
	Currency     string `json:"currency"`
}

// toTrip parses the request fields. Money arrives as decimal strings so
// amounts never pass through binary floats.
func (req tripRequest) toTrip() (core.Trip, error) {
	budgetCents, err := core.ParseDecimalToCents(req.TotalBudget)
	if err != nil {
		return core.Trip{}, &core.ValidationError{Field: "total_budget", Err: err}
	}
	savingsCents, err := core.ParseOptionalCents(req.Savings)
	if err != nil {
		return core.Trip{}, &core.ValidationError{Field: "savings", Err: err}
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		return core.Trip{}, &core.ValidationError{Field: "start_date", Err: err}
	}
	end, err := core.ParseDate(req.EndDate)
	if err != nil {
		return core.Trip{}, &core.ValidationError{Field: "end_date", Err: err}
	}

	return core.Trip{
		Name:         req.TripName,
		Destination:  req.Destination,
		StartDate:    start,
		EndDate:      end,
		TotalBudget:  core.Money{Cents: budgetCents},
		Savings:      core.Money{Cents: savingsCents},
		TravelerType: core.TravelerType(req.TravelerType),
		Currency:     req.Currency,
	}, nil
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req tripRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := req.toTrip()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.trips.CreateTrip(r.Context(), user, trip)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTripResponse(created))
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	trips, err := s.trips.ListTrips(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		resp = append(resp, toTripResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	trip, err := s.trips.GetTrip(r.Context(), user, tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTripResponse(trip))
}

func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req tripRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := req.toTrip()
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip.ID = tripID

	updated, err := s.trips.UpdateTrip(r.Context(), user, trip)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary(tripID, user.Currency)
	writeJSON(w, http.StatusOK, toTripResponse(updated))
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.trips.DeleteTrip(r.Context(), user, tripID); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary(tripID, user.Currency)
	writeJSON(w, http.StatusNoContent, nil)
}

type addCollaboratorRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req addCollaboratorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	invitee, err := s.trips.AddCollaboratorByEmail(r.Context(), user, tripID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(invitee))
}

func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.trips.RemoveCollaborator(r.Context(), user, tripID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	collaborators, err := s.trips.ListCollaborators(r.Context(), user, tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(collaborators))
	for _, c := range collaborators {
		resp = append(resp, toUserResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTripActivity(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := s.trips.ListActivity(r.Context(), user, tripID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toActivityResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
