package http

import (
	"net/http"

	"smarttravel/internal/core"
)

// viewerCurrency is the currency the response is expressed in: the
// ?currency= override when present, the user's own otherwise.
func viewerCurrency(r *http.Request, user core.User) string {
	if c := r.URL.Query().Get("currency"); c != "" {
		return core.NormalizeCurrency(c)
	}
	return core.NormalizeCurrency(user.Currency)
}

func (s *Server) handleTripAnalytics(w http.ResponseWriter, r *http.Request) {
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

	currency := viewerCurrency(r, user)
	cacheKey := summaryCacheKey(tripID, currency)
	if summary, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, toSummaryResponse(summary))
		return
	}

	summary, err := s.aggregator.Summarize(r.Context(), trip, currency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Only cache clean reports; degraded ones should retry the rates soon.
	if !summary.Degraded {
		s.summaryCache.Set(cacheKey, summary)
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) handleOverviewAnalytics(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	trips, err := s.trips.ListTrips(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	overview, err := s.aggregator.Overview(r.Context(), trips, viewerCurrency(r, user))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOverviewResponse(overview))
}
