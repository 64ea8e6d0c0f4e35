package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarttravel/internal/analytics"
	"smarttravel/internal/budget"
	"smarttravel/internal/costs"
	"smarttravel/internal/rates"
	"smarttravel/internal/services"
	"smarttravel/internal/storage"
)

type stubRates struct {
	table map[string]float64
}

func (s *stubRates) FetchRates(_ context.Context, _ string) (map[string]float64, error) {
	return s.table, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	converter := rates.NewConverter(
		&stubRates{table: map[string]float64{"GBP": 0.8, "USD": 1.25, "EUR": 1.15}},
		rates.NewRateCache(100, time.Hour),
		logger,
	)
	catalog, err := costs.NewCatalog()
	require.NoError(t, err)

	trips := services.NewTripService(repo, nil)
	srv := NewServer(":0", Deps{
		Users:      services.NewUserService(repo, 4, time.Hour),
		Trips:      trips,
		Expenses:   services.NewExpenseService(repo, trips),
		Aggregator: analytics.NewAggregator(repo, converter, logger),
		Calculator: budget.NewCalculator(catalog, converter, logger),
		Catalog:    catalog,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:12345"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerAndLogin(t *testing.T, srv *Server, email string) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/users", "", registerRequest{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Currency:  "GBP",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", loginRequest{
		Email:    email,
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[loginResponse](t, rec).Token
}

func createTestTrip(t *testing.T, srv *Server, token string) tripResponse {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/trips", token, tripRequest{
		TripName:    "Lisbon break",
		Destination: "Lisbon",
		StartDate:   "2026-06-01",
		EndDate:     "2026-06-10",
		TotalBudget: "1000.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tripResponse](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/trips", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/trips", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/users", "", registerRequest{
		Email:     "not-an-email",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Currency:  "GBP",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "email", decode[errorResponse](t, rec).Field)
}

func TestDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/users", "", registerRequest{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Currency:  "GBP",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "email", decode[errorResponse](t, rec).Field)
}

func TestTripCRUD(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")

	trip := createTestTrip(t, srv, token)
	assert.Equal(t, "Lisbon break", trip.TripName)
	assert.Equal(t, 10, trip.DurationDays)
	assert.Equal(t, "medium", trip.TravelerType)
	assert.Equal(t, "GBP", trip.Currency)

	// reversed date range rejected with the offending field
	rec := doJSON(t, srv, http.MethodPost, "/api/trips", token, tripRequest{
		TripName:    "Backwards",
		Destination: "Lisbon",
		StartDate:   "2026-06-10",
		EndDate:     "2026-06-01",
		TotalBudget: "500.00",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "start_date", decode[errorResponse](t, rec).Field)

	// update
	rec = doJSON(t, srv, http.MethodPut, "/api/trips/1", token, tripRequest{
		TripName:     "Lisbon, extended",
		Destination:  "Lisbon",
		StartDate:    "2026-06-01",
		EndDate:      "2026-06-15",
		TotalBudget:  "1500.00",
		TravelerType: "budget",
		Currency:     "GBP",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 15, decode[tripResponse](t, rec).DurationDays)

	// delete, then 404
	rec = doJSON(t, srv, http.MethodDelete, "/api/trips/1", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/api/trips/1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollaboratorFlow(t *testing.T) {
	srv := newTestServer(t)
	ownerToken := registerAndLogin(t, srv, "owner@example.com")
	mateToken := registerAndLogin(t, srv, "mate@example.com")
	strangerToken := registerAndLogin(t, srv, "stranger@example.com")

	createTestTrip(t, srv, ownerToken)

	// stranger gets 403, not a masked 404
	rec := doJSON(t, srv, http.MethodGet, "/api/trips/1", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/trips/1/collaborators", ownerToken,
		addCollaboratorRequest{Email: "mate@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// collaborator can read the trip and add expenses
	rec = doJSON(t, srv, http.MethodGet, "/api/trips/1", mateToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/trips/1/expenses", mateToken, expenseRequest{
		Amount:   "25.00",
		Date:     "2026-06-03",
		Category: "food",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// but cannot delete the trip or manage collaborators
	rec = doJSON(t, srv, http.MethodDelete, "/api/trips/1", mateToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/trips/1/collaborators", mateToken,
		addCollaboratorRequest{Email: "stranger@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// owner removes the collaborator; access is gone
	rec = doJSON(t, srv, http.MethodDelete, "/api/trips/1/collaborators/2", ownerToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/api/trips/1", mateToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExpenseValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")
	createTestTrip(t, srv, token)

	// outside the trip's date range
	rec := doJSON(t, srv, http.MethodPost, "/api/trips/1/expenses", token, expenseRequest{
		Amount:   "25.00",
		Date:     "2026-07-01",
		Category: "food",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "date", decode[errorResponse](t, rec).Field)

	// bad category
	rec = doJSON(t, srv, http.MethodPost, "/api/trips/1/expenses", token, expenseRequest{
		Amount:   "25.00",
		Date:     "2026-06-03",
		Category: "bribes",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "category", decode[errorResponse](t, rec).Field)

	// negative amount
	rec = doJSON(t, srv, http.MethodPost, "/api/trips/1/expenses", token, expenseRequest{
		Amount:   "-5.00",
		Date:     "2026-06-03",
		Category: "food",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTripAnalytics(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")
	createTestTrip(t, srv, token)

	for _, e := range []expenseRequest{
		{Amount: "25.00", Date: "2026-06-01", Category: "food"},
		{Amount: "15.00", Date: "2026-06-01", Category: "transport"},
		{Amount: "40.00", Date: "2026-06-03", Category: "food"},
	} {
		rec := doJSON(t, srv, http.MethodPost, "/api/trips/1/expenses", token, e)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/trips/1/analytics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[summaryResponse](t, rec)

	// all amounts were GBP already, so nothing was converted
	assert.False(t, summary.Converted)
	assert.Equal(t, "GBP", summary.Currency)
	assert.InDelta(t, 80.0, summary.TotalSpent, 0.001)
	assert.InDelta(t, 920.0, summary.Remaining, 0.001)
	assert.InDelta(t, 8.0, summary.DailyAverage, 0.001)
	assert.Len(t, summary.ByDay, 10)

	// cached response stays consistent
	rec = doJSON(t, srv, http.MethodGet, "/api/trips/1/analytics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 80.0, decode[summaryResponse](t, rec).TotalSpent, 0.001)

	// a new expense invalidates the cache
	rec = doJSON(t, srv, http.MethodPost, "/api/trips/1/expenses", token, expenseRequest{
		Amount: "20.00", Date: "2026-06-04", Category: "other",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/api/trips/1/analytics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 100.0, decode[summaryResponse](t, rec).TotalSpent, 0.001)
}

func TestOverviewAnalytics(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")
	createTestTrip(t, srv, token)
	createTestTrip(t, srv, token)

	rec := doJSON(t, srv, http.MethodGet, "/api/analytics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	overview := decode[overviewResponse](t, rec)

	assert.Len(t, overview.Trips, 2)
	assert.InDelta(t, 2000.0, overview.TotalBudget, 0.001)
	assert.Equal(t, "GBP", overview.Currency)
}

func TestBudgetRecommendation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/budget/recommendation", token, recommendationRequest{
		City:         "Paris",
		TravelerType: "luxury",
		DurationDays: 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[recommendationResponse](t, rec)

	assert.Equal(t, "Paris", resp.City)
	assert.Equal(t, "GBP", resp.Currency)
	assert.True(t, resp.Converted)
	assert.Equal(t, 5, resp.DurationDays)
	assert.InDelta(t, resp.DailyTotal*5, resp.TripTotal, 0.01)
	assert.Len(t, resp.PerCategory, 4)

	// unknown city is a distinct not-found
	rec = doJSON(t, srv, http.MethodPost, "/api/budget/recommendation", token,
		recommendationRequest{City: "Atlantis"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// missing city is a validation problem
	rec = doJSON(t, srv, http.MethodPost, "/api/budget/recommendation", token,
		recommendationRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDestinations(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/destinations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]destinationResponse](t, rec))
}

func TestProfileUpdate(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPut, "/api/users/me", token, updateProfileRequest{
		FirstName: "Ada",
		LastName:  "King",
		Currency:  "usd",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[userResponse](t, rec)
	assert.Equal(t, "King", me.LastName)
	assert.Equal(t, "USD", me.Currency)

	rec = doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USD", decode[userResponse](t, rec).Currency)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ada@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
