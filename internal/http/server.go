// Package http exposes the trip-budgeting JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"smarttravel/internal/analytics"
	"smarttravel/internal/budget"
	"smarttravel/internal/cache"
	"smarttravel/internal/core"
	"smarttravel/internal/costs"
	"smarttravel/internal/services"
)

const (
	summaryCacheSize = 200
	summaryCacheTTL  = time.Minute
)

type Server struct {
	http.Server

	users      *services.UserService
	trips      *services.TripService
	expenses   *services.ExpenseService
	aggregator *analytics.Aggregator
	calculator *budget.Calculator
	catalog    *costs.Catalog

	rateLimiter    *rateLimiter
	allowedOrigins []string

	// Per-trip analytics responses, keyed by trip and viewer currency.
	summaryCache *cache.TTLCache[core.TripSummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

type Deps struct {
	Users      *services.UserService
	Trips      *services.TripService
	Expenses   *services.ExpenseService
	Aggregator *analytics.Aggregator
	Calculator *budget.Calculator
	Catalog    *costs.Catalog

	AllowedOrigins []string
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		users:            deps.Users,
		trips:            deps.Trips,
		expenses:         deps.Expenses,
		aggregator:       deps.Aggregator,
		calculator:       deps.Calculator,
		catalog:          deps.Catalog,
		rateLimiter:      newRateLimiter(),
		allowedOrigins:   deps.AllowedOrigins,
		summaryCache:     cache.New[core.TripSummary](summaryCacheSize, summaryCacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// CORS preflight for every API route
	mux.HandleFunc("OPTIONS /api/", s.withCommon(func(w http.ResponseWriter, r *http.Request) {}))

	// Public
	mux.HandleFunc("POST /api/users", s.withCommon(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withCommon(s.handleLogin))
	mux.HandleFunc("GET /api/destinations", s.withCommon(s.handleListDestinations))

	// Authenticated
	mux.HandleFunc("POST /api/auth/logout", s.withAuth(s.handleLogout))
	mux.HandleFunc("GET /api/users/me", s.withAuth(s.handleGetMe))
	mux.HandleFunc("PUT /api/users/me", s.withAuth(s.handleUpdateMe))
	mux.HandleFunc("DELETE /api/users/me", s.withAuth(s.handleDeleteMe))

	mux.HandleFunc("GET /api/trips", s.withAuth(s.handleListTrips))
	mux.HandleFunc("POST /api/trips", s.withAuth(s.handleCreateTrip))
	mux.HandleFunc("GET /api/trips/{id}", s.withAuth(s.handleGetTrip))
	mux.HandleFunc("PUT /api/trips/{id}", s.withAuth(s.handleUpdateTrip))
	mux.HandleFunc("DELETE /api/trips/{id}", s.withAuth(s.handleDeleteTrip))

	mux.HandleFunc("GET /api/trips/{id}/collaborators", s.withAuth(s.handleListCollaborators))
	mux.HandleFunc("POST /api/trips/{id}/collaborators", s.withAuth(s.handleAddCollaborator))
	mux.HandleFunc("DELETE /api/trips/{id}/collaborators/{userID}", s.withAuth(s.handleRemoveCollaborator))

	mux.HandleFunc("GET /api/trips/{id}/expenses", s.withAuth(s.handleListExpenses))
	mux.HandleFunc("POST /api/trips/{id}/expenses", s.withAuth(s.handleAddExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.withAuth(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withAuth(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/trips/{id}/analytics", s.withAuth(s.handleTripAnalytics))
	mux.HandleFunc("GET /api/analytics", s.withAuth(s.handleOverviewAnalytics))
	mux.HandleFunc("POST /api/budget/recommendation", s.withAuth(s.handleBudgetRecommendation))
	mux.HandleFunc("GET /api/trips/{id}/activity", s.withAuth(s.handleTripActivity))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "summary_entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func summaryCacheKey(tripID int64, currency string) string {
	return fmt.Sprintf("trip_%d_%s", tripID, currency)
}

// invalidateSummary drops the cached analytics for the mutating user's view.
// Other viewers' entries age out within the cache TTL.
func (s *Server) invalidateSummary(tripID int64, currency string) {
	s.summaryCache.Delete(summaryCacheKey(tripID, core.NormalizeCurrency(currency)))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
