package services

import (
	"context"
	"fmt"
	"strings"

	"smarttravel/internal/amqp"
	"smarttravel/internal/core"
	"smarttravel/internal/storage"
)

// ExpenseService manages expenses on trips the actor can access. Both
// owners and collaborators may add, edit and delete expenses.
type ExpenseService struct {
	storage *storage.SQLiteRepository
	trips   *TripService
}

func NewExpenseService(repo *storage.SQLiteRepository, trips *TripService) *ExpenseService {
	return &ExpenseService{
		storage: repo,
		trips:   trips,
	}
}

// AddExpense validates the expense against its trip and saves it.
func (s *ExpenseService) AddExpense(ctx context.Context, actor core.User, e core.Expense) (core.Expense, error) {
	trip, err := s.trips.authorizeView(ctx, actor, e.TripID)
	if err != nil {
		return core.Expense{}, err
	}

	if strings.TrimSpace(e.Currency) == "" {
		e.Currency = trip.Currency
	}
	e.Currency = core.NormalizeCurrency(e.Currency)

	if err := e.Validate(trip); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.trips.publishEvent(ctx, trip.ID, actor.ID, amqp.ActionExpenseAdded, eventDetail{
		"expense_id": created.ID,
		"category":   created.Category,
		"amount":     created.Amount.Float64(),
		"currency":   created.Currency,
	})
	return created, nil
}

// ListExpenses returns all expenses on a trip the actor can see.
func (s *ExpenseService) ListExpenses(ctx context.Context, actor core.User, tripID int64) ([]core.Expense, error) {
	if _, err := s.trips.authorizeView(ctx, actor, tripID); err != nil {
		return nil, err
	}
	return s.storage.ListExpensesByTrip(ctx, tripID)
}

// GetExpense returns one expense, checking access through its trip.
func (s *ExpenseService) GetExpense(ctx context.Context, actor core.User, expenseID int64) (core.Expense, error) {
	expense, err := s.storage.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if _, err := s.trips.authorizeView(ctx, actor, expense.TripID); err != nil {
		return core.Expense{}, err
	}
	return expense, nil
}

// UpdateExpense replaces an expense's fields. The expense stays on its
// trip; the trip ID on the incoming value is ignored.
func (s *ExpenseService) UpdateExpense(ctx context.Context, actor core.User, e core.Expense) (core.Expense, error) {
	existing, err := s.storage.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	trip, err := s.trips.authorizeView(ctx, actor, existing.TripID)
	if err != nil {
		return core.Expense{}, err
	}

	e.TripID = existing.TripID
	if strings.TrimSpace(e.Currency) == "" {
		e.Currency = trip.Currency
	}
	e.Currency = core.NormalizeCurrency(e.Currency)

	if err := e.Validate(trip); err != nil {
		return core.Expense{}, err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.trips.publishEvent(ctx, trip.ID, actor.ID, amqp.ActionExpenseUpdated, eventDetail{
		"expense_id": e.ID,
		"category":   e.Category,
		"amount":     e.Amount.Float64(),
		"currency":   e.Currency,
	})
	return e, nil
}

// DeleteExpense removes an expense, checking access through its trip.
func (s *ExpenseService) DeleteExpense(ctx context.Context, actor core.User, expenseID int64) error {
	expense, err := s.storage.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if _, err := s.trips.authorizeView(ctx, actor, expense.TripID); err != nil {
		return err
	}

	if err := s.storage.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.trips.publishEvent(ctx, expense.TripID, actor.ID, amqp.ActionExpenseDeleted, eventDetail{
		"expense_id": expenseID,
	})
	return nil
}
