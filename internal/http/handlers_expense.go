package http

import (
	"net/http"

	"smarttravel/internal/core"
)

type expenseRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
}

func (req expenseRequest) toExpense() (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Expense{}, &core.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Expense{}, &core.ValidationError{Field: "date", Err: err}
	}

	return core.Expense{
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Category:    core.Category(req.Category),
		Description: req.Description,
		Currency:    req.Currency,
	}, nil
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expense, err := req.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}
	expense.TripID = tripID

	created, err := s.expenses.AddExpense(r.Context(), user, expense)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary(tripID, user.Currency)
	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	tripID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.expenses.ListExpenses(r.Context(), user, tripID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		resp = append(resp, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.expenses.GetExpense(r.Context(), user, expenseID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expense, err := req.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}
	expense.ID = expenseID

	updated, err := s.expenses.UpdateExpense(r.Context(), user, expense)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary(updated.TripID, user.Currency)
	writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	expenseID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.expenses.GetExpense(r.Context(), user, expenseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.DeleteExpense(r.Context(), user, expenseID); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSummary(expense.TripID, user.Currency)
	writeJSON(w, http.StatusNoContent, nil)
}
