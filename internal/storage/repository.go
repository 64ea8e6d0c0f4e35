package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smarttravel/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user registration hits the unique
// email constraint.
var ErrDuplicateEmail = errors.New("email already registered")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, first_name, last_name, currency, password_hash)
		 VALUES (?, ?, ?, ?, ?)`,
		strings.ToLower(u.Email), u.FirstName, u.LastName, u.Currency, u.PasswordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "email", u.Email)
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, currency, password_hash, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, currency, password_hash, created_at
		 FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, currency = ?, password_hash = ?
		 WHERE id = ?`,
		u.FirstName, u.LastName, u.Currency, u.PasswordHash, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Currency, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// --- sessions ---

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSessionUser resolves a live session token to its user.
func (r *SQLiteRepository) GetSessionUser(ctx context.Context, token string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.first_name, u.last_name, u.currency, u.password_hash, u.created_at
		 FROM sessions s JOIN users u ON s.user_id = u.id
		 WHERE s.token = ? AND s.expires_at > ?`, token, time.Now().UTC())
	return scanUser(row)
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes stale sessions and reports how many were
// dropped. Run periodically by the worker.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// --- trips ---

func (r *SQLiteRepository) CreateTrip(ctx context.Context, t core.Trip) (core.Trip, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO trips (owner_id, trip_name, destination, start_date, end_date,
		                    total_budget_cents, savings_cents, traveler_type, currency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, t.Name, t.Destination, t.StartDate.String(), t.EndDate.String(),
		t.TotalBudget.Cents, t.Savings.Cents, string(t.TravelerType), t.Currency,
	)
	if err != nil {
		return core.Trip{}, fmt.Errorf("create trip: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Trip{}, fmt.Errorf("create trip id: %w", err)
	}

	slog.InfoContext(ctx, "Trip created", "trip_id", id, "owner_id", t.OwnerID, "destination", t.Destination)
	return r.GetTrip(ctx, id)
}

const tripColumns = `id, owner_id, trip_name, destination, start_date, end_date,
	total_budget_cents, savings_cents, traveler_type, currency, created_at`

func (r *SQLiteRepository) GetTrip(ctx context.Context, id int64) (core.Trip, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tripColumns+" FROM trips WHERE id = ?", id)
	return scanTripRow(row.Scan)
}

// ListTripsForUser returns trips the user owns plus trips shared with them,
// newest start date first.
func (r *SQLiteRepository) ListTripsForUser(ctx context.Context, userID int64) ([]core.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE owner_id = ?
		 UNION
		 SELECT t.id, t.owner_id, t.trip_name, t.destination, t.start_date, t.end_date,
		        t.total_budget_cents, t.savings_cents, t.traveler_type, t.currency, t.created_at
		 FROM trips t JOIN trip_collaborators c ON c.trip_id = t.id
		 WHERE c.user_id = ?
		 ORDER BY start_date DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []core.Trip
	for rows.Next() {
		t, err := scanTripRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (r *SQLiteRepository) UpdateTrip(ctx context.Context, t core.Trip) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET trip_name = ?, destination = ?, start_date = ?, end_date = ?,
		        total_budget_cents = ?, savings_cents = ?, traveler_type = ?, currency = ?
		 WHERE id = ?`,
		t.Name, t.Destination, t.StartDate.String(), t.EndDate.String(),
		t.TotalBudget.Cents, t.Savings.Cents, string(t.TravelerType), t.Currency, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	return requireRow(res)
}

// DeleteTrip removes the trip; expenses and collaborator rows cascade.
func (r *SQLiteRepository) DeleteTrip(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return requireRow(res)
}

func scanTripRow(scan func(...any) error) (core.Trip, error) {
	var (
		t                  core.Trip
		startStr, endStr   string
		travelerType       string
	)
	err := scan(&t.ID, &t.OwnerID, &t.Name, &t.Destination, &startStr, &endStr,
		&t.TotalBudget.Cents, &t.Savings.Cents, &travelerType, &t.Currency, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trip{}, ErrNotFound
	}
	if err != nil {
		return core.Trip{}, fmt.Errorf("scan trip: %w", err)
	}
	t.TravelerType = core.TravelerType(travelerType)
	if t.StartDate, err = core.ParseDate(startStr); err != nil {
		return core.Trip{}, err
	}
	if t.EndDate, err = core.ParseDate(endStr); err != nil {
		return core.Trip{}, err
	}
	return t, nil
}

// --- collaborators ---

func (r *SQLiteRepository) AddCollaborator(ctx context.Context, tripID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO trip_collaborators (trip_id, user_id) VALUES (?, ?)",
		tripID, userID,
	)
	if err != nil {
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveCollaborator(ctx context.Context, tripID, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM trip_collaborators WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListCollaborators(ctx context.Context, tripID int64) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.first_name, u.last_name, u.currency, u.password_hash, u.created_at
		 FROM trip_collaborators c JOIN users u ON c.user_id = u.id
		 WHERE c.trip_id = ? ORDER BY c.added_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Currency, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) IsCollaborator(ctx context.Context, tripID, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM trip_collaborators WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check collaborator: %w", err)
	}
	return true, nil
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (trip_id, amount_cents, date, category, description, currency)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.TripID, e.Amount.Cents, e.Date.String(), string(e.Category), e.Description, e.Currency,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"trip_id", e.TripID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return r.GetExpense(ctx, id)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, trip_id, amount_cents, date, category, description, currency
		 FROM expenses WHERE id = ?`, id)
	return scanExpenseRow(row.Scan)
}

func (r *SQLiteRepository) ListExpensesByTrip(ctx context.Context, tripID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, amount_cents, date, category, description, currency
		 FROM expenses WHERE trip_id = ? ORDER BY date, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpenseRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, date = ?, category = ?, description = ?, currency = ?
		 WHERE id = ?`,
		e.Amount.Cents, e.Date.String(), string(e.Category), e.Description, e.Currency, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func scanExpenseRow(scan func(...any) error) (core.Expense, error) {
	var (
		e        core.Expense
		dateStr  string
		category string
	)
	err := scan(&e.ID, &e.TripID, &e.Amount.Cents, &dateStr, &category, &e.Description, &e.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Category = core.Category(category)
	if e.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// --- activity feed ---

// ActivityEntry is a single row in a trip's activity feed, written by the
// worker from published trip events.
type ActivityEntry struct {
	ID        int64
	TripID    int64
	ActorID   int64
	Action    string
	Detail    string // JSON blob from the event
	CreatedAt time.Time
}

func (r *SQLiteRepository) InsertActivity(ctx context.Context, a ActivityEntry) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO activity (trip_id, actor_id, action, detail, created_at) VALUES (?, ?, ?, ?, ?)",
		a.TripID, a.ActorID, a.Action, a.Detail, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActivityByTrip(ctx context.Context, tripID int64, limit int) ([]ActivityEntry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trip_id, actor_id, action, detail, created_at
		 FROM activity WHERE trip_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var a ActivityEntry
		if err := rows.Scan(&a.ID, &a.TripID, &a.ActorID, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
