package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryAccommodation Category = "accommodation"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

const (
	TravelerLuxury TravelerType = "luxury"
	TravelerMedium TravelerType = "medium"
	TravelerBudget TravelerType = "budget"
)

// DefaultCurrency is applied when a user or trip carries no explicit currency.
const DefaultCurrency = "GBP"

type (
	Category     string
	TravelerType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		FirstName    string
		LastName     string
		Currency     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Trip struct {
		ID           int64
		OwnerID      int64
		Name         string
		Destination  string
		StartDate    Date
		EndDate      Date
		TotalBudget  Money
		Savings      Money
		TravelerType TravelerType
		Currency     string
		CreatedAt    time.Time
	}

	Expense struct {
		ID          int64
		TripID      int64
		Amount      Money
		Date        Date
		Category    Category
		Description string
		Currency    string // currency the amount was entered in
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidDateRange = errors.New("start date cannot be after end date")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidTraveler  = errors.New("invalid traveler type")
	ErrDateOutsideTrip  = errors.New("date falls outside the trip date range")
)

// ValidationError carries the offending field so the HTTP layer can report
// field-level detail.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Categories lists the allowed expense categories in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryAccommodation,
		CategoryEntertainment,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryAccommodation, CategoryEntertainment, CategoryOther:
		return true
	}
	return false
}

// Multiplier returns the spending-intensity factor applied to baseline city
// cost indices.
func (t TravelerType) Multiplier() float64 {
	switch t {
	case TravelerLuxury:
		return 1.8
	case TravelerBudget:
		return 0.6
	default:
		return 1.0
	}
}

func (t TravelerType) Valid() bool {
	switch t {
	case TravelerLuxury, TravelerMedium, TravelerBudget:
		return true
	}
	return false
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// DaysUntil returns the inclusive day count from d to end. A reversed or
// degenerate range counts as a single day so durations never divide by zero.
func (d Date) DaysUntil(end Date) int {
	days := int(end.Sub(d.Time).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// ValidCurrency reports whether s looks like a 3-letter ISO currency code.
func ValidCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// NormalizeCurrency upper-cases and falls back to the default code.
func NormalizeCurrency(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultCurrency
	}
	return s
}

func (u User) Validate() error {
	email := strings.TrimSpace(u.Email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return fieldErr("email", ErrInvalidEmail)
	}
	if strings.TrimSpace(u.FirstName) == "" {
		return fieldErr("first_name", ErrEmptyName)
	}
	if strings.TrimSpace(u.LastName) == "" {
		return fieldErr("last_name", ErrEmptyName)
	}
	if !ValidCurrency(u.Currency) {
		return fieldErr("currency", ErrInvalidCurrency)
	}
	return nil
}

func (t Trip) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fieldErr("trip_name", ErrEmptyName)
	}
	if len(t.Name) > 255 {
		return fieldErr("trip_name", errors.New("name too long (max 255 characters)"))
	}
	if strings.TrimSpace(t.Destination) == "" {
		return fieldErr("destination", ErrEmptyName)
	}
	if t.StartDate.IsZero() {
		return fieldErr("start_date", errors.New("start date is required"))
	}
	if t.EndDate.IsZero() {
		return fieldErr("end_date", errors.New("end date is required"))
	}
	if t.StartDate.After(t.EndDate.Time) {
		return fieldErr("start_date", ErrInvalidDateRange)
	}
	if t.TotalBudget.Cents <= 0 {
		return fieldErr("total_budget", ErrInvalidAmount)
	}
	if t.Savings.Cents < 0 {
		return fieldErr("savings", ErrInvalidAmount)
	}
	if !t.TravelerType.Valid() {
		return fieldErr("traveler_type", ErrInvalidTraveler)
	}
	if !ValidCurrency(t.Currency) {
		return fieldErr("currency", ErrInvalidCurrency)
	}
	return nil
}

// Contains reports whether day falls inside the trip's inclusive date range.
func (t Trip) Contains(day Date) bool {
	return !day.Before(t.StartDate.Time) && !day.After(t.EndDate.Time)
}

// DurationDays is the inclusive trip length in days, never less than 1.
func (t Trip) DurationDays() int {
	return t.StartDate.DaysUntil(t.EndDate)
}

// Validate checks the expense against its trip. The date must fall within the
// trip range.
func (e Expense) Validate(trip Trip) error {
	if err := e.Amount.Validate(); err != nil {
		return fieldErr("amount", err)
	}
	if e.Date.IsZero() {
		return fieldErr("date", errors.New("date is required"))
	}
	if !trip.Contains(e.Date) {
		return fieldErr("date", ErrDateOutsideTrip)
	}
	if !e.Category.Valid() {
		return fieldErr("category", ErrInvalidCategory)
	}
	if len(e.Description) > 500 {
		return fieldErr("description", errors.New("description too long (max 500 characters)"))
	}
	if !ValidCurrency(e.Currency) {
		return fieldErr("currency", ErrInvalidCurrency)
	}
	return nil
}
