package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// DailyAmount represents an amount aggregated by calendar date.
type DailyAmount struct {
	Date   Date
	Amount Money
}

// TripSummary is the per-trip analytics report, with every amount expressed
// in the viewing user's currency.
type TripSummary struct {
	TripID       int64
	TripName     string
	Currency     string // viewer currency the amounts are expressed in
	Converted    bool   // true only when at least one cross-currency conversion happened and none failed
	Degraded     bool   // true when a rate lookup failed and some amounts kept their original currency
	TotalBudget  Money
	TotalSpent   Money
	Remaining    Money
	DailyAverage Money
	DurationDays int
	ByCategory   []CategoryAmount
	ByDay        []DailyAmount
}

// TripsOverview aggregates summaries across all of a user's trips. Totals are
// sums of the already-converted per-trip figures, never re-derived from raw
// amounts.
type TripsOverview struct {
	Currency    string
	Converted   bool
	Degraded    bool
	TotalBudget Money
	TotalSpent  Money
	Remaining   Money
	Trips       []TripSummary
}
