// Package analytics aggregates trip spending into per-category and
// per-day reports, expressed in the viewing user's currency.
package analytics

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"smarttravel/internal/core"
	"smarttravel/internal/rates"
)

// overviewConcurrency bounds the fan-out when summarizing many trips.
const overviewConcurrency = 4

type expenseLister interface {
	ListExpensesByTrip(ctx context.Context, tripID int64) ([]core.Expense, error)
}

// Aggregator builds spending summaries. Amounts are converted into the
// viewer's currency per expense; a failed rate lookup keeps the original
// amount and marks the report degraded instead of failing it. Converted is
// set only when at least one cross-currency conversion actually happened
// and none failed, so an all-same-currency report carries Converted=false.
type Aggregator struct {
	expenses  expenseLister
	converter *rates.Converter
	logger    *slog.Logger
}

func NewAggregator(expenses expenseLister, converter *rates.Converter, logger *slog.Logger) *Aggregator {
	return &Aggregator{expenses: expenses, converter: converter, logger: logger}
}

// Summarize builds the analytics report for one trip in the viewer's
// currency. Every day of the trip range appears in ByDay, zero-filled
// when nothing was spent.
func (a *Aggregator) Summarize(ctx context.Context, trip core.Trip, viewerCurrency string) (core.TripSummary, error) {
	expenses, err := a.expenses.ListExpensesByTrip(ctx, trip.ID)
	if err != nil {
		return core.TripSummary{}, err
	}
	return a.summarize(ctx, trip, expenses, viewerCurrency), nil
}

func (a *Aggregator) summarize(ctx context.Context, trip core.Trip, expenses []core.Expense, viewerCurrency string) core.TripSummary {
	currency := core.NormalizeCurrency(viewerCurrency)

	summary := core.TripSummary{
		TripID:       trip.ID,
		TripName:     trip.Name,
		Currency:     currency,
		DurationDays: trip.DurationDays(),
	}

	anyConverted := false
	anyFailed := false
	convert := func(amount core.Money, from string) core.Money {
		from = core.NormalizeCurrency(from)
		if from == currency {
			return amount
		}
		out, ok := a.converter.Convert(ctx, amount, from, currency)
		if !ok {
			anyFailed = true
			return amount
		}
		anyConverted = true
		return out
	}

	summary.TotalBudget = convert(trip.TotalBudget, trip.Currency)

	byCategory := make(map[core.Category]core.Money)
	byDay := make(map[string]core.Money)
	var total core.Money
	for _, exp := range expenses {
		amount := convert(exp.Amount, exp.Currency)
		total = total.Add(amount)
		byCategory[exp.Category] = byCategory[exp.Category].Add(amount)
		byDay[exp.Date.String()] = byDay[exp.Date.String()].Add(amount)
	}

	summary.Converted = anyConverted && !anyFailed
	summary.Degraded = anyFailed
	summary.TotalSpent = total
	summary.Remaining = summary.TotalBudget.Sub(total)
	summary.DailyAverage = total.DivideBy(summary.DurationDays)

	for _, cat := range core.Categories() {
		if amount, ok := byCategory[cat]; ok {
			summary.ByCategory = append(summary.ByCategory, core.CategoryAmount{Category: cat, Amount: amount})
		}
	}

	// One entry per calendar day of the trip, spent or not.
	for cursor := trip.StartDate.Time; !cursor.After(trip.EndDate.Time); cursor = cursor.AddDate(0, 0, 1) {
		day := core.Date{Time: cursor}
		summary.ByDay = append(summary.ByDay, core.DailyAmount{
			Date:   day,
			Amount: byDay[day.String()],
		})
	}

	if anyFailed {
		a.logger.WarnContext(ctx, "trip summary degraded, some amounts not converted",
			"trip_id", trip.ID,
			"currency", currency)
	}

	return summary
}

// Overview summarizes every trip concurrently and sums the converted
// per-trip figures. Trip order in the result matches the input order.
func (a *Aggregator) Overview(ctx context.Context, trips []core.Trip, viewerCurrency string) (core.TripsOverview, error) {
	currency := core.NormalizeCurrency(viewerCurrency)
	overview := core.TripsOverview{
		Currency: currency,
		Trips:    make([]core.TripSummary, len(trips)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)

	var mu sync.Mutex
	for i, trip := range trips {
		g.Go(func() error {
			summary, err := a.Summarize(gctx, trip, currency)
			if err != nil {
				return err
			}
			mu.Lock()
			overview.Trips[i] = summary
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.TripsOverview{}, err
	}

	anyConverted := false
	for _, summary := range overview.Trips {
		overview.TotalBudget = overview.TotalBudget.Add(summary.TotalBudget)
		overview.TotalSpent = overview.TotalSpent.Add(summary.TotalSpent)
		if summary.Converted {
			anyConverted = true
		}
		if summary.Degraded {
			overview.Degraded = true
		}
	}
	overview.Converted = anyConverted && !overview.Degraded
	overview.Remaining = overview.TotalBudget.Sub(overview.TotalSpent)
	return overview, nil
}
