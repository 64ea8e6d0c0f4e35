package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarttravel/internal/core"
	"smarttravel/internal/rates"
)

type fakeExpenses struct {
	byTrip map[int64][]core.Expense
	err    error
}

func (f *fakeExpenses) ListExpensesByTrip(_ context.Context, tripID int64) ([]core.Expense, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byTrip[tripID], nil
}

type fakeProvider struct {
	rates map[string]float64
	err   error
}

func (f *fakeProvider) FetchRates(_ context.Context, _ string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func newTestAggregator(expenses *fakeExpenses, provider rates.RateProvider) *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	converter := rates.NewConverter(provider, rates.NewRateCache(100, time.Hour), logger)
	return NewAggregator(expenses, converter, logger)
}

func testTrip(id int64) core.Trip {
	return core.Trip{
		ID:          id,
		OwnerID:     1,
		Name:        "Lisbon break",
		Destination: "Lisbon",
		StartDate:   core.NewDate(2026, 6, 1),
		EndDate:     core.NewDate(2026, 6, 5),
		TotalBudget: core.Money{Cents: 100000},
		Currency:    "GBP",
	}
}

func TestSummarizeSingleCurrency(t *testing.T) {
	expenses := &fakeExpenses{byTrip: map[int64][]core.Expense{
		1: {
			{TripID: 1, Amount: core.Money{Cents: 2500}, Date: core.NewDate(2026, 6, 1), Category: core.CategoryFood, Currency: "GBP"},
			{TripID: 1, Amount: core.Money{Cents: 1500}, Date: core.NewDate(2026, 6, 1), Category: core.CategoryTransport, Currency: "GBP"},
			{TripID: 1, Amount: core.Money{Cents: 4000}, Date: core.NewDate(2026, 6, 3), Category: core.CategoryFood, Currency: "GBP"},
		},
	}}
	agg := newTestAggregator(expenses, &fakeProvider{})

	summary, err := agg.Summarize(context.Background(), testTrip(1), "GBP")
	require.NoError(t, err)

	// everything was GBP already, so no conversion was performed
	assert.False(t, summary.Converted)
	assert.False(t, summary.Degraded)
	assert.EqualValues(t, 8000, summary.TotalSpent.Cents)
	assert.EqualValues(t, 92000, summary.Remaining.Cents)
	assert.Equal(t, 5, summary.DurationDays)
	assert.EqualValues(t, 1600, summary.DailyAverage.Cents)

	// category sums add up to the total
	var byCat int64
	for _, ca := range summary.ByCategory {
		byCat += ca.Amount.Cents
	}
	assert.EqualValues(t, summary.TotalSpent.Cents, byCat)

	// every trip day is present, zero-filled where nothing was spent
	require.Len(t, summary.ByDay, 5)
	assert.Equal(t, "2026-06-01", summary.ByDay[0].Date.String())
	assert.EqualValues(t, 4000, summary.ByDay[0].Amount.Cents)
	assert.EqualValues(t, 0, summary.ByDay[1].Amount.Cents)
	assert.EqualValues(t, 4000, summary.ByDay[2].Amount.Cents)

	var byDay int64
	for _, da := range summary.ByDay {
		byDay += da.Amount.Cents
	}
	assert.EqualValues(t, summary.TotalSpent.Cents, byDay)
}

func TestSummarizeConvertsForeignExpenses(t *testing.T) {
	expenses := &fakeExpenses{byTrip: map[int64][]core.Expense{
		1: {
			{TripID: 1, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2026, 6, 2), Category: core.CategoryFood, Currency: "USD"},
		},
	}}
	provider := &fakeProvider{rates: map[string]float64{"GBP": 0.8}}
	agg := newTestAggregator(expenses, provider)

	summary, err := agg.Summarize(context.Background(), testTrip(1), "GBP")
	require.NoError(t, err)

	assert.True(t, summary.Converted)
	assert.False(t, summary.Degraded)
	// 100.00 USD at 0.8 -> 80.00 GBP
	assert.EqualValues(t, 8000, summary.TotalSpent.Cents)
	assert.EqualValues(t, 92000, summary.Remaining.Cents)
}

func TestSummarizeDegradesOnRateFailure(t *testing.T) {
	expenses := &fakeExpenses{byTrip: map[int64][]core.Expense{
		1: {
			{TripID: 1, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2026, 6, 2), Category: core.CategoryFood, Currency: "USD"},
		},
	}}
	agg := newTestAggregator(expenses, &fakeProvider{err: errors.New("upstream down")})

	summary, err := agg.Summarize(context.Background(), testTrip(1), "GBP")
	require.NoError(t, err)

	assert.False(t, summary.Converted)
	assert.True(t, summary.Degraded)
	// original amount carried through unchanged
	assert.EqualValues(t, 10000, summary.TotalSpent.Cents)
}

func TestSummarizeOverspentTrip(t *testing.T) {
	expenses := &fakeExpenses{byTrip: map[int64][]core.Expense{
		1: {
			{TripID: 1, Amount: core.Money{Cents: 150000}, Date: core.NewDate(2026, 6, 2), Category: core.CategoryOther, Currency: "GBP"},
		},
	}}
	agg := newTestAggregator(expenses, &fakeProvider{})

	summary, err := agg.Summarize(context.Background(), testTrip(1), "GBP")
	require.NoError(t, err)

	assert.EqualValues(t, -50000, summary.Remaining.Cents)
}

func TestOverviewSumsConvertedFigures(t *testing.T) {
	tripA := testTrip(1)
	tripB := testTrip(2)
	tripB.Name = "Tokyo sprint"
	tripB.TotalBudget = core.Money{Cents: 50000}

	expenses := &fakeExpenses{byTrip: map[int64][]core.Expense{
		1: {{TripID: 1, Amount: core.Money{Cents: 2000}, Date: core.NewDate(2026, 6, 2), Category: core.CategoryFood, Currency: "GBP"}},
		2: {{TripID: 2, Amount: core.Money{Cents: 3000}, Date: core.NewDate(2026, 6, 3), Category: core.CategoryOther, Currency: "GBP"}},
	}}
	agg := newTestAggregator(expenses, &fakeProvider{})

	overview, err := agg.Overview(context.Background(), []core.Trip{tripA, tripB}, "GBP")
	require.NoError(t, err)

	require.Len(t, overview.Trips, 2)
	assert.Equal(t, "Lisbon break", overview.Trips[0].TripName)
	assert.Equal(t, "Tokyo sprint", overview.Trips[1].TripName)
	assert.False(t, overview.Converted)
	assert.False(t, overview.Degraded)
	assert.EqualValues(t, 150000, overview.TotalBudget.Cents)
	assert.EqualValues(t, 5000, overview.TotalSpent.Cents)
	assert.EqualValues(t, 145000, overview.Remaining.Cents)
}

func TestOverviewFlagsCrossCurrencyConversion(t *testing.T) {
	tripA := testTrip(1)
	tripB := testTrip(2)
	tripB.Name = "Tokyo sprint"

	expenses := &fakeExpenses{byTrip: map[int64][]core.Expense{
		1: {{TripID: 1, Amount: core.Money{Cents: 2000}, Date: core.NewDate(2026, 6, 2), Category: core.CategoryFood, Currency: "GBP"}},
		2: {{TripID: 2, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2026, 6, 3), Category: core.CategoryOther, Currency: "USD"}},
	}}
	agg := newTestAggregator(expenses, &fakeProvider{rates: map[string]float64{"GBP": 0.8}})

	overview, err := agg.Overview(context.Background(), []core.Trip{tripA, tripB}, "GBP")
	require.NoError(t, err)

	assert.True(t, overview.Converted)
	assert.False(t, overview.Degraded)
	// 20.00 GBP + 100.00 USD at 0.8
	assert.EqualValues(t, 10000, overview.TotalSpent.Cents)
}

func TestOverviewPropagatesStorageError(t *testing.T) {
	agg := newTestAggregator(&fakeExpenses{err: errors.New("db closed")}, &fakeProvider{})

	_, err := agg.Overview(context.Background(), []core.Trip{testTrip(1)}, "GBP")
	assert.Error(t, err)
}
