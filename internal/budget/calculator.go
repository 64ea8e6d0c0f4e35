// Package budget derives daily and total spending recommendations for a
// destination city from its cost-of-living figures.
package budget

import (
	"context"
	"log/slog"
	"strings"

	"smarttravel/internal/core"
	"smarttravel/internal/costs"
	"smarttravel/internal/rates"
)

// Per-category weights applied to the city indices. Transport and
// entertainment have no direct index, so they scale off purchasing power.
const (
	transportShare     = 0.10
	entertainmentShare = 0.15
	daysPerMonth       = 30
)

// Recommendation is a per-day spending plan plus the trip total.
type Recommendation struct {
	City         string                `json:"city"`
	Country      string                `json:"country"`
	Currency     string                `json:"currency"`
	Converted    bool                  `json:"is_converted"`
	TravelerType core.TravelerType     `json:"traveler_type"`
	DurationDays int                   `json:"duration_days"`
	DailyTotal   core.Money            `json:"-"`
	TripTotal    core.Money            `json:"-"`
	PerCategory  []core.CategoryAmount `json:"-"`
}

// Calculator turns city cost data into recommendations, converting the
// result into the requesting user's currency when rates are available.
type Calculator struct {
	catalog   *costs.Catalog
	converter *rates.Converter
	logger    *slog.Logger
}

func NewCalculator(catalog *costs.Catalog, converter *rates.Converter, logger *slog.Logger) *Calculator {
	return &Calculator{catalog: catalog, converter: converter, logger: logger}
}

// Recommend computes a plan for the given city, traveler style and trip
// length, expressed in targetCurrency when a rate is available. When the
// rate lookup fails the figures stay in the city's local currency and
// Converted is false. The city must exist in the dataset.
func (c *Calculator) Recommend(ctx context.Context, city string, traveler core.TravelerType, durationDays int, targetCurrency string) (Recommendation, error) {
	entry, err := c.catalog.Lookup(city)
	if err != nil {
		return Recommendation{}, err
	}
	if durationDays < 1 {
		durationDays = 1
	}

	multiplier := traveler.Multiplier()
	daily := dailyBreakdown(entry.Indices, multiplier)

	rec := Recommendation{
		City:         entry.City,
		Country:      entry.Country,
		Currency:     entry.Currency,
		TravelerType: traveler,
		DurationDays: durationDays,
	}

	target := strings.ToUpper(strings.TrimSpace(targetCurrency))
	if target == "" {
		target = entry.Currency
	}

	var total core.Money
	for _, ca := range daily {
		amount := ca.Amount
		if target != entry.Currency {
			convertedAmount, ok := c.converter.Convert(ctx, amount, entry.Currency, target)
			if !ok {
				// Rate unavailable: present everything in local currency.
				c.logger.WarnContext(ctx, "budget recommendation not converted",
					"city", entry.City,
					"from", entry.Currency,
					"to", target)
				rec.PerCategory = daily
				rec.DailyTotal = sumCategories(daily)
				rec.TripTotal = rec.DailyTotal.Scale(float64(durationDays))
				return rec, nil
			}
			amount = convertedAmount
		}
		rec.PerCategory = append(rec.PerCategory, core.CategoryAmount{Category: ca.Category, Amount: amount})
		total = total.Add(amount)
	}

	if target != entry.Currency {
		rec.Currency = target
		rec.Converted = true
	}
	rec.DailyTotal = total
	rec.TripTotal = total.Scale(float64(durationDays))
	return rec, nil
}

// dailyBreakdown maps city indices to per-category daily amounts in the
// city's local currency:
//
//	food          = avg(groceries, restaurant)
//	accommodation = monthly rent / 30
//	transport     = 10% of purchasing power
//	entertainment = 15% of purchasing power
//
// all scaled by the traveler-style multiplier.
func dailyBreakdown(idx costs.Indices, multiplier float64) []core.CategoryAmount {
	food := (idx.Groceries + idx.Restaurant) / 2
	accommodation := idx.Rent / daysPerMonth
	transport := idx.PurchasingPower * transportShare
	entertainment := idx.PurchasingPower * entertainmentShare

	return []core.CategoryAmount{
		{Category: core.CategoryFood, Amount: core.Money{Cents: core.CentsFromFloat(food * multiplier)}},
		{Category: core.CategoryAccommodation, Amount: core.Money{Cents: core.CentsFromFloat(accommodation * multiplier)}},
		{Category: core.CategoryTransport, Amount: core.Money{Cents: core.CentsFromFloat(transport * multiplier)}},
		{Category: core.CategoryEntertainment, Amount: core.Money{Cents: core.CentsFromFloat(entertainment * multiplier)}},
	}
}

func sumCategories(categories []core.CategoryAmount) core.Money {
	var total core.Money
	for _, ca := range categories {
		total = total.Add(ca.Amount)
	}
	return total
}
