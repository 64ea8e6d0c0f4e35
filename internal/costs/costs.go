// Package costs provides cost-of-living figures for destination cities.
// The dataset ships embedded in the binary so lookups never hit the
// network and work offline.
package costs

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCityNotFound is returned when neither an exact nor a substring match
// exists for the queried city.
var ErrCityNotFound = errors.New("city not found in cost dataset")

//go:embed cities.json
var citiesJSON []byte

// Indices are cost-of-living figures for a city. The groceries and
// restaurant values are index points, rent is a monthly figure in the
// city's local currency, purchasing_power is a local-strength index.
type Indices struct {
	Groceries       float64 `json:"groceries"`
	Restaurant      float64 `json:"restaurant"`
	Rent            float64 `json:"rent"`
	PurchasingPower float64 `json:"purchasing_power"`
}

type City struct {
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Currency string  `json:"currency"`
	Indices  Indices `json:"indices"`
}

// Catalog answers city lookups against the embedded dataset.
type Catalog struct {
	cities []City
}

func NewCatalog() (*Catalog, error) {
	var cities []City
	if err := json.Unmarshal(citiesJSON, &cities); err != nil {
		return nil, fmt.Errorf("parse embedded city dataset: %w", err)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("embedded city dataset is empty")
	}
	return &Catalog{cities: cities}, nil
}

// Lookup finds a city by name, case-insensitively. An exact match wins;
// otherwise the first city whose name contains the query is returned, so
// "new york" matches and so does "york".
func (c *Catalog) Lookup(name string) (City, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return City{}, fmt.Errorf("%w: empty name", ErrCityNotFound)
	}

	for _, city := range c.cities {
		if strings.ToLower(city.City) == query {
			return city, nil
		}
	}
	for _, city := range c.cities {
		if strings.Contains(strings.ToLower(city.City), query) {
			return city, nil
		}
	}

	return City{}, fmt.Errorf("%w: %q", ErrCityNotFound, name)
}

// Cities lists every city in the dataset, for the destinations endpoint.
func (c *Catalog) Cities() []City {
	out := make([]City, len(c.cities))
	copy(out, c.cities)
	return out
}
