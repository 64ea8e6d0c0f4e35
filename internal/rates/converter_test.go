package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smarttravel/internal/core"
)

type fakeProvider struct {
	rates map[string]float64
	err   error
	calls int
}

func (f *fakeProvider) FetchRates(_ context.Context, _ string) (map[string]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConverter(p RateProvider) *Converter {
	return NewConverter(p, NewRateCache(100, time.Hour), discardLogger())
}

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	provider := &fakeProvider{rates: map[string]float64{"USD": 1.25}}
	conv := newTestConverter(provider)

	amount := core.Money{Cents: 100000}
	got, converted := conv.Convert(context.Background(), amount, "GBP", "GBP")

	if converted {
		t.Error("expected converted=false for same-currency conversion")
	}
	if got.Cents != amount.Cents {
		t.Errorf("expected amount unchanged, got %d", got.Cents)
	}
	if provider.calls != 0 {
		t.Errorf("provider should not be called, got %d calls", provider.calls)
	}
}

func TestConvertAppliesRate(t *testing.T) {
	provider := &fakeProvider{rates: map[string]float64{"USD": 1.25, "EUR": 1.15}}
	conv := newTestConverter(provider)

	// 1000.00 GBP at 1.25 -> 1250.00 USD
	got, converted := conv.Convert(context.Background(), core.Money{Cents: 100000}, "GBP", "USD")

	if !converted {
		t.Fatal("expected converted=true")
	}
	if got.Cents != 125000 {
		t.Errorf("expected 125000 cents, got %d", got.Cents)
	}
}

func TestConvertCachesWholeRateTable(t *testing.T) {
	provider := &fakeProvider{rates: map[string]float64{"USD": 1.25, "EUR": 1.15}}
	conv := newTestConverter(provider)
	ctx := context.Background()

	conv.Convert(ctx, core.Money{Cents: 100}, "GBP", "USD")
	conv.Convert(ctx, core.Money{Cents: 100}, "GBP", "USD")
	conv.Convert(ctx, core.Money{Cents: 100}, "gbp", "eur")

	if provider.calls != 1 {
		t.Errorf("expected a single provider fetch, got %d", provider.calls)
	}
}

func TestConvertProviderFailureKeepsOriginal(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream down")}
	conv := newTestConverter(provider)

	amount := core.Money{Cents: 4200}
	got, converted := conv.Convert(context.Background(), amount, "GBP", "USD")

	if converted {
		t.Error("expected converted=false when the provider fails")
	}
	if got.Cents != amount.Cents {
		t.Errorf("expected original amount back, got %d", got.Cents)
	}
}

func TestConvertMissingTargetAssumesParity(t *testing.T) {
	provider := &fakeProvider{rates: map[string]float64{"EUR": 1.15}}
	conv := newTestConverter(provider)

	got, converted := conv.Convert(context.Background(), core.Money{Cents: 5000}, "GBP", "XXX")

	if !converted {
		t.Fatal("expected converted=true with parity fallback")
	}
	if got.Cents != 5000 {
		t.Errorf("expected parity amount 5000, got %d", got.Cents)
	}
}

func TestHTTPProviderFetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/GBP" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"base":"GBP","rates":{"USD":1.25,"EUR":1.15}}`)
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, 2*time.Second)
	table, err := provider.FetchRates(context.Background(), "GBP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["USD"] != 1.25 {
		t.Errorf("expected USD rate 1.25, got %v", table["USD"])
	}
}

func TestHTTPProviderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, 2*time.Second)
	if _, err := provider.FetchRates(context.Background(), "GBP"); err == nil {
		t.Fatal("expected an error for non-200 response")
	}
}
