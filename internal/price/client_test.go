package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestPriceParsesAndCachesPerDay(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"market_data":{"current_price":{"usd":25.5}}}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.Client(), server.URL, "avalanche-2", nil, nil)
	ctx := context.Background()

	// 1700000000 and 1700003600 fall on the same UTC day.
	if got := client.Price(ctx, 1700000000); got != 25.5 {
		t.Fatalf("price mismatch: %f", got)
	}
	if got := client.Price(ctx, 1700003600); got != 25.5 {
		t.Fatalf("cached price mismatch: %f", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("same-day lookups must hit the cache, got %d calls", calls.Load())
	}

	// A different day fetches again.
	client.Price(ctx, 1700000000+86400)
	if calls.Load() != 2 {
		t.Fatalf("new day should fetch, got %d calls", calls.Load())
	}
}

func TestPriceFallsBackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.Client(), server.URL, "avalanche-2", nil, nil)
	if got := client.Price(context.Background(), 1700000000); got != FallbackUSD {
		t.Fatalf("expected fallback %f, got %f", FallbackUSD, got)
	}
}

func TestFallbackIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"market_data":{"current_price":{"usd":31.0}}}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.Client(), server.URL, "avalanche-2", nil, nil)
	ctx := context.Background()

	if got := client.Price(ctx, 1700000000); got != FallbackUSD {
		t.Fatalf("expected fallback, got %f", got)
	}
	fail.Store(false)
	if got := client.Price(ctx, 1700000000); got != 31.0 {
		t.Fatalf("recovery should fetch fresh price, got %f", got)
	}
}
