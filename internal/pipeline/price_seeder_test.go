package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonmev/tonmev/internal/platform/dexapi"
	"github.com/tonmev/tonmev/internal/pricecache"
	"github.com/tonmev/tonmev/internal/venue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves canned pools by address.
type fakeFetcher struct {
	pools map[string]dexapi.Pool
	calls []string
}

func (f *fakeFetcher) GetPool(ctx context.Context, address string) (dexapi.Pool, error) {
	f.calls = append(f.calls, address)
	pool, ok := f.pools[address]
	if !ok {
		return dexapi.Pool{}, errors.New("pool not indexed")
	}
	return pool, nil
}

func tonPool(reserveTON, reserveQuote string) dexapi.Pool {
	return dexapi.Pool{
		Reserves: [2]string{reserveTON, reserveQuote},
		Assets:   [2]dexapi.Asset{{Symbol: "TON", Decimals: 9}, {Decimals: 9}},
	}
}

func TestPriceSeederRun(t *testing.T) {
	venues := venue.Default()
	prices := pricecache.New()
	fetcher := &fakeFetcher{pools: map[string]dexapi.Pool{
		// DeDust TON/USDT at 0.5, STON.fi TON/USDT at 0.51; the remaining
		// pools are not indexed and must be skipped without failing the pass.
		"EQA-X_yo3fzzbDbJ_0bzFWKqtRuZFIRa1sJsveZJ1YpViO3r": tonPool("1000000000000", "500000000000"),
		"EQD8TJ8xEWB1SpnRE4d89YO3jl0W0EiBnNS4IBaHaUmdfizE": tonPool("1000000000000", "510000000000"),
	}}

	s := NewPriceSeeder(venues, prices, fetcher, testLogger())
	require.NoError(t, s.Run(context.Background()))

	e, ok := prices.Get("DeDust", "TON/USDT")
	require.True(t, ok)
	assert.InDelta(t, 0.5, e.Price, 1e-9)

	e, ok = prices.Get("STON.fi", "TON/USDT")
	require.True(t, ok)
	assert.InDelta(t, 0.51, e.Price, 1e-9)

	// The failed USDC pools left no entries behind.
	_, ok = prices.Get("DeDust", "TON/USDC")
	assert.False(t, ok)

	// Every instrument with an address was attempted.
	assert.Len(t, fetcher.calls, 4)
}

func TestPriceSeederUnusableReserves(t *testing.T) {
	venues := venue.Default()
	prices := pricecache.New()
	fetcher := &fakeFetcher{pools: map[string]dexapi.Pool{
		"EQA-X_yo3fzzbDbJ_0bzFWKqtRuZFIRa1sJsveZJ1YpViO3r": tonPool("0", "500000000000"),
	}}

	s := NewPriceSeeder(venues, prices, fetcher, testLogger())
	require.NoError(t, s.Run(context.Background()))

	_, ok := prices.Get("DeDust", "TON/USDT")
	assert.False(t, ok, "empty pool must not seed a price")
}

func TestPriceSeederCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewPriceSeeder(venue.Default(), pricecache.New(), &fakeFetcher{}, testLogger())
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
