package strategy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonmev/tonmev/internal/domain"
	"github.com/tonmev/tonmev/internal/venue"
)

func newTestSandwich(cfg domain.StrategyConfig) *Sandwich {
	return NewSandwich(cfg, venue.Default(), testLogger())
}

func TestSandwichDetectsLargeSwap(t *testing.T) {
	sw := newTestSandwich(DefaultSandwichConfig())

	// 50 TON swap against DeDust, well above the 10 TON floor.
	pkt := swapPacket("p1", dedustUSDTPool, dedustOpcode, 50_000_000_000)
	opps := sw.Analyze(context.Background(), pkt)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, SandwichName, opp.Strategy)
	assert.Greater(t, opp.ProfitEstimate, 0.01)
	assert.GreaterOrEqual(t, opp.Confidence, 0.5)
	assert.LessOrEqual(t, opp.Confidence, 0.98)

	details, ok := opp.Details.(domain.SandwichDetails)
	require.True(t, ok)
	assert.Equal(t, "DeDust", details.Dex)
	assert.InDelta(t, 50.0, details.TargetSwapSize, 1e-9)
	assert.InDelta(t, 2.1, details.PriceImpactPct, 1e-9)
	assert.False(t, details.Simulated)
	assert.Greater(t, details.BackRunAmount, details.FrontRunAmount)
	assert.False(t, strings.HasPrefix(details.Plan, "[simulated]"))

	assert.Len(t, sw.Opportunities(), 1)
}

func TestSandwichSkipsSmallSwap(t *testing.T) {
	sw := newTestSandwich(DefaultSandwichConfig())

	// 5 TON is under the minimum target size.
	pkt := swapPacket("p1", dedustUSDTPool, dedustOpcode, 5_000_000_000)
	opps := sw.Analyze(context.Background(), pkt)
	assert.Empty(t, opps)
	assert.Empty(t, sw.Opportunities())
}

func TestSandwichSimulatedFallback(t *testing.T) {
	sw := newTestSandwich(DefaultSandwichConfig())

	// No decodable swap in the packet; simulate_missing substitutes the
	// configured placeholder.
	pkt := &domain.MempoolPacket{
		ID:           "p1",
		Timestamp:    1_700_000_000_000,
		Transactions: []domain.Transaction{{Hash: "h1", Account: "EQopaque"}},
	}
	opps := sw.Analyze(context.Background(), pkt)
	require.Len(t, opps, 1)

	details, ok := opps[0].Details.(domain.SandwichDetails)
	require.True(t, ok)
	assert.True(t, details.Simulated)
	assert.Equal(t, "TON/USDT", details.Pair)
	assert.InDelta(t, 25.0, details.TargetSwapSize, 1e-9)
	assert.True(t, strings.HasPrefix(details.Plan, "[simulated] "))
}

func TestSandwichSimulateMissingOff(t *testing.T) {
	cfg := DefaultSandwichConfig()
	cfg.Params["simulate_missing"] = false
	sw := newTestSandwich(cfg)

	pkt := &domain.MempoolPacket{
		ID:           "p1",
		Timestamp:    1_700_000_000_000,
		Transactions: []domain.Transaction{{Hash: "h1", Account: "EQopaque"}},
	}
	opps := sw.Analyze(context.Background(), pkt)
	assert.Empty(t, opps)
}

func TestSandwichTargetPairFilter(t *testing.T) {
	cfg := DefaultSandwichConfig()
	cfg.Params["target_pairs"] = []string{"TON/NOPE"}
	sw := newTestSandwich(cfg)

	pkt := swapPacket("p1", dedustUSDTPool, dedustOpcode, 50_000_000_000)
	opps := sw.Analyze(context.Background(), pkt)
	assert.Empty(t, opps)
}

func TestSandwichUnknownDex(t *testing.T) {
	cfg := DefaultSandwichConfig()
	cfg.Params["dex"] = "NotARealDex"
	sw := newTestSandwich(cfg)

	pkt := swapPacket("p1", dedustUSDTPool, dedustOpcode, 50_000_000_000)
	opps := sw.Analyze(context.Background(), pkt)
	assert.Empty(t, opps)
}

func TestSandwichEmptyPacket(t *testing.T) {
	sw := newTestSandwich(DefaultSandwichConfig())
	pkt := &domain.MempoolPacket{ID: "p1", Timestamp: 1_700_000_000_000}
	assert.Empty(t, sw.Analyze(context.Background(), pkt))
}

func TestSandwichDeterministicScoring(t *testing.T) {
	build := func() *domain.MempoolPacket {
		return swapPacket("p1", dedustUSDTPool, dedustOpcode, 50_000_000_000)
	}

	a := newTestSandwich(DefaultSandwichConfig()).Analyze(context.Background(), build())
	b := newTestSandwich(DefaultSandwichConfig()).Analyze(context.Background(), build())
	require.Len(t, a, 1)
	require.Len(t, b, 1)

	// The capture rate is drawn from the transaction hash, so identical
	// packets score identically across runs.
	assert.Equal(t, a[0].ProfitEstimate, b[0].ProfitEstimate)
	assert.Equal(t, a[0].Confidence, b[0].Confidence)
}
