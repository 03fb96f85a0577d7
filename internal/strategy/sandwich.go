package strategy

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/tonmev/tonmev/internal/domain"
	"github.com/tonmev/tonmev/internal/txparse"
	"github.com/tonmev/tonmev/internal/venue"
)

// SandwichName is the registry name of the sandwich strategy.
const SandwichName = "sandwich"

// Sandwich strategy tuning defaults.
const (
	defaultSandwichMinConfidence = 0.5
	defaultSandwichMinProfit     = 0.01 // TON
	defaultMinTargetSwapSize     = 10.0 // TON
	defaultFrontRunFraction      = 0.25
	defaultBackRunFraction       = 0.1
	defaultSandwichGasBase       = 0.05
	defaultSandwichGasRate       = 0.001 // per TON of leg size
	defaultSandwichGasCeiling    = 0.3
	defaultFallbackSwapSize      = 25.0

	impactBasePct     = 0.1
	impactPerUnitPct  = 0.05
	impactCapPct      = 5.0
	impactFloorPct    = 0.5
	captureRateFloor  = 0.60
	captureRateSpread = 0.20
	sandwichConfBase  = 0.7
	sandwichConfCap   = 0.98
)

// Sandwich detects a single large pending swap worth front-running and
// back-running. It inspects only the packet's primary transaction against one
// configured venue's swap op-code.
//
// When swap parameters cannot be extracted and simulate_missing is on, a
// placeholder pair and size from configuration are substituted so the
// strategy stays exercised without live market data; such opportunities are
// labeled simulated. With simulate_missing off the packet is skipped instead.
type Sandwich struct {
	base
	venues *venue.Registry
	logger *slog.Logger
}

// DefaultSandwichConfig returns the out-of-the-box sandwich tuning.
func DefaultSandwichConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Enabled:       true,
		MinConfidence: defaultSandwichMinConfidence,
		MinProfit:     defaultSandwichMinProfit,
		Params: map[string]any{
			"dex":                  "DeDust",
			"target_pairs":         []string{"TON/USDT", "TON/USDC"},
			"min_target_swap_size": defaultMinTargetSwapSize,
			"front_run_fraction":   defaultFrontRunFraction,
			"back_run_fraction":    defaultBackRunFraction,
			"gas_base":             defaultSandwichGasBase,
			"gas_rate":             defaultSandwichGasRate,
			"gas_ceiling":          defaultSandwichGasCeiling,
			"simulate_missing":     true,
			"fallback_pair":        "TON/USDT",
			"fallback_swap_size":   defaultFallbackSwapSize,
		},
	}
}

// NewSandwich creates the sandwich strategy over the given venue registry.
func NewSandwich(cfg domain.StrategyConfig, venues *venue.Registry, logger *slog.Logger) *Sandwich {
	return &Sandwich{
		base:   newBase(cfg),
		venues: venues,
		logger: logger.With(slog.String("strategy", SandwichName)),
	}
}

// Name returns the strategy identifier.
func (s *Sandwich) Name() string { return SandwichName }

// Analyze evaluates the packet's primary transaction as a sandwich target.
func (s *Sandwich) Analyze(ctx context.Context, pkt *domain.MempoolPacket) (out []domain.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "analyze panicked",
				slog.String("packet_id", pkt.ID),
				slog.Any("panic", r),
			)
			out = nil
		}
	}()

	txs := txparse.Extract(pkt)
	if len(txs) == 0 {
		return nil
	}
	primary := txs[0]

	cfg := s.Config()
	dexName := cfg.StringParam("dex", "DeDust")
	dex, ok := s.venues.Get(dexName)
	if !ok {
		s.logger.WarnContext(ctx, "configured dex not in venue registry",
			slog.String("dex", dexName),
		)
		return nil
	}

	pair, swapSize, simulated, ok := s.extractTarget(primary, dex, cfg)
	if !ok {
		return nil
	}

	if !containsPair(cfg.StringsParam("target_pairs", []string{"TON/USDT"}), pair) {
		return nil
	}
	minSize := cfg.Param("min_target_swap_size", defaultMinTargetSwapSize)
	if swapSize < minSize {
		return nil
	}

	impact := priceImpactPct(swapSize, minSize)
	if impact < impactFloorPct {
		return nil
	}

	frontFrac := cfg.Param("front_run_fraction", defaultFrontRunFraction)
	backFrac := cfg.Param("back_run_fraction", defaultBackRunFraction)
	frontRun := swapSize * frontFrac * (1 + impact/100)
	backRun := frontRun + swapSize*backFrac

	gasBase := cfg.Param("gas_base", defaultSandwichGasBase)
	gasRate := cfg.Param("gas_rate", defaultSandwichGasRate)
	gasCeil := cfg.Param("gas_ceiling", defaultSandwichGasCeiling)
	frontGas := math.Min(gasBase+frontRun*gasRate, gasCeil)
	backGas := math.Min(gasBase+backRun*gasRate, gasCeil)

	// The capture rate models how much of the target's price impact the
	// sandwich actually keeps. The 60-80% band is drawn deterministically
	// from the transaction hash so replays score identically.
	capture := captureRateFloor + captureRateSpread*hashUnit(primary.Hash+pkt.ID)
	profit := capture*(swapSize*impact/100) - frontGas - backGas
	if profit < cfg.MinProfit {
		return nil
	}

	confidence := sandwichConfBase +
		0.1*math.Min(swapSize/(minSize*10), 1) +
		0.1*math.Min(impact/impactCapPct, 1) +
		0.08*math.Min(profit/(cfg.MinProfit*10), 1)
	if confidence > sandwichConfCap {
		confidence = sandwichConfCap
	}
	if confidence < cfg.MinConfidence {
		return nil
	}

	plan := fmt.Sprintf("front-run %.4f TON ahead of %.4f TON %s swap on %s, back-run %.4f TON (impact %.2f%%, capture %.0f%%)",
		frontRun, swapSize, pair, dex.Name, backRun, impact, capture*100)
	if simulated {
		plan = "[simulated] " + plan
	}

	opp := domain.Opportunity{
		ID:             uuid.NewString(),
		Strategy:       SandwichName,
		Timestamp:      pkt.Time(),
		ProfitEstimate: profit,
		Confidence:     confidence,
		Details: domain.SandwichDetails{
			Pair:           pair,
			Dex:            dex.Name,
			TargetSwapSize: swapSize,
			PriceImpactPct: impact,
			FrontRunAmount: frontRun,
			BackRunAmount:  backRun,
			FrontRunGas:    frontGas,
			BackRunGas:     backGas,
			Simulated:      simulated,
			Plan:           plan,
		},
		Raw: domain.PacketRef{PacketID: pkt.ID, PacketTime: pkt.Time()},
	}
	out = []domain.Opportunity{opp}
	s.remember(out)
	return out
}

// extractTarget decodes (pair, swapSize) from the primary transaction using
// the venue's swap op-code. On total extraction failure the configured
// placeholder is substituted when simulate_missing is on.
func (s *Sandwich) extractTarget(tx domain.Transaction, dex venue.Venue, cfg domain.StrategyConfig) (pair string, size float64, simulated, ok bool) {
	for _, p := range sortedPairs(dex) {
		inst := dex.Instruments[p]
		raw, found := txparse.SwapAmount(tx, dex.OpcodeFor(p))
		if !found {
			continue
		}
		size = txparse.ScaleAmount(raw, inst.Decimals)
		if size > 0 {
			return p, size, false, true
		}
	}

	if simulate, _ := cfg.Params["simulate_missing"].(bool); !simulate {
		return "", 0, false, false
	}
	pair = cfg.StringParam("fallback_pair", "TON/USDT")
	size = cfg.Param("fallback_swap_size", defaultFallbackSwapSize)
	return pair, size, true, true
}

// priceImpactPct models the target swap's price impact as a monotonic
// function of its size above the minimum: base 0.1%, +0.05% per TON above
// the minimum, capped at 5%.
func priceImpactPct(size, minSize float64) float64 {
	impact := impactBasePct + impactPerUnitPct*(size-minSize)
	if impact > impactCapPct {
		impact = impactCapPct
	}
	return impact
}

// hashUnit maps a string deterministically into [0, 1).
func hashUnit(s string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32()) / float64(math.MaxUint32+1)
}

func containsPair(pairs []string, pair string) bool {
	for _, p := range pairs {
		if p == pair {
			return true
		}
	}
	return false
}
