package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/tonmev/tonmev/internal/domain"
	"github.com/tonmev/tonmev/internal/pricecache"
	"github.com/tonmev/tonmev/internal/txparse"
	"github.com/tonmev/tonmev/internal/venue"
)

// ArbitrageName is the registry name of the arbitrage strategy.
const ArbitrageName = "arbitrage"

// Arbitrage strategy tuning defaults.
const (
	defaultArbMinConfidence = 0.3
	defaultArbMinProfit     = 0.01 // TON
	defaultMinPriceDiffPct  = 1.0
	defaultMaxSlippagePct   = 0.5
	defaultBaseAmount       = 10.0 // TON, unit trade size
	maxSizeMultiplier       = 5.0

	arbBaseGas         = 0.05 // TON
	arbBridgeGas       = 0.02 // extra when buy and sell venues differ
	arbGasBuffer       = 0.01
	confDiffWeight     = 0.7
	confProfitWeight   = 0.3
	confDiffSaturation = 5.0 // diff pct at which the diff term saturates
)

// Arbitrage detects price divergence for the same pair across venues. Each
// observed price is written to the shared price cache and compared pairwise
// against every other venue's cached price; no multi-venue optimization is
// attempted.
type Arbitrage struct {
	base
	venues *venue.Registry
	prices *pricecache.Cache
	logger *slog.Logger
}

// DefaultArbitrageConfig returns the out-of-the-box arbitrage tuning.
func DefaultArbitrageConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Enabled:       true,
		MinConfidence: defaultArbMinConfidence,
		MinProfit:     defaultArbMinProfit,
		Params: map[string]any{
			"min_price_diff_pct": defaultMinPriceDiffPct,
			"max_slippage_pct":   defaultMaxSlippagePct,
			"base_amount":        defaultBaseAmount,
		},
	}
}

// NewArbitrage creates the arbitrage strategy over the given venue registry
// and price cache.
func NewArbitrage(cfg domain.StrategyConfig, venues *venue.Registry, prices *pricecache.Cache, logger *slog.Logger) *Arbitrage {
	return &Arbitrage{
		base:   newBase(cfg),
		venues: venues,
		prices: prices,
		logger: logger.With(slog.String("strategy", ArbitrageName)),
	}
}

// Name returns the strategy identifier.
func (a *Arbitrage) Name() string { return ArbitrageName }

// Analyze classifies each transaction in the packet against the venue
// registry, tracks extracted prices, and emits one opportunity per profitable
// pairwise venue comparison. Internal failures are swallowed: a packet that
// cannot be interpreted contributes zero opportunities.
func (a *Arbitrage) Analyze(ctx context.Context, pkt *domain.MempoolPacket) (out []domain.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "analyze panicked",
				slog.String("packet_id", pkt.ID),
				slog.Any("panic", r),
			)
			out = nil
		}
	}()

	cfg := a.Config()
	for _, tx := range txparse.Extract(pkt) {
		v, ok := a.classify(tx)
		if !ok {
			// Not a known venue; skip without log noise.
			continue
		}
		pair, price, ok := a.extractPrice(tx, v)
		if !ok {
			continue
		}
		a.prices.Set(v.Name, pair, price)
		a.logger.DebugContext(ctx, "price observed",
			slog.String("venue", v.Name),
			slog.String("pair", pair),
			slog.Float64("price", price),
		)

		for _, other := range a.venues.Venues() {
			if other.Name == v.Name {
				continue
			}
			cached, ok := a.prices.Get(other.Name, pair)
			if !ok {
				continue
			}
			if opp, ok := a.compare(cfg, pkt, pair, v, price, other, cached.Price); ok {
				out = append(out, opp)
			}
		}
	}
	a.remember(out)
	return out
}

// classify matches a transaction to a known venue by destination address
// (the transaction account or any outbound-message destination) or, failing
// that, by the presence of a venue's swap op-code in the payload.
func (a *Arbitrage) classify(tx domain.Transaction) (venue.Venue, bool) {
	if v, ok := a.venues.ByAddress(tx.Account); ok {
		return v, true
	}
	for _, msg := range tx.OutMessages {
		if v, ok := a.venues.ByAddress(msg.Destination); ok {
			return v, true
		}
	}
	for _, v := range a.venues.Venues() {
		if _, ok := txparse.SwapAmount(tx, v.SwapOpcode); ok {
			return v, true
		}
	}
	return venue.Venue{}, false
}

// extractPrice pulls (pair, price) out of the transaction. When the
// transaction targets a known pool address the pair is unambiguous; otherwise
// each of the venue's instruments is tried in pair order.
func (a *Arbitrage) extractPrice(tx domain.Transaction, v venue.Venue) (string, float64, bool) {
	try := func(inst venue.Instrument) (float64, bool) {
		raw, ok := txparse.SwapAmount(tx, v.OpcodeFor(inst.Pair))
		if !ok {
			return 0, false
		}
		price := txparse.ScaleAmount(raw, inst.Decimals)
		if price <= 0 {
			return 0, false
		}
		return price, true
	}

	if inst, ok := a.instrumentForAddress(tx, v); ok {
		if price, ok := try(inst); ok {
			return inst.Pair, price, true
		}
		return "", 0, false
	}

	for _, pair := range sortedPairs(v) {
		if price, ok := try(v.Instruments[pair]); ok {
			return pair, price, true
		}
	}
	return "", 0, false
}

func (a *Arbitrage) instrumentForAddress(tx domain.Transaction, v venue.Venue) (venue.Instrument, bool) {
	match := func(addr string) (venue.Instrument, bool) {
		for _, inst := range v.Instruments {
			if inst.Address != "" && inst.Address == addr {
				return inst, true
			}
		}
		return venue.Instrument{}, false
	}
	if inst, ok := match(tx.Account); ok {
		return inst, true
	}
	for _, msg := range tx.OutMessages {
		if inst, ok := match(msg.Destination); ok {
			return inst, true
		}
	}
	return venue.Instrument{}, false
}

// compare evaluates a single pairwise divergence between the freshly observed
// venue and one other venue's cached price.
func (a *Arbitrage) compare(cfg domain.StrategyConfig, pkt *domain.MempoolPacket, pair string, observed venue.Venue, observedPrice float64, other venue.Venue, otherPrice float64) (domain.Opportunity, bool) {
	minDiffPct := cfg.Param("min_price_diff_pct", defaultMinPriceDiffPct)
	maxSlippage := cfg.Param("max_slippage_pct", defaultMaxSlippagePct)
	baseAmount := cfg.Param("base_amount", defaultBaseAmount)

	lo := math.Min(observedPrice, otherPrice)
	if lo <= 0 {
		return domain.Opportunity{}, false
	}
	diffPct := math.Abs(observedPrice-otherPrice) / lo * 100
	if diffPct < minDiffPct {
		return domain.Opportunity{}, false
	}

	buy, sell := observed, other
	buyPrice, sellPrice := observedPrice, otherPrice
	if otherPrice < observedPrice {
		buy, sell = other, observed
		buyPrice, sellPrice = otherPrice, observedPrice
	}

	// Larger gaps justify proportionally larger size, capped at 5x the base.
	mult := diffPct / minDiffPct
	if mult < 1 {
		mult = 1
	}
	if mult > maxSizeMultiplier {
		mult = maxSizeMultiplier
	}
	size := baseAmount * mult

	buyAmount := size
	sellAmount := size * (sellPrice / buyPrice) * (1 - maxSlippage/100)

	gas := arbBaseGas + buy.GasSurcharge + sell.GasSurcharge
	if buy.Name != sell.Name {
		gas += arbBridgeGas
	}

	profit := sellAmount - buyAmount - gas - arbGasBuffer
	if profit < cfg.MinProfit {
		return domain.Opportunity{}, false
	}

	confidence := confDiffWeight*math.Min(diffPct/confDiffSaturation, 1) +
		confProfitWeight*math.Min(profit/(cfg.MinProfit*10), 1)
	if confidence > 1 {
		confidence = 1
	}
	if confidence < cfg.MinConfidence {
		return domain.Opportunity{}, false
	}

	plan := fmt.Sprintf("buy %.4f TON of %s on %s at %.6f, sell %.4f TON on %s at %.6f (gap %.2f%%, est gas %.4f TON)",
		buyAmount, pair, buy.Name, buyPrice, sellAmount, sell.Name, sellPrice, diffPct, gas)

	return domain.Opportunity{
		ID:             uuid.NewString(),
		Strategy:       ArbitrageName,
		Timestamp:      pkt.Time(),
		ProfitEstimate: profit,
		Confidence:     confidence,
		Details: domain.ArbitrageDetails{
			Pair:         pair,
			BuyDex:       buy.Name,
			SellDex:      sell.Name,
			BuyPrice:     buyPrice,
			SellPrice:    sellPrice,
			PriceDiffPct: diffPct,
			BuyAmount:    buyAmount,
			SellAmount:   sellAmount,
			EstimatedGas: gas,
			Plan:         plan,
		},
		Raw: domain.PacketRef{PacketID: pkt.ID, PacketTime: pkt.Time()},
	}, true
}

func sortedPairs(v venue.Venue) []string {
	pairs := make([]string, 0, len(v.Instruments))
	for p := range v.Instruments {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs) // deterministic trial order
	return pairs
}
