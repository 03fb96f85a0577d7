package domain

import "time"

// PacketRef is an audit back-reference to the packet that produced an
// opportunity. It carries identifying data only, not an ownership reference.
type PacketRef struct {
	PacketID   string    `json:"packet_id"`
	PacketTime time.Time `json:"packet_time"`
}

// Opportunity is a scored, strategy-attributed candidate for MEV profit
// extraction. Opportunities are immutable once created; the emitting strategy
// and the manager's aggregate store share append-only references to the same
// value, and only an explicit clear removes them.
type Opportunity struct {
	ID             string    `json:"id"`
	Strategy       string    `json:"strategy"`
	Timestamp      time.Time `json:"timestamp"`       // source packet time
	ProfitEstimate float64   `json:"profit_estimate"` // TON
	Confidence     float64   `json:"confidence"`      // 0..1
	Details        any       `json:"details"`
	Raw            PacketRef `json:"raw_data"`
}

// ArbitrageDetails is the strategy-specific payload of an arbitrage
// opportunity: a pairwise price divergence between two venues.
type ArbitrageDetails struct {
	Pair         string  `json:"pair"`
	BuyDex       string  `json:"buy_dex"`
	SellDex      string  `json:"sell_dex"`
	BuyPrice     float64 `json:"buy_price"`
	SellPrice    float64 `json:"sell_price"`
	PriceDiffPct float64 `json:"price_diff_pct"`
	BuyAmount    float64 `json:"buy_amount"`  // TON
	SellAmount   float64 `json:"sell_amount"` // TON
	EstimatedGas float64 `json:"estimated_gas"`
	Plan         string  `json:"plan"`
}

// SandwichDetails is the strategy-specific payload of a sandwich opportunity:
// a large pending swap worth front-running and back-running.
type SandwichDetails struct {
	Pair           string  `json:"pair"`
	Dex            string  `json:"dex"`
	TargetSwapSize float64 `json:"target_swap_size"` // TON
	PriceImpactPct float64 `json:"price_impact_pct"`
	FrontRunAmount float64 `json:"front_run_amount"`
	BackRunAmount  float64 `json:"back_run_amount"`
	FrontRunGas    float64 `json:"front_run_gas"`
	BackRunGas     float64 `json:"back_run_gas"`
	Simulated      bool    `json:"simulated"` // true when built from placeholder market data
	Plan           string  `json:"plan"`
}

// StrategyStats aggregates opportunity counts and profit for one strategy.
type StrategyStats struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	TotalProfit   float64 `json:"total_profit"`
	AverageProfit float64 `json:"average_profit"`
}

// Statistics is the manager-level aggregate view.
type Statistics struct {
	TotalStrategies    int             `json:"total_strategies"`
	TotalOpportunities int             `json:"total_opportunities"`
	PerStrategy        []StrategyStats `json:"per_strategy"`
}
