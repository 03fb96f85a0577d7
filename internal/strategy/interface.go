// Package strategy contains the opportunity-detection pipeline: the strategy
// contract, the concrete detection strategies, and the Manager that fans
// packets out and aggregates results.
package strategy

import (
	"context"

	"github.com/tonmev/tonmev/internal/domain"
)

// Strategy is one pluggable opportunity detector. A strategy consumes one
// packet at a time, emits zero or more opportunities, and owns both its
// configuration and its opportunity history.
//
// Analyze must never panic past its own boundary: internal failures are
// logged and yield zero opportunities so one malformed transaction cannot
// abort the rest of the batch or sibling strategies.
type Strategy interface {
	Name() string
	Enabled() bool
	Config() domain.StrategyConfig
	UpdateConfig(patch domain.ConfigPatch)
	Analyze(ctx context.Context, pkt *domain.MempoolPacket) []domain.Opportunity
	Opportunities() []domain.Opportunity
	ClearOpportunities()
}
