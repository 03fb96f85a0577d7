package strategy

import (
	"sync"

	"github.com/tonmev/tonmev/internal/domain"
)

// base carries the config and opportunity-history bookkeeping shared by all
// strategies. The config is replaced wholesale on update (copy-on-write), so
// readers never see a partially merged struct.
type base struct {
	mu      sync.RWMutex
	cfg     domain.StrategyConfig
	history []domain.Opportunity
}

func newBase(cfg domain.StrategyConfig) base {
	return base{cfg: cfg}
}

// Config returns the current configuration value.
func (b *base) Config() domain.StrategyConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// Enabled reports whether the strategy should receive packets.
func (b *base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.Enabled
}

// UpdateConfig merges the patch into a copy of the current config and swaps
// it in. Field ranges are not validated here.
func (b *base) UpdateConfig(patch domain.ConfigPatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = b.cfg.Merge(patch)
}

// Opportunities returns the full emission history, oldest first. The slice is
// a copy and safe to mutate.
func (b *base) Opportunities() []domain.Opportunity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Opportunity, len(b.history))
	copy(out, b.history)
	return out
}

// ClearOpportunities drops the strategy's own history.
func (b *base) ClearOpportunities() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}

// remember appends newly emitted opportunities to the history.
func (b *base) remember(opps []domain.Opportunity) {
	if len(opps) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, opps...)
}
