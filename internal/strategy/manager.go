package strategy

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tonmev/tonmev/internal/domain"
)

// Subscriber is notified after each packet that produced at least one new
// opportunity. Subscribers are invoked synchronously in registration order;
// delivery is at-least-once to current subscribers only, with no replay of
// history.
type Subscriber func(opps []domain.Opportunity)

// Info is the public listing entry for one registered strategy.
type Info struct {
	Name    string                `json:"name"`
	Enabled bool                  `json:"enabled"`
	Config  domain.StrategyConfig `json:"config"`
}

// Manager owns the strategy registry. It fans each packet out synchronously
// to every enabled strategy in registration order, merges the results into
// the aggregate opportunity store, and notifies subscribers. A strategy that
// panics during Analyze is logged and isolated; the remaining strategies
// still run on the same packet.
type Manager struct {
	mu         sync.RWMutex
	order      []string
	strategies map[string]Strategy
	subs       []Subscriber

	store   *OpportunityStore
	configs domain.StrategyConfigStore // optional persistence for config patches
	logger  *slog.Logger
}

// NewManager creates a Manager. configs may be nil; config updates are then
// in-memory only.
func NewManager(configs domain.StrategyConfigStore, logger *slog.Logger) *Manager {
	return &Manager{
		strategies: make(map[string]Strategy),
		store:      NewOpportunityStore(),
		configs:    configs,
		logger:     logger.With(slog.String("component", "strategy_manager")),
	}
}

// Register adds a strategy under its own name, replacing any previous
// registration while keeping the original fan-out position.
func (m *Manager) Register(s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := s.Name()
	if _, exists := m.strategies[name]; !exists {
		m.order = append(m.order, name)
	}
	m.strategies[name] = s
	m.logger.Info("strategy registered", slog.String("strategy", name))
}

// Unregister removes a strategy by name. Unknown names are a no-op.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strategies[name]; !ok {
		return
	}
	delete(m.strategies, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.logger.Info("strategy unregistered", slog.String("strategy", name))
}

// Subscribe registers a callback for new-opportunity notifications.
func (m *Manager) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// AnalyzePacket fans the packet out to all enabled strategies, appends every
// returned opportunity to the aggregate store, notifies subscribers, and
// returns the merged result. It never returns an error: per-strategy failures
// are logged and contribute zero opportunities.
func (m *Manager) AnalyzePacket(ctx context.Context, pkt *domain.MempoolPacket) []domain.Opportunity {
	m.mu.RLock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	strategies := make(map[string]Strategy, len(m.strategies))
	for k, v := range m.strategies {
		strategies[k] = v
	}
	subs := make([]Subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.RUnlock()

	var merged []domain.Opportunity
	for _, name := range names {
		s := strategies[name]
		if !s.Enabled() {
			continue
		}
		merged = append(merged, m.runStrategy(ctx, s, pkt)...)
	}

	if len(merged) > 0 {
		m.store.Append(merged...)
		m.logger.InfoContext(ctx, "opportunities detected",
			slog.String("packet_id", pkt.ID),
			slog.Int("count", len(merged)),
		)
		for _, fn := range subs {
			fn(merged)
		}
	}
	return merged
}

// runStrategy invokes one strategy with panic isolation. Strategies already
// recover internally; this boundary guards against contract violations so a
// broken strategy cannot take down the fan-out.
func (m *Manager) runStrategy(ctx context.Context, s Strategy, pkt *domain.MempoolPacket) (opps []domain.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "strategy analyze failed",
				slog.String("strategy", s.Name()),
				slog.String("packet_id", pkt.ID),
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
			opps = nil
		}
	}()
	return s.Analyze(ctx, pkt)
}

// Strategies lists all registered strategies with their enabled state and
// config, in registration order.
func (m *Manager) Strategies() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.order))
	for _, name := range m.order {
		s := m.strategies[name]
		out = append(out, Info{Name: name, Enabled: s.Enabled(), Config: s.Config()})
	}
	return out
}

// UpdateConfig merges a partial config into the named strategy. An unknown
// strategy name is a no-op with a logged warning, never an error. When a
// config store is wired the merged config is persisted as well.
func (m *Manager) UpdateConfig(ctx context.Context, name string, patch domain.ConfigPatch) {
	m.mu.RLock()
	s, ok := m.strategies[name]
	m.mu.RUnlock()
	if !ok {
		m.logger.WarnContext(ctx, "config update for unknown strategy",
			slog.String("strategy", name),
		)
		return
	}

	s.UpdateConfig(patch)
	m.logger.InfoContext(ctx, "strategy config updated",
		slog.String("strategy", name),
		slog.Bool("enabled", s.Enabled()),
	)

	if m.configs != nil {
		rec := domain.StrategyConfigRecord{
			Name:      name,
			Config:    s.Config(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := m.configs.Upsert(ctx, rec); err != nil {
			m.logger.WarnContext(ctx, "persist strategy config failed",
				slog.String("strategy", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

// LoadPersistedConfigs applies stored configs over the registered strategies'
// defaults. Missing store or missing rows are not errors.
func (m *Manager) LoadPersistedConfigs(ctx context.Context) {
	if m.configs == nil {
		return
	}
	recs, err := m.configs.List(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "load persisted strategy configs failed",
			slog.String("error", err.Error()),
		)
		return
	}
	for _, rec := range recs {
		m.mu.RLock()
		s, ok := m.strategies[rec.Name]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		patch := domain.ConfigPatch{
			"enabled":        rec.Config.Enabled,
			"min_confidence": rec.Config.MinConfidence,
			"min_profit":     rec.Config.MinProfit,
		}
		for k, v := range rec.Config.Params {
			patch[k] = v
		}
		s.UpdateConfig(patch)
		m.logger.Info("applied persisted strategy config",
			slog.String("strategy", rec.Name),
		)
	}
}

// Opportunities queries the aggregate store: optional strategy filter,
// optional limit (<= 0 for all), always sorted by profit descending.
func (m *Manager) Opportunities(limit int, strategyFilter string) []domain.Opportunity {
	return m.store.List(limit, strategyFilter)
}

// ClearOpportunities drops history globally (empty filter) or for one
// strategy, from both the aggregate store and the strategy's own ledger.
func (m *Manager) ClearOpportunities(strategyFilter string) {
	m.store.Clear(strategyFilter)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if strategyFilter == "" {
		for _, s := range m.strategies {
			s.ClearOpportunities()
		}
		return
	}
	if s, ok := m.strategies[strategyFilter]; ok {
		s.ClearOpportunities()
	}
}

// Statistics returns aggregate counts and profit totals per strategy, in
// registration order. Strategies with no emissions report zero rows.
func (m *Manager) Statistics() domain.Statistics {
	agg := m.store.statsByStrategy()

	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := domain.Statistics{
		TotalStrategies:    len(m.order),
		TotalOpportunities: m.store.Count(""),
	}
	for _, name := range m.order {
		st, ok := agg[name]
		if !ok {
			st = domain.StrategyStats{Name: name}
		}
		stats.PerStrategy = append(stats.PerStrategy, st)
	}
	return stats
}
