package strategy

import (
	"sort"
	"sync"

	"github.com/tonmev/tonmev/internal/domain"
)

// OpportunityStore is the manager's in-memory ledger of every opportunity
// emitted. It is an append-only log with a single logical writer (the packet
// pipeline); queries copy out so the API layer can read concurrently.
type OpportunityStore struct {
	mu  sync.RWMutex
	all []domain.Opportunity
}

// NewOpportunityStore returns an empty store.
func NewOpportunityStore() *OpportunityStore {
	return &OpportunityStore{}
}

// Append adds opportunities to the ledger in arrival order.
func (s *OpportunityStore) Append(opps ...domain.Opportunity) {
	if len(opps) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, opps...)
}

// List returns opportunities sorted by profit estimate descending, ties
// broken by ID so one call is deterministic. strategyFilter narrows to a
// single strategy when non-empty; limit <= 0 means no limit.
func (s *OpportunityStore) List(limit int, strategyFilter string) []domain.Opportunity {
	s.mu.RLock()
	out := make([]domain.Opportunity, 0, len(s.all))
	for _, o := range s.all {
		if strategyFilter != "" && o.Strategy != strategyFilter {
			continue
		}
		out = append(out, o)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ProfitEstimate != out[j].ProfitEstimate {
			return out[i].ProfitEstimate > out[j].ProfitEstimate
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count returns the number of stored opportunities, optionally filtered by
// strategy.
func (s *OpportunityStore) Count(strategyFilter string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strategyFilter == "" {
		return len(s.all)
	}
	n := 0
	for _, o := range s.all {
		if o.Strategy == strategyFilter {
			n++
		}
	}
	return n
}

// Clear removes opportunities. An empty filter clears everything; otherwise
// only the named strategy's entries are dropped.
func (s *OpportunityStore) Clear(strategyFilter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strategyFilter == "" {
		s.all = nil
		return
	}
	kept := s.all[:0]
	for _, o := range s.all {
		if o.Strategy != strategyFilter {
			kept = append(kept, o)
		}
	}
	s.all = kept
}

// statsByStrategy aggregates count and profit totals per strategy.
func (s *OpportunityStore) statsByStrategy() map[string]domain.StrategyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[string]domain.StrategyStats)
	for _, o := range s.all {
		st := agg[o.Strategy]
		st.Name = o.Strategy
		st.Count++
		st.TotalProfit += o.ProfitEstimate
		agg[o.Strategy] = st
	}
	for name, st := range agg {
		if st.Count > 0 {
			st.AverageProfit = st.TotalProfit / float64(st.Count)
		}
		agg[name] = st
	}
	return agg
}
