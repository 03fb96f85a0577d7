package domain

import "context"

// StrategyConfigStore persists runtime strategy configuration so that
// dashboard edits survive restarts. Opportunity and price state are
// deliberately ephemeral and never go through this interface.
type StrategyConfigStore interface {
	Get(ctx context.Context, name string) (StrategyConfigRecord, error)
	Upsert(ctx context.Context, rec StrategyConfigRecord) error
	List(ctx context.Context) ([]StrategyConfigRecord, error)
}

// SignalBus provides pub/sub fan-out to external consumers (dashboards,
// sibling processes). The core pipeline never depends on it.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// SnapshotWriter uploads an opportunity-history snapshot to cold storage.
type SnapshotWriter interface {
	Write(ctx context.Context, key string, data []byte) error
}
