package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonmev/tonmev/internal/domain"
)

// StrategyConfigStore implements domain.StrategyConfigStore. Each strategy's
// full config is stored as a single JSONB document keyed by strategy name.
type StrategyConfigStore struct {
	pool *pgxpool.Pool
}

// NewStrategyConfigStore creates a StrategyConfigStore backed by the pool.
func NewStrategyConfigStore(pool *pgxpool.Pool) *StrategyConfigStore {
	return &StrategyConfigStore{pool: pool}
}

// Get retrieves a single strategy configuration by name.
func (s *StrategyConfigStore) Get(ctx context.Context, name string) (domain.StrategyConfigRecord, error) {
	const query = `SELECT name, config_json, updated_at FROM strategy_configs WHERE name = $1`

	var rec domain.StrategyConfigRecord
	var configJSON []byte

	err := s.pool.QueryRow(ctx, query, name).Scan(&rec.Name, &configJSON, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StrategyConfigRecord{}, domain.ErrNotFound
		}
		return domain.StrategyConfigRecord{}, fmt.Errorf("postgres: get strategy config %s: %w", name, err)
	}

	if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
		return domain.StrategyConfigRecord{}, fmt.Errorf("postgres: unmarshal strategy config %s: %w", name, err)
	}
	return rec, nil
}

// Upsert inserts or replaces a strategy configuration.
func (s *StrategyConfigStore) Upsert(ctx context.Context, rec domain.StrategyConfigRecord) error {
	configJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy config %s: %w", rec.Name, err)
	}

	const query = `
		INSERT INTO strategy_configs (name, config_json, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			config_json = EXCLUDED.config_json,
			updated_at  = NOW()`

	if _, err := s.pool.Exec(ctx, query, rec.Name, configJSON); err != nil {
		return fmt.Errorf("postgres: upsert strategy config %s: %w", rec.Name, err)
	}
	return nil
}

// List returns all persisted strategy configurations ordered by name.
func (s *StrategyConfigStore) List(ctx context.Context) ([]domain.StrategyConfigRecord, error) {
	const query = `SELECT name, config_json, updated_at FROM strategy_configs ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategy configs: %w", err)
	}
	defer rows.Close()

	var recs []domain.StrategyConfigRecord
	for rows.Next() {
		var rec domain.StrategyConfigRecord
		var configJSON []byte
		if err := rows.Scan(&rec.Name, &configJSON, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy config: %w", err)
		}
		if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal strategy config %s: %w", rec.Name, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list strategy configs rows: %w", err)
	}
	return recs, nil
}

var _ domain.StrategyConfigStore = (*StrategyConfigStore)(nil)
