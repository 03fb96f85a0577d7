// Package pipeline contains background jobs that run alongside the scanner.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonmev/tonmev/internal/domain"
)

// OpportunitySource supplies the opportunities to snapshot. The strategy
// manager satisfies it.
type OpportunitySource interface {
	Opportunities(limit int, strategyFilter string) []domain.Opportunity
	Statistics() domain.Statistics
}

// Archiver periodically uploads a JSON snapshot of the in-memory opportunity
// history to cold storage. Opportunity state stays ephemeral in process;
// snapshots exist for offline analysis, not recovery.
type Archiver struct {
	source   OpportunitySource
	writer   domain.SnapshotWriter
	interval time.Duration
	prefix   string
	logger   *slog.Logger
}

// snapshot is the uploaded document layout.
type snapshot struct {
	TakenAt       time.Time            `json:"taken_at"`
	Statistics    domain.Statistics    `json:"statistics"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// NewArchiver creates an Archiver uploading every interval under the given
// key prefix.
func NewArchiver(source OpportunitySource, writer domain.SnapshotWriter, interval time.Duration, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{
		source:   source,
		writer:   writer,
		interval: interval,
		prefix:   prefix,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run snapshots on a ticker until ctx is cancelled. Failed uploads are
// logged and retried at the next tick.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started",
		slog.Duration("interval", a.interval),
		slog.String("prefix", a.prefix),
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Snapshot(ctx); err != nil {
				a.logger.Error("snapshot failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Snapshot uploads one snapshot of the current opportunity history. Empty
// histories are skipped to avoid a stream of empty objects.
func (a *Archiver) Snapshot(ctx context.Context) error {
	opps := a.source.Opportunities(0, "")
	if len(opps) == 0 {
		a.logger.Debug("no opportunities to snapshot")
		return nil
	}

	now := time.Now().UTC()
	doc := snapshot{
		TakenAt:       now,
		Statistics:    a.source.Statistics(),
		Opportunities: opps,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("pipeline: marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/%s/opportunities-%s.json",
		a.prefix,
		now.Format("2006/01/02"),
		now.Format("20060102T150405Z"),
	)
	if err := a.writer.Write(ctx, key, data); err != nil {
		return fmt.Errorf("pipeline: upload snapshot: %w", err)
	}

	a.logger.Info("snapshot uploaded",
		slog.String("key", key),
		slog.Int("opportunities", len(opps)),
	)
	return nil
}
