package feed

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Replay reads newline-delimited JSON packets from a capture file and runs
// them through the same parse/dedup/handler path as the live feed. It is the
// offline twin of MempoolFeed, used for deterministic analysis of recorded
// mempool traffic.
type Replay struct {
	path    string
	handler PacketHandler
	dedup   *Dedup
	logger  *slog.Logger
}

// NewReplay creates a replay source for the given NDJSON file.
func NewReplay(path string, handler PacketHandler, logger *slog.Logger) *Replay {
	return &Replay{
		path:    path,
		handler: handler,
		dedup:   NewDedup(dedupTTL),
		logger:  logger.With(slog.String("component", "replay_feed")),
	}
}

// Run streams the file through the pipeline. It returns once the file is
// exhausted or ctx is cancelled.
func (r *Replay) Run(ctx context.Context) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("replay: open %s: %w", r.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), readLimit)

	lines := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lines++
		r.deliver(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("replay: scan %s: %w", r.path, err)
	}

	r.logger.Info("replay complete",
		slog.String("path", r.path),
		slog.Int("packets", lines),
	)
	return nil
}

func (r *Replay) deliver(ctx context.Context, data []byte) {
	pkt, ok := ParsePacket(data)
	if !ok {
		r.logger.Debug("unparseable replay line")
		return
	}
	if r.dedup.IsDuplicate(pkt.ID) {
		return
	}
	r.handler(ctx, pkt)
}
