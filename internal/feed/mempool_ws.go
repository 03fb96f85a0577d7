// Package feed ingests mempool packets from the gateway WebSocket and pushes
// them into the detection pipeline. The feed owns reconnect/backoff and
// packet deduplication; everything downstream sees an ordered stream of
// unique packets.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tonmev/tonmev/internal/domain"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second

	// retryBudget bounds consecutive failed connection attempts before the
	// feed goes idle for idlePeriod and starts a fresh budget.
	retryBudget = 5
	idlePeriod  = 2 * time.Minute

	readLimit       = 1 << 20
	dedupTTL        = 5 * time.Minute
	cleanupInterval = time.Minute
)

// PacketHandler consumes one deduplicated packet. Handlers run on the feed's
// read loop, so one packet is fully processed before the next begins.
type PacketHandler func(ctx context.Context, pkt *domain.MempoolPacket)

// MempoolFeed subscribes to the mempool gateway over WebSocket and delivers
// each unique packet to the handler. Disconnects are retried with exponential
// backoff; after the retry budget is exhausted the feed sleeps and tries
// again periodically.
type MempoolFeed struct {
	url       string
	handler   PacketHandler
	dedup     *Dedup
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewMempoolFeed creates a feed for the given gateway URL.
func NewMempoolFeed(url string, handler PacketHandler, logger *slog.Logger) *MempoolFeed {
	return &MempoolFeed{
		url:     url,
		handler: handler,
		dedup:   NewDedup(dedupTTL),
		logger:  logger.With(slog.String("component", "mempool_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects and consumes packets until ctx is cancelled or Close is
// called.
func (f *MempoolFeed) Run(ctx context.Context) error {
	backoff := initialBackoff
	failures := 0

	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-cleanup.C:
				f.dedup.Cleanup()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		if failures >= retryBudget {
			f.logger.Warn("retry budget exhausted, feed idling",
				slog.Int("failures", failures),
				slog.Duration("idle", idlePeriod),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.done:
				return nil
			case <-time.After(idlePeriod):
			}
			failures = 0
			backoff = initialBackoff
			continue
		}

		f.logger.Warn("mempool feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (f *MempoolFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.url, err)
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit)

	sub := map[string]any{"op": "subscribe", "channel": "mempool"}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("mempool feed subscribed", slog.String("url", f.url))

	// Close the connection when the context ends so ReadMessage unblocks.
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", domain.ErrWSDisconnect)
		}
		f.Deliver(ctx, data)
	}
}

// Deliver parses a raw gateway frame into a packet and hands it to the
// handler unless it is a duplicate. Malformed frames are dropped with a
// debug log; ingestion never stalls on bad input.
func (f *MempoolFeed) Deliver(ctx context.Context, data []byte) {
	pkt, ok := ParsePacket(data)
	if !ok {
		f.logger.DebugContext(ctx, "unparseable mempool frame",
			slog.Int("bytes", len(data)),
		)
		return
	}
	if f.dedup.IsDuplicate(pkt.ID) {
		f.logger.DebugContext(ctx, "duplicate packet dropped",
			slog.String("packet_id", pkt.ID),
		)
		return
	}
	f.handler(ctx, pkt)
}

// Close stops the feed.
func (f *MempoolFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// ParsePacket builds a MempoolPacket from a raw gateway frame. The gateway
// wire format is loosely versioned: the frame may carry an id under several
// names and may or may not nest the payload under "data". A frame with no
// usable id gets a generated one.
func ParsePacket(data []byte) (*domain.MempoolPacket, bool) {
	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		// Some gateways push bare transaction lists.
		var list []any
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, false
		}
		return &domain.MempoolPacket{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UnixMilli(),
			Data:      list,
		}, true
	}

	id := firstString(envelope, "id", "packet_id", "hash")
	if id == "" {
		id = uuid.NewString()
	}

	ts := time.Now().UnixMilli()
	for _, key := range []string{"timestamp", "ts", "time"} {
		if v, ok := envelope[key].(float64); ok && v > 0 {
			ts = int64(v)
			break
		}
	}

	payload := envelope["data"]
	if payload == nil {
		payload = envelope
	}

	return &domain.MempoolPacket{
		ID:        id,
		Timestamp: ts,
		Data:      payload,
	}, true
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
