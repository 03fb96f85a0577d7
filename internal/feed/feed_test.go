package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonmev/tonmev/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParsePacket(t *testing.T) {
	t.Run("envelope with id and timestamp", func(t *testing.T) {
		pkt, ok := ParsePacket([]byte(`{"id":"abc","timestamp":1700000000000,"data":{"transactions":[]}}`))
		require.True(t, ok)
		assert.Equal(t, "abc", pkt.ID)
		assert.Equal(t, int64(1_700_000_000_000), pkt.Timestamp)
		assert.NotNil(t, pkt.Data)
	})

	t.Run("id aliases", func(t *testing.T) {
		pkt, ok := ParsePacket([]byte(`{"packet_id":"p1"}`))
		require.True(t, ok)
		assert.Equal(t, "p1", pkt.ID)

		pkt, ok = ParsePacket([]byte(`{"hash":"h1"}`))
		require.True(t, ok)
		assert.Equal(t, "h1", pkt.ID)
	})

	t.Run("timestamp aliases", func(t *testing.T) {
		pkt, ok := ParsePacket([]byte(`{"id":"a","ts":1700000000001}`))
		require.True(t, ok)
		assert.Equal(t, int64(1_700_000_000_001), pkt.Timestamp)
	})

	t.Run("missing id generated", func(t *testing.T) {
		pkt, ok := ParsePacket([]byte(`{"data":{}}`))
		require.True(t, ok)
		assert.NotEmpty(t, pkt.ID)
	})

	t.Run("no data field keeps whole envelope", func(t *testing.T) {
		pkt, ok := ParsePacket([]byte(`{"id":"a","transactions":[{"hash":"h"}]}`))
		require.True(t, ok)
		m, isMap := pkt.Data.(map[string]any)
		require.True(t, isMap)
		assert.Contains(t, m, "transactions")
	})

	t.Run("bare transaction list", func(t *testing.T) {
		pkt, ok := ParsePacket([]byte(`[{"hash":"h1"},{"hash":"h2"}]`))
		require.True(t, ok)
		assert.NotEmpty(t, pkt.ID)
		list, isList := pkt.Data.([]any)
		require.True(t, isList)
		assert.Len(t, list, 2)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, ok := ParsePacket([]byte(`{not json`))
		assert.False(t, ok)
	})
}

func TestDedup(t *testing.T) {
	d := NewDedup(time.Minute)

	assert.False(t, d.IsDuplicate("p1"))
	assert.True(t, d.IsDuplicate("p1"))
	assert.False(t, d.IsDuplicate("p2"))
}

func TestDedupExpiry(t *testing.T) {
	d := NewDedup(20 * time.Millisecond)

	assert.False(t, d.IsDuplicate("p1"))
	time.Sleep(30 * time.Millisecond)
	assert.False(t, d.IsDuplicate("p1"), "expired entries are fresh again")
}

func TestDedupCleanup(t *testing.T) {
	d := NewDedup(20 * time.Millisecond)
	d.IsDuplicate("p1")
	d.IsDuplicate("p2")

	time.Sleep(30 * time.Millisecond)
	d.Cleanup()
	assert.Empty(t, d.seen)
}

func TestDeliver(t *testing.T) {
	var got []*domain.MempoolPacket
	handler := func(ctx context.Context, pkt *domain.MempoolPacket) {
		got = append(got, pkt)
	}
	f := NewMempoolFeed("wss://example.invalid/stream", handler, testLogger())
	ctx := context.Background()

	f.Deliver(ctx, []byte(`{"id":"p1","data":{}}`))
	f.Deliver(ctx, []byte(`{"id":"p1","data":{}}`)) // duplicate dropped
	f.Deliver(ctx, []byte(`not json`))              // malformed dropped
	f.Deliver(ctx, []byte(`{"id":"p2","data":{}}`))

	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID)
}
