package feed

import (
	"sync"
	"time"
)

// Dedup drops packets whose ID has already been seen within a time-to-live
// window. Reconnects can replay recent mempool events, so ingestion runs
// every packet through this filter before fan-out. Safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time // packet ID -> last seen
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup that treats a packet ID as duplicate when it was
// seen within ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// IsDuplicate reports whether the packet ID was seen within the TTL window.
// Unseen (or expired) IDs are recorded and reported fresh.
func (d *Dedup) IsDuplicate(packetID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if last, ok := d.seen[packetID]; ok && now.Sub(last) < d.ttl {
		return true
	}
	d.seen[packetID] = now
	return false
}

// Cleanup removes expired entries. Call periodically to bound memory.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}
