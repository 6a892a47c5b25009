package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const (
	defaultDedupTTL      = 10 * time.Minute
	defaultDedupCapacity = 10000
)

// Deduper remembers payload hashes for a TTL so QoS 1 redeliveries of
// the same message are stored once.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	now  func() time.Time
}

// NewDeduper creates a Deduper. Non-positive arguments take defaults
// (10m, 10000 entries).
func NewDeduper(ttl time.Duration, capacity int) *Deduper {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &Deduper{
		ttl:  ttl,
		max:  capacity,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// ShouldProcess reports whether payload is new within the TTL and
// remembers it.
func (d *Deduper) ShouldProcess(payload []byte) bool {
	key := dedupKey(payload)

	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)

	if len(d.seen) > d.max {
		for k, exp := range d.seen {
			if now.After(exp) {
				delete(d.seen, k)
			}
		}
		// Still full of live entries: evict arbitrarily. A missed
		// duplicate only costs an extra row.
		for k := range d.seen {
			if len(d.seen) <= d.max {
				break
			}
			delete(d.seen, k)
		}
	}
	return true
}

// Forget drops payload so a redelivery is processed again. Call it when
// the payload could not be stored.
func (d *Deduper) Forget(payload []byte) {
	key := dedupKey(payload)
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
}

func dedupKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Len returns the number of remembered payloads.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
