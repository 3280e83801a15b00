// Package dedup drops QoS1 redeliveries: an id seen within the TTL is
// reported as a duplicate.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	now  func() time.Time
	seen map[string]time.Time // id -> expiry
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, now: time.Now, seen: make(map[string]time.Time)}
}

// WithClock replaces the time source, for tests.
func (d *Deduper) WithClock(now func() time.Time) *Deduper {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
	return d
}

// ShouldProcess reports whether id has not been seen within the TTL and
// marks it as seen. An empty id is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	if len(d.seen) >= d.max {
		d.evict(now)
	}
	d.seen[id] = now.Add(d.ttl)
	return true
}

// ShouldProcessPayload keys on the sha256 of the raw payload.
func (d *Deduper) ShouldProcessPayload(payload []byte) bool {
	h := sha256.Sum256(payload)
	return d.ShouldProcess(hex.EncodeToString(h[:]))
}

// Forget unmarks id so its next delivery is processed again.
func (d *Deduper) Forget(id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

// ForgetPayload is Forget for a payload hash.
func (d *Deduper) ForgetPayload(payload []byte) {
	h := sha256.Sum256(payload)
	d.Forget(hex.EncodeToString(h[:]))
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// evict drops expired ids; if none expired it drops the one closest to expiry.
func (d *Deduper) evict(now time.Time) {
	var (
		oldestID  string
		oldestExp time.Time
	)
	for id, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, id)
			continue
		}
		if oldestID == "" || exp.Before(oldestExp) {
			oldestID, oldestExp = id, exp
		}
	}
	if len(d.seen) >= d.max && oldestID != "" {
		delete(d.seen, oldestID)
	}
}
