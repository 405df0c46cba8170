// Package dedupe tracks ingested batch ids so a retried upload is not
// summarized twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxSize = 50000

// Deduper records seen batch ids.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. It returns true for a duplicate.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the batch can be retried, e.g. after the queue
	// rejected it.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id string
	at time.Time
}

// inMemoryDeduper keeps ids in a map with insertion-ordered eviction once
// maxSize is reached. Entries older than ttl count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []entry // insertion order, oldest first; may hold stale entries
	maxSize int      // <= 0 means unbounded
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a process-local deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]time.Time)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[id]; ok {
		if d.ttl <= 0 || now.Sub(at) < d.ttl {
			return true
		}
		delete(d.seen, id)
		d.size.Add(-1)
	}

	d.seen[id] = now
	if d.maxSize > 0 {
		for len(d.seen) > d.maxSize && len(d.order) > 0 {
			d.evictOldest()
		}
		d.order = append(d.order, entry{id: id, at: now})
	}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		delete(d.seen, id)
		d.size.Add(-1)
	}
	// order keeps the stale id; evictOldest skips it
}

// evictOldest drops the oldest live id. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for len(d.order) > 0 {
		e := d.order[0]
		d.order[0] = entry{}
		d.order = d.order[1:]
		if at, ok := d.seen[e.id]; ok && at.Equal(e.at) {
			delete(d.seen, e.id)
			d.size.Add(-1)
			return
		}
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
