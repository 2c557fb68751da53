// Package dedupe tracks which submissions have already been accepted so a
// pool sheet enters an engine exactly once, whichever path approved it.
package dedupe

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records seen IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a submission whose processing failed after it
	// was recorded can be retried.
	Unrecord(ctx context.Context, id string)

	// Seen reports whether id is recorded without recording it.
	Seen(ctx context.Context, id string) bool

	// Reset replaces the recorded set with ids.
	Reset(ctx context.Context, ids ...string)

	Size() int64
}

// inMemoryDeduper keeps IDs in a map plus an insertion-ordered list. When
// maxSize > 0 the oldest ID is evicted once the limit is reached; otherwise
// the set is unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper. It is unbounded unless
// WithMaxSize is given.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:  make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func normalize(id string) string {
	return strings.TrimSpace(id)
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	id = normalize(id)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.record(id)
	return false
}

// record must be called with mu held.
func (d *inMemoryDeduper) record(id string) {
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.seen, oldest.Value.(string))
			d.order.Remove(oldest)
			d.size.Add(-1)
		}
	}
	d.seen[id] = d.order.PushBack(id)
	d.size.Add(1)
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	id = normalize(id)
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Seen(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[normalize(id)]
	return ok
}

func (d *inMemoryDeduper) Reset(_ context.Context, ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = make(map[string]*list.Element, len(ids))
	d.order.Init()
	d.size.Store(0)
	for _, id := range ids {
		id = normalize(id)
		if _, ok := d.seen[id]; !ok {
			d.record(id)
		}
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
