// Package dedupe tracks journey record submissions so a resubmitted record
// is applied at most once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50000

// Deduper records seen submission keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets a key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key builds the submission key for a record within one journey session.
func Key(customerID, sessionID, recordID string) string {
	return customerID + "/" + sessionID + "/" + recordID
}

// inMemoryDeduper keeps keys in an LRU cache when bounded, or in a plain map
// when maxSize <= 0.
type inMemoryDeduper struct {
	maxSize int
	cache   *lru.Cache[string, struct{}]

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize > 0 {
		// lru.New only fails for a non-positive size.
		d.cache, _ = lru.New[string, struct{}](d.maxSize)
	} else {
		d.seen = make(map[string]struct{})
	}

	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	if d.cache != nil {
		seen, _ := d.cache.ContainsOrAdd(key, struct{}{})
		return seen
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// Unrecord removes key from the seen set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	if d.cache != nil {
		d.cache.Remove(key)
		return
	}

	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	if d.cache != nil {
		return int64(d.cache.Len())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
