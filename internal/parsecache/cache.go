// Package parsecache keeps parsed files keyed by path and validated by content.
// The cache owns the values it holds: whatever leaves the cache is disposed
// exactly once, outside the cache lock, and not while a lease on it is held.
package parsecache

import (
	"bytes"
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"

	lerrors "lair/internal/errors"
	"lair/internal/slogutil"
)

// DefaultCapacity is the entry limit used when none is configured.
const DefaultCapacity = 50

// Disposable is a value holding a native resource.
type Disposable interface {
	Dispose() error
}

type entry[V Disposable] struct {
	path    string
	digest  [blake2b.Size256]byte
	content []byte
	value   V

	// pins counts outstanding Acquire/Store leases. A retired entry with
	// pins is disposed by its last release instead of on removal.
	pins    int
	retired bool
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Entries       int   `json:"entries"`
	Capacity      int   `json:"capacity"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`
}

// Cache is a bounded LRU of parsed values. Safe for concurrent use.
type Cache[V Disposable] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recent

	logger *slog.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
}

// New creates a cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func New[V Disposable](capacity int, logger *slog.Logger) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		logger:   slogutil.Component(logger, "parsecache"),
	}
}

// Get returns the value stored for path if it was built from content.
// A stale entry is removed and disposed, and the call reports a miss.
func (c *Cache[V]) Get(path string, content []byte) (V, bool) {
	v, _, ok := c.get(path, content, false)
	return v, ok
}

// Acquire is Get that also leases the value: it stays alive until release
// is called, even if the entry is replaced, invalidated or evicted in the
// meantime. release is nil on a miss and safe to call more than once.
func (c *Cache[V]) Acquire(path string, content []byte) (v V, release func(), ok bool) {
	v, e, ok := c.get(path, content, true)
	if !ok {
		return v, nil, false
	}
	return v, c.releaseFunc(e), true
}

func (c *Cache[V]) get(path string, content []byte, pin bool) (V, *entry[V], bool) {
	var zero V
	digest := blake2b.Sum256(content)

	c.mu.Lock()
	elem, ok := c.items[path]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return zero, nil, false
	}
	e := elem.Value.(*entry[V])
	if e.digest == digest && bytes.Equal(e.content, content) {
		c.order.MoveToFront(elem)
		if pin {
			e.pins++
		}
		c.mu.Unlock()
		c.hits.Add(1)
		return e.value, e, true
	}
	c.removeLocked(elem)
	disposeNow := c.retireLocked(e)
	c.mu.Unlock()

	c.misses.Add(1)
	c.invalidations.Add(1)
	c.logger.Debug("Content changed, dropping cached tree", "path", path)
	if disposeNow {
		c.dispose(path, e.value)
	}
	return zero, nil, false
}

// Set stores value for path, built from content. A value already stored for
// path is replaced and disposed; overflow evicts the least recently used entry.
func (c *Cache[V]) Set(path string, content []byte, value V) {
	c.set(path, content, value, false)
}

// Store is Set that returns the stored value leased, as Acquire does.
func (c *Cache[V]) Store(path string, content []byte, value V) (release func()) {
	return c.releaseFunc(c.set(path, content, value, true))
}

func (c *Cache[V]) set(path string, content []byte, value V, pin bool) *entry[V] {
	digest := blake2b.Sum256(content)
	stored := append([]byte(nil), content...)

	var released []*entry[V]

	c.mu.Lock()
	if elem, ok := c.items[path]; ok {
		old := elem.Value.(*entry[V])
		c.order.MoveToFront(elem)
		if sameValue(old.value, value) {
			// Same value: keep the entry so its leases stay counted once.
			old.digest, old.content = digest, stored
			if pin {
				old.pins++
			}
			c.mu.Unlock()
			return old
		}
		e := &entry[V]{path: path, digest: digest, content: stored, value: value}
		if pin {
			e.pins++
		}
		elem.Value = e
		disposeNow := c.retireLocked(old)
		c.mu.Unlock()
		if disposeNow {
			c.dispose(path, old.value)
		}
		return e
	}

	e := &entry[V]{path: path, digest: digest, content: stored, value: value}
	if pin {
		e.pins++
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		r := c.removeLocked(oldest)
		c.evictions.Add(1)
		if c.retireLocked(r) {
			released = append(released, r)
		}
	}
	c.items[path] = c.order.PushFront(e)
	c.mu.Unlock()

	for _, r := range released {
		c.logger.Debug("Evicting cached tree", "path", r.path)
		c.dispose(r.path, r.value)
	}
	return e
}

// Invalidate removes and disposes the entry for path. It reports whether one existed.
func (c *Cache[V]) Invalidate(path string) bool {
	c.mu.Lock()
	elem, ok := c.items[path]
	if !ok {
		c.mu.Unlock()
		return false
	}
	e := c.removeLocked(elem)
	disposeNow := c.retireLocked(e)
	c.mu.Unlock()

	c.invalidations.Add(1)
	if disposeNow {
		c.dispose(path, e.value)
	}
	return true
}

// Clear disposes every entry and empties the cache. Leased values are
// disposed when released. Counters are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	released := make([]*entry[V], 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if e := elem.Value.(*entry[V]); c.retireLocked(e) {
			released = append(released, e)
		}
	}
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	c.mu.Unlock()

	for _, e := range released {
		c.dispose(e.path, e.value)
	}
}

// retireLocked marks e as no longer cached and reports whether it can be
// disposed now. Caller holds c.mu.
func (c *Cache[V]) retireLocked(e *entry[V]) bool {
	e.retired = true
	return e.pins == 0
}

// releaseFunc returns a once-only release of one lease on e.
func (c *Cache[V]) releaseFunc(e *entry[V]) func() {
	return sync.OnceFunc(func() {
		c.mu.Lock()
		e.pins--
		disposeNow := e.retired && e.pins == 0
		c.mu.Unlock()
		if disposeNow {
			c.dispose(e.path, e.value)
		}
	})
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the entry limit.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Entries:       c.Len(),
		Capacity:      c.capacity,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// removeLocked unlinks elem. Caller holds c.mu.
func (c *Cache[V]) removeLocked(elem *list.Element) *entry[V] {
	e := c.order.Remove(elem).(*entry[V])
	delete(c.items, e.path)
	return e
}

// dispose releases v, logging errors and panics instead of propagating them.
func (c *Cache[V]) dispose(path string, v V) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Dispose panicked",
				"path", path,
				"code", string(lerrors.DisposeFailed),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	if err := v.Dispose(); err != nil {
		c.logger.Warn("Dispose failed",
			"path", path,
			"code", string(lerrors.DisposeFailed),
			"error", err.Error(),
		)
	}
}

// sameValue reports whether a and b are the same comparable value. Storing
// the value already cached must not dispose it.
func sameValue[V Disposable](a, b V) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return any(a) == any(b)
}
