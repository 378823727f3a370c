package loader

import (
	"sync"
	"sync/atomic"

	"github.com/conneroisu/docview/internal/types"
)

// EntryState is the lifecycle position of one cache key.
type EntryState int

const (
	EntryAbsent EntryState = iota
	EntryInProgress
	EntryLoaded
	EntryFailed
)

// String returns the string representation of the state
func (s EntryState) String() string {
	switch s {
	case EntryAbsent:
		return "absent"
	case EntryInProgress:
		return "in-progress"
	case EntryLoaded:
		return "loaded"
	case EntryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is a snapshot of one cache slot.
type Entry struct {
	State    EntryState
	Document *types.ClassDocument
	Err      error
}

type slot struct {
	state  EntryState
	future *Future
}

// Cache stores fetched class documents keyed by canonical name. Entries are
// never evicted: the class set is finite and documents are small.
type Cache struct {
	slots map[string]*slot
	mutex sync.Mutex

	hits    int64
	misses  int64
	fetches int64
}

// Stats summarizes cache activity.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{slots: make(map[string]*slot)}
}

// Get returns the current entry for name without blocking.
func (c *Cache) Get(name string) Entry {
	c.mutex.Lock()
	s, ok := c.slots[name]
	var (
		state  EntryState
		future *Future
	)
	if ok {
		state, future = s.state, s.future
	}
	c.mutex.Unlock()

	if !ok {
		return Entry{State: EntryAbsent}
	}

	entry := Entry{State: state}
	if state == EntryLoaded || state == EntryFailed {
		entry.Document, entry.Err = future.Result()
	}
	return entry
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	c.mutex.Lock()
	entries := len(c.slots)
	c.mutex.Unlock()

	return Stats{
		Entries: entries,
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Fetches: atomic.LoadInt64(&c.fetches),
	}
}

// acquire returns the future for name and whether the caller must start a
// fetch for it. The check and the in-progress mark happen under one lock,
// so overlapping callers always share a single fetch.
func (c *Cache) acquire(name string, retryFailed bool) (*Future, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if s, ok := c.slots[name]; ok {
		switch s.state {
		case EntryLoaded, EntryInProgress:
			atomic.AddInt64(&c.hits, 1)
			return s.future, false
		case EntryFailed:
			if !retryFailed {
				atomic.AddInt64(&c.hits, 1)
				return s.future, false
			}
		}
	}

	atomic.AddInt64(&c.misses, 1)
	atomic.AddInt64(&c.fetches, 1)
	f := newFuture(name)
	c.slots[name] = &slot{state: EntryInProgress, future: f}
	return f, true
}

// complete records the outcome of the fetch that owns f. The document is
// visible through Get before any continuation runs.
func (c *Cache) complete(f *Future, doc *types.ClassDocument, err error) {
	c.mutex.Lock()
	callbacks := f.settle(doc, err)
	if s, ok := c.slots[f.class]; ok && s.future == f {
		if err != nil {
			s.state = EntryFailed
		} else {
			s.state = EntryLoaded
		}
	}
	c.mutex.Unlock()

	for _, fn := range callbacks {
		fn(doc, err)
	}
}
