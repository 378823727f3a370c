// Package analytics tallies navigation events. A Tracker consumes the event
// channels of any number of sessions and keeps per-class counters that the
// server exposes and the logger reports.
package analytics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/navigation"
)

// ClassCount is the tally for one class.
type ClassCount struct {
	Class string `json:"class"`
	// Views counts showClass events that rendered the class body
	Views int64 `json:"views"`
	// Anchors counts showClass events that only re-anchored
	Anchors  int64 `json:"anchors"`
	Members  int64 `json:"members"`
	Failures int64 `json:"failures"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Indexes  int64        `json:"indexes"`
	Events   int64        `json:"events"`
	Classes  []ClassCount `json:"classes"`
	Since    time.Time    `json:"since"`
	LastSeen time.Time    `json:"lastSeen,omitempty"`
}

// Tracker counts navigation events.
type Tracker struct {
	classes  map[string]*ClassCount
	indexes  int64
	events   int64
	since    time.Time
	lastSeen time.Time
	mutex    sync.RWMutex
	logger   logging.Logger
	wg       sync.WaitGroup
}

// NewTracker creates an empty tracker
func NewTracker(logger logging.Logger) *Tracker {
	return &Tracker{
		classes: make(map[string]*ClassCount),
		since:   time.Now(),
		logger:  logger,
	}
}

// Record counts a single event.
func (t *Tracker) Record(event navigation.Event) {
	atomic.AddInt64(&t.events, 1)

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if event.Timestamp.After(t.lastSeen) {
		t.lastSeen = event.Timestamp
	}

	if event.Type == navigation.EventShowIndex {
		t.indexes++
		return
	}
	if event.Class == "" {
		return
	}

	count, ok := t.classes[event.Class]
	if !ok {
		count = &ClassCount{Class: event.Class}
		t.classes[event.Class] = count
	}

	switch event.Type {
	case navigation.EventShowClass:
		if event.ReRendered {
			count.Views++
		} else {
			count.Anchors++
		}
	case navigation.EventShowMember:
		count.Members++
	case navigation.EventLoadFailed:
		count.Failures++
	}
}

// Consume records events from ch until it is closed or ctx is done. It
// returns immediately; Wait blocks until every consumer has stopped.
func (t *Tracker) Consume(ctx context.Context, ch <-chan navigation.Event) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				t.Record(event)
				if t.logger != nil {
					t.logger.Debug(ctx, "navigation event",
						"type", string(event.Type),
						"class", event.Class,
						"member", event.Member,
						"session", event.Session)
				}
			}
		}
	}()
}

// Wait blocks until all consumers have returned
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Snapshot returns the counters sorted by views, then name.
func (t *Tracker) Snapshot() Snapshot {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	classes := make([]ClassCount, 0, len(t.classes))
	for _, c := range t.classes {
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Views != classes[j].Views {
			return classes[i].Views > classes[j].Views
		}
		return classes[i].Class < classes[j].Class
	})

	return Snapshot{
		Indexes:  t.indexes,
		Events:   atomic.LoadInt64(&t.events),
		Classes:  classes,
		Since:    t.since,
		LastSeen: t.lastSeen,
	}
}

// Top returns the n most viewed classes
func (t *Tracker) Top(n int) []ClassCount {
	classes := t.Snapshot().Classes
	if n >= 0 && len(classes) > n {
		classes = classes[:n]
	}
	return classes
}

// Report logs a summary of the counters.
func (t *Tracker) Report(ctx context.Context) {
	if t.logger == nil {
		return
	}
	snap := t.Snapshot()
	fields := []interface{}{
		"events", snap.Events,
		"indexes", snap.Indexes,
		"classes", len(snap.Classes),
	}
	if len(snap.Classes) > 0 {
		fields = append(fields, "top", snap.Classes[0].Class, "top_views", snap.Classes[0].Views)
	}
	t.logger.Info(ctx, "navigation summary", fields...)
}
