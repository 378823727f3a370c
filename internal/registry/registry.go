// Package registry holds the class index and resolves user-supplied class
// names to their canonical form.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/docview/internal/types"
)

// ClassRegistry manages the list of documented classes
type ClassRegistry struct {
	classes     map[string]types.ClassSummary
	order       []string
	memberTypes []types.MemberType
	message     string
	lower       map[string]string
	aliases     map[string]string
	mutex       sync.RWMutex
	watchers    []chan Event
}

// Event is emitted after the class index changes.
type Event struct {
	Type      EventType
	Count     int
	Timestamp time.Time
}

// EventType represents the type of registry event
type EventType int

const (
	EventTypeLoaded EventType = iota
	EventTypeReloaded
)

// NewClassRegistry creates an empty registry
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes:  make(map[string]types.ClassSummary),
		lower:    make(map[string]string),
		aliases:  make(map[string]string),
		watchers: make([]chan Event, 0),
	}
}

// NewFromIndex creates a registry populated from a decoded index
func NewFromIndex(index *types.ClassIndex) *ClassRegistry {
	r := NewClassRegistry()
	r.Load(index)
	return r
}

// Load replaces the registry contents with the given index and notifies
// watchers.
func (r *ClassRegistry) Load(index *types.ClassIndex) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeLoaded
	if len(r.classes) > 0 {
		eventType = EventTypeReloaded
	}

	r.classes = make(map[string]types.ClassSummary, len(index.Classes))
	r.lower = make(map[string]string, len(index.Classes))
	r.aliases = make(map[string]string)
	r.order = r.order[:0]

	for _, cls := range index.Classes {
		if cls.Name == "" {
			continue
		}
		if _, dup := r.classes[cls.Name]; !dup {
			r.order = append(r.order, cls.Name)
		}
		r.classes[cls.Name] = cls
		r.lower[strings.ToLower(cls.Name)] = cls.Name
	}
	// Alternate names never shadow a real class name.
	for _, cls := range index.Classes {
		for _, alt := range cls.AlternateNames {
			key := strings.ToLower(alt)
			if _, isClass := r.lower[key]; isClass {
				continue
			}
			r.aliases[key] = cls.Name
		}
	}

	r.memberTypes = append([]types.MemberType(nil), index.MemberTypes...)
	r.message = index.Message

	event := Event{
		Type:      eventType,
		Count:     len(r.classes),
		Timestamp: time.Now(),
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Get retrieves a class summary by canonical name
func (r *ClassRegistry) Get(name string) (types.ClassSummary, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cls, exists := r.classes[name]
	return cls, exists
}

// Classes returns all classes in index order
func (r *ClassRegistry) Classes() []types.ClassSummary {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]types.ClassSummary, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.classes[name])
	}
	return result
}

// Names returns all canonical class names sorted alphabetically
func (r *ClassRegistry) Names() []string {
	r.mutex.RLock()
	names := append([]string(nil), r.order...)
	r.mutex.RUnlock()

	sort.Strings(names)
	return names
}

// MemberTypes returns the member kinds declared by the index
func (r *ClassRegistry) MemberTypes() []types.MemberType {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return append([]types.MemberType(nil), r.memberTypes...)
}

// Message returns the index-level notice, if any
func (r *ClassRegistry) Message() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.message
}

// Count returns the number of registered classes
func (r *ClassRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.classes)
}

// Watch returns a channel that receives registry events
func (r *ClassRegistry) Watch() <-chan Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan Event, 16)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *ClassRegistry) UnWatch(ch <-chan Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}
