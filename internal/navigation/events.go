package navigation

import (
	"sync"
	"time"
)

// EventType names a navigation event
type EventType string

const (
	EventShowIndex  EventType = "showIndex"
	EventShowClass  EventType = "showClass"
	EventShowMember EventType = "showMember"
	EventLoadFailed EventType = "loadFailed"
)

// Event is emitted by the controller after the view changed.
type Event struct {
	Type   EventType `json:"type"`
	Class  string    `json:"class,omitempty"`
	Member string    `json:"member,omitempty"`
	// ReRendered is set on showClass when the class body was rendered anew
	// rather than re-anchored.
	ReRendered bool      `json:"reRendered,omitempty"`
	Error      string    `json:"error,omitempty"`
	Session    string    `json:"session,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Emitter fans events out to subscribers. Sends never block: a subscriber
// whose buffer is full misses the event.
type Emitter struct {
	subscribers []chan Event
	session     string
	mutex       sync.RWMutex
}

// NewEmitter creates an emitter tagging events with session
func NewEmitter(session string) *Emitter {
	return &Emitter{session: session}
}

// Subscribe returns a channel receiving future events
func (e *Emitter) Subscribe(buffer int) <-chan Event {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	ch := make(chan Event, buffer)
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscription
func (e *Emitter) Unsubscribe(ch <-chan Event) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for i, sub := range e.subscribers {
		if sub == ch {
			close(sub)
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// Emit delivers event to every subscriber
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Session == "" {
		event.Session = e.session
	}

	e.mutex.RLock()
	defer e.mutex.RUnlock()

	for _, sub := range e.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close closes every subscription
func (e *Emitter) Close() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for _, sub := range e.subscribers {
		close(sub)
	}
	e.subscribers = nil
}
