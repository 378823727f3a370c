package state

import "sync"

// Viewport is the scrollable content area of the view.
type Viewport interface {
	ScrollOffset() int
	ScrollTo(offset int)
}

// Scroll remembers the scroll offset of pages that were navigated away from.
type Scroll struct {
	offsets map[string]int
	mutex   sync.Mutex
}

// NewScroll creates an empty scroll state
func NewScroll() *Scroll {
	return &Scroll{offsets: make(map[string]int)}
}

// Capture stores the viewport's current offset against key, replacing any
// earlier record.
func (s *Scroll) Capture(key string, viewport Viewport) {
	if key == "" || viewport == nil {
		return
	}
	offset := viewport.ScrollOffset()

	s.mutex.Lock()
	s.offsets[key] = offset
	s.mutex.Unlock()
}

// Restore scrolls the viewport to the offset recorded for key and consumes
// the record. Without a record the viewport is left alone.
func (s *Scroll) Restore(key string, viewport Viewport) bool {
	s.mutex.Lock()
	offset, ok := s.offsets[key]
	if ok {
		delete(s.offsets, key)
	}
	s.mutex.Unlock()

	if !ok || viewport == nil {
		return false
	}
	viewport.ScrollTo(offset)
	return true
}

// Erase forgets the record for key
func (s *Scroll) Erase(key string) {
	s.mutex.Lock()
	delete(s.offsets, key)
	s.mutex.Unlock()
}

// Offset returns the recorded offset without consuming it
func (s *Scroll) Offset(key string) (int, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	offset, ok := s.offsets[key]
	return offset, ok
}
