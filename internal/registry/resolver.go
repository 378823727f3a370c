package registry

import "strings"

// Resolver maps a raw class name to its canonical name.
type Resolver interface {
	Resolve(raw string) string
}

// Resolve returns the canonical name for raw. Exact names win, then a
// case-insensitive match, then legacy alternate names. Unknown names pass
// through unchanged so the failure surfaces later as a NotFound fetch.
func (r *ClassRegistry) Resolve(raw string) string {
	name := strings.TrimSpace(raw)

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, ok := r.classes[name]; ok {
		return name
	}

	key := strings.ToLower(name)
	if canonical, ok := r.lower[key]; ok {
		return canonical
	}
	if canonical, ok := r.aliases[key]; ok {
		return canonical
	}

	return name
}

// Known reports whether raw resolves to a registered class.
func (r *ClassRegistry) Known(raw string) bool {
	_, ok := r.Get(r.Resolve(raw))
	return ok
}

var _ Resolver = (*ClassRegistry)(nil)
