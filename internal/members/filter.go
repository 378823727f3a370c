// Package members filters the member list of a loaded class and groups it
// into the per-type menus of the class toolbar.
package members

import (
	"strings"
	"sync"

	"github.com/conneroisu/docview/internal/types"
)

// ShowFlags selects which kinds of members are visible.
type ShowFlags struct {
	Public     bool `json:"public" yaml:"public"`
	Private    bool `json:"private" yaml:"private"`
	Deprecated bool `json:"deprecated" yaml:"deprecated"`
	Internal   bool `json:"internal" yaml:"internal"`
}

// DefaultShowFlags shows public and deprecated members.
func DefaultShowFlags() ShowFlags {
	return ShowFlags{Public: true, Deprecated: true}
}

// Excludes reports whether a member carrying meta is hidden by the flags.
// A member counts as public when it is not private.
func (s ShowFlags) Excludes(meta types.Meta) bool {
	return (!s.Public && !meta.Private) ||
		(!s.Private && meta.Private) ||
		(!s.Deprecated && meta.Deprecated) ||
		(!s.Internal && meta.Internal)
}

// Matches reports whether name contains text, ignoring case. Empty text
// matches everything.
func Matches(name, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(text))
}

// Passes reports whether m survives the filter
func Passes(m types.Member, text string, show ShowFlags) bool {
	return !show.Excludes(m.Meta) && Matches(m.Name, text)
}

// Filter returns the members that pass, in their original order.
func Filter(members []types.Member, text string, show ShowFlags) []types.Member {
	out := make([]types.Member, 0, len(members))
	for _, m := range members {
		if Passes(m, text, show) {
			out = append(out, m)
		}
	}
	return out
}

// Engine holds the current filter input of one session.
type Engine struct {
	text  string
	show  ShowFlags
	mutex sync.RWMutex
}

// NewEngine creates an engine with no text and the given flags
func NewEngine(show ShowFlags) *Engine {
	return &Engine{show: show}
}

// Set replaces the filter input
func (e *Engine) Set(text string, show ShowFlags) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.text = strings.TrimSpace(text)
	e.show = show
}

// Text returns the current filter text
func (e *Engine) Text() string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.text
}

// Show returns the current flags
func (e *Engine) Show() ShowFlags {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.show
}

// Searching reports whether a filter text is set
func (e *Engine) Searching() bool {
	return e.Text() != ""
}

// Apply filters members with the current input
func (e *Engine) Apply(members []types.Member) []types.Member {
	e.mutex.RLock()
	text, show := e.text, e.show
	e.mutex.RUnlock()
	return Filter(members, text, show)
}

// Hidden returns the ids of members the current input hides
func (e *Engine) Hidden(members []types.Member) []string {
	e.mutex.RLock()
	text, show := e.text, e.show
	e.mutex.RUnlock()

	var ids []string
	for _, m := range members {
		if !Passes(m, text, show) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
