// Package state holds the per-session UI state that survives class switches:
// which members are expanded in each class and where each page was scrolled.
package state

import (
	"sort"
	"sync"

	"github.com/conneroisu/docview/internal/types"
)

// MemberMarker is the renderer side of member expansion.
type MemberMarker interface {
	SetMemberExpanded(memberID string, expanded bool)
}

// Expansion maps class name to the set of expanded member ids. Only expanded
// members are stored; collapsing removes the id and an empty set removes the
// class.
type Expansion struct {
	records map[string]map[string]bool
	mutex   sync.RWMutex
}

// NewExpansion creates an empty expansion state
func NewExpansion() *Expansion {
	return &Expansion{records: make(map[string]map[string]bool)}
}

// SetExpanded records the expansion flag of one member.
func (e *Expansion) SetExpanded(class, memberID string, expanded bool) {
	if class == "" || memberID == "" {
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	record := e.records[class]
	if expanded {
		if record == nil {
			record = make(map[string]bool)
			e.records[class] = record
		}
		record[memberID] = true
		return
	}

	if record == nil {
		return
	}
	delete(record, memberID)
	if len(record) == 0 {
		delete(e.records, class)
	}
}

// IsExpanded reports whether a member is recorded as expanded
func (e *Expansion) IsExpanded(class, memberID string) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.records[class][memberID]
}

// Expanded returns the expanded member ids of a class, sorted.
func (e *Expansion) Expanded(class string) []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	ids := make([]string, 0, len(e.records[class]))
	for id := range e.records[class] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply marks every recorded member of doc as expanded. Ids that no longer
// exist in the document are skipped.
func (e *Expansion) Apply(doc *types.ClassDocument, marker MemberMarker) int {
	if doc == nil || marker == nil {
		return 0
	}

	applied := 0
	for _, id := range e.Expanded(doc.Name) {
		if _, ok := doc.Member(id); !ok {
			continue
		}
		marker.SetMemberExpanded(id, true)
		applied++
	}
	return applied
}

// Classes returns the number of classes with at least one expanded member
func (e *Expansion) Classes() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return len(e.records)
}
