package tree

import (
	"sync"

	"github.com/conneroisu/docview/internal/types"
)

// Tree is the class tree of one session together with its selection.
// Changing the strategy, visibility or class list rebuilds the nodes and
// re-selects the previously selected URL.
type Tree struct {
	strategy    Strategy
	showPrivate bool
	classes     []types.ClassSummary
	root        *Node
	selected    string
	mutex       sync.RWMutex
}

// New builds a tree for classes
func New(strategy Strategy, showPrivate bool, classes []types.ClassSummary) *Tree {
	t := &Tree{
		strategy:    strategy,
		showPrivate: showPrivate,
		classes:     classes,
	}
	t.root = t.build()
	return t
}

func (t *Tree) build() *Node {
	return t.strategy.Build(t.classes, Options{ShowPrivate: t.showPrivate})
}

// rebuild must be called with the lock held.
func (t *Tree) rebuild() {
	t.root = t.build()
	if t.selected != "" {
		t.selectLocked(t.selected)
	}
}

// SetStrategy switches the grouping
func (t *Tree) SetStrategy(strategy Strategy) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.strategy == strategy {
		return
	}
	t.strategy = strategy
	t.rebuild()
}

// SetShowPrivate switches private class visibility
func (t *Tree) SetShowPrivate(show bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.showPrivate == show {
		return
	}
	t.showPrivate = show
	t.rebuild()
}

// SetClasses replaces the class list
func (t *Tree) SetClasses(classes []types.ClassSummary) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.classes = classes
	t.rebuild()
}

// SelectURL selects the node carrying url and expands its ancestors. An
// empty or unknown url clears the selection.
func (t *Tree) SelectURL(url string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.selectLocked(url)
}

func (t *Tree) selectLocked(url string) bool {
	path := PathTo(t.root, url)
	if path == nil {
		t.selected = ""
		return false
	}
	for _, ancestor := range path[:len(path)-1] {
		ancestor.Expanded = true
	}
	t.selected = url
	return true
}

// FindNodeByURL returns the node carrying url, or nil
func (t *Tree) FindNodeByURL(url string) *Node {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return FindByURL(t.root, url)
}

// Root returns the current root node
func (t *Tree) Root() *Node {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.root
}

// Selected returns the selected URL, "" when nothing is selected
func (t *Tree) Selected() string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.selected
}

// Strategy returns the current grouping
func (t *Tree) Strategy() Strategy {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.strategy
}

// ShowPrivate reports whether private classes are shown
func (t *Tree) ShowPrivate() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.showPrivate
}

// Empty reports whether the tree has no classes
func (t *Tree) Empty() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.root.Children) == 0
}
