package navigation

import (
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
)

// Intent is a discrete command from the view layer. The set is closed.
type Intent interface {
	intent()
}

// NavigateTo follows a link. NewWindow links open elsewhere and leave the
// navigation state untouched.
type NavigateTo struct {
	URL       string
	NewWindow bool
}

// ShowIndex displays the class index
type ShowIndex struct{}

// ToggleExpand expands or collapses one member of the displayed class
type ToggleExpand struct {
	MemberID string
}

// ExpandAll expands or collapses every member in the view. The per-class
// expansion record is not changed.
type ExpandAll struct {
	Expanded bool
}

// ChangeFilter replaces the member filter input
type ChangeFilter struct {
	Text string
	Show members.ShowFlags
}

// SetGrouping switches the class tree strategy
type SetGrouping struct {
	Strategy tree.Strategy
}

// SetShowPrivate switches private class visibility in the tree
type SetShowPrivate struct {
	Show bool
}

// CloseTab forgets the scroll position of a closed tab
type CloseTab struct {
	URL string
}

// ReportScroll tells the core where the content viewport is scrolled
type ReportScroll struct {
	Offset int
}

// ReloadClasses replaces the class list after the index changed
type ReloadClasses struct {
	Classes []types.ClassSummary
}

func (NavigateTo) intent()     {}
func (ShowIndex) intent()      {}
func (ToggleExpand) intent()   {}
func (ExpandAll) intent()      {}
func (ChangeFilter) intent()   {}
func (SetGrouping) intent()    {}
func (SetShowPrivate) intent() {}
func (CloseTab) intent()       {}
func (ReportScroll) intent()   {}
func (ReloadClasses) intent()  {}
