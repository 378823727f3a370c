package navigation

import (
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/state"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
)

// IndexData is what the index page shows.
type IndexData struct {
	Message    string
	Categories []*tree.Node
	Enabled    bool
}

// FilterResult is the member filter outcome for the displayed class.
type FilterResult struct {
	Text   string
	Show   members.ShowFlags
	Hidden []string
	Groups []members.Group
}

// Settings are the user-adjustable controls of a session.
type Settings struct {
	Grouping    tree.Strategy
	ShowPrivate bool
	Text        string
	Show        members.ShowFlags
}

// View is the presentation side of one session. The controller is its only
// caller and calls it from a single goroutine.
type View interface {
	state.Viewport
	state.MemberMarker

	// TrackScroll records the offset the client reported.
	TrackScroll(offset int)
	IsMemberExpanded(memberID string) bool
	SetAllMembersExpanded(expanded bool)

	SetLoading(loading bool)
	SetPageTitle(title string)
	ShowIndex(data IndexData)
	RenderClass(doc *types.ClassDocument, groups []members.Group)
	ShowNotFound(class string)
	// ScrollToMember scrolls the member into view and highlights it.
	ScrollToMember(memberID string)
	FilterMembers(result FilterResult)
	// ShowSettings sets the tab's controls to the session's settings.
	ShowSettings(settings Settings)

	ShowTree(root *tree.Node, selected string)
	SelectTreeURL(url string)
	OpenWindow(url string)
}

// Catalog is the class list the controller navigates.
type Catalog interface {
	Resolve(raw string) string
	Classes() []types.ClassSummary
	MemberTypes() []types.MemberType
	Message() string
}
