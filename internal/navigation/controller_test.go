package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/registry"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
)

// fakeView records what the controller asked it to do.
type fakeView struct {
	mutex    sync.Mutex
	offset   int
	scrolled []int
	expanded map[string]bool
	allOpen  bool
	loading  bool
	title    string
	rendered []string
	notFound []string
	anchors  []string
	indexes  int
	trees    int
	selected string
	opened   []string
	filters  []FilterResult
	settings []Settings
}

func newFakeView() *fakeView {
	return &fakeView{expanded: map[string]bool{}}
}

func (v *fakeView) ScrollOffset() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.offset
}

func (v *fakeView) ScrollTo(offset int) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.offset = offset
	v.scrolled = append(v.scrolled, offset)
}

func (v *fakeView) TrackScroll(offset int) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.offset = offset
}

func (v *fakeView) SetMemberExpanded(id string, expanded bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if expanded {
		v.expanded[id] = true
	} else {
		delete(v.expanded, id)
	}
}

func (v *fakeView) IsMemberExpanded(id string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.expanded[id]
}

func (v *fakeView) SetAllMembersExpanded(expanded bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.allOpen = expanded
}

func (v *fakeView) SetLoading(loading bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.loading = loading
}

func (v *fakeView) SetPageTitle(title string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.title = title
}

func (v *fakeView) ShowIndex(data IndexData) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.indexes++
	v.offset = 0
}

func (v *fakeView) RenderClass(doc *types.ClassDocument, groups []members.Group) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.rendered = append(v.rendered, doc.Name)
	v.expanded = map[string]bool{}
	v.offset = 0
}

func (v *fakeView) ShowNotFound(class string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.notFound = append(v.notFound, class)
	v.offset = 0
}

func (v *fakeView) ScrollToMember(id string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.anchors = append(v.anchors, id)
}

func (v *fakeView) FilterMembers(result FilterResult) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.filters = append(v.filters, result)
}

func (v *fakeView) ShowSettings(settings Settings) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.settings = append(v.settings, settings)
}

func (v *fakeView) ShowTree(root *tree.Node, selected string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.trees++
	v.selected = selected
}

func (v *fakeView) SelectTreeURL(url string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.selected = url
}

func (v *fakeView) OpenWindow(url string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.opened = append(v.opened, url)
}

// viewSnapshot is a copy of the recorded calls.
type viewSnapshot struct {
	offset   int
	scrolled []int
	allOpen  bool
	loading  bool
	title    string
	rendered []string
	notFound []string
	anchors  []string
	indexes  int
	trees    int
	selected string
	opened   []string
	filters  []FilterResult
	settings []Settings
}

func (v *fakeView) snapshot() viewSnapshot {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return viewSnapshot{
		offset:   v.offset,
		scrolled: append([]int(nil), v.scrolled...),
		allOpen:  v.allOpen,
		loading:  v.loading,
		title:    v.title,
		rendered: append([]string(nil), v.rendered...),
		notFound: append([]string(nil), v.notFound...),
		anchors:  append([]string(nil), v.anchors...),
		indexes:  v.indexes,
		trees:    v.trees,
		selected: v.selected,
		opened:   append([]string(nil), v.opened...),
		filters:  append([]FilterResult(nil), v.filters...),
		settings: append([]Settings(nil), v.settings...),
	}
}

// docSource serves documents from memory; gated classes block until opened.
type docSource struct {
	mutex   sync.Mutex
	docs    map[string]*types.ClassDocument
	gates   map[string]chan struct{}
	fetched map[string]int
}

func newDocSource(docs ...*types.ClassDocument) *docSource {
	s := &docSource{
		docs:    map[string]*types.ClassDocument{},
		gates:   map[string]chan struct{}{},
		fetched: map[string]int{},
	}
	for _, d := range docs {
		s.docs[d.Name] = d
	}
	return s
}

func (s *docSource) gate(class string) chan struct{} {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ch := make(chan struct{})
	s.gates[class] = ch
	return ch
}

func (s *docSource) FetchClass(ctx context.Context, name string) (*types.ClassDocument, error) {
	s.mutex.Lock()
	s.fetched[name]++
	gate := s.gates[name]
	doc := s.docs[name]
	s.mutex.Unlock()

	if gate != nil {
		<-gate
	}
	if doc == nil {
		return nil, errors.NewNotFoundError(name, nil)
	}
	return doc, nil
}

func (s *docSource) FetchIndex(ctx context.Context) (*types.ClassIndex, error) {
	return &types.ClassIndex{}, nil
}

func (s *docSource) count(class string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.fetched[class]
}

func classDoc(name string, memberIDs ...string) *types.ClassDocument {
	doc := &types.ClassDocument{Name: name}
	for _, id := range memberIDs {
		doc.Members = append(doc.Members, types.Member{ID: id, Tagname: "method", Name: id, Owner: name})
	}
	return doc
}

type harness struct {
	ctrl   *Controller
	view   *fakeView
	source *docSource
	loader *loader.Loader
	prefs  *settings.Preferences
	events <-chan Event
}

func newHarness(t *testing.T, source *docSource) *harness {
	t.Helper()
	reg := registry.NewFromIndex(&types.ClassIndex{
		Classes: []types.ClassSummary{
			{Name: "Ext.Base"},
			{Name: "Ext.Panel", Extends: "Ext.Base"},
			{Name: "Ext.Window", Extends: "Ext.Panel"},
		},
		Message: "Welcome",
	})
	prefs := settings.NewPreferences(settings.NewMemoryStore(), settings.Defaults{Show: members.DefaultShowFlags()})
	view := newFakeView()
	l := loader.New(source)

	ctrl, err := NewController(Config{
		Catalog:     reg,
		Loader:      l,
		View:        view,
		Preferences: prefs,
	})
	require.NoError(t, err)

	h := &harness{
		ctrl:   ctrl,
		view:   view,
		source: source,
		loader: l,
		prefs:  prefs,
		events: ctrl.Events().Subscribe(64),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) send(t *testing.T, in Intent) {
	t.Helper()
	require.NoError(t, h.ctrl.Send(context.Background(), in))
}

func (h *harness) waitFor(t *testing.T, cond func(State) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.ctrl.State()) }, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) displaying(t *testing.T, class string) {
	t.Helper()
	h.waitFor(t, func(s State) bool {
		return s.Phase == PhaseDisplaying && s.Class != nil && s.Class.Name == class
	})
}

// drain collects events until none arrive for a short while.
func (h *harness) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-h.events:
			out = append(out, e)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

// settle waits until the controller has processed every queued intent. The
// second no-op is only dequeued once the first has been handled.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	for i := 0; i < 2; i++ {
		h.send(t, ReportScroll{Offset: h.view.ScrollOffset()})
		require.Eventually(t, func() bool { return len(h.ctrl.intents) == 0 }, time.Second, time.Millisecond)
	}
}

func TestController_CaseInsensitiveNavigationFetchesOnce(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel", "method-show")))

	h.send(t, NavigateTo{URL: "#!/class/ext.panel"})
	h.displaying(t, "Ext.Panel")

	assert.Equal(t, 1, h.source.count("Ext.Panel"))
	assert.Equal(t, 0, h.source.count("ext.panel"))

	view := h.view.snapshot()
	assert.Equal(t, []string{"Ext.Panel"}, view.rendered)
	assert.Equal(t, "Ext.Panel", view.title)
	assert.Equal(t, "#!/class/Ext.Panel", view.selected)
	assert.False(t, view.loading)

	events := h.drain()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventShowClass, last.Type)
	assert.True(t, last.ReRendered)
}

func TestController_ReAnchorDoesNotReRender(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel", "method-show", "method-bind")))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	h.drain()

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel-method-show"})
	h.waitFor(t, func(s State) bool { return s.Member == "method-show" })

	events := h.drain()
	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: EventShowMember, Class: "Ext.Panel", Member: "method-show"},
		Event{Type: events[0].Type, Class: events[0].Class, Member: events[0].Member})
	assert.Equal(t, EventShowClass, events[1].Type)
	assert.False(t, events[1].ReRendered)

	view := h.view.snapshot()
	assert.Equal(t, []string{"Ext.Panel"}, view.rendered)
	assert.Equal(t, []string{"method-show"}, view.anchors)
	assert.Equal(t, 1, h.source.count("Ext.Panel"))
	assert.Equal(t, "#!/class/Ext.Panel-method-show", h.ctrl.State().URL)
}

func TestController_LoadFailureShowsNotFound(t *testing.T) {
	h := newHarness(t, newDocSource())

	h.send(t, NavigateTo{URL: "#!/class/Ext.Missing"})
	h.waitFor(t, func(s State) bool { return s.Failed == "Ext.Missing" })

	s := h.ctrl.State()
	assert.Equal(t, PhaseIndex, s.Phase)
	assert.Nil(t, s.Class)

	view := h.view.snapshot()
	assert.Equal(t, []string{"Ext.Missing"}, view.notFound)
	assert.False(t, view.loading)

	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventLoadFailed, events[0].Type)
	assert.Equal(t, "Ext.Missing", events[0].Class)

	assert.Equal(t, loader.EntryFailed, h.loader.Get("Ext.Missing").State)
}

func TestController_NotFoundScrollKeepsIndexRecord(t *testing.T) {
	h := newHarness(t, newDocSource())

	h.send(t, ReportScroll{Offset: 200})
	h.send(t, NavigateTo{URL: "#!/class/Ext.Missing"})
	h.waitFor(t, func(s State) bool { return s.Failed == "Ext.Missing" })

	h.send(t, ReportScroll{Offset: 80})
	h.send(t, ShowIndex{})
	h.waitFor(t, func(s State) bool { return s.Phase == PhaseIndex && s.Failed == "" })

	require.Eventually(t, func() bool {
		scrolled := h.view.snapshot().scrolled
		return len(scrolled) > 0 && scrolled[len(scrolled)-1] == 200
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 200, h.view.ScrollOffset())
}

func TestController_StaleLoadIsAbsorbed(t *testing.T) {
	source := newDocSource(classDoc("Ext.Panel"), classDoc("Ext.Window"))
	panelGate := source.gate("Ext.Panel")
	windowGate := source.gate("Ext.Window")
	h := newHarness(t, source)

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.waitFor(t, func(s State) bool { return s.Pending == "Ext.Panel" })
	h.send(t, NavigateTo{URL: "#!/class/Ext.Window"})
	h.waitFor(t, func(s State) bool { return s.Pending == "Ext.Window" })
	assert.True(t, h.view.snapshot().loading)

	close(windowGate)
	h.displaying(t, "Ext.Window")

	close(panelGate)
	require.Eventually(t, func() bool {
		return h.loader.Get("Ext.Panel").State == loader.EntryLoaded
	}, 2*time.Second, 5*time.Millisecond)
	h.settle(t)

	assert.Equal(t, "Ext.Window", h.ctrl.State().Class.Name)
	assert.Equal(t, []string{"Ext.Window"}, h.view.snapshot().rendered)

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	assert.Equal(t, 1, source.count("Ext.Panel"), "the absorbed load filled the cache")
}

func TestController_NewWindowLeavesStateAlone(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel"), classDoc("Ext.Window")))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	before := h.ctrl.State()
	h.drain()

	h.send(t, NavigateTo{URL: "http://localhost:8080/#!/class/Ext.Window", NewWindow: true})
	require.Eventually(t, func() bool { return len(h.view.snapshot().opened) == 1 }, time.Second, 5*time.Millisecond)

	view := h.view.snapshot()
	assert.Equal(t, "#!/class/Ext.Window", view.opened[0])
	assert.Equal(t, "#!/class/Ext.Panel", view.selected)
	assert.Equal(t, before, h.ctrl.State())
	assert.Equal(t, 0, h.source.count("Ext.Window"))
	assert.Empty(t, h.drain())
}

func TestController_ScrollRestoredOnReturn(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel"), classDoc("Ext.Window")))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	h.send(t, ReportScroll{Offset: 300})

	h.send(t, NavigateTo{URL: "#!/class/Ext.Window"})
	h.displaying(t, "Ext.Window")
	assert.Equal(t, 0, h.view.ScrollOffset())

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	assert.Equal(t, 300, h.view.ScrollOffset())

	h.send(t, ReportScroll{Offset: 50})
	h.send(t, NavigateTo{URL: "#!/class/Ext.Window"})
	h.displaying(t, "Ext.Window")
	h.send(t, CloseTab{URL: "#!/class/Ext.Panel"})
	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel-method-x"})
	h.displaying(t, "Ext.Panel")
	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.waitFor(t, func(s State) bool { return s.Member == "" && s.Class != nil && s.Class.Name == "Ext.Panel" })
	h.settle(t)
	assert.Equal(t, 0, h.view.ScrollOffset(), "closing the tab erased the record")
}

func TestController_AnchorBypassesScrollRestore(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel", "method-show"), classDoc("Ext.Window")))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	h.send(t, ReportScroll{Offset: 120})
	h.send(t, NavigateTo{URL: "#!/class/Ext.Window"})
	h.displaying(t, "Ext.Window")

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel-method-show"})
	h.displaying(t, "Ext.Panel")

	view := h.view.snapshot()
	assert.Equal(t, []string{"method-show"}, view.anchors)
	assert.NotContains(t, view.scrolled, 120)
}

func TestController_ExpansionRestoredOnRevisit(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel", "method-bind", "method-show"), classDoc("Ext.Window")))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	h.drain()

	h.send(t, ToggleExpand{MemberID: "method-bind"})
	h.send(t, ToggleExpand{MemberID: "method-nope"})
	require.Eventually(t, func() bool { return h.view.IsMemberExpanded("method-bind") }, time.Second, 5*time.Millisecond)

	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventShowMember, events[0].Type)
	assert.Equal(t, "method-bind", events[0].Member)

	h.send(t, NavigateTo{URL: "#!/class/Ext.Window"})
	h.displaying(t, "Ext.Window")
	assert.False(t, h.view.IsMemberExpanded("method-bind"))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")
	assert.True(t, h.view.IsMemberExpanded("method-bind"))
	assert.False(t, h.view.IsMemberExpanded("method-show"))

	h.send(t, ToggleExpand{MemberID: "method-bind"})
	require.Eventually(t, func() bool { return !h.view.IsMemberExpanded("method-bind") }, time.Second, 5*time.Millisecond)
	h.send(t, ExpandAll{Expanded: true})
	require.Eventually(t, func() bool { return h.view.snapshot().allOpen }, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.ctrl.expansion.Expanded("Ext.Panel"), "expand all leaves the record alone")
}

func TestController_RunPushesSavedSettings(t *testing.T) {
	prefs := settings.NewPreferences(settings.NewMemoryStore(), settings.Defaults{Show: members.DefaultShowFlags()})
	show := members.ShowFlags{Public: true, Private: true, Internal: true}
	require.NoError(t, prefs.SetShow(show))
	require.NoError(t, prefs.SetGrouping(tree.ByInheritance))
	require.NoError(t, prefs.SetShowPrivate(true))

	view := newFakeView()
	ctrl, err := NewController(Config{
		Catalog:     registry.NewFromIndex(&types.ClassIndex{Classes: []types.ClassSummary{{Name: "Ext.Base"}}}),
		Loader:      loader.New(newDocSource()),
		View:        view,
		Preferences: prefs,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool { return len(view.snapshot().settings) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Settings{
		Grouping:    tree.ByInheritance,
		ShowPrivate: true,
		Show:        show,
	}, view.snapshot().settings[0])
}

func TestController_IndexAndPreferences(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel")))

	h.send(t, ShowIndex{})
	require.Eventually(t, func() bool { return h.view.snapshot().indexes == 1 }, time.Second, 5*time.Millisecond)
	events := h.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventShowIndex, events[0].Type)

	h.send(t, SetGrouping{Strategy: tree.ByInheritance})
	h.send(t, SetShowPrivate{Show: true})
	show := members.ShowFlags{Public: true, Private: true}
	h.send(t, ChangeFilter{Text: "sh", Show: show})
	h.settle(t)

	assert.Equal(t, tree.ByInheritance, h.prefs.Grouping())
	assert.True(t, h.prefs.ShowPrivate())
	assert.Equal(t, show, h.prefs.Show())
	assert.Equal(t, tree.ByInheritance, h.ctrl.Tree().Strategy())
	assert.GreaterOrEqual(t, h.view.snapshot().trees, 3)
	assert.GreaterOrEqual(t, h.view.snapshot().indexes, 2, "the index is re-rendered with the new categories")
}

func TestController_FilterAppliedToDisplayedClass(t *testing.T) {
	doc := classDoc("Ext.Panel", "method-show", "method-bind")
	doc.Members[1].Meta.Private = true
	h := newHarness(t, newDocSource(doc))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")

	filters := h.view.snapshot().filters
	require.Len(t, filters, 1)
	assert.Equal(t, []string{"method-bind"}, filters[0].Hidden)

	h.send(t, ChangeFilter{Text: "", Show: members.ShowFlags{Public: true, Private: true}})
	require.Eventually(t, func() bool { return len(h.view.snapshot().filters) == 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.view.snapshot().filters[1].Hidden)
}

func TestController_ReloadClassesKeepsSelection(t *testing.T) {
	h := newHarness(t, newDocSource(classDoc("Ext.Panel")))

	h.send(t, NavigateTo{URL: "#!/class/Ext.Panel"})
	h.displaying(t, "Ext.Panel")

	h.send(t, ReloadClasses{Classes: []types.ClassSummary{
		{Name: "Ext.Panel"},
		{Name: "Ext.grid.Panel", Extends: "Ext.Panel"},
	}})
	require.Eventually(t, func() bool {
		return h.ctrl.Tree().FindNodeByURL("#!/class/Ext.grid.Panel") != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "#!/class/Ext.Panel", h.ctrl.Tree().Selected())
}

func TestController_DispatchRejectsBadInput(t *testing.T) {
	reg := registry.NewClassRegistry()
	ctrl, err := NewController(Config{Catalog: reg, Loader: loader.New(newDocSource()), View: newFakeView()})
	require.NoError(t, err)

	err = ctrl.Dispatch(NavigateTo{URL: "#!/guide/intro"})
	assert.True(t, errors.IsValidation(err))
	err = ctrl.Dispatch(nil)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, PhaseIndex, ctrl.State().Phase)

	_, err = NewController(Config{})
	assert.Error(t, err)
}
