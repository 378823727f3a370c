// Package navigation maps class URLs to displayed classes. The Controller is
// a state machine with three phases (index, loading, displaying) that owns
// the session's navigation state and drives the view.
//
// All state changes happen on the goroutine running Run. Loads that cannot
// be answered from the cache complete on a fetch goroutine; their outcome is
// posted back to Run and applied only if it is still the pending navigation.
package navigation

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/state"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
)

// Phase is the state machine position
type Phase int

const (
	PhaseIndex Phase = iota
	PhaseLoading
	PhaseDisplaying
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIndex:
		return "index"
	case PhaseLoading:
		return "loading"
	case PhaseDisplaying:
		return "displaying"
	default:
		return "unknown"
	}
}

// State is a snapshot of the navigation state.
type State struct {
	Phase Phase
	// Class is the displayed class; it stays set while the next class loads.
	Class *types.ClassDocument
	// Member is the anchor of the displayed class
	Member string
	// URL is the URL currently displayed
	URL string
	// Pending is the canonical name being loaded
	Pending string
	// Failed names the class whose load failed last, shown instead of the index
	Failed string
}

// ClassLoader starts or joins the load of a class.
type ClassLoader interface {
	Load(name string) *loader.Future
}

// Config wires a controller. Catalog, Loader and View are required.
type Config struct {
	Catalog     Catalog
	Loader      ClassLoader
	View        View
	Tree        *tree.Tree
	Expansion   *state.Expansion
	Scroll      *state.Scroll
	Filter      *members.Engine
	Preferences *settings.Preferences
	Events      *Emitter
	Logger      logging.Logger
	// QueueSize bounds pending intents and completions
	QueueSize int
}

type completion struct {
	seq    uint64
	class  string
	member string
	doc    *types.ClassDocument
	err    error
}

// Controller is the navigation state machine of one session.
type Controller struct {
	catalog   Catalog
	loader    ClassLoader
	view      View
	tree      *tree.Tree
	expansion *state.Expansion
	scroll    *state.Scroll
	filter    *members.Engine
	prefs     *settings.Preferences
	events    *Emitter
	logger    logging.Logger

	intents     chan Intent
	completions chan completion
	stopped     chan struct{}
	stopOnce    sync.Once

	// loop-owned
	seq    uint64
	groups []members.Group

	state State
	mutex sync.RWMutex
}

// NewController creates a controller. Missing optional collaborators are
// created empty; the tree and filter start from the preferences when given.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Catalog == nil || cfg.Loader == nil || cfg.View == nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError,
			"navigation controller needs a catalog, a loader and a view", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Expansion == nil {
		cfg.Expansion = state.NewExpansion()
	}
	if cfg.Scroll == nil {
		cfg.Scroll = state.NewScroll()
	}
	if cfg.Events == nil {
		cfg.Events = NewEmitter("")
	}
	if cfg.Tree == nil {
		strategy, showPrivate := tree.ByPackage, false
		if cfg.Preferences != nil {
			strategy, showPrivate = cfg.Preferences.Grouping(), cfg.Preferences.ShowPrivate()
		}
		cfg.Tree = tree.New(strategy, showPrivate, cfg.Catalog.Classes())
	}
	if cfg.Filter == nil {
		show := members.DefaultShowFlags()
		if cfg.Preferences != nil {
			show = cfg.Preferences.Show()
		}
		cfg.Filter = members.NewEngine(show)
	}

	return &Controller{
		catalog:     cfg.Catalog,
		loader:      cfg.Loader,
		view:        cfg.View,
		tree:        cfg.Tree,
		expansion:   cfg.Expansion,
		scroll:      cfg.Scroll,
		filter:      cfg.Filter,
		prefs:       cfg.Preferences,
		events:      cfg.Events,
		logger:      cfg.Logger.WithComponent("navigation"),
		intents:     make(chan Intent, cfg.QueueSize),
		completions: make(chan completion, cfg.QueueSize),
		stopped:     make(chan struct{}),
		state:       State{Phase: PhaseIndex, URL: IndexURL},
	}, nil
}

// Events returns the controller's event emitter
func (c *Controller) Events() *Emitter {
	return c.events
}

// Tree returns the session's class tree
func (c *Controller) Tree() *tree.Tree {
	return c.tree
}

// State returns a snapshot of the navigation state
func (c *Controller) State() State {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.state
}

func (c *Controller) setState(fn func(s *State)) {
	c.mutex.Lock()
	fn(&c.state)
	c.mutex.Unlock()
}

// Send queues an intent for Run.
func (c *Controller) Send(ctx context.Context, in Intent) error {
	select {
	case c.intents <- in:
		return nil
	case <-c.stopped:
		return errors.NewInternalError(errors.ErrCodeInternalError, "navigation controller stopped", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes intents and load completions until ctx is done. The class
// tree and the current settings are pushed to the view first.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stopOnce.Do(func() { close(c.stopped) })

	c.view.ShowTree(c.tree.Root(), c.tree.Selected())
	c.view.ShowSettings(c.settings())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-c.intents:
			if err := c.Dispatch(in); err != nil {
				c.logger.Warn(ctx, err, "Intent rejected", "intent", fmt.Sprintf("%T", in))
			}
		case done := <-c.completions:
			c.complete(done)
		}
	}
}

// Dispatch applies one intent. It must only be called from the goroutine
// running Run, or when Run is not running at all.
func (c *Controller) Dispatch(in Intent) error {
	switch in := in.(type) {
	case NavigateTo:
		return c.navigate(in.URL, in.NewWindow)
	case ShowIndex:
		c.showIndex()
	case ToggleExpand:
		c.toggleExpand(in.MemberID)
	case ExpandAll:
		c.view.SetAllMembersExpanded(in.Expanded)
	case ChangeFilter:
		return c.changeFilter(in.Text, in.Show)
	case SetGrouping:
		return c.setGrouping(in.Strategy)
	case SetShowPrivate:
		return c.setShowPrivate(in.Show)
	case CloseTab:
		c.closeTab(in.URL)
	case ReportScroll:
		c.view.TrackScroll(in.Offset)
	case ReloadClasses:
		c.reloadClasses(in.Classes)
	case nil:
		return errors.NewValidationError(errors.ErrCodeInvalidIntent, "nil intent")
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidIntent, fmt.Sprintf("unknown intent %T", in))
	}
	return nil
}

func (c *Controller) navigate(raw string, newWindow bool) error {
	target, err := ParseURL(raw)
	if err != nil {
		return err
	}

	if newWindow {
		c.view.OpenWindow(target.String())
		selected := ""
		if doc := c.State().Class; doc != nil {
			selected = types.ClassURL(doc.Name, "")
		}
		c.tree.SelectURL(selected)
		c.view.SelectTreeURL(c.tree.Selected())
		return nil
	}

	if target.Index {
		c.showIndex()
		return nil
	}

	c.loadClass(c.catalog.Resolve(target.Class), target.Member)
	return nil
}

// leave captures the scroll position of the displayed page when the next
// page is a different one.
func (c *Controller) leave(nextKey string) {
	current := c.State()
	if current.Failed != "" {
		// the not-found view has no record of its own
		return
	}
	key := IndexURL
	if current.Class != nil {
		key = types.ClassURL(current.Class.Name, "")
	}
	if key != nextKey {
		c.scroll.Capture(key, c.view)
	}
}

func (c *Controller) showIndex() {
	c.leave(IndexURL)
	c.seq++

	c.setState(func(s *State) {
		*s = State{Phase: PhaseIndex, URL: IndexURL}
	})
	c.groups = nil
	c.view.SetLoading(false)
	c.view.ShowIndex(c.indexData())
	c.scroll.Restore(IndexURL, c.view)
	c.events.Emit(Event{Type: EventShowIndex})
}

func (c *Controller) indexData() IndexData {
	root := c.tree.Root()
	return IndexData{
		Message:    c.catalog.Message(),
		Categories: root.Children,
		Enabled:    len(root.Children) > 0,
	}
}

func (c *Controller) loadClass(class, member string) {
	c.leave(types.ClassURL(class, ""))
	c.seq++
	seq := c.seq

	c.setState(func(s *State) {
		s.Phase = PhaseLoading
		s.Pending = class
	})

	future := c.loader.Load(class)
	if future.Resolved() {
		doc, err := future.Result()
		c.complete(completion{seq: seq, class: class, member: member, doc: doc, err: err})
		return
	}

	c.view.SetLoading(true)
	c.logger.Debug(context.Background(), "Waiting for class", "class", class)
	future.OnComplete(func(doc *types.ClassDocument, err error) {
		c.post(completion{seq: seq, class: class, member: member, doc: doc, err: err})
	})
}

// post hands a completion to the Run goroutine. It may run on the Run
// goroutine itself, so it never blocks.
func (c *Controller) post(done completion) {
	select {
	case c.completions <- done:
	default:
		go func() {
			select {
			case c.completions <- done:
			case <-c.stopped:
			}
		}()
	}
}

func (c *Controller) complete(done completion) {
	if done.seq != c.seq {
		c.logger.Debug(context.Background(), "Discarding stale class load",
			"class", done.class,
			"pending", c.State().Pending,
		)
		return
	}

	if done.err != nil || done.doc == nil {
		c.fail(done.class, done.err)
		return
	}
	c.showClass(done.doc, done.member)
}

func (c *Controller) fail(class string, err error) {
	c.logger.Warn(context.Background(), err, "Class not found", "class", class)

	c.groups = nil
	c.view.SetLoading(false)
	c.view.ShowNotFound(class)
	c.setState(func(s *State) {
		*s = State{Phase: PhaseIndex, URL: IndexURL, Failed: class}
	})

	message := ""
	if err != nil {
		message = err.Error()
	}
	c.events.Emit(Event{Type: EventLoadFailed, Class: class, Error: message})
}

func (c *Controller) showClass(doc *types.ClassDocument, anchor string) {
	c.view.SetLoading(false)
	c.view.SetPageTitle(doc.Name)

	previous := c.State().Class
	reRendered := previous == nil || previous.Name != doc.Name
	if reRendered {
		c.groups = members.Groups(doc, c.catalog.MemberTypes())
		c.view.RenderClass(doc, c.groups)
		c.view.FilterMembers(c.filterResult(doc))
		c.expansion.Apply(doc, c.view)
	}

	key := types.ClassURL(doc.Name, "")
	if anchor != "" {
		c.view.ScrollToMember(anchor)
	} else {
		c.scroll.Restore(key, c.view)
	}
	c.tree.SelectURL(key)
	c.view.SelectTreeURL(c.tree.Selected())

	c.setState(func(s *State) {
		*s = State{
			Phase:  PhaseDisplaying,
			Class:  doc,
			Member: anchor,
			URL:    types.ClassURL(doc.Name, anchor),
		}
	})

	if anchor != "" {
		c.events.Emit(Event{Type: EventShowMember, Class: doc.Name, Member: anchor})
	}
	c.events.Emit(Event{Type: EventShowClass, Class: doc.Name, ReRendered: reRendered})
}

func (c *Controller) toggleExpand(memberID string) {
	current := c.State()
	if current.Phase != PhaseDisplaying || current.Class == nil {
		return
	}
	m, ok := current.Class.Member(memberID)
	if !ok {
		return
	}

	if c.view.IsMemberExpanded(memberID) {
		c.view.SetMemberExpanded(memberID, false)
		c.expansion.SetExpanded(current.Class.Name, memberID, false)
		return
	}

	c.view.SetMemberExpanded(memberID, true)
	c.expansion.SetExpanded(current.Class.Name, memberID, true)

	owner := m.Owner
	if owner == "" {
		owner = current.Class.Name
	}
	c.events.Emit(Event{Type: EventShowMember, Class: owner, Member: memberID})
}

func (c *Controller) settings() Settings {
	return Settings{
		Grouping:    c.tree.Strategy(),
		ShowPrivate: c.tree.ShowPrivate(),
		Text:        c.filter.Text(),
		Show:        c.filter.Show(),
	}
}

func (c *Controller) filterResult(doc *types.ClassDocument) FilterResult {
	text, show := c.filter.Text(), c.filter.Show()
	return FilterResult{
		Text:   text,
		Show:   show,
		Hidden: c.filter.Hidden(doc.Members),
		Groups: members.FilterGroups(c.groups, text, show),
	}
}

func (c *Controller) changeFilter(text string, show members.ShowFlags) error {
	previous := c.filter.Show()
	c.filter.Set(text, show)

	var err error
	if c.prefs != nil && previous != show {
		err = c.prefs.SetShow(show)
	}

	if doc := c.State().Class; doc != nil && c.State().Phase == PhaseDisplaying {
		c.view.FilterMembers(c.filterResult(doc))
	}
	return err
}

func (c *Controller) setGrouping(strategy tree.Strategy) error {
	c.tree.SetStrategy(strategy)
	c.refreshTree()
	if c.prefs != nil {
		return c.prefs.SetGrouping(strategy)
	}
	return nil
}

func (c *Controller) setShowPrivate(show bool) error {
	c.tree.SetShowPrivate(show)
	c.refreshTree()
	if c.prefs != nil {
		return c.prefs.SetShowPrivate(show)
	}
	return nil
}

func (c *Controller) reloadClasses(classes []types.ClassSummary) {
	c.tree.SetClasses(classes)
	c.refreshTree()
	c.logger.Info(context.Background(), "Class list reloaded", "classes", len(classes))
}

// refreshTree pushes a rebuilt tree, and the index categories when the
// index is showing.
func (c *Controller) refreshTree() {
	c.view.ShowTree(c.tree.Root(), c.tree.Selected())
	if current := c.State(); current.Phase == PhaseIndex && current.Failed == "" {
		c.view.ShowIndex(c.indexData())
	}
}

func (c *Controller) closeTab(raw string) {
	target, err := ParseURL(raw)
	if err != nil {
		c.scroll.Erase(raw)
		return
	}
	c.scroll.Erase(target.ScrollKey())
}
