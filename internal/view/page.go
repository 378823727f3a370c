package view

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/navigation"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
)

// IconSource looks up the tree icon of a class.
type IconSource interface {
	Get(name string) (types.ClassSummary, bool)
}

// Options configures a Page.
type Options struct {
	// Title heads the index page
	Title string
	// Notice is markdown shown on the index page. The index message is used
	// when it is empty.
	Notice string
	Icons  IconSource
	Logger logging.Logger
}

// Page is the server-side model of one browser tab.
type Page struct {
	opts      Options
	publisher Publisher
	logger    logging.Logger

	offset      int
	loading     bool
	title       string
	content     string
	doc         *types.ClassDocument
	expanded    map[string]bool
	hidden      map[string]bool
	highlighted string
	treeHTML    string
	selected    string
	settings    Settings
	mutex       sync.RWMutex
}

var _ navigation.View = (*Page)(nil)

// NewPage creates a page pushing its updates to publisher
func NewPage(publisher Publisher, opts Options) *Page {
	if opts.Title == "" {
		opts.Title = "API Documentation"
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.WithComponent("view")
	}
	return &Page{
		opts:      opts,
		publisher: publisher,
		logger:    logger,
		expanded:  make(map[string]bool),
		hidden:    make(map[string]bool),
	}
}

func (p *Page) publish(kind, target, content string) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(UpdateMessage{
		Type:      kind,
		Target:    target,
		Content:   content,
		Timestamp: time.Now(),
	})
}

func (p *Page) render(c templ.Component) string {
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		if p.logger != nil {
			p.logger.Error(context.Background(), err, "render failed")
		}
		return ""
	}
	return buf.String()
}

// ScrollOffset returns the last known scroll offset
func (p *Page) ScrollOffset() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.offset
}

// ScrollTo scrolls the tab to offset
func (p *Page) ScrollTo(offset int) {
	p.mutex.Lock()
	p.offset = offset
	p.mutex.Unlock()
	p.publish(UpdateScroll, "", strconv.Itoa(offset))
}

// TrackScroll records an offset reported by the tab without echoing it back
func (p *Page) TrackScroll(offset int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.offset = offset
}

// SetMemberExpanded opens or closes one member
func (p *Page) SetMemberExpanded(id string, expanded bool) {
	p.mutex.Lock()
	if expanded {
		p.expanded[id] = true
	} else {
		delete(p.expanded, id)
	}
	p.mutex.Unlock()
	p.publish(UpdateExpand, id, strconv.FormatBool(expanded))
}

// IsMemberExpanded reports whether the member is open
func (p *Page) IsMemberExpanded(id string) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.expanded[id]
}

// SetAllMembersExpanded opens or closes every member of the displayed class.
func (p *Page) SetAllMembersExpanded(expanded bool) {
	p.mutex.Lock()
	p.expanded = make(map[string]bool)
	if expanded && p.doc != nil {
		for _, m := range p.doc.Members {
			p.expanded[m.ID] = true
		}
	}
	p.mutex.Unlock()
	p.publish(UpdateExpandAll, "", strconv.FormatBool(expanded))
}

// SetLoading shows or hides the loading indicator
func (p *Page) SetLoading(loading bool) {
	p.mutex.Lock()
	changed := p.loading != loading
	p.loading = loading
	p.mutex.Unlock()
	if changed {
		p.publish(UpdateLoading, "", strconv.FormatBool(loading))
	}
}

// SetPageTitle sets the document title
func (p *Page) SetPageTitle(title string) {
	p.mutex.Lock()
	p.title = title
	p.mutex.Unlock()
	p.publish(UpdateTitle, "", title)
}

// ShowIndex replaces the content with the class index.
func (p *Page) ShowIndex(data navigation.IndexData) {
	notice := ""
	source := p.opts.Notice
	if source == "" {
		source = data.Message
	}
	if source != "" {
		html, err := RenderNotice(source)
		if err != nil && p.logger != nil {
			p.logger.Warn(context.Background(), err, "index notice not rendered")
		}
		notice = html
	}

	content := p.render(Index(p.opts.Title, notice, data.Categories))

	p.mutex.Lock()
	p.resetContent(content, nil)
	p.title = p.opts.Title
	p.mutex.Unlock()
	p.publish(UpdateIndex, navigation.IndexURL, content)
	p.publish(UpdateScroll, "", "0")
}

// RenderClass replaces the content with a class.
func (p *Page) RenderClass(doc *types.ClassDocument, groups []members.Group) {
	icon := ""
	if p.opts.Icons != nil {
		if summary, ok := p.opts.Icons.Get(doc.Name); ok {
			icon = summary.Icon
		}
	}
	content := p.render(ClassPage(doc, icon, groups))

	p.mutex.Lock()
	p.resetContent(content, doc)
	p.mutex.Unlock()
	p.publish(UpdateClass, types.ClassURL(doc.Name, ""), content)
	p.publish(UpdateScroll, "", "0")
}

// ShowNotFound replaces the content with the not-found message
func (p *Page) ShowNotFound(class string) {
	content := p.render(NotFound(class))

	p.mutex.Lock()
	p.resetContent(content, nil)
	p.mutex.Unlock()
	p.publish(UpdateNotFound, class, content)
	p.publish(UpdateScroll, "", "0")
}

// resetContent must be called with the mutex held. New content starts at
// the top.
func (p *Page) resetContent(content string, doc *types.ClassDocument) {
	p.content = content
	p.doc = doc
	p.offset = 0
	p.expanded = make(map[string]bool)
	p.hidden = make(map[string]bool)
	p.highlighted = ""
}

// ScrollToMember highlights the member and scrolls it into view
func (p *Page) ScrollToMember(id string) {
	p.mutex.Lock()
	p.highlighted = id
	p.mutex.Unlock()
	p.publish(UpdateAnchor, id, "")
}

// filterUpdate is the content of a filter update.
type filterUpdate struct {
	Text   string            `json:"text"`
	Show   members.ShowFlags `json:"show"`
	Hidden []string          `json:"hidden"`
	Counts map[string]int    `json:"counts"`
}

// FilterMembers hides the members that do not pass the filter.
func (p *Page) FilterMembers(result navigation.FilterResult) {
	hidden := make(map[string]bool, len(result.Hidden))
	for _, id := range result.Hidden {
		hidden[id] = true
	}
	counts := make(map[string]int, len(result.Groups))
	for _, g := range result.Groups {
		counts[g.Type] = len(g.Links)
	}

	p.mutex.Lock()
	p.hidden = hidden
	p.mutex.Unlock()

	body, err := json.Marshal(filterUpdate{
		Text:   result.Text,
		Show:   result.Show,
		Hidden: append([]string{}, result.Hidden...),
		Counts: counts,
	})
	if err != nil {
		return
	}
	p.publish(UpdateFilter, "", string(body))
}

// Settings is the content of a settings update.
type Settings struct {
	Grouping    string            `json:"grouping"`
	ShowPrivate bool              `json:"showPrivate"`
	Text        string            `json:"text"`
	Show        members.ShowFlags `json:"show"`
}

// ShowSettings seeds the tab's grouping, private class and member filter
// controls.
func (p *Page) ShowSettings(settings navigation.Settings) {
	s := Settings{
		Grouping:    settings.Grouping.String(),
		ShowPrivate: settings.ShowPrivate,
		Text:        settings.Text,
		Show:        settings.Show,
	}
	p.mutex.Lock()
	p.settings = s
	p.mutex.Unlock()

	body, err := json.Marshal(s)
	if err != nil {
		return
	}
	p.publish(UpdateSettings, "", string(body))
}

// ShowTree replaces the class tree
func (p *Page) ShowTree(root *tree.Node, selected string) {
	content := p.render(TreeView(root, selected))

	p.mutex.Lock()
	p.treeHTML = content
	p.selected = selected
	p.mutex.Unlock()
	p.publish(UpdateTree, selected, content)
}

// SelectTreeURL selects the tree node with url, or clears the selection
func (p *Page) SelectTreeURL(url string) {
	p.mutex.Lock()
	p.selected = url
	p.mutex.Unlock()
	p.publish(UpdateSelect, url, "")
}

// OpenWindow asks the tab to open url in a new window
func (p *Page) OpenWindow(url string) {
	p.publish(UpdateOpen, url, "")
}

// Snapshot is the state of the page, used to resync a reconnected tab.
type Snapshot struct {
	Title    string   `json:"title"`
	Loading  bool     `json:"loading"`
	Content  string   `json:"content"`
	Tree     string   `json:"tree"`
	Selected string   `json:"selected"`
	Offset   int      `json:"offset"`
	Settings Settings `json:"settings"`
}

// Snapshot returns the page with member marks applied to the content.
func (p *Page) Snapshot() (Snapshot, error) {
	p.mutex.RLock()
	snap := Snapshot{
		Title:    p.title,
		Loading:  p.loading,
		Content:  p.content,
		Tree:     p.treeHTML,
		Selected: p.selected,
		Offset:   p.offset,
		Settings: p.settings,
	}
	marks := Marks{
		Expanded:    copySet(p.expanded),
		Hidden:      copySet(p.hidden),
		Highlighted: p.highlighted,
	}
	marked := p.doc != nil
	p.mutex.RUnlock()

	if marked {
		content, err := MarkMembers(snap.Content, marks)
		if err != nil {
			return snap, err
		}
		snap.Content = content
	}
	return snap, nil
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
