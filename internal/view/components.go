package view

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/docview/internal/members"
	"github.com/conneroisu/docview/internal/tree"
	"github.com/conneroisu/docview/internal/types"
)

// aliasTitles renames alias namespaces in the class header.
var aliasTitles = map[string]string{
	"widget":  "xtype",
	"plugin":  "ptype",
	"feature": "ftype",
}

// AliasText formats class aliases as "xtype: panel, ptype: grid". Namespaces
// are listed in name order.
func AliasText(aliases map[string][]string) string {
	namespaces := make([]string, 0, len(aliases))
	for ns := range aliases {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	parts := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		names := aliases[ns]
		if len(names) == 0 {
			continue
		}
		title, ok := aliasTitles[ns]
		if !ok {
			title = ns
		}
		parts = append(parts, title+": "+strings.Join(names, ", "))
	}
	return strings.Join(parts, ", ")
}

// write writes the concatenation of parts, stopping at the first error.
func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// Header renders the class name, enum type, aliases, meta tags and source
// files of a class.
func Header(doc *types.ClassDocument, icon string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if icon == "" {
			icon = "icon-class"
		}
		if err := write(w, `<div class="classheader"><h1 class="`, esc(icon), `">`,
			`<strong class="class-source-link">`, esc(doc.Name), `</strong>`); err != nil {
			return err
		}
		if doc.Enum != nil {
			if err := write(w, `<span class="enum">enum of <b>`, esc(doc.Enum.Type), `</b></span>`); err != nil {
				return err
			}
		}
		if aliases := AliasText(doc.Aliases); aliases != "" {
			if err := write(w, `<span class="xtype">`, esc(aliases), `</span>`); err != nil {
				return err
			}
		}
		for _, tag := range doc.Meta.Tags() {
			if err := write(w, ` <span class="signature `, tag, `">`, tag, `</span>`); err != nil {
				return err
			}
		}
		if err := write(w, `</h1>`); err != nil {
			return err
		}

		if len(doc.Files) > 0 {
			if err := write(w, `<ul class="files">`); err != nil {
				return err
			}
			for _, f := range doc.Files {
				if err := write(w, `<li><a href="source/`, esc(f.Href), `" target="_blank">`, esc(f.Filename), `</a></li>`); err != nil {
					return err
				}
			}
			if err := write(w, `</ul>`); err != nil {
				return err
			}
		}
		return write(w, `</div>`)
	})
}

// Toolbar renders one menu per member group.
func Toolbar(groups []members.Group) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<div class="members-toolbar">`); err != nil {
			return err
		}
		for _, g := range groups {
			if err := write(w, `<div class="member-menu" data-type="`, esc(g.Type), `"><span class="title">`,
				esc(g.Title), ` <span class="count">`, fmt.Sprint(len(g.Links)), `</span></span><ul>`); err != nil {
				return err
			}
			for _, link := range g.Links {
				cls := "member-link"
				if link.Inherited {
					cls += " inherited"
				}
				if err := write(w, `<li><a class="`, cls, `" href="`, esc(types.ClassURLPrefix+link.URL), `" data-member="`,
					esc(link.ID), `">`, esc(link.Label), `</a></li>`); err != nil {
					return err
				}
			}
			if err := write(w, `</ul></div>`); err != nil {
				return err
			}
		}
		return write(w, `</div>`)
	})
}

// Overview renders the class body. Generated HTML shipped with the document
// is used as is; otherwise a member list is built from the members.
func Overview(doc *types.ClassDocument) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<div class="class-overview">`); err != nil {
			return err
		}
		if doc.HTML != "" {
			if err := write(w, doc.HTML); err != nil {
				return err
			}
			return write(w, `</div>`)
		}

		for _, m := range doc.Members {
			cls := "member " + m.Tagname
			if m.Owner != "" && m.Owner != doc.Name {
				cls += " inherited"
			}
			if err := write(w, `<div id="`, esc(m.ID), `" class="`, esc(cls), `">`,
				`<a class="name" href="`, esc(types.ClassURL(doc.Name, m.ID)), `">`, esc(m.Name), `</a>`); err != nil {
				return err
			}
			if m.Owner != "" && m.Owner != doc.Name {
				if err := write(w, `<span class="defined-in">`, esc(m.Owner), `</span>`); err != nil {
					return err
				}
			}
			if m.ShortDoc != "" {
				if err := write(w, `<div class="short">`, esc(m.ShortDoc), `</div>`); err != nil {
					return err
				}
			}
			if err := write(w, `</div>`); err != nil {
				return err
			}
		}
		return write(w, `</div>`)
	})
}

// ClassPage renders the full content panel of a class.
func ClassPage(doc *types.ClassDocument, icon string, groups []members.Group) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range []templ.Component{Header(doc, icon), Toolbar(groups), Overview(doc)} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// NotFound renders the message shown when a class fails to load.
func NotFound(class string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return write(w, `<div class="not-found">Class <b>`, esc(class), `</b> was not found.</div>`)
	})
}

// Index renders the class index page. notice is trusted HTML.
func Index(title, notice string, categories []*tree.Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<div class="class-index"><h1>`, esc(title), `</h1>`); err != nil {
			return err
		}
		if notice != "" {
			if err := write(w, `<div class="notice">`, notice, `</div>`); err != nil {
				return err
			}
		}
		for _, cat := range categories {
			if err := write(w, `<div class="category"><h2>`, esc(cat.Text), `</h2><ul>`); err != nil {
				return err
			}
			items := cat.Children
			if len(items) == 0 {
				items = []*tree.Node{cat}
			}
			for _, item := range items {
				if item.URL == "" {
					if err := write(w, `<li class="`, esc(item.IconCls), `">`, esc(item.Text), `</li>`); err != nil {
						return err
					}
					continue
				}
				if err := write(w, `<li class="`, esc(item.IconCls), `"><a href="`, esc(item.URL), `">`,
					esc(item.Text), `</a></li>`); err != nil {
					return err
				}
			}
			if err := write(w, `</ul></div>`); err != nil {
				return err
			}
		}
		return write(w, `</div>`)
	})
}

// TreeView renders the class tree as nested lists. Collapsed nodes keep
// their children in the markup; the tab only toggles visibility.
func TreeView(root *tree.Node, selected string) templ.Component {
	var node func(ctx context.Context, w io.Writer, n *tree.Node) error
	node = func(ctx context.Context, w io.Writer, n *tree.Node) error {
		var cls []string
		if n.IconCls != "" {
			cls = append(cls, n.IconCls)
		}
		if n.Private {
			cls = append(cls, "private")
		}
		if n.Expanded {
			cls = append(cls, "expanded")
		}
		if n.URL != "" && n.URL == selected {
			cls = append(cls, "selected")
		}
		if err := write(w, `<li class="`, esc(strings.Join(cls, " ")), `">`); err != nil {
			return err
		}
		if n.URL != "" {
			if err := write(w, `<a href="`, esc(n.URL), `">`, esc(n.Text), `</a>`); err != nil {
				return err
			}
		} else if err := write(w, `<span>`, esc(n.Text), `</span>`); err != nil {
			return err
		}
		if len(n.Children) > 0 {
			if err := write(w, `<ul>`); err != nil {
				return err
			}
			for _, c := range n.Children {
				if err := node(ctx, w, c); err != nil {
					return err
				}
			}
			if err := write(w, `</ul>`); err != nil {
				return err
			}
		}
		return write(w, `</li>`)
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w, `<ul class="class-tree">`); err != nil {
			return err
		}
		if root != nil {
			for _, c := range root.Children {
				if err := node(ctx, w, c); err != nil {
					return err
				}
			}
		}
		return write(w, `</ul>`)
	})
}
