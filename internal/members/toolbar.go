package members

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/docview/internal/types"
)

// Link references one member from a toolbar menu.
type Link struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Label     string     `json:"label"`
	Inherited bool       `json:"inherited"`
	Meta      types.Meta `json:"meta"`
}

// Group is the menu of one member type.
type Group struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Links []Link `json:"links"`
}

// NewLink creates the link record of a member of class. The url is the
// class name and member id joined by a dash, as used in class URLs.
func NewLink(class string, m types.Member) Link {
	return Link{
		ID:        m.ID,
		URL:       class + "-" + m.ID,
		Label:     m.Name,
		Inherited: m.Owner != "" && m.Owner != class,
		Meta:      m.Meta,
	}
}

// Groups builds one group per member type that has members, in the order of
// memberTypes. Without member types the tagnames of the document are used in
// order of first appearance.
func Groups(doc *types.ClassDocument, memberTypes []types.MemberType) []Group {
	if doc == nil {
		return nil
	}
	if len(memberTypes) == 0 {
		memberTypes = typesOf(doc.Members)
	}

	var groups []Group
	for _, mt := range memberTypes {
		var list []types.Member
		for _, m := range doc.Members {
			if m.Tagname == mt.Name {
				list = append(list, m)
			}
		}
		if len(list) == 0 {
			continue
		}
		sortMembers(list)

		links := make([]Link, len(list))
		for i, m := range list {
			links[i] = NewLink(doc.Name, m)
		}
		groups = append(groups, Group{Type: mt.Name, Title: Title(mt), Links: links})
	}
	return groups
}

// Title returns the toolbar label of a member type.
func Title(mt types.MemberType) string {
	switch {
	case mt.ToolbarTitle != "":
		return mt.ToolbarTitle
	case mt.Title != "":
		return mt.Title
	default:
		return cases.Title(language.English).String(strings.ReplaceAll(mt.Name, "_", " "))
	}
}

// sortMembers orders by name with the constructor method first.
func sortMembers(list []types.Member) {
	isCtor := func(m types.Member) bool {
		return m.Tagname == "method" && m.Name == "constructor"
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if isCtor(a) != isCtor(b) {
			return isCtor(a)
		}
		return a.Name < b.Name
	})
}

func typesOf(members []types.Member) []types.MemberType {
	seen := map[string]bool{}
	var out []types.MemberType
	for _, m := range members {
		if m.Tagname == "" || seen[m.Tagname] {
			continue
		}
		seen[m.Tagname] = true
		out = append(out, types.MemberType{Name: m.Tagname})
	}
	return out
}

// FilterGroups applies the member filter to toolbar links. Groups keep their
// place even when every link is filtered out so the toolbar does not shift.
func FilterGroups(groups []Group, text string, show ShowFlags) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		links := make([]Link, 0, len(g.Links))
		for _, l := range g.Links {
			if !show.Excludes(l.Meta) && Matches(l.Label, text) {
				links = append(links, l)
			}
		}
		out[i] = Group{Type: g.Type, Title: g.Title, Links: links}
	}
	return out
}
