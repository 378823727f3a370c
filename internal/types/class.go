// Package types provides common type definitions used throughout docview.
// This package contains shared types to avoid circular dependencies between packages.
package types

import (
	"bytes"
	"encoding/json"
)

// ClassSummary is one entry of the class index. It carries just enough to
// build the class tree and resolve names without fetching full documents.
type ClassSummary struct {
	// Name is the canonical class name (e.g., "Ext.panel.Panel")
	Name string `json:"name" yaml:"name"`
	// Extends names the direct superclass, empty for root classes
	Extends string `json:"extends,omitempty" yaml:"extends,omitempty"`
	// Private marks classes hidden unless private classes are shown
	Private bool `json:"private,omitempty" yaml:"private,omitempty"`
	// Icon is the CSS icon class used by the tree and header
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
	// AlternateNames are legacy names that resolve to this class
	AlternateNames []string `json:"alternateClassNames,omitempty" yaml:"alternate_names,omitempty"`
}

// MemberType describes one kind of class member (cfg, property, method, ...).
type MemberType struct {
	Name         string `json:"name"`
	Title        string `json:"title,omitempty"`
	ToolbarTitle string `json:"toolbar_title,omitempty"`
}

// ClassIndex is the decoded class index file.
type ClassIndex struct {
	Classes     []ClassSummary `json:"classes"`
	MemberTypes []MemberType   `json:"memberTypes,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// ClassDocument is the full documentation of one class. Documents are
// immutable once fetched.
type ClassDocument struct {
	// Name is the canonical class name and the cache key
	Name string `json:"name"`
	// Extends names the direct superclass
	Extends string `json:"extends,omitempty"`
	// HTML is the pre-rendered class body produced by the doc generator
	HTML string `json:"html,omitempty"`
	// Members lists all members, inherited ones included, in document order
	Members []Member `json:"members"`
	// Files are the source files the class was extracted from
	Files []SourceFile `json:"files,omitempty"`
	// Aliases maps alias namespaces to names, e.g. "widget" -> ["panel"]
	Aliases map[string][]string `json:"aliases,omitempty"`
	// Meta holds class-level tags (private, deprecated, singleton, ...)
	Meta Meta `json:"meta,omitempty"`
	// Enum is set when the class documents an enumeration
	Enum *EnumInfo `json:"enum,omitempty"`
}

// EnumInfo describes the value type of an enum class.
type EnumInfo struct {
	Type string `json:"type"`
}

// SourceFile references a file the class was defined in.
type SourceFile struct {
	Filename string `json:"filename"`
	Href     string `json:"href"`
}

// Member documents a single class member.
type Member struct {
	// ID is unique within the class, in the form "<tagname>-<name>"
	ID string `json:"id"`
	// Tagname is the member kind: cfg, property, method, event, css_var, ...
	Tagname string `json:"tagname"`
	Name    string `json:"name"`
	// Owner is the class that declared the member; differs from the
	// documented class for inherited members
	Owner    string `json:"owner"`
	Meta     Meta   `json:"meta,omitempty"`
	ShortDoc string `json:"shortDoc,omitempty"`
}

// Member returns the member with the given id.
func (d *ClassDocument) Member(id string) (Member, bool) {
	for _, m := range d.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Meta is the set of boolean tags attached to a class or member.
type Meta struct {
	Private    bool `json:"private,omitempty"`
	Protected  bool `json:"protected,omitempty"`
	Deprecated bool `json:"deprecated,omitempty"`
	Internal   bool `json:"internal,omitempty"`
	Static     bool `json:"static,omitempty"`
	Removed    bool `json:"removed,omitempty"`
	Singleton  bool `json:"singleton,omitempty"`
	Template   bool `json:"template,omitempty"`
	Abstract   bool `json:"abstract,omitempty"`
}

// UnmarshalJSON treats every tag as present-or-absent. Generators store
// some tags as objects (deprecated carries a version and text), so any
// value other than null or false sets the flag.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	flag := func(key string) bool {
		v, ok := raw[key]
		if !ok {
			return false
		}
		v = bytes.TrimSpace(v)
		return !bytes.Equal(v, []byte("null")) && !bytes.Equal(v, []byte("false"))
	}

	*m = Meta{
		Private:    flag("private"),
		Protected:  flag("protected"),
		Deprecated: flag("deprecated"),
		Internal:   flag("internal"),
		Static:     flag("static"),
		Removed:    flag("removed"),
		Singleton:  flag("singleton"),
		Template:   flag("template"),
		Abstract:   flag("abstract"),
	}
	return nil
}

// Tags returns the names of the set flags in a stable order.
func (m Meta) Tags() []string {
	var tags []string
	for _, t := range []struct {
		name string
		set  bool
	}{
		{"private", m.Private},
		{"protected", m.Protected},
		{"deprecated", m.Deprecated},
		{"internal", m.Internal},
		{"static", m.Static},
		{"removed", m.Removed},
		{"singleton", m.Singleton},
		{"template", m.Template},
		{"abstract", m.Abstract},
	} {
		if t.set {
			tags = append(tags, t.name)
		}
	}
	return tags
}

// ClassURLPrefix starts every navigable class URL.
const ClassURLPrefix = "#!/class/"

// ClassURL returns the navigation URL of a class, optionally anchored at a
// member.
func ClassURL(class, memberID string) string {
	if memberID == "" {
		return ClassURLPrefix + class
	}
	return ClassURLPrefix + class + "-" + memberID
}
