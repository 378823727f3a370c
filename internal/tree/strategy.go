package tree

import (
	"fmt"
	"strings"

	"github.com/conneroisu/docview/internal/types"
)

// Strategy selects how classes are grouped.
type Strategy int

const (
	// ByPackage nests classes under their dotted namespaces.
	ByPackage Strategy = iota
	// ByInheritance nests each class under its superclass.
	ByInheritance
)

// Options parameterize a build
type Options struct {
	ShowPrivate bool
}

// ParseStrategy accepts the short names used in config and flags as well as
// the persisted setting values of older installs.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "package", "packagelogic":
		return ByPackage, nil
	case "inheritance", "inheritancelogic":
		return ByInheritance, nil
	default:
		return ByPackage, fmt.Errorf("unknown grouping %q (supported: package, inheritance)", s)
	}
}

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case ByPackage:
		return "package"
	case ByInheritance:
		return "inheritance"
	default:
		return "unknown"
	}
}

// Build creates the tree for classes. The result is sorted and has its lonely
// top-level node expanded.
func (s Strategy) Build(classes []types.ClassSummary, opts Options) *Node {
	var root *Node
	switch s {
	case ByInheritance:
		root = buildInheritance(classes, opts)
	default:
		root = buildPackages(classes, opts)
	}
	sortChildren(root)
	ExpandLonelyNode(root)
	return root
}

func visible(class types.ClassSummary, opts Options) bool {
	return opts.ShowPrivate || !class.Private
}

func classNode(class types.ClassSummary, text string) *Node {
	icon := class.Icon
	if icon == "" {
		icon = "icon-class"
	}
	return &Node{
		Text:     text,
		URL:      types.ClassURL(class.Name, ""),
		IconCls:  icon,
		Private:  class.Private,
		Children: []*Node{},
	}
}

// dedupe keeps the first summary of every name.
func dedupe(classes []types.ClassSummary) []types.ClassSummary {
	seen := make(map[string]bool, len(classes))
	out := make([]types.ClassSummary, 0, len(classes))
	for _, c := range classes {
		if c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}
