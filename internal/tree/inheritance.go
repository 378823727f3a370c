package tree

import (
	"sort"

	"github.com/conneroisu/docview/internal/types"
)

// buildInheritance nests every visible class under its nearest visible
// superclass. Hidden superclasses are skipped over and classes whose chain
// leads nowhere become roots. Superclass cycles cannot loop: any class not
// reached from a root is promoted to a root in name order.
func buildInheritance(classes []types.ClassSummary, opts Options) *Node {
	all := dedupe(classes)
	byName := make(map[string]types.ClassSummary, len(all))
	for _, c := range all {
		byName[c.Name] = c
	}

	var names []string
	children := make(map[string][]string)
	var roots []string
	for _, c := range all {
		if !visible(c, opts) {
			continue
		}
		names = append(names, c.Name)
		if parent := visibleAncestor(c, byName, opts); parent != "" {
			children[parent] = append(children[parent], c.Name)
		} else {
			roots = append(roots, c.Name)
		}
	}

	root := &Node{Children: []*Node{}}
	placed := make(map[string]bool, len(names))

	var attach func(parent *Node, name string)
	attach = func(parent *Node, name string) {
		if placed[name] {
			return
		}
		placed[name] = true
		n := classNode(byName[name], name)
		parent.Children = append(parent.Children, n)
		for _, child := range children[name] {
			attach(n, child)
		}
	}

	for _, name := range roots {
		attach(root, name)
	}

	sort.Strings(names)
	for _, name := range names {
		attach(root, name)
	}
	return root
}

// visibleAncestor walks the superclass chain of c and returns the first
// visible class on it, or "" when the chain ends, leaves the class list or
// comes back on itself.
func visibleAncestor(c types.ClassSummary, byName map[string]types.ClassSummary, opts Options) string {
	seen := map[string]bool{c.Name: true}
	next := c.Extends
	for next != "" && !seen[next] {
		seen[next] = true
		parent, ok := byName[next]
		if !ok {
			return ""
		}
		if visible(parent, opts) {
			return parent.Name
		}
		next = parent.Extends
	}
	return ""
}
