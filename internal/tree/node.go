// Package tree turns the flat class list into the navigable class tree shown
// beside the content, grouped either by package or by inheritance.
package tree

import (
	"sort"
	"strings"
)

// Node is one entry of the class tree. A node without children is a class
// leaf; a node with children groups others and is navigable only when it
// also carries a URL.
type Node struct {
	Text     string  `json:"text" yaml:"text"`
	URL      string  `json:"url,omitempty" yaml:"url,omitempty"`
	IconCls  string  `json:"iconCls,omitempty" yaml:"icon,omitempty"`
	Private  bool    `json:"private,omitempty" yaml:"private,omitempty"`
	Expanded bool    `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	Children []*Node `json:"children" yaml:"children,omitempty"`
}

// Leaf reports whether the node has no children
func (n *Node) Leaf() bool {
	return len(n.Children) == 0
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// FindByURL returns the first node carrying url
func FindByURL(root *Node, url string) *Node {
	path := PathTo(root, url)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// PathTo returns the chain of nodes from root down to the node carrying url,
// or nil when no node does.
func PathTo(root *Node, url string) []*Node {
	if root == nil || url == "" {
		return nil
	}
	if root.URL == url {
		return []*Node{root}
	}
	for _, child := range root.Children {
		if path := PathTo(child, url); path != nil {
			return append([]*Node{root}, path...)
		}
	}
	return nil
}

// ExpandLonelyNode expands the only top-level node that has children, if
// there is exactly one.
func ExpandLonelyNode(root *Node) {
	if root == nil {
		return
	}
	var expandable []*Node
	for _, child := range root.Children {
		if !child.Leaf() {
			expandable = append(expandable, child)
		}
	}
	if len(expandable) == 1 {
		expandable[0].Expanded = true
	}
}

// sortChildren orders every level alphabetically, ignoring case. Exact text
// breaks ties so the order is total.
func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i].Text, n.Children[j].Text
		la, lb := strings.ToLower(a), strings.ToLower(b)
		if la != lb {
			return la < lb
		}
		return a < b
	})
	for _, child := range n.Children {
		sortChildren(child)
	}
}
