package tree

import (
	"strings"

	"github.com/conneroisu/docview/internal/types"
)

const packageIcon = "icon-pkg"

// buildPackages nests classes under one node per namespace segment. A class
// whose name is also a namespace (Ext next to Ext.Base) becomes that
// namespace node, so each class still owns exactly one node.
func buildPackages(classes []types.ClassSummary, opts Options) *Node {
	root := &Node{Children: []*Node{}}
	nodes := map[string]*Node{"": root}

	var ensure func(path string) *Node
	ensure = func(path string) *Node {
		if n, ok := nodes[path]; ok {
			return n
		}
		parentPath, text := "", path
		if i := strings.LastIndex(path, "."); i >= 0 {
			parentPath, text = path[:i], path[i+1:]
		}
		parent := ensure(parentPath)
		n := &Node{Text: text, IconCls: packageIcon, Children: []*Node{}}
		parent.Children = append(parent.Children, n)
		nodes[path] = n
		return n
	}

	for _, class := range dedupe(classes) {
		if !visible(class, opts) {
			continue
		}
		n := ensure(class.Name)
		leaf := classNode(class, n.Text)
		n.URL = leaf.URL
		n.IconCls = leaf.IconCls
		n.Private = leaf.Private
	}
	return root
}
