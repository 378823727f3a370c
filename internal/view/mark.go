package view

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Marks are the per-member classes applied to rendered class HTML.
type Marks struct {
	Expanded    map[string]bool
	Hidden      map[string]bool
	Highlighted string
}

const (
	classOpen        = "open"
	classHighlighted = "highlighted"
	classHidden      = "filtered"
)

// MarkMembers sets the open, highlighted and filtered classes on the member
// elements of an HTML fragment. Member elements carry the member id and the
// "member" class.
func MarkMembers(fragment string, marks Marks) (string, error) {
	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return "", err
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			markNode(n, marks)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		visit(n)
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func markNode(n *html.Node, marks Marks) {
	id, cls := -1, -1
	for i, a := range n.Attr {
		switch a.Key {
		case "id":
			id = i
		case "class":
			cls = i
		}
	}
	if id < 0 || cls < 0 {
		return
	}
	classes := strings.Fields(n.Attr[cls].Val)
	if !contains(classes, "member") {
		return
	}

	memberID := n.Attr[id].Val
	kept := classes[:0]
	for _, c := range classes {
		if c != classOpen && c != classHighlighted && c != classHidden {
			kept = append(kept, c)
		}
	}
	if marks.Expanded[memberID] {
		kept = append(kept, classOpen)
	}
	if marks.Highlighted == memberID {
		kept = append(kept, classHighlighted)
	}
	if marks.Hidden[memberID] {
		kept = append(kept, classHidden)
	}
	n.Attr[cls].Val = strings.Join(kept, " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
