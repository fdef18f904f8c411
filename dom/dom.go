// Package dom wraps golang.org/x/net/html with the document model used
// across the pipeline.
//
// A Document is a mutable ordered tree owned by exactly one pipeline
// stage at a time; ownership transfers at stage boundaries, so no
// locking happens here. Nodes are addressed with path Locators that are
// only valid against the tree shape they were computed from.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is one parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse builds a Document from raw HTML. The x/net/html parser never
// fails on real-world input; an error here means the reader failed.
func Parse(raw []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse([]byte(s))
}

// Root returns the document root node.
func (d *Document) Root() *html.Node { return d.root }

// HTML serialises the full document back to text.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	html.Render(&buf, d.root)
	return buf.String()
}

// RenderNode serialises a node subtree to a string.
func RenderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}

// Walk visits n and its subtree in document order. The callback returns
// false to skip the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// FindFirst returns the first node in document order matching fn.
func (d *Document) FindFirst(fn func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(d.root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if fn(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node in document order matching fn.
func (d *Document) FindAll(fn func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(d.root, func(n *html.Node) bool {
		if fn(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Body returns the <body> element, or the root if the document has none.
func (d *Document) Body() *html.Node {
	if n := d.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	}); n != nil {
		return n
	}
	return d.root
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *html.Node {
	return d.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Head
	})
}

// Title extracts the page <title> text.
func (d *Document) Title() string {
	n := d.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Title
	})
	if n == nil || n.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

// Text extracts all visible text from a node subtree, skipping script,
// style and noscript.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces an attribute value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether the node's class attribute contains name.
func HasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// Remove detaches a node from its parent. No-op for parentless nodes.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// AppendFragment parses an HTML fragment and appends the resulting
// nodes as children of parent.
func AppendFragment(parent *html.Node, fragment string) error {
	nodes, err := parseFragment(parent, fragment)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// PrependFragment parses an HTML fragment and inserts the resulting
// nodes before parent's first child.
func PrependFragment(parent *html.Node, fragment string) error {
	nodes, err := parseFragment(parent, fragment)
	if err != nil {
		return err
	}
	first := parent.FirstChild
	for _, n := range nodes {
		if first != nil {
			parent.InsertBefore(n, first)
		} else {
			parent.AppendChild(n)
		}
	}
	return nil
}

func parseFragment(parent *html.Node, fragment string) ([]*html.Node, error) {
	ctx := parent
	if ctx.Type != html.ElementNode {
		ctx = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}
