package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Locator addresses one node as a child-index path from the document
// root. Locators are ephemeral coordinates: any edit that changes tree
// shape invalidates every locator computed before it, so stages must
// re-derive them rather than cache them across boundaries.
type Locator []int

// String renders the locator as "0/1/3".
func (l Locator) String() string {
	parts := make([]string, len(l))
	for i, idx := range l {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// ParseLocator parses the "0/1/3" form.
func ParseLocator(s string) (Locator, error) {
	if s == "" {
		return Locator{}, nil
	}
	parts := strings.Split(s, "/")
	l := make(Locator, len(parts))
	for i, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("dom: bad locator %q", s)
		}
		l[i] = idx
	}
	return l, nil
}

// Locate computes the locator of a node within the document. Returns
// nil when the node is not attached to this document's tree.
func (d *Document) Locate(target *html.Node) Locator {
	var path Locator
	for n := target; n != d.root; n = n.Parent {
		if n == nil {
			return nil
		}
		idx := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			idx++
		}
		path = append(Locator{idx}, path...)
	}
	return path
}

// Resolve walks the locator from the root. Returns nil when the path
// runs off the current tree shape (stale locator).
func (d *Document) Resolve(l Locator) *html.Node {
	n := d.root
	for _, idx := range l {
		c := n.FirstChild
		for i := 0; i < idx && c != nil; i++ {
			c = c.NextSibling
		}
		if c == nil {
			return nil
		}
		n = c
	}
	return n
}
