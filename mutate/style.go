package mutate

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/refonte/dom"
)

// rewriteStyles substitutes color/font tokens by exact string match
// inside <style> blocks and inline style attributes. Unmatched tokens
// are left untouched and logged as omitted.
func (e *Engine) rewriteStyles(doc *dom.Document, rewrites []StyleRewrite, log *ChangeLog) {
	for _, rw := range rewrites {
		if rw.OldToken == "" || rw.OldToken == rw.NewToken {
			log.omitted(ChangeStyle, "", rw.OldToken, "nothing to substitute")
			continue
		}
		hits := 0

		// <style> blocks.
		for _, n := range doc.FindAll(func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.DataAtom == atom.Style
		}) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.TextNode {
					continue
				}
				if count := strings.Count(c.Data, rw.OldToken); count > 0 {
					c.Data = strings.ReplaceAll(c.Data, rw.OldToken, rw.NewToken)
					hits += count
				}
			}
		}

		// Inline style attributes.
		for _, n := range doc.FindAll(func(n *html.Node) bool {
			return n.Type == html.ElementNode && dom.Attr(n, "style") != ""
		}) {
			val := dom.Attr(n, "style")
			if count := strings.Count(val, rw.OldToken); count > 0 {
				dom.SetAttr(n, "style", strings.ReplaceAll(val, rw.OldToken, rw.NewToken))
				hits += count
			}
		}

		if hits == 0 {
			log.omitted(ChangeStyle, "", rw.OldToken, "token not found")
			continue
		}
		log.applied(ChangeStyle, "", rw.OldToken, rw.NewToken, rw.Reason)
	}
}
