package mutate

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/refonte/dom"
)

// rewriteTexts applies each text rewrite against the element its
// selector addresses (whole body when empty). Only the first verbatim
// occurrence of the original fragment is replaced, so sibling text
// sharing words with the fragment stays intact. A proposed rewrite
// whose fragment is not found verbatim is discarded.
func (e *Engine) rewriteTexts(doc *dom.Document, rewrites []TextRewrite, log *ChangeLog) {
	for _, rw := range rewrites {
		if rw.Original == "" {
			log.omitted(ChangeText, rw.Selector, rw.Original, "empty original fragment")
			continue
		}
		if rw.Original == rw.Replacement {
			// Trivial rewrite, nothing to change.
			log.omitted(ChangeText, rw.Selector, rw.Original, "replacement equals original")
			continue
		}

		scope := doc.Body()
		if rw.Selector != "" {
			loc, err := dom.ParseLocator(rw.Selector)
			if err != nil {
				log.omitted(ChangeText, rw.Selector, rw.Original, "bad selector")
				continue
			}
			if scope = doc.Resolve(loc); scope == nil {
				log.omitted(ChangeText, rw.Selector, rw.Original, "selector matched nothing")
				continue
			}
		}

		if !replaceFirstText(scope, rw.Original, rw.Replacement) {
			log.omitted(ChangeText, rw.Selector, rw.Original, "fragment not found verbatim")
			continue
		}
		log.applied(ChangeText, rw.Selector, rw.Original, rw.Replacement, rw.Reason)
	}
}

// replaceFirstText walks text nodes in document order and replaces the
// first verbatim occurrence of old inside a single text node. Matches
// spanning element boundaries are deliberately not attempted: splicing
// across siblings is exactly the corruption this is guarding against.
func replaceFirstText(scope *html.Node, old, repl string) bool {
	done := false
	dom.Walk(scope, func(n *html.Node) bool {
		if done {
			return false
		}
		if n.Type != html.TextNode {
			return true
		}
		if idx := strings.Index(n.Data, old); idx >= 0 {
			n.Data = n.Data[:idx] + repl + n.Data[idx+len(old):]
			done = true
			return false
		}
		return true
	})
	return done
}
