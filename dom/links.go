package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkKind classifies a detected link for conversion-target ranking.
type LinkKind string

const (
	LinkCTA       LinkKind = "cta"       // buy/signup/start anchors and button-styled links
	LinkAffiliate LinkKind = "affiliate" // affiliate-network URLs or aff/click identifiers
	LinkTracking  LinkKind = "tracking"  // tracker domains or tracking query params
	LinkRedirect  LinkKind = "redirect"  // go/out/redirect hop URLs
	LinkPlain     LinkKind = "plain"
)

// Link is one detected anchor in document order.
type Link struct {
	URL  string
	Text string
	Kind LinkKind
	Node *html.Node
}

var ctaWords = []string{
	"buy", "order", "get started", "start now", "sign up", "signup",
	"join", "claim", "try", "download", "subscribe", "continue",
	"learn more", "shop now",
}

var affiliateMarkers = []string{
	"aff_id=", "affid=", "aff=", "clickid=", "click_id=", "subid=",
	"hop.clickbank.net", "redirect.viglink", "/aff/",
}

var trackingMarkers = []string{
	"utm_", "gclid=", "fbclid=", "msclkid=", "track", "/click/",
	"pixel", "doubleclick.net",
}

var redirectMarkers = []string{
	"/go/", "/out/", "/redirect", "redir=", "url=", "dest=", "goto=",
}

// ScanLinks returns every anchor with a non-empty href, classified, in
// document order.
func (d *Document) ScanLinks() []Link {
	var links []Link
	Walk(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		href := strings.TrimSpace(Attr(n, "href"))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		links = append(links, Link{
			URL:  href,
			Text: Text(n),
			Kind: classifyLink(n, href),
			Node: n,
		})
		return true
	})
	return links
}

func classifyLink(n *html.Node, href string) LinkKind {
	lower := strings.ToLower(href)
	for _, m := range affiliateMarkers {
		if strings.Contains(lower, m) {
			return LinkAffiliate
		}
	}
	for _, m := range redirectMarkers {
		if strings.Contains(lower, m) {
			return LinkRedirect
		}
	}
	for _, m := range trackingMarkers {
		if strings.Contains(lower, m) {
			return LinkTracking
		}
	}
	if isCTA(n) {
		return LinkCTA
	}
	return LinkPlain
}

// isCTA checks anchor text and class hints for call-to-action intent.
func isCTA(n *html.Node) bool {
	text := strings.ToLower(Text(n))
	for _, w := range ctaWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	class := strings.ToLower(Attr(n, "class"))
	return strings.Contains(class, "btn") || strings.Contains(class, "button") ||
		strings.Contains(class, "cta")
}
