package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Acme Cleanse</title></head>
<body>
<h1 id="hero">Lose weight fast</h1>
<p class="sub">Doctors hate this <b>one trick</b>.</p>
<a href="https://offers.example/go/123" class="btn">Get Started</a>
<script>var x = 1;</script>
</body></html>`

func TestParseAndRender_RoundTrip(t *testing.T) {
	doc, err := ParseString(samplePage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := doc.HTML()
	if !strings.Contains(out, "Lose weight fast") {
		t.Fatalf("render lost content: %q", out)
	}
	if !strings.Contains(out, "<title>Acme Cleanse</title>") {
		t.Fatalf("render lost title: %q", out)
	}
}

func TestTitle(t *testing.T) {
	doc, _ := ParseString(samplePage)
	if got := doc.Title(); got != "Acme Cleanse" {
		t.Fatalf("Title: got %q", got)
	}
}

func TestText_SkipsScript(t *testing.T) {
	doc, _ := ParseString(samplePage)
	text := Text(doc.Body())
	if strings.Contains(text, "var x") {
		t.Fatalf("script text leaked: %q", text)
	}
	if !strings.Contains(text, "one trick") {
		t.Fatalf("nested text missing: %q", text)
	}
}

func TestFindFirst_ByID(t *testing.T) {
	doc, _ := ParseString(samplePage)
	n := doc.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && Attr(n, "id") == "hero"
	})
	if n == nil || n.DataAtom != atom.H1 {
		t.Fatalf("FindFirst: got %v", n)
	}
}

func TestSetAttr_ReplaceAndAdd(t *testing.T) {
	doc, _ := ParseString(samplePage)
	a := doc.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A
	})
	SetAttr(a, "href", "https://new.example/x")
	if got := Attr(a, "href"); got != "https://new.example/x" {
		t.Fatalf("replace: got %q", got)
	}
	SetAttr(a, "rel", "nofollow")
	if got := Attr(a, "rel"); got != "nofollow" {
		t.Fatalf("add: got %q", got)
	}
}

func TestRemove_DetachesSubtree(t *testing.T) {
	doc, _ := ParseString(samplePage)
	p := doc.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.P
	})
	Remove(p)
	if strings.Contains(doc.HTML(), "one trick") {
		t.Fatal("removed subtree still serialised")
	}
}

func TestAppendFragment(t *testing.T) {
	doc, _ := ParseString(samplePage)
	if err := AppendFragment(doc.Body(), `<div id="injected">hi</div>`); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(doc.HTML(), `id="injected"`) {
		t.Fatal("fragment not serialised")
	}
}

func TestLocator_RoundTrip(t *testing.T) {
	doc, _ := ParseString(samplePage)
	h1 := doc.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.H1
	})
	loc := doc.Locate(h1)
	if loc == nil {
		t.Fatal("Locate returned nil for attached node")
	}
	if got := doc.Resolve(loc); got != h1 {
		t.Fatalf("Resolve: got %v want h1", got)
	}

	parsed, err := ParseLocator(loc.String())
	if err != nil {
		t.Fatalf("ParseLocator(%q): %v", loc.String(), err)
	}
	if got := doc.Resolve(parsed); got != h1 {
		t.Fatal("Resolve after string round-trip missed h1")
	}
}

func TestLocator_StaleAfterMutation(t *testing.T) {
	// WHAT: a locator computed before a structural edit must not resolve
	// to a live node once the path runs off the new tree shape.
	// WHY: selectors are ephemeral coordinates, re-derived after mutation.
	doc, _ := ParseString(samplePage)
	a := doc.FindFirst(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A
	})
	loc := doc.Locate(a)

	// Remove everything before the anchor, shifting sibling indexes.
	for _, n := range doc.FindAll(func(n *html.Node) bool {
		return n.Type == html.ElementNode && (n.DataAtom == atom.H1 || n.DataAtom == atom.P)
	}) {
		Remove(n)
	}

	if got := doc.Resolve(loc); got == a {
		t.Fatal("stale locator still resolved to the original node")
	}
}

func TestParseLocator_Invalid(t *testing.T) {
	for _, bad := range []string{"a/b", "1/-2", "1//2"} {
		if _, err := ParseLocator(bad); err == nil {
			t.Fatalf("ParseLocator(%q): expected error", bad)
		}
	}
}
