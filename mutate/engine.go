package mutate

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/refonte/dom"
)

// Engine applies EditSets to Documents. Safe for concurrent use across
// independent Documents; it keeps no per-run state.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Apply runs the edit set against the document in the engine's fixed
// order: section removal, component toggles, text rewriting, style
// rewriting, link rewriting, element injection. It never fails; edits
// that match nothing are recorded as omitted.
func (e *Engine) Apply(doc *dom.Document, set EditSet) *ChangeLog {
	log := &ChangeLog{}
	if set.Empty() {
		return log
	}

	e.removeSections(doc, set.RemoveSections, log)
	e.applyToggles(doc, set.Toggles, log)
	e.rewriteTexts(doc, set.TextRewrites, log)
	e.rewriteStyles(doc, set.StyleRewrites, log)
	e.rewriteLinks(doc, set.Links, log)
	e.inject(doc, set.Injections, log)

	e.logger.Debug("mutate: edit set applied",
		"entries", len(log.Entries), "applied", log.AppliedCount())
	return log
}

// removeSections detaches the subtree behind each selector. Stale or
// unparsable selectors are omissions, not errors.
func (e *Engine) removeSections(doc *dom.Document, selectors []string, log *ChangeLog) {
	for _, sel := range selectors {
		loc, err := dom.ParseLocator(sel)
		if err != nil {
			log.omitted(ChangeRemoveSection, sel, "", "bad selector")
			continue
		}
		n := doc.Resolve(loc)
		if n == nil {
			log.omitted(ChangeRemoveSection, sel, "", "selector matched nothing")
			continue
		}
		before := snippet(dom.RenderNode(n))
		dom.Remove(n)
		log.applied(ChangeRemoveSection, sel, before, "", "section removal")
	}
}

// applyToggles removes whole component classes that were disabled.
func (e *Engine) applyToggles(doc *dom.Document, t Toggles, log *ChangeLog) {
	type toggle struct {
		enabled bool
		name    string
		match   func(*html.Node) bool
	}
	toggles := []toggle{
		{t.DisableForms, "forms", func(n *html.Node) bool { return n.DataAtom == atom.Form }},
		{t.DisableVideos, "videos", isVideoNode},
		{t.DisableLists, "lists", func(n *html.Node) bool { return n.DataAtom == atom.Ul || n.DataAtom == atom.Ol }},
		{t.DisableImages, "images", func(n *html.Node) bool { return n.DataAtom == atom.Img }},
	}
	for _, tg := range toggles {
		if !tg.enabled {
			continue
		}
		nodes := doc.FindAll(func(n *html.Node) bool {
			return n.Type == html.ElementNode && tg.match(n)
		})
		if len(nodes) == 0 {
			log.omitted(ChangeToggle, "", tg.name, "no matching components")
			continue
		}
		for _, n := range nodes {
			sel := doc.Locate(n).String()
			before := snippet(dom.RenderNode(n))
			dom.Remove(n)
			log.applied(ChangeToggle, sel, before, "", "disable "+tg.name)
		}
	}
}

func isVideoNode(n *html.Node) bool {
	if n.DataAtom == atom.Video {
		return true
	}
	if n.DataAtom == atom.Iframe {
		src := dom.Attr(n, "src")
		return containsAny(src, "youtube", "vimeo", "wistia")
	}
	return false
}

// snippet truncates long fragments for the change log.
func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
