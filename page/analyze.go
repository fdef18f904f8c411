package page

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/refonte/dom"
)

// Analyze is the in-repo reference structural model provider. It scans
// a parsed page and produces the same Analysis shape the external
// analysis stage supplies, so the rest of the pipeline is agnostic to
// where the model came from.
func Analyze(doc *dom.Document) *Analysis {
	a := &Analysis{Title: doc.Title()}
	seq := 0
	nextID := func(t ComponentType) string {
		seq++
		return fmt.Sprintf("%s-%d", t, seq)
	}

	dom.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return false
		case atom.H1:
			a.addComponent(doc, n, nextID(Headline), Headline, Critical)
		case atom.H2, atom.H3:
			a.addComponent(doc, n, nextID(Subheadline), Subheadline, Important)
		case atom.Button:
			a.addComponent(doc, n, nextID(Button), Button, Critical)
		case atom.Form:
			a.addComponent(doc, n, nextID(Form), Form, Critical)
			return false
		case atom.Img:
			a.addComponent(doc, n, nextID(Image), Image, Optional)
		case atom.Ul, atom.Ol:
			a.addComponent(doc, n, nextID(List), List, Optional)
			return false
		case atom.Video:
			a.addComponent(doc, n, nextID(Video), Video, Important)
			return false
		case atom.Iframe:
			src := strings.ToLower(dom.Attr(n, "src"))
			if strings.Contains(src, "youtube") || strings.Contains(src, "vimeo") ||
				strings.Contains(src, "wistia") {
				a.addComponent(doc, n, nextID(Video), Video, Important)
			}
			return false
		case atom.P, atom.Div, atom.Span:
			if techniques := persuasionTechniques(dom.Text(n)); len(techniques) > 0 && isLeafBlock(n) {
				c := a.addComponent(doc, n, nextID(Persuasion), Persuasion, Important)
				c.PersuasionTechniques = techniques
			}
		}
		return true
	})

	a.Links = detectedLinks(doc)
	a.TrackingSnippets = trackingSnippets(doc)
	a.Flow = detectFlow(doc)
	a.Vertical = detectVertical(doc)
	a.Tone = detectTone(doc)
	a.Tactics = collectTactics(a.Components)
	return a
}

func (a *Analysis) addComponent(doc *dom.Document, n *html.Node, id string, t ComponentType, imp Importance) *Component {
	content := dom.Text(n)
	if t == Image {
		content = dom.Attr(n, "alt")
	}
	a.Components = append(a.Components, Component{
		ID:         id,
		Type:       t,
		Selector:   doc.Locate(n).String(),
		Content:    content,
		Importance: imp,
	})
	return &a.Components[len(a.Components)-1]
}

// isLeafBlock avoids classifying a wrapping div as a persuasion element
// when the signal actually lives in a nested block.
func isLeafBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.P, atom.Div, atom.Section, atom.Article:
				return false
			}
		}
	}
	return true
}

var persuasionPatterns = map[string]*regexp.Regexp{
	"urgency":      regexp.MustCompile(`(?i)\b(limited time|act now|expires|hurry|today only|ends (soon|tonight|today))\b`),
	"scarcity":     regexp.MustCompile(`(?i)\b(only \d+ (left|remaining|spots)|while (supplies|stocks) last|almost (gone|sold out))\b`),
	"social-proof": regexp.MustCompile(`(?i)\b(\d[\d,.]* (customers|users|members|people)|testimonial|reviews?|rated \d)\b`),
	"authority":    regexp.MustCompile(`(?i)\b(doctor|dermatologist|expert|clinically (proven|tested)|certified|award[- ]winning)\b`),
	"guarantee":    regexp.MustCompile(`(?i)\b(money[- ]back|100% guarantee|risk[- ]free|no questions asked)\b`),
}

func persuasionTechniques(text string) []string {
	if len(text) < 12 {
		return nil
	}
	var out []string
	for _, name := range []string{"urgency", "scarcity", "social-proof", "authority", "guarantee"} {
		if persuasionPatterns[name].MatchString(text) {
			out = append(out, name)
		}
	}
	return out
}

var stepMarker = regexp.MustCompile(`(?i)(^|[\s_-])(step|question|quiz)([\s_-]?\d|[\s_-]|$)`)

func detectFlow(doc *dom.Document) FlowSpec {
	var selectors []string
	for _, n := range doc.FindAll(func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		return stepMarker.MatchString(dom.Attr(n, "class")) || stepMarker.MatchString(dom.Attr(n, "id"))
	}) {
		selectors = append(selectors, doc.Locate(n).String())
	}
	if len(selectors) >= 2 {
		return FlowSpec{Type: MultiStep, TotalSteps: len(selectors), StepBoundarySelectors: selectors}
	}
	return FlowSpec{Type: SinglePage}
}

func detectedLinks(doc *dom.Document) []DetectedLink {
	var out []DetectedLink
	for _, l := range doc.ScanLinks() {
		out = append(out, DetectedLink{URL: l.URL, Text: l.Text, Kind: string(l.Kind)})
	}
	return out
}

var trackerHint = regexp.MustCompile(`(?i)(gtag|fbq\(|_gaq|pixel|analytics|clarity|hotjar|doubleclick)`)

func trackingSnippets(doc *dom.Document) []string {
	var out []string
	for _, n := range doc.FindAll(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Script
	}) {
		if src := dom.Attr(n, "src"); src != "" && trackerHint.MatchString(src) {
			out = append(out, src)
			continue
		}
		if n.FirstChild != nil && trackerHint.MatchString(n.FirstChild.Data) {
			out = append(out, strings.TrimSpace(n.FirstChild.Data))
		}
	}
	return out
}

var verticalKeywords = map[string][]string{
	"dating":  {"dating", "singles", "meet someone", "match", "relationship"},
	"health":  {"weight", "diet", "supplement", "cleanse", "fat", "fitness", "keto"},
	"finance": {"loan", "credit", "invest", "crypto", "trading", "debt", "insurance"},
	"sweeps":  {"winner", "prize", "gift card", "sweepstake", "congratulations", "claim your"},
	"saas":    {"software", "app", "platform", "free trial", "dashboard", "automation"},
}

func detectVertical(doc *dom.Document) string {
	text := strings.ToLower(dom.Text(doc.Body()))
	best, bestScore := "", 0
	for vertical, words := range verticalKeywords {
		score := 0
		for _, w := range words {
			score += strings.Count(text, w)
		}
		if score > bestScore {
			best, bestScore = vertical, score
		}
	}
	return best
}

func detectTone(doc *dom.Document) string {
	text := strings.ToLower(dom.Text(doc.Body()))
	urgent := 0
	for _, w := range []string{"now", "today", "hurry", "instant", "limited", "fast"} {
		urgent += strings.Count(text, w)
	}
	switch {
	case urgent >= 5:
		return "urgent"
	case persuasionPatterns["authority"].MatchString(text):
		return "authoritative"
	default:
		return "friendly"
	}
}

func collectTactics(components []Component) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range components {
		for _, t := range c.PersuasionTechniques {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
