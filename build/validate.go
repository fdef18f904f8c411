package build

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/refonte/dom"
	"github.com/hazyhaar/refonte/page"
)

// urlPolicy accepts only http(s) and relative URLs; javascript: and
// data: hrefs in generated output are policy violations.
var urlPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	return p
}()

// flowHandlers are the inline handlers the step flow legitimately uses.
var flowHandlers = map[string]bool{"onclick": true, "onsubmit": true}

var advanceFnRe = regexp.MustCompile(`function\s+(nextStep|advanceStep|showStep|goToStep|next)\s*\(`)

// Validate checks one produced document against the output invariants
// and returns the fresh defect list for this artifact.
func Validate(docHTML string, flow page.FlowSpec, target page.ConversionTarget) []Defect {
	var defects []Defect

	lower := strings.ToLower(docHTML)
	if !docStartRe.MatchString(docHTML) || !strings.Contains(lower, "</html>") {
		defects = append(defects, Defect{
			Kind:        DefectMalformedDocument,
			Severity:    SeverityCritical,
			Description: "output lacks document start/end markers",
		})
		// Nothing below is meaningful without a document.
		return defects
	}

	doc, err := dom.ParseString(docHTML)
	if err != nil {
		return append(defects, Defect{
			Kind:        DefectMalformedDocument,
			Severity:    SeverityCritical,
			Description: fmt.Sprintf("document does not parse: %v", err),
		})
	}
	if strings.TrimSpace(dom.Text(doc.Body())) == "" {
		defects = append(defects, Defect{
			Kind:        DefectMalformedDocument,
			Severity:    SeverityCritical,
			Description: "document body renders no text",
		})
	}

	if target.TrackingURL != "" && !strings.Contains(docHTML, target.TrackingURL) {
		defects = append(defects, Defect{
			Kind:        DefectMissingTarget,
			Severity:    SeverityCritical,
			Description: fmt.Sprintf("conversion target %q does not appear in the document", target.TrackingURL),
		})
	}

	defects = append(defects, validateFlow(doc, docHTML, flow)...)
	defects = append(defects, validatePolicy(doc)...)
	return defects
}

// validateFlow enforces the multi-step invariants: the configured step
// count and a script path that can advance steps.
func validateFlow(doc *dom.Document, docHTML string, flow page.FlowSpec) []Defect {
	if flow.Type != page.MultiStep {
		return nil
	}
	var defects []Defect

	steps := doc.FindAll(isStepContainer)
	if len(steps) != flow.TotalSteps {
		defects = append(defects, Defect{
			Kind:         DefectWrongStepCount,
			Severity:     SeverityMajor,
			Description:  fmt.Sprintf("expected %d step containers, found %d", flow.TotalSteps, len(steps)),
			LocationHint: "step containers",
		})
	}

	if !advanceFnRe.MatchString(docHTML) {
		defects = append(defects, Defect{
			Kind:         DefectMissingFlowScript,
			Severity:     SeverityMajor,
			Description:  "no step-advance function found in any script block",
			LocationHint: "script",
		})
	}
	return defects
}

var stepMarkerRe = regexp.MustCompile(`(?i)(^|[\s_-])step([\s_-]?\d+)?($|[\s_-])`)

func isStepContainer(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Div, atom.Section, atom.Fieldset:
	default:
		return false
	}
	return stepMarkerRe.MatchString(dom.Attr(n, "class")) ||
		stepMarkerRe.MatchString(dom.Attr(n, "id"))
}

// validatePolicy flags active content the output policy forbids:
// javascript:/data: link targets, inline handlers outside the flow set,
// and script elements loading external sources.
func validatePolicy(doc *dom.Document) []Defect {
	var defects []Defect

	for _, n := range doc.FindAll(func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A && dom.Attr(n, "href") != ""
	}) {
		href := dom.Attr(n, "href")
		probe := fmt.Sprintf(`<a href="%s">x</a>`, href)
		if !strings.Contains(urlPolicy.Sanitize(probe), "href=") {
			defects = append(defects, Defect{
				Kind:         DefectUnsafeContent,
				Severity:     SeverityMajor,
				Description:  fmt.Sprintf("link target %q violates the URL policy", href),
				LocationHint: "a[href]",
			})
		}
	}

	for _, n := range doc.FindAll(func(n *html.Node) bool {
		return n.Type == html.ElementNode
	}) {
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Key, "on") && !flowHandlers[a.Key] {
				defects = append(defects, Defect{
					Kind:         DefectUnsafeContent,
					Severity:     SeverityMajor,
					Description:  fmt.Sprintf("disallowed inline handler %q", a.Key),
					LocationHint: "<" + n.Data + ">",
				})
			}
		}
		if n.DataAtom == atom.Script {
			if src := dom.Attr(n, "src"); src != "" {
				defects = append(defects, Defect{
					Kind:         DefectUnsafeContent,
					Severity:     SeverityMajor,
					Description:  fmt.Sprintf("external script %q in self-contained output", src),
					LocationHint: "script[src]",
				})
			}
		}
	}
	return defects
}
