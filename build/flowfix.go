package build

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/refonte/page"
)

// ensureRedirect makes a best-effort pass over a multi-step document
// whose script lacks the conversion target. It never fails the build:
// if neither repair pattern lands, the document is returned unchanged
// and validation flags the missing target downstream.
//
// Pattern (a): a step-advance function exists — inject a guard at the
// top of its body that redirects once the step counter exceeds the
// total step count.
// Pattern (b): no advance function — append a redirect constant and a
// callable fallback function to the script section (creating one when
// the document has none).
func ensureRedirect(docHTML string, flow page.FlowSpec, target page.ConversionTarget) string {
	if target.TrackingURL == "" || strings.Contains(docHTML, target.TrackingURL) {
		return docHTML
	}

	if loc := advanceFnRe.FindStringIndex(docHTML); loc != nil {
		if fixed, ok := injectGuard(docHTML, loc[1], flow, target); ok {
			return fixed
		}
	}
	return appendRedirectScript(docHTML, target)
}

// injectGuard inserts the redirect guard right after the opening brace
// of the advance function found at fnEnd.
func injectGuard(docHTML string, fnEnd int, flow page.FlowSpec, target page.ConversionTarget) (string, bool) {
	brace := strings.Index(docHTML[fnEnd:], "{")
	if brace < 0 {
		return docHTML, false
	}
	at := fnEnd + brace + 1
	guard := fmt.Sprintf(
		"\n  if (typeof step !== 'undefined' && step + 1 > %d) { window.location.href = %q; return; }",
		flow.TotalSteps, target.TrackingURL)
	return docHTML[:at] + guard + docHTML[at:], true
}

// appendRedirectScript adds the redirect constant and a callable
// fallback to the last script block, or a fresh block before </body>.
func appendRedirectScript(docHTML string, target page.ConversionTarget) string {
	snippet := fmt.Sprintf(
		"\nvar REDIRECT_URL = %q;\nfunction redirectToOffer() { window.location.href = REDIRECT_URL; }\n",
		target.TrackingURL)

	lower := strings.ToLower(docHTML)
	if idx := strings.LastIndex(lower, "</script>"); idx >= 0 {
		return docHTML[:idx] + snippet + docHTML[idx:]
	}
	block := "<script>" + snippet + "</script>\n"
	if idx := strings.LastIndex(lower, "</body>"); idx >= 0 {
		return docHTML[:idx] + block + docHTML[idx:]
	}
	if idx := strings.LastIndex(lower, "</html>"); idx >= 0 {
		return docHTML[:idx] + block + docHTML[idx:]
	}
	return docHTML + block
}
