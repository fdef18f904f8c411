package strategy

import (
	"fmt"

	"github.com/hazyhaar/refonte/page"
)

// fallback assembles a BuildPrompt directly from the structural model.
// It satisfies the same schema as the generative path: downstream
// stages cannot tell which one produced the plan.
func (s *Synthesizer) fallback(a *page.Analysis) *BuildPrompt {
	bp := &BuildPrompt{
		SystemContext: systemContextFor(a),
		Requirements: []string{
			"Produce one complete, self-contained HTML5 document with inline CSS and JS.",
			"Preserve the page's conversion intent and keep a single dominant call to action.",
			"Rewrite all copy; do not reuse the source text verbatim.",
		},
		TechnicalRequirements: []string{
			"Start the document with <!DOCTYPE html> and close every tag.",
			"No external stylesheets, fonts or script files.",
			"The page must render correctly without network access.",
		},
	}

	if a.Flow.Type == page.MultiStep {
		bp.Requirements = append(bp.Requirements,
			fmt.Sprintf("Build a %d-step flow: one step visible at a time, every non-terminal step advances to the next, the final step redirects to the conversion target URL.", a.Flow.TotalSteps))
		bp.TechnicalRequirements = append(bp.TechnicalRequirements,
			"Keep the step-advance logic in a single script block with a numeric step counter.")
	}

	for _, c := range a.ByImportance(page.Critical) {
		bp.ComponentInstructions = append(bp.ComponentInstructions,
			fmt.Sprintf("Keep a %s equivalent to: %s", c.Type, truncate(c.Content, 120)))
	}
	for _, c := range a.ByImportance(page.Important) {
		bp.ComponentInstructions = append(bp.ComponentInstructions,
			fmt.Sprintf("Consider a %s like: %s", c.Type, truncate(c.Content, 120)))
	}
	for _, tactic := range a.Tactics {
		bp.Suggestions = append(bp.Suggestions,
			fmt.Sprintf("Reuse the %s tactic from the source page.", tactic))
	}

	bp.FullPrompt = bp.compose()
	return bp
}

func systemContextFor(a *page.Analysis) string {
	vertical := a.Vertical
	if vertical == "" {
		vertical = "general"
	}
	tone := a.Tone
	if tone == "" {
		tone = "friendly"
	}
	return fmt.Sprintf(
		"You are building a high-converting %s landing page variant in a %s tone, modelled on an analysed source page.",
		vertical, tone)
}
