// Package strategy derives a natural-language build specification from
// a structural model. One generative call produces the prompt plan; a
// deterministic template takes over on any malformed response, so
// downstream stages never know which path ran.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/page"
)

// BuildPrompt is the build specification handed to the generative
// builder. FullPrompt is the assembled text; the other fields keep the
// plan inspectable and repairable piece by piece.
type BuildPrompt struct {
	SystemContext         string   `json:"system_context"`
	Requirements          []string `json:"requirements"`
	Suggestions           []string `json:"suggestions"`
	ComponentInstructions []string `json:"component_instructions"`
	TechnicalRequirements []string `json:"technical_requirements"`
	FullPrompt            string   `json:"full_prompt"`
}

// Synthesizer produces BuildPrompts.
type Synthesizer struct {
	client genai.Client
	logger *slog.Logger
}

// New creates a Synthesizer. client may be nil, in which case every
// synthesis takes the deterministic path.
func New(client genai.Client, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{client: client, logger: logger}
}

// Synthesize builds the prompt plan for one variant. sourceHTML is
// optional; when present it is summarised into the planning context.
// Synthesize never fails: any generative trouble falls through to the
// deterministic template.
func (s *Synthesizer) Synthesize(ctx context.Context, a *page.Analysis, sourceHTML string) *BuildPrompt {
	if s.client == nil {
		return s.fallback(a)
	}

	resp, err := s.client.Complete(ctx, genai.Request{
		SystemPrompt: planSystemPrompt,
		Prompt:       s.planRequest(a, sourceHTML),
		Temperature:  0.4,
		MaxTokens:    1500,
	})
	if err != nil {
		s.logger.Warn("strategy: generative plan failed, using template", "error", err)
		return s.fallback(a)
	}

	bp, err := parsePlan(resp.Content)
	if err != nil {
		s.logger.Warn("strategy: plan response unparseable, using template", "error", err)
		return s.fallback(a)
	}
	bp.FullPrompt = bp.compose()
	return bp
}

const planSystemPrompt = `You are a conversion-focused landing page strategist.
Given a structural analysis of a marketing page, produce a build plan as a single JSON object with keys:
"system_context" (string), "requirements" (array of strings), "suggestions" (array of strings),
"component_instructions" (array of strings), "technical_requirements" (array of strings).
Return only the JSON object.`

func (s *Synthesizer) planRequest(a *page.Analysis, sourceHTML string) string {
	var sb strings.Builder
	sb.WriteString("Structural analysis of the source page:\n\n")
	if a.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", a.Title)
	}
	if a.Vertical != "" {
		fmt.Fprintf(&sb, "Vertical: %s\n", a.Vertical)
	}
	if a.Tone != "" {
		fmt.Fprintf(&sb, "Tone: %s\n", a.Tone)
	}
	if len(a.Tactics) > 0 {
		fmt.Fprintf(&sb, "Conversion tactics: %s\n", strings.Join(a.Tactics, ", "))
	}
	fmt.Fprintf(&sb, "Flow: %s", a.Flow.Type)
	if a.Flow.Type == page.MultiStep {
		fmt.Fprintf(&sb, " (%d steps)", a.Flow.TotalSteps)
	}
	sb.WriteString("\n\nComponents:\n")
	for _, c := range a.Components {
		fmt.Fprintf(&sb, "- [%s/%s] %s: %s\n", c.Importance, c.Type, c.ID, truncate(c.Content, 160))
	}
	if summary := Summarize(sourceHTML, 2000); summary != "" {
		sb.WriteString("\nPage content (markdown):\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	return sb.String()
}

// compose assembles FullPrompt from the plan parts. Both the generative
// and the template path go through here, keeping the output schema
// identical.
func (bp *BuildPrompt) compose() string {
	var sb strings.Builder
	sb.WriteString(bp.SystemContext)
	sb.WriteString("\n\n## Requirements\n")
	for _, r := range bp.Requirements {
		fmt.Fprintf(&sb, "- %s\n", r)
	}
	if len(bp.Suggestions) > 0 {
		sb.WriteString("\n## Suggestions\n")
		for _, s := range bp.Suggestions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	if len(bp.ComponentInstructions) > 0 {
		sb.WriteString("\n## Components\n")
		for _, c := range bp.ComponentInstructions {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	sb.WriteString("\n## Technical requirements\n")
	for _, t := range bp.TechnicalRequirements {
		fmt.Fprintf(&sb, "- %s\n", t)
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
