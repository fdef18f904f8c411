package build

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/refonte/fallback"
	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/page"
	"github.com/hazyhaar/refonte/strategy"
)

const buildSystemPrompt = `You are an expert landing page developer.
Produce one complete HTML5 document implementing the build specification.
Return the document inside a single ` + "```html" + ` fenced block and nothing else.
The document must be fully self-contained: inline CSS, inline JS, no external resources.`

// Request carries everything one build needs. Analysis is kept for the
// fallback path; the generative path only sees the prompt.
type Request struct {
	Prompt   *strategy.BuildPrompt
	Flow     page.FlowSpec
	Target   page.ConversionTarget
	Analysis *page.Analysis
}

// Builder produces artifacts from build prompts.
type Builder struct {
	client genai.Client
	logger *slog.Logger
}

// New creates a Builder. client may be nil; every build then goes
// straight to the fallback synthesiser.
func New(client genai.Client, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{client: client, logger: logger}
}

// Build requests one variant and returns it as an Artifact. It never
// returns an error: generative failure of any kind produces a fallback
// artifact with success=false and the cause captured as a defect.
func (b *Builder) Build(ctx context.Context, req Request) *Artifact {
	if req.Prompt == nil || req.Prompt.FullPrompt == "" {
		return b.fallbackArtifact(req, "empty build prompt")
	}
	if b.client == nil {
		return b.fallbackArtifact(req, "no generative client configured")
	}

	resp, err := b.client.Complete(ctx, genai.Request{
		SystemPrompt: buildSystemPrompt,
		Prompt:       b.buildPrompt(req),
		Temperature:  0.7,
		MaxTokens:    8000,
	})
	if err != nil {
		b.logger.Warn("build: generative request failed", "error", err)
		return b.fallbackArtifact(req, fmt.Sprintf("generation failed: %v", err))
	}

	ext := extractDocument(resp.Content)
	if !ext.OK {
		b.logger.Warn("build: no document in response", "content_len", len(resp.Content))
		return b.fallbackArtifact(req, "response contained no recognisable document")
	}

	docHTML := ext.HTML
	if req.Flow.Type == page.MultiStep {
		docHTML = ensureRedirect(docHTML, req.Flow, req.Target)
	}

	defects := Validate(docHTML, req.Flow, req.Target)
	art := newArtifact("", docHTML, defects)
	b.logger.Info("build: artifact produced",
		"artifact_id", art.ID, "success", art.Success, "defects", len(defects))
	return art
}

// buildPrompt appends the flow and target constraints the generated
// document must honour regardless of what the plan says.
func (b *Builder) buildPrompt(req Request) string {
	prompt := req.Prompt.FullPrompt
	prompt += "\n\n## Hard constraints\n"
	if req.Flow.Type == page.MultiStep {
		prompt += fmt.Sprintf("- The flow has exactly %d steps; exactly one step is visible at a time.\n", req.Flow.TotalSteps)
		prompt += fmt.Sprintf("- After the final step, redirect to exactly this URL: %s\n", req.Target.TrackingURL)
		prompt += "- Use a function named nextStep() to advance steps.\n"
	} else {
		prompt += fmt.Sprintf("- The main call to action must link to exactly this URL: %s\n", req.Target.TrackingURL)
	}
	return prompt
}

// Fallback produces a non-generative artifact for req. Callers use it
// when repair does not converge; the result always passes structural
// validation but carries the cause as a defect with success=false.
func (b *Builder) Fallback(req Request, cause string) *Artifact {
	return b.fallbackArtifact(req, cause)
}

// fallbackArtifact delegates to the non-generative synthesiser and
// marks the result unsuccessful with the causing error as a defect.
func (b *Builder) fallbackArtifact(req Request, cause string) *Artifact {
	a := req.Analysis
	if a == nil {
		a = &page.Analysis{Flow: req.Flow}
	}
	docHTML := fallback.Synthesize(a, req.Target)
	defects := append([]Defect{{
		Kind:        DefectGenerationFailed,
		Severity:    SeverityMajor,
		Description: cause,
	}}, Validate(docHTML, req.Flow, req.Target)...)

	art := newArtifact("", docHTML, defects)
	art.Success = false
	b.logger.Info("build: fallback artifact produced", "artifact_id", art.ID, "cause", cause)
	return art
}
