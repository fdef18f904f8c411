package build

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/page"
)

// MaxRepairAttempts caps automatic repair retries. The cap is a policy
// constant so the bound is visible and testable in isolation.
const MaxRepairAttempts = 2

const repairSystemPrompt = `You are an expert landing page developer fixing a previously generated document.
Fix ONLY the listed defects; keep everything else byte-for-byte identical where possible.
Return the full corrected document inside a single ` + "```html" + ` fenced block and nothing else.`

// Repairer runs the bounded repair loop over a prior artifact.
type Repairer struct {
	client genai.Client
	logger *slog.Logger
}

// NewRepairer creates a Repairer.
func NewRepairer(client genai.Client, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{client: client, logger: logger}
}

// Repair issues scoped generative requests constrained to the listed
// defects (machine-detected plus free-text user reports), re-extracts
// and re-validates, at most MaxRepairAttempts times. Each attempt
// produces a new Artifact chained via ParentID. When every attempt
// fails validation, the last artifact is returned with its remaining
// defects intact and success=false; the caller decides between a
// degraded result and the fallback.
func (r *Repairer) Repair(ctx context.Context, prior *Artifact, userReports []string, flow page.FlowSpec, target page.ConversionTarget) *Artifact {
	current := prior
	defects := withUserReports(prior.Defects, userReports)

	if r.client == nil || len(defects) == 0 {
		return prior
	}

	for attempt := 1; attempt <= MaxRepairAttempts; attempt++ {
		log := r.logger.With("attempt", attempt, "parent_id", current.ID)

		resp, err := r.client.Complete(ctx, genai.Request{
			SystemPrompt: repairSystemPrompt,
			Prompt:       repairPrompt(current.HTML, defects),
			Temperature:  0.3,
			MaxTokens:    8000,
		})
		if err != nil {
			log.Warn("repair: generative request failed", "error", err)
			continue
		}

		ext := extractDocument(resp.Content)
		if !ext.OK {
			log.Warn("repair: no document in response")
			continue
		}

		docHTML := ext.HTML
		if flow.Type == page.MultiStep {
			docHTML = ensureRedirect(docHTML, flow, target)
		}

		fresh := Validate(docHTML, flow, target)
		next := newArtifact(current.ID, docHTML, fresh)
		log.Info("repair: attempt validated", "artifact_id", next.ID, "defects", len(fresh))

		if next.Success {
			return next
		}
		current = next
		defects = fresh
	}

	// All attempts exhausted; the last artifact keeps its remaining
	// defects and its success flag already reflects them.
	return current
}

// withUserReports folds free-text user reports into the defect list as
// major defects scoped to this repair run.
func withUserReports(defects []Defect, reports []string) []Defect {
	out := append([]Defect{}, defects...)
	for _, rep := range reports {
		rep = strings.TrimSpace(rep)
		if rep == "" {
			continue
		}
		out = append(out, Defect{
			Kind:        DefectUserReported,
			Severity:    SeverityMajor,
			Description: rep,
		})
	}
	return out
}

func repairPrompt(docHTML string, defects []Defect) string {
	var sb strings.Builder
	sb.WriteString("Defects to fix:\n")
	for i, d := range defects {
		fmt.Fprintf(&sb, "%d. [%s/%s] %s", i+1, d.Severity, d.Kind, d.Description)
		if d.LocationHint != "" {
			fmt.Fprintf(&sb, " (at: %s)", d.LocationHint)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\nThe document:\n```html\n")
	sb.WriteString(docHTML)
	sb.WriteString("\n```\n")
	return sb.String()
}
