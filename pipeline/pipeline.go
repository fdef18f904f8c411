// Package pipeline runs pages through the full stage sequence:
// structural model → strategy → generative build → validation →
// bounded repair → guaranteed fallback, plus the deterministic
// mutation path for non-generative edits.
//
// The unit of work is one Document through the stages. Units share no
// mutable state, so variants run as uncoordinated concurrent tasks;
// within one unit the stages are strictly sequential and Document
// ownership transfers stage to stage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/refonte/build"
	"github.com/hazyhaar/refonte/dom"
	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/mutate"
	"github.com/hazyhaar/refonte/page"
	"github.com/hazyhaar/refonte/strategy"
)

// Config configures the pipeline.
type Config struct {
	// Variants is the default number of variants per build request.
	Variants int

	// MaxConcurrent bounds how many variants generate at once. With 1
	// the pipeline runs sequentially and applies Throttle between
	// requests as a courtesy to the generative capability.
	MaxConcurrent int

	// Throttle is the inter-request delay in sequential mode.
	Throttle time.Duration
}

func (c *Config) defaults() {
	if c.Variants <= 0 {
		c.Variants = 1
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.Throttle <= 0 {
		c.Throttle = 500 * time.Millisecond
	}
}

// Sink receives every artifact the pipeline produces, including
// intermediate repair attempts' final results. Implementations must not
// block; the ledger store satisfies this.
type Sink interface {
	RecordAsync(a *build.Artifact)
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg      Config
	synth    *strategy.Synthesizer
	builder  *build.Builder
	repairer *build.Repairer
	engine   *mutate.Engine
	logger   *slog.Logger
	sink     Sink
}

// New creates a Pipeline. client may be nil: strategy and build then
// use their deterministic paths only.
func New(client genai.Client, cfg Config, logger *slog.Logger) *Pipeline {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		synth:    strategy.New(client, logger),
		builder:  build.New(client, logger),
		repairer: build.NewRepairer(client, logger),
		engine:   mutate.New(logger),
		logger:   logger,
	}
}

// SetSink attaches an artifact sink (audit ledger). Optional; pipeline
// correctness never depends on it.
func (p *Pipeline) SetSink(s Sink) { p.sink = s }

// BuildRequest is one generative build invocation.
type BuildRequest struct {
	// Analysis is the structural model. Optional when SourceHTML is
	// given; the reference provider fills it in then.
	Analysis *page.Analysis `json:"analysis,omitempty"`

	// SourceHTML is the source page, used for analysis (when Analysis
	// is nil) and for prompt summarisation.
	SourceHTML string `json:"source_html,omitempty"`

	// TargetOverride forces the conversion target.
	TargetOverride string `json:"target_override,omitempty"`

	// Variants overrides Config.Variants when > 0.
	Variants int `json:"variants,omitempty"`

	// UserReports are free-text defect reports applied during repair.
	UserReports []string `json:"user_reports,omitempty"`
}

// Build runs the generative path and returns one artifact per
// requested variant, in variant order. Input errors (no usable
// structural model, no conversion target) surface immediately;
// everything after that resolves to artifacts, never errors.
func (p *Pipeline) Build(ctx context.Context, req BuildRequest) ([]*build.Artifact, error) {
	analysis := req.Analysis
	if analysis == nil {
		if req.SourceHTML == "" {
			return nil, fmt.Errorf("pipeline: no analysis and no source HTML")
		}
		doc, err := dom.ParseString(req.SourceHTML)
		if err != nil {
			return nil, fmt.Errorf("pipeline: source parse: %w", err)
		}
		analysis = page.Analyze(doc)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	target, err := page.ResolveTarget(req.TargetOverride, analysis)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	variants := req.Variants
	if variants <= 0 {
		variants = p.cfg.Variants
	}

	artifacts := make([]*build.Artifact, variants)
	if p.cfg.MaxConcurrent == 1 {
		for i := 0; i < variants; i++ {
			if i > 0 {
				select {
				case <-time.After(p.cfg.Throttle):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			artifacts[i] = p.buildOne(ctx, analysis, target, req)
		}
		return artifacts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrent)
	for i := 0; i < variants; i++ {
		g.Go(func() error {
			artifacts[i] = p.buildOne(gctx, analysis, target, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// buildOne is one unit of work: strategy, build, bounded repair,
// fallback. It always yields an artifact.
func (p *Pipeline) buildOne(ctx context.Context, analysis *page.Analysis, target page.ConversionTarget, req BuildRequest) *build.Artifact {
	prompt := p.synth.Synthesize(ctx, analysis, req.SourceHTML)

	breq := build.Request{
		Prompt:   prompt,
		Flow:     analysis.Flow,
		Target:   target,
		Analysis: analysis,
	}
	art := p.builder.Build(ctx, breq)
	p.record(art)
	if art.Success && len(req.UserReports) == 0 {
		return art
	}

	repaired := p.repairer.Repair(ctx, art, req.UserReports, analysis.Flow, target)
	if repaired != art {
		p.record(repaired)
	}
	if repaired.Success {
		return repaired
	}

	// Repair did not converge; the fallback guarantees a structurally
	// valid result carrying the remaining defect context.
	final := p.builder.Fallback(breq, "repair attempts exhausted")
	p.record(final)
	return final
}

func (p *Pipeline) record(a *build.Artifact) {
	if p.sink != nil {
		p.sink.RecordAsync(a)
	}
}

// RepairRequest is a standalone repair invocation over a previously
// produced document, typically driven by user-reported defects.
type RepairRequest struct {
	// HTML is the document to repair.
	HTML string `json:"html"`

	// ArtifactID identifies the artifact the document came from; kept
	// as the parent of whatever the repair produces. Optional.
	ArtifactID string `json:"artifact_id,omitempty"`

	// UserReports are free-text defect reports.
	UserReports []string `json:"user_reports,omitempty"`

	// TargetURL is the conversion target the document must carry.
	TargetURL string `json:"target_url"`

	// Steps is the expected step count; 0 means a single-page flow.
	Steps int `json:"steps,omitempty"`
}

// Repair validates the given document, folds in user reports, and runs
// the bounded repair loop. Unlike Build it can return the input
// artifact unchanged when validation finds nothing and no reports were
// given.
func (p *Pipeline) Repair(ctx context.Context, req RepairRequest) (*build.Artifact, error) {
	if req.HTML == "" {
		return nil, fmt.Errorf("pipeline: no document to repair")
	}
	if req.TargetURL == "" {
		return nil, fmt.Errorf("pipeline: no conversion target")
	}
	target := page.ConversionTarget{TrackingURL: req.TargetURL}
	flow := page.FlowSpec{Type: page.SinglePage}
	if req.Steps > 0 {
		flow = page.FlowSpec{Type: page.MultiStep, TotalSteps: req.Steps}
	}

	defects := build.Validate(req.HTML, flow, target)
	prior := build.NewArtifact(req.ArtifactID, req.HTML, defects)
	p.record(prior)

	repaired := p.repairer.Repair(ctx, prior, req.UserReports, flow, target)
	if repaired != prior {
		p.record(repaired)
	}
	return repaired, nil
}

// MutateRequest is one deterministic mutation invocation.
type MutateRequest struct {
	SourceHTML string         `json:"source_html"`
	Edits      mutate.EditSet `json:"edits"`
}

// MutateResult is the mutated document plus its change log.
type MutateResult struct {
	HTML string            `json:"html"`
	Log  *mutate.ChangeLog `json:"log"`
}

// Mutate runs the non-generative path: parse, apply edits in the
// engine's fixed order, serialise. The only error is unparsable input.
func (p *Pipeline) Mutate(_ context.Context, req MutateRequest) (*MutateResult, error) {
	if req.SourceHTML == "" {
		return nil, fmt.Errorf("pipeline: no source HTML")
	}
	doc, err := dom.ParseString(req.SourceHTML)
	if err != nil {
		return nil, fmt.Errorf("pipeline: source parse: %w", err)
	}
	log := p.engine.Apply(doc, req.Edits)
	return &MutateResult{HTML: doc.HTML(), Log: log}, nil
}
