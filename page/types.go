// Package page defines the structural model of a marketing page: the
// components, flow and strategy metadata the pipeline consumes.
//
// An Analysis normally arrives from the external analysis stage as
// JSON; Analyze provides an in-repo reference scan over a dom.Document
// for callers that only have raw HTML.
package page

import "fmt"

// ComponentType identifies one kind of detected unit of interest.
type ComponentType string

const (
	Headline    ComponentType = "headline"
	Subheadline ComponentType = "subheadline"
	Button      ComponentType = "button"
	Image       ComponentType = "image"
	Form        ComponentType = "form"
	List        ComponentType = "list"
	Video       ComponentType = "video"
	Persuasion  ComponentType = "persuasion-element"
)

// Importance ranks how load-bearing a component is for conversion.
type Importance string

const (
	Critical  Importance = "critical"
	Important Importance = "important"
	Optional  Importance = "optional"
)

// Component is one detected structural unit.
//
// Selector is an opaque locator into the Document the analysis was
// derived from (dom.Locator string form). It is invalidated by any
// tree-shape mutation and must be re-derived afterwards.
type Component struct {
	ID                   string        `json:"id"`
	Type                 ComponentType `json:"type"`
	Selector             string        `json:"selector"`
	Content              string        `json:"content"`
	Role                 string        `json:"role,omitempty"`
	Importance           Importance    `json:"importance"`
	PersuasionTechniques []string      `json:"persuasion_techniques,omitempty"`
	Notes                string        `json:"notes,omitempty"`
}

// FlowType distinguishes single-page funnels from multi-step flows.
type FlowType string

const (
	SinglePage FlowType = "single-page"
	MultiStep  FlowType = "multi-step"
)

// FlowSpec describes the navigation structure of the page.
//
// For multi-step flows exactly one step is the terminal call-to-action
// step: every non-terminal step advances to the next step, and the
// terminal step redirects externally, never to another internal step.
type FlowSpec struct {
	Type                  FlowType `json:"type"`
	TotalSteps            int      `json:"total_steps,omitempty"`
	StepBoundarySelectors []string `json:"step_boundary_selectors,omitempty"`
}

// Validate checks the flow invariants that hold independent of any
// document.
func (f FlowSpec) Validate() error {
	switch f.Type {
	case SinglePage:
		return nil
	case MultiStep:
		if f.TotalSteps < 1 {
			return fmt.Errorf("page: multi-step flow needs total_steps >= 1, got %d", f.TotalSteps)
		}
		if len(f.StepBoundarySelectors) > 0 && len(f.StepBoundarySelectors) != f.TotalSteps {
			return fmt.Errorf("page: %d step selectors for %d steps", len(f.StepBoundarySelectors), f.TotalSteps)
		}
		return nil
	default:
		return fmt.Errorf("page: unknown flow type %q", f.Type)
	}
}

// ConversionTarget is the redirect URL a generated flow must reach.
type ConversionTarget struct {
	TrackingURL string `json:"tracking_url"`
}

// DetectedLink is one link found by the structural scan, carried in the
// analysis so target resolution works without re-parsing the page.
type DetectedLink struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
	Kind string `json:"kind"` // cta, affiliate, tracking, redirect, plain
}

// Analysis is the full structural model of one page.
type Analysis struct {
	Title            string           `json:"title,omitempty"`
	Components       []Component      `json:"components"`
	Flow             FlowSpec         `json:"flow"`
	Links            []DetectedLink   `json:"links,omitempty"`
	TrackingSnippets []string         `json:"tracking_snippets,omitempty"`
	Vertical         string           `json:"vertical,omitempty"`
	Tone             string           `json:"tone,omitempty"`
	Tactics          []string         `json:"tactics,omitempty"`
	Target           ConversionTarget `json:"target"`
}

// ByImportance returns the components at the given importance level,
// preserving document order.
func (a *Analysis) ByImportance(level Importance) []Component {
	var out []Component
	for _, c := range a.Components {
		if c.Importance == level {
			out = append(out, c)
		}
	}
	return out
}

// ByType returns the components of the given type, preserving document
// order.
func (a *Analysis) ByType(t ComponentType) []Component {
	var out []Component
	for _, c := range a.Components {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks the minimum the pipeline needs before it will run.
func (a *Analysis) Validate() error {
	if a == nil {
		return fmt.Errorf("page: nil analysis")
	}
	if len(a.Components) == 0 {
		return fmt.Errorf("page: analysis has no components")
	}
	if err := a.Flow.Validate(); err != nil {
		return err
	}
	return nil
}
