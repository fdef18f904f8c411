// Package build turns a build prompt into validated page variants.
//
// The generative service may return malformed, incomplete or
// non-compliant output; everything here treats its content as untrusted
// text. The builder always returns an Artifact: extraction failure,
// transport failure and timeout all route through the fallback
// synthesiser instead of surfacing as hard errors.
package build

import (
	"time"

	"github.com/hazyhaar/refonte/idgen"
)

// Severity ranks a defect.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

// DefectKind names the violated invariant.
type DefectKind string

const (
	DefectMalformedDocument DefectKind = "malformed_document"
	DefectMissingTarget     DefectKind = "missing_conversion_target"
	DefectWrongStepCount    DefectKind = "wrong_step_count"
	DefectMissingFlowScript DefectKind = "missing_flow_script"
	DefectUnsafeContent     DefectKind = "unsafe_content"
	DefectGenerationFailed  DefectKind = "generation_failed"
	DefectUserReported      DefectKind = "user_reported"
)

// Defect is one detected deviation from the output invariants. Created
// by validation, consumed by the repair loop, never mutated in place:
// each repair attempt validates the new artifact into a fresh list.
type Defect struct {
	Kind         DefectKind `json:"kind"`
	Severity     Severity   `json:"severity"`
	Description  string     `json:"description"`
	LocationHint string     `json:"location_hint,omitempty"`
}

// blocking reports whether the defect prevents a success verdict.
func (d Defect) blocking() bool {
	return d.Severity == SeverityCritical || d.Severity == SeverityMajor
}

// Artifact is one produced variant. Immutable once created: repair
// produces a new Artifact pointing back via ParentID, preserving the
// audit trail.
type Artifact struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	HTML      string    `json:"html"`
	Success   bool      `json:"success"`
	Defects   []Defect  `json:"defects,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var newArtifactID = idgen.Prefixed("bld_", idgen.UUIDv7())

// NewArtifact wraps an externally supplied document as an Artifact,
// deriving success from the blocking defects. parentID may be empty.
func NewArtifact(parentID, html string, defects []Defect) *Artifact {
	return newArtifact(parentID, html, defects)
}

func newArtifact(parentID, html string, defects []Defect) *Artifact {
	success := true
	for _, d := range defects {
		if d.blocking() {
			success = false
			break
		}
	}
	return &Artifact{
		ID:        newArtifactID(),
		ParentID:  parentID,
		HTML:      html,
		Success:   success,
		Defects:   defects,
		CreatedAt: time.Now().UTC(),
	}
}
