// Package mutate applies non-generative edits to a Document: section
// removal, component toggles, text and style rewriting, link/tracking
// rewriting and element injection.
//
// The engine never fails: an edit that matches nothing is a logged
// no-op. Every applied or omitted edit lands in an append-only change
// log threaded through the run, so independent Documents can be mutated
// concurrently without shared state.
package mutate

// ChangeType tags one entry in the change log.
type ChangeType string

const (
	ChangeRemoveSection ChangeType = "remove_section"
	ChangeToggle        ChangeType = "toggle_component"
	ChangeText          ChangeType = "rewrite_text"
	ChangeStyle         ChangeType = "rewrite_style"
	ChangeLink          ChangeType = "rewrite_link"
	ChangeInject        ChangeType = "inject_element"
)

// ChangeStatus records whether an edit was applied or skipped.
type ChangeStatus string

const (
	StatusApplied ChangeStatus = "applied"
	StatusOmitted ChangeStatus = "omitted"
)

// ChangeEntry is one ledger line. Before/After hold the affected
// fragment or value, empty when not meaningful for the edit type.
type ChangeEntry struct {
	Type     ChangeType   `json:"type"`
	Status   ChangeStatus `json:"status"`
	Selector string       `json:"selector,omitempty"`
	Before   string       `json:"before,omitempty"`
	After    string       `json:"after,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

// ChangeLog is the append-only record of one engine run.
type ChangeLog struct {
	Entries []ChangeEntry `json:"entries"`
}

func (l *ChangeLog) applied(t ChangeType, selector, before, after, reason string) {
	l.Entries = append(l.Entries, ChangeEntry{
		Type: t, Status: StatusApplied,
		Selector: selector, Before: before, After: after, Reason: reason,
	})
}

func (l *ChangeLog) omitted(t ChangeType, selector, before, reason string) {
	l.Entries = append(l.Entries, ChangeEntry{
		Type: t, Status: StatusOmitted,
		Selector: selector, Before: before, Reason: reason,
	})
}

// AppliedCount returns how many entries were actually applied.
func (l *ChangeLog) AppliedCount() int {
	n := 0
	for _, e := range l.Entries {
		if e.Status == StatusApplied {
			n++
		}
	}
	return n
}

// TextRewrite replaces the first verbatim occurrence of Original inside
// the element addressed by Selector (empty selector = whole body). A
// rewrite whose fragment is not found verbatim is discarded, never
// applied speculatively.
type TextRewrite struct {
	Selector    string `json:"selector,omitempty"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason,omitempty"`
}

// StyleRewrite substitutes one color/font token by exact string match
// inside <style> blocks and inline style attributes.
type StyleRewrite struct {
	OldToken string `json:"old_token"`
	NewToken string `json:"new_token"`
	Reason   string `json:"reason,omitempty"`
}

// PatternRule rewrites link URLs matching Pattern (regex). An invalid
// regex degrades to substring matching rather than failing the run.
type PatternRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// LinkRules configures link/tracking rewriting, applied per link in
// priority order: exact replacement, then pattern rules, then the
// option-driven tracking-parameter strip.
type LinkRules struct {
	Replacements  map[string]string `json:"replacements,omitempty"` // exact URL -> new URL
	Patterns      []PatternRule     `json:"patterns,omitempty"`
	StripTracking bool              `json:"strip_tracking,omitempty"`
}

// Toggles disables whole component classes.
type Toggles struct {
	DisableForms  bool `json:"disable_forms,omitempty"`
	DisableVideos bool `json:"disable_videos,omitempty"`
	DisableLists  bool `json:"disable_lists,omitempty"`
	DisableImages bool `json:"disable_images,omitempty"`
}

// Position places an injected fragment relative to its target.
type Position string

const (
	Append  Position = "append"
	Prepend Position = "prepend"
)

// Injection inserts an HTML fragment into the element addressed by
// Selector (empty selector = body).
type Injection struct {
	Selector string   `json:"selector,omitempty"`
	Position Position `json:"position,omitempty"`
	HTML     string   `json:"html"`
	Reason   string   `json:"reason,omitempty"`
}

// EditSet is everything one engine run applies, in the engine's fixed
// order regardless of field order here.
type EditSet struct {
	RemoveSections []string       `json:"remove_sections,omitempty"`
	Toggles        Toggles        `json:"toggles,omitempty"`
	TextRewrites   []TextRewrite  `json:"text_rewrites,omitempty"`
	StyleRewrites  []StyleRewrite `json:"style_rewrites,omitempty"`
	Links          LinkRules      `json:"links,omitempty"`
	Injections     []Injection    `json:"injections,omitempty"`
}

// Empty reports whether the set contains no edits at all.
func (s *EditSet) Empty() bool {
	return len(s.RemoveSections) == 0 &&
		s.Toggles == (Toggles{}) &&
		len(s.TextRewrites) == 0 &&
		len(s.StyleRewrites) == 0 &&
		len(s.Links.Replacements) == 0 && len(s.Links.Patterns) == 0 && !s.Links.StripTracking &&
		len(s.Injections) == 0
}
