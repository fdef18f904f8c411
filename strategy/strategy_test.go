package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/page"
)

// stubClient returns canned content or an error.
type stubClient struct {
	content string
	err     error
	calls   int
}

func (s *stubClient) Complete(_ context.Context, _ genai.Request) (*genai.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &genai.Response{Content: s.content}, nil
}

func testAnalysis() *page.Analysis {
	return &page.Analysis{
		Title:    "TrimFast",
		Vertical: "health",
		Tone:     "urgent",
		Tactics:  []string{"scarcity"},
		Flow:     page.FlowSpec{Type: page.MultiStep, TotalSteps: 3},
		Components: []page.Component{
			{ID: "headline-1", Type: page.Headline, Content: "Lose weight fast", Importance: page.Critical},
			{ID: "subheadline-2", Type: page.Subheadline, Content: "Doctors recommend it", Importance: page.Important},
			{ID: "image-3", Type: page.Image, Content: "bottle", Importance: page.Optional},
		},
	}
}

const goodPlan = "Here is the plan:\n```json\n" + `{
  "system_context": "You are building a health funnel.",
  "requirements": ["one CTA"],
  "suggestions": ["use scarcity"],
  "component_instructions": ["keep the headline"],
  "technical_requirements": ["inline CSS only"]
}` + "\n```"

func TestSynthesize_GenerativePath(t *testing.T) {
	client := &stubClient{content: goodPlan}
	bp := New(client, nil).Synthesize(context.Background(), testAnalysis(), "")

	if client.calls != 1 {
		t.Fatalf("calls: %d", client.calls)
	}
	if bp.SystemContext != "You are building a health funnel." {
		t.Fatalf("system context: %q", bp.SystemContext)
	}
	if bp.FullPrompt == "" || !strings.Contains(bp.FullPrompt, "one CTA") {
		t.Fatalf("full prompt not composed: %q", bp.FullPrompt)
	}
}

func TestSynthesize_MalformedResponseFallsBack(t *testing.T) {
	// WHAT: garbage from the model yields the deterministic plan with
	// the same schema populated.
	// WHY: downstream stages must be agnostic to which path ran.
	for _, content := range []string{"", "sure, here you go!", "{\"system_context\": \"x\"}"} {
		bp := New(&stubClient{content: content}, nil).Synthesize(context.Background(), testAnalysis(), "")
		if bp.SystemContext == "" || len(bp.Requirements) == 0 || len(bp.TechnicalRequirements) == 0 {
			t.Fatalf("fallback schema incomplete for %q: %+v", content, bp)
		}
		if !strings.Contains(bp.SystemContext, "health") {
			t.Fatalf("vertical lost: %q", bp.SystemContext)
		}
	}
}

func TestSynthesize_ClientErrorFallsBack(t *testing.T) {
	bp := New(&stubClient{err: errors.New("timeout")}, nil).Synthesize(context.Background(), testAnalysis(), "")
	if bp.FullPrompt == "" {
		t.Fatal("fallback produced empty prompt")
	}
	if !strings.Contains(bp.FullPrompt, "3-step flow") {
		t.Fatalf("multi-step requirement missing: %q", bp.FullPrompt)
	}
}

func TestSynthesize_NilClientUsesTemplate(t *testing.T) {
	a := testAnalysis()
	bp := New(nil, nil).Synthesize(context.Background(), a, "")

	joined := strings.Join(bp.ComponentInstructions, "\n")
	if !strings.Contains(joined, "Lose weight fast") {
		t.Fatalf("critical component dropped: %q", joined)
	}
	if strings.Contains(joined, "bottle") {
		t.Fatalf("optional component included: %q", joined)
	}
	if len(bp.Suggestions) == 0 || !strings.Contains(bp.Suggestions[0], "scarcity") {
		t.Fatalf("tactics not suggested: %+v", bp.Suggestions)
	}
}

func TestParsePlan_RawBraces(t *testing.T) {
	content := `Sure! {"system_context": "ctx", "requirements": ["r1"]} hope that helps`
	bp, err := parsePlan(content)
	if err != nil {
		t.Fatalf("parsePlan: %v", err)
	}
	if bp.SystemContext != "ctx" || len(bp.Requirements) != 1 {
		t.Fatalf("plan: %+v", bp)
	}
}

func TestFencedBlock_SkipsOtherLanguages(t *testing.T) {
	content := "```html\n<p>x</p>\n```\n```json\n{\"a\":1}\n```"
	got, ok := fencedBlock(content, "json")
	if !ok || got != `{"a":1}` {
		t.Fatalf("fencedBlock: %q %v", got, ok)
	}
}

func TestSummarize_Truncates(t *testing.T) {
	html := "<h1>Title</h1><p>" + strings.Repeat("word ", 500) + "</p>"
	md := Summarize(html, 100)
	if md == "" {
		t.Fatal("empty summary")
	}
	if len([]rune(md)) > 110 {
		t.Fatalf("summary not truncated: %d runes", len([]rune(md)))
	}
	if Summarize("", 100) != "" {
		t.Fatal("empty input should yield empty summary")
	}
}
