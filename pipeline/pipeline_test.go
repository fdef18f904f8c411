package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/refonte/build"
	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/mutate"
	"github.com/hazyhaar/refonte/page"
)

// scriptedClient replays canned responses in call order.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (s *scriptedClient) Complete(_ context.Context, _ genai.Request) (*genai.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.responses) {
		s.calls++
		return &genai.Response{Content: ""}, nil
	}
	content := s.responses[s.calls]
	s.calls++
	return &genai.Response{Content: content}, nil
}

// memSink collects recorded artifacts.
type memSink struct {
	mu   sync.Mutex
	arts []*build.Artifact
}

func (m *memSink) RecordAsync(a *build.Artifact) {
	m.mu.Lock()
	m.arts = append(m.arts, a)
	m.mu.Unlock()
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.arts)
}

const targetURL = "https://track.example.com/offer?id=9"

func singlePageAnalysis() *page.Analysis {
	return &page.Analysis{
		Title: "TrimFast",
		Flow:  page.FlowSpec{Type: page.SinglePage},
		Components: []page.Component{
			{ID: "headline-1", Type: page.Headline, Content: "Lose weight fast", Importance: page.Critical},
		},
		Links: []page.DetectedLink{
			{URL: targetURL, Text: "Claim now", Kind: "cta"},
		},
	}
}

const planJSON = "```json\n" + `{
  "system_context": "You are building a health funnel.",
  "requirements": ["one CTA above the fold"]
}` + "\n```"

const validDoc = `<!DOCTYPE html>
<html><head><title>TrimFast</title></head>
<body><h1>Lose weight fast</h1><p>Limited stock today.</p>
<a class="cta" href="https://track.example.com/offer?id=9">Claim now</a>
</body></html>`

// WHAT: a healthy generative round produces one successful artifact.
// WHY: the nominal path must not detour through repair or fallback.
func TestBuild_GenerativeSuccess(t *testing.T) {
	client := &scriptedClient{responses: []string{planJSON, validDoc}}
	p := New(client, Config{Variants: 1, MaxConcurrent: 1}, nil)

	arts, err := p.Build(context.Background(), BuildRequest{Analysis: singlePageAnalysis()})
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 {
		t.Fatalf("artifacts: %d", len(arts))
	}
	a := arts[0]
	if !a.Success {
		t.Fatalf("not successful: %+v", a.Defects)
	}
	if !strings.HasPrefix(a.ID, "bld_") {
		t.Fatalf("artifact id: %q", a.ID)
	}
	if !strings.Contains(a.HTML, targetURL) {
		t.Fatal("target URL missing from artifact")
	}
	if client.calls != 2 {
		t.Fatalf("client calls: %d, want 2 (plan + build)", client.calls)
	}
}

// WHAT: with no generative client every variant still yields a document.
// WHY: the fallback guarantee is the pipeline's core contract.
func TestBuild_NilClient_AlwaysYieldsArtifacts(t *testing.T) {
	p := New(nil, Config{Variants: 2, MaxConcurrent: 2}, nil)
	sink := &memSink{}
	p.SetSink(sink)

	arts, err := p.Build(context.Background(), BuildRequest{Analysis: singlePageAnalysis()})
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 2 {
		t.Fatalf("artifacts: %d", len(arts))
	}
	for i, a := range arts {
		if a == nil {
			t.Fatalf("artifact %d is nil", i)
		}
		if a.Success {
			t.Fatalf("artifact %d claims success without a client", i)
		}
		if !strings.Contains(a.HTML, "<html") || !strings.Contains(a.HTML, targetURL) {
			t.Fatalf("artifact %d is not a usable document", i)
		}
		found := false
		for _, d := range a.Defects {
			if d.Kind == build.DefectGenerationFailed {
				found = true
			}
		}
		if !found {
			t.Fatalf("artifact %d missing generation_failed defect", i)
		}
	}
	// Per variant: the builder's fallback plus the final fallback.
	if sink.count() != 4 {
		t.Fatalf("sink records: %d, want 4", sink.count())
	}
}

// WHAT: source HTML alone is enough; analysis and target come from it.
func TestBuild_FromSourceHTML(t *testing.T) {
	p := New(nil, Config{}, nil)
	arts, err := p.Build(context.Background(), BuildRequest{SourceHTML: validDoc})
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 {
		t.Fatalf("artifacts: %d", len(arts))
	}
	if !strings.Contains(arts[0].HTML, targetURL) {
		t.Fatal("target not carried from scanned links")
	}
}

func TestBuild_NoInput(t *testing.T) {
	p := New(nil, Config{}, nil)
	if _, err := p.Build(context.Background(), BuildRequest{}); err == nil {
		t.Fatal("expected input error")
	}
}

// WHAT: an analysis with no rankable link and no override is rejected
// up front, before any generation.
func TestBuild_NoTarget(t *testing.T) {
	a := singlePageAnalysis()
	a.Links = nil
	p := New(nil, Config{}, nil)
	if _, err := p.Build(context.Background(), BuildRequest{Analysis: a}); err == nil {
		t.Fatal("expected target resolution error")
	}
}

func TestBuild_TargetOverrideWins(t *testing.T) {
	p := New(nil, Config{}, nil)
	arts, err := p.Build(context.Background(), BuildRequest{
		Analysis:       singlePageAnalysis(),
		TargetOverride: "https://other.example.com/lp",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(arts[0].HTML, "https://other.example.com/lp") {
		t.Fatal("override target not used")
	}
}

// WHAT: sequential mode preserves variant order.
func TestBuild_Sequential(t *testing.T) {
	p := New(nil, Config{Variants: 3, MaxConcurrent: 1, Throttle: 1}, nil)
	arts, err := p.Build(context.Background(), BuildRequest{Analysis: singlePageAnalysis()})
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 3 {
		t.Fatalf("artifacts: %d", len(arts))
	}
	for i, a := range arts {
		if a == nil {
			t.Fatalf("artifact %d is nil", i)
		}
	}
}

func TestMutate_TextRewrite(t *testing.T) {
	p := New(nil, Config{}, nil)
	res, err := p.Mutate(context.Background(), MutateRequest{
		SourceHTML: validDoc,
		Edits: mutate.EditSet{
			TextRewrites: []mutate.TextRewrite{
				{Original: "Lose weight fast", Replacement: "Feel great today"},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.HTML, "Feel great today") {
		t.Fatal("rewrite not applied")
	}
	if res.Log.AppliedCount() != 1 {
		t.Fatalf("applied count: %d", res.Log.AppliedCount())
	}
}

func TestMutate_EmptySource(t *testing.T) {
	p := New(nil, Config{}, nil)
	if _, err := p.Mutate(context.Background(), MutateRequest{}); err == nil {
		t.Fatal("expected input error")
	}
}

// WHAT: a clean document passes repair untouched.
func TestRepair_CleanDocument(t *testing.T) {
	p := New(nil, Config{}, nil)
	art, err := p.Repair(context.Background(), RepairRequest{
		HTML:       validDoc,
		ArtifactID: "bld_parent",
		TargetURL:  targetURL,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !art.Success {
		t.Fatalf("defects on clean document: %+v", art.Defects)
	}
	if art.ParentID != "bld_parent" {
		t.Fatalf("parent id: %q", art.ParentID)
	}
	if art.HTML != validDoc {
		t.Fatal("clean document was altered")
	}
}

// WHAT: a document missing its conversion target is flagged, and with
// no client available the flaw stays on record.
func TestRepair_MissingTarget(t *testing.T) {
	doc := strings.ReplaceAll(validDoc, targetURL, "https://elsewhere.example.com/x")
	p := New(nil, Config{}, nil)
	art, err := p.Repair(context.Background(), RepairRequest{HTML: doc, TargetURL: targetURL})
	if err != nil {
		t.Fatal(err)
	}
	if art.Success {
		t.Fatal("missing target went undetected")
	}
	found := false
	for _, d := range art.Defects {
		if d.Kind == build.DefectMissingTarget {
			found = true
		}
	}
	if !found {
		t.Fatalf("defects: %+v", art.Defects)
	}
}

func TestRepair_InputErrors(t *testing.T) {
	p := New(nil, Config{}, nil)
	if _, err := p.Repair(context.Background(), RepairRequest{TargetURL: targetURL}); err == nil {
		t.Fatal("expected error for empty document")
	}
	if _, err := p.Repair(context.Background(), RepairRequest{HTML: validDoc}); err == nil {
		t.Fatal("expected error for missing target")
	}
}
