package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/refonte/build"
)

var testMCPImpl = &mcp.Implementation{Name: "refonte-test", Version: "0.1.0"}

func mcpSession(t *testing.T, p *Pipeline) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	p.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Analyze(t *testing.T) {
	session := mcpSession(t, New(nil, Config{}, nil))

	text := mcpCallTool(t, session, "refonte_analyze", map[string]any{
		"source_html": validDoc,
	})

	var resp struct {
		Title      string `json:"title"`
		Components []struct {
			Type string `json:"type"`
		} `json:"components"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Title != "TrimFast" {
		t.Errorf("Title = %q", resp.Title)
	}
	if len(resp.Components) == 0 {
		t.Error("no components detected")
	}
}

func TestMCP_Build(t *testing.T) {
	session := mcpSession(t, New(nil, Config{}, nil))

	text := mcpCallTool(t, session, "refonte_build", map[string]any{
		"source_html": validDoc,
	})

	var arts []*build.Artifact
	if err := json.Unmarshal([]byte(text), &arts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("artifacts: %d", len(arts))
	}
	if !strings.Contains(arts[0].HTML, targetURL) {
		t.Error("target missing from built document")
	}
}

func TestMCP_Mutate(t *testing.T) {
	session := mcpSession(t, New(nil, Config{}, nil))

	text := mcpCallTool(t, session, "refonte_mutate", map[string]any{
		"source_html": validDoc,
		"edits": map[string]any{
			"text_rewrites": []map[string]any{
				{"original": "Lose weight fast", "replacement": "Feel great today"},
			},
		},
	})

	var resp MutateResult
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(resp.HTML, "Feel great today") {
		t.Error("rewrite not applied")
	}
	if resp.Log.AppliedCount() != 1 {
		t.Errorf("applied count = %d", resp.Log.AppliedCount())
	}
}

func TestMCP_Repair(t *testing.T) {
	session := mcpSession(t, New(nil, Config{}, nil))

	text := mcpCallTool(t, session, "refonte_repair", map[string]any{
		"html":       validDoc,
		"target_url": targetURL,
	})

	var art build.Artifact
	if err := json.Unmarshal([]byte(text), &art); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !art.Success {
		t.Errorf("clean document flagged: %+v", art.Defects)
	}
}

func TestMCP_BadArguments(t *testing.T) {
	session := mcpSession(t, New(nil, Config{}, nil))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "refonte_repair",
		Arguments: map[string]any{"html": ""},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	// GetError always returns nil on clients (the err field is
	// unexported and never marshaled); IsError is the wire-visible
	// signal that the server set a tool error.
	if !result.IsError {
		t.Fatal("expected tool error for missing target")
	}
}
