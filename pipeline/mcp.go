package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/refonte/dom"
	"github.com/hazyhaar/refonte/kit"
	"github.com/hazyhaar/refonte/page"
)

// RegisterMCP registers all refonte tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerAnalyze(srv)
	p.registerBuild(srv)
	p.registerMutate(srv)
	p.registerRepair(srv)
}

// middleware is the stack every tool endpoint runs under.
func (p *Pipeline) middleware(op string) kit.Middleware {
	return kit.Chain(kit.Logging(p.logger, op), kit.Recover(p.logger))
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (p *Pipeline) registerAnalyze(srv *mcp.Server) {
	type req struct {
		SourceHTML string `json:"source_html"`
	}

	tool := &mcp.Tool{
		Name:        "refonte_analyze",
		Description: "Analyze a marketing page into its structural model: components, flow, conversion links, vertical and tone",
		InputSchema: inputSchema(map[string]any{
			"source_html": map[string]any{"type": "string", "description": "Full HTML of the page to analyze"},
		}, []string{"source_html"}),
	}

	endpoint := func(_ context.Context, r any) (any, error) {
		q := r.(*req)
		if q.SourceHTML == "" {
			return nil, fmt.Errorf("source_html is required")
		}
		doc, err := dom.ParseString(q.SourceHTML)
		if err != nil {
			return nil, err
		}
		return page.Analyze(doc), nil
	}

	kit.RegisterMCPTool(srv, tool, p.middleware(tool.Name)(endpoint), decodeJSON[req])
}

func (p *Pipeline) registerBuild(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "refonte_build",
		Description: "Generate validated page variants from a source page or a structural model",
		InputSchema: inputSchema(map[string]any{
			"source_html":     map[string]any{"type": "string", "description": "Full HTML of the source page"},
			"analysis":        map[string]any{"type": "object", "description": "Structural model; computed from source_html when omitted"},
			"target_override": map[string]any{"type": "string", "description": "Conversion target URL, overrides the detected one"},
			"variants":        map[string]any{"type": "integer", "description": "Number of variants to produce"},
			"user_reports":    map[string]any{"type": "array", "description": "Free-text defect reports folded into repair"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		q := r.(*BuildRequest)
		return p.Build(ctx, *q)
	}

	kit.RegisterMCPTool(srv, tool, p.middleware(tool.Name)(endpoint), decodeJSON[BuildRequest])
}

func (p *Pipeline) registerMutate(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "refonte_mutate",
		Description: "Apply deterministic edits (text, style, links, sections, toggles, injections) to a page and return the result with its change log",
		InputSchema: inputSchema(map[string]any{
			"source_html": map[string]any{"type": "string", "description": "Full HTML of the page to mutate"},
			"edits":       map[string]any{"type": "object", "description": "Edit set: text_rewrites, style_rewrites, links, remove_sections, toggles, injections"},
		}, []string{"source_html", "edits"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		q := r.(*MutateRequest)
		return p.Mutate(ctx, *q)
	}

	kit.RegisterMCPTool(srv, tool, p.middleware(tool.Name)(endpoint), decodeJSON[MutateRequest])
}

func (p *Pipeline) registerRepair(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "refonte_repair",
		Description: "Validate a produced page and run the bounded repair loop, folding in user-reported defects",
		InputSchema: inputSchema(map[string]any{
			"html":         map[string]any{"type": "string", "description": "Full HTML of the document to repair"},
			"artifact_id":  map[string]any{"type": "string", "description": "Artifact the document came from, recorded as parent"},
			"user_reports": map[string]any{"type": "array", "description": "Free-text defect reports"},
			"target_url":   map[string]any{"type": "string", "description": "Conversion target URL the document must carry"},
			"steps":        map[string]any{"type": "integer", "description": "Expected step count, 0 for single page"},
		}, []string{"html", "target_url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		q := r.(*RepairRequest)
		return p.Repair(ctx, *q)
	}

	kit.RegisterMCPTool(srv, tool, p.middleware(tool.Name)(endpoint), decodeJSON[RepairRequest])
}

func decodeJSON[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var q T
	if err := json.Unmarshal(r.Params.Arguments, &q); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &q}, nil
}
