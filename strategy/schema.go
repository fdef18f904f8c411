package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parsePlan extracts the plan JSON from an untrusted completion and
// decodes it. The response is treated as free text: a fenced ```json
// block wins, then the outermost brace span.
func parsePlan(content string) (*BuildPrompt, error) {
	raw, ok := extractJSON(content)
	if !ok {
		return nil, fmt.Errorf("strategy: no JSON object in response")
	}
	var bp BuildPrompt
	if err := json.Unmarshal([]byte(raw), &bp); err != nil {
		return nil, fmt.Errorf("strategy: plan decode: %w", err)
	}
	if bp.SystemContext == "" || len(bp.Requirements) == 0 {
		return nil, fmt.Errorf("strategy: plan missing required fields")
	}
	return &bp, nil
}

// extractJSON returns the best JSON candidate in the text.
func extractJSON(content string) (string, bool) {
	if fenced, ok := fencedBlock(content, "json"); ok {
		return fenced, true
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// fencedBlock returns the body of the first ``` fence whose info string
// matches lang (or is empty).
func fencedBlock(content, lang string) (string, bool) {
	rest := content
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			return "", false
		}
		rest = rest[open+3:]
		nl := strings.Index(rest, "\n")
		if nl < 0 {
			return "", false
		}
		info := strings.TrimSpace(rest[:nl])
		body := rest[nl+1:]
		closing := strings.Index(body, "```")
		if closing < 0 {
			return "", false
		}
		if info == "" || strings.EqualFold(info, lang) {
			return strings.TrimSpace(body[:closing]), true
		}
		rest = body[closing+3:]
	}
}
