package build

import (
	"regexp"
	"strings"
)

// Extraction is the tagged result of pulling a document out of a raw
// completion: either a document or malformed, never a panic or an
// exception-shaped control flow.
type Extraction struct {
	HTML string
	OK   bool
}

var docStartRe = regexp.MustCompile(`(?i)<!DOCTYPE\s+html[^>]*>|<html[\s>]`)

// extractDocument pulls a complete document from untrusted completion
// text using layered extraction: a fenced ```html block first, then the
// raw text between the first document start marker and the last
// </html>. Content with no recognisable markers is Malformed.
func extractDocument(content string) Extraction {
	if body, ok := fencedBlock(content, "html"); ok {
		if doc, ok := markerSpan(body); ok {
			return Extraction{HTML: doc, OK: true}
		}
	}
	if doc, ok := markerSpan(content); ok {
		return Extraction{HTML: doc, OK: true}
	}
	return Extraction{}
}

// markerSpan finds the document start/end marker span in raw text.
func markerSpan(text string) (string, bool) {
	loc := docStartRe.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	end := strings.LastIndex(strings.ToLower(text), "</html>")
	if end < 0 || end < loc[0] {
		return "", false
	}
	return strings.TrimSpace(text[loc[0] : end+len("</html>")]), true
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
