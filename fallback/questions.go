package fallback

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/refonte/page"
)

// DefaultPrompts is the canonical yes/no sequence used when the source
// page yields no usable questions.
var DefaultPrompts = []string{
	"Are you over 18?",
	"Are you looking to meet someone?",
	"Are you ready to start?",
}

// fillerPrompts pad the question list when a flow needs more steps than
// the page (and the defaults) can supply.
var fillerPrompts = []string{
	"Do you want to see your results?",
	"Would you like exclusive access?",
	"Are you ready to continue?",
}

// maxMinedQuestions caps how many prompts are pulled from the page.
const maxMinedQuestions = 5

// minQuestionLen rejects fragments too short to be a real prompt.
const minQuestionLen = 10

var questionAuxiliaries = []string{
	"are ", "do ", "does ", "did ", "is ", "can ", "could ", "will ",
	"would ", "have ", "has ", "should ", "what ", "which ", "how ",
}

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(click|tap|press|select|choose|enter|type|fill)\b`),
	regexp.MustCompile(`(?i)lorem ipsum`),
	regexp.MustCompile(`(?i)^(step|question|page)\s*\d`),
	regexp.MustCompile(`(?i)^(yes|no|next|continue|submit|ok)[.!?]?$`),
	regexp.MustCompile(`(?i)\b(placeholder|example text|your text here)\b`),
}

// MineQuestions extracts up to maxMinedQuestions quiz-like prompts from
// the analysed components, in document order.
func MineQuestions(a *page.Analysis) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range a.Components {
		for _, candidate := range splitSentences(c.Content) {
			q := strings.TrimSpace(candidate)
			if !isQuestion(q) || seen[strings.ToLower(q)] {
				continue
			}
			seen[strings.ToLower(q)] = true
			out = append(out, q)
			if len(out) == maxMinedQuestions {
				return out
			}
		}
	}
	return out
}

// isQuestion is the classification heuristic: question mark or leading
// auxiliary, long enough, and not a known placeholder/instruction.
func isQuestion(s string) bool {
	if len(s) < minQuestionLen {
		return false
	}
	for _, pat := range placeholderPatterns {
		if pat.MatchString(s) {
			return false
		}
	}
	if strings.HasSuffix(s, "?") {
		return true
	}
	lower := strings.ToLower(s)
	for _, aux := range questionAuxiliaries {
		if strings.HasPrefix(lower, aux) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	// Keep the terminator attached so the "?" check still works.
	var out []string
	start := 0
	for i, r := range text {
		if r == '?' || r == '!' || r == '.' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// promptList sizes the mined questions to exactly n steps: truncate
// when over, pad from the canonical and filler prompts when under.
func promptList(mined []string, n int) []string {
	if len(mined) >= n {
		return mined[:n]
	}
	out := append([]string{}, mined...)
	pool := append(append([]string{}, DefaultPrompts...), fillerPrompts...)
	for _, p := range pool {
		if len(out) == n {
			break
		}
		if !contains(out, p) {
			out = append(out, p)
		}
	}
	// Degenerate flows larger than the pool repeat the last filler.
	for len(out) < n {
		out = append(out, fillerPrompts[len(fillerPrompts)-1])
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
