package mutate

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/hazyhaar/refonte/dom"
)

// trackingParamDenylist is the fixed set of query parameters stripped
// by the StripTracking option. utm_ is a prefix match.
var trackingParamDenylist = []string{
	"utm_", "gclid", "fbclid", "msclkid", "ref",
}

// rewriteLinks applies, per detected link and in priority order: an
// explicit exact-URL replacement, then the first matching pattern rule,
// then the tracking-parameter strip. Invalid regex patterns degrade to
// substring matching (WARN-logged); this keeps the never-fails contract
// at the cost of conflating "invalid pattern" with "pattern miss".
// Rules that match no link at all are recorded as omitted entries.
func (e *Engine) rewriteLinks(doc *dom.Document, rules LinkRules, log *ChangeLog) {
	if len(rules.Replacements) == 0 && len(rules.Patterns) == 0 && !rules.StripTracking {
		return
	}

	matchers := e.compilePatterns(rules.Patterns)
	usedRepl := make(map[string]bool, len(rules.Replacements))
	usedPattern := make([]bool, len(matchers))
	strippedAny := false

	for _, link := range doc.ScanLinks() {
		before := link.URL
		res := e.rewriteOne(before, rules, matchers)
		switch {
		case res.byRepl:
			usedRepl[before] = true
		case res.pattern >= 0:
			usedPattern[res.pattern] = true
		case res.byStrip:
			strippedAny = true
		}
		if res.after == before {
			continue
		}
		sel := doc.Locate(link.Node).String()
		dom.SetAttr(link.Node, "href", res.after)
		log.applied(ChangeLink, sel, before, res.after, res.reason)
	}

	for _, u := range sortedKeys(rules.Replacements) {
		if !usedRepl[u] {
			log.omitted(ChangeLink, "", u, "no link matches replacement")
		}
	}
	for i, m := range matchers {
		if !usedPattern[i] {
			log.omitted(ChangeLink, "", m.rule.Pattern, "no link matches pattern")
		}
	}
	if rules.StripTracking && !strippedAny {
		log.omitted(ChangeLink, "", "", "no tracking parameters to strip")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type patternMatcher struct {
	rule PatternRule
	re   *regexp.Regexp // nil after fallback to substring matching
}

func (e *Engine) compilePatterns(patterns []PatternRule) []patternMatcher {
	matchers := make([]patternMatcher, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			e.logger.Warn("mutate: invalid link pattern, falling back to substring match",
				"pattern", p.Pattern, "error", err)
			re = nil
		}
		matchers = append(matchers, patternMatcher{rule: p, re: re})
	}
	return matchers
}

// linkRewrite is the outcome for one href: the resulting URL plus
// which rule class claimed it, so unmatched rules can be logged.
type linkRewrite struct {
	after   string
	reason  string
	byRepl  bool
	pattern int // matcher index, -1 when no pattern matched
	byStrip bool
}

func (e *Engine) rewriteOne(href string, rules LinkRules, matchers []patternMatcher) linkRewrite {
	if repl, ok := rules.Replacements[href]; ok && repl != "" {
		return linkRewrite{after: repl, reason: "explicit replacement", byRepl: true, pattern: -1}
	}
	for i, m := range matchers {
		if m.re != nil {
			if m.re.MatchString(href) {
				return linkRewrite{
					after:   m.re.ReplaceAllString(href, m.rule.Replacement),
					reason:  "pattern rule",
					pattern: i,
				}
			}
			continue
		}
		if m.rule.Pattern != "" && strings.Contains(href, m.rule.Pattern) {
			return linkRewrite{
				after:   strings.ReplaceAll(href, m.rule.Pattern, m.rule.Replacement),
				reason:  "pattern rule (substring)",
				pattern: i,
			}
		}
	}
	if rules.StripTracking {
		if stripped := stripTrackingParams(href); stripped != href {
			return linkRewrite{after: stripped, reason: "tracking parameter strip", byStrip: true, pattern: -1}
		}
	}
	return linkRewrite{after: href, pattern: -1}
}

// stripTrackingParams removes denylisted query parameters. URLs that do
// not parse are returned unchanged.
func stripTrackingParams(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.RawQuery == "" {
		return href
	}
	q := u.Query()
	changed := false
	for key := range q {
		if isDenylistedParam(key) {
			q.Del(key)
			changed = true
		}
	}
	if !changed {
		return href
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isDenylistedParam(key string) bool {
	lower := strings.ToLower(key)
	for _, d := range trackingParamDenylist {
		if strings.HasSuffix(d, "_") {
			if strings.HasPrefix(lower, d) {
				return true
			}
		} else if lower == d {
			return true
		}
	}
	return false
}
