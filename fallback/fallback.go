// Package fallback synthesises a minimally correct page variant without
// any generative call. It is the pipeline's last line: whenever the
// builder or the repair loop cannot produce a compliant document, this
// package must — it is a pure function of the structural model and the
// conversion target, and it always succeeds.
package fallback

import (
	"fmt"
	"html"
	"strings"

	"github.com/hazyhaar/refonte/page"
)

// Synthesize emits a self-contained document for the analysed flow:
// a step-quiz for multi-step, a hero page for single-page. Both satisfy
// the builder's structural invariants independently (document markers,
// literal conversion-target URL, working flow control).
func Synthesize(a *page.Analysis, target page.ConversionTarget) string {
	if a != nil && a.Flow.Type == page.MultiStep {
		steps := a.Flow.TotalSteps
		if steps < 1 {
			steps = len(DefaultPrompts)
		}
		return multiStepDoc(pageTitle(a), promptList(MineQuestions(a), steps), target.TrackingURL)
	}
	return singlePageDoc(a, target.TrackingURL)
}

func pageTitle(a *page.Analysis) string {
	if a != nil && a.Title != "" {
		return a.Title
	}
	return "One quick question"
}

// multiStepDoc renders one visible step at a time, a progress bar, and
// a script that advances the step index and redirects to the target
// once the index exceeds the question count.
func multiStepDoc(title string, prompts []string, targetURL string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title))
	sb.WriteString(`<style>
body { margin: 0; font-family: -apple-system, Segoe UI, Roboto, sans-serif; background: #101826; color: #fff; display: flex; min-height: 100vh; align-items: center; justify-content: center; }
.card { width: 92%; max-width: 460px; background: #18233a; border-radius: 14px; padding: 32px 28px; text-align: center; }
.progress { height: 6px; background: #273554; border-radius: 3px; margin-bottom: 28px; overflow: hidden; }
.progress-bar { height: 100%; width: 0; background: #3ddc84; transition: width .3s; }
.step { display: none; }
.step.active { display: block; }
.step h2 { font-size: 1.4rem; margin: 0 0 24px; }
.answers button { display: inline-block; margin: 6px; padding: 14px 40px; font-size: 1.05rem; border: 0; border-radius: 8px; background: #3ddc84; color: #06210f; cursor: pointer; }
.answers button.no { background: #273554; color: #fff; }
</style>
</head>
<body>
<div class="card">
<div class="progress"><div class="progress-bar" id="progress"></div></div>
`)
	for i, prompt := range prompts {
		active := ""
		if i == 0 {
			active = " active"
		}
		fmt.Fprintf(&sb, `<div class="step%s" id="step-%d">
<h2>%s</h2>
<div class="answers">
<button onclick="nextStep()">Yes</button>
<button class="no" onclick="nextStep()">No</button>
</div>
</div>
`, active, i+1, html.EscapeString(prompt))
	}
	fmt.Fprintf(&sb, `</div>
<script>
var REDIRECT_URL = %q;
var TOTAL_STEPS = %d;
var step = 1;
function nextStep() {
  step++;
  if (step > TOTAL_STEPS) {
    window.location.href = REDIRECT_URL;
    return;
  }
  var steps = document.querySelectorAll('.step');
  for (var i = 0; i < steps.length; i++) { steps[i].className = 'step'; }
  document.getElementById('step-' + step).className = 'step active';
  document.getElementById('progress').style.width = ((step - 1) / TOTAL_STEPS * 100) + '%%';
}
</script>
</body>
</html>
`, targetURL, len(prompts))
	return sb.String()
}

// singlePageDoc renders a hero with one call to action anchored to the
// conversion target.
func singlePageDoc(a *page.Analysis, targetURL string) string {
	headline := "You qualify for this exclusive offer"
	sub := "Claim your spot before it's gone."
	if a != nil {
		if hs := a.ByType(page.Headline); len(hs) > 0 && hs[0].Content != "" {
			headline = hs[0].Content
		}
		if subs := a.ByType(page.Subheadline); len(subs) > 0 && subs[0].Content != "" {
			sub = subs[0].Content
		}
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(pageTitle(a)))
	sb.WriteString(`<style>
body { margin: 0; font-family: -apple-system, Segoe UI, Roboto, sans-serif; background: linear-gradient(160deg, #101826, #1d2c4f); color: #fff; display: flex; min-height: 100vh; align-items: center; justify-content: center; text-align: center; }
.hero { width: 92%; max-width: 560px; padding: 40px 24px; }
h1 { font-size: 2.1rem; margin: 0 0 16px; }
p { font-size: 1.15rem; color: #c4cee4; margin: 0 0 32px; }
.cta { display: inline-block; padding: 18px 56px; font-size: 1.2rem; font-weight: 600; border-radius: 10px; background: #3ddc84; color: #06210f; text-decoration: none; }
</style>
</head>
<body>
<div class="hero">
`)
	fmt.Fprintf(&sb, "<h1>%s</h1>\n<p>%s</p>\n", html.EscapeString(headline), html.EscapeString(sub))
	fmt.Fprintf(&sb, "<a class=\"cta\" href=%q>Continue &rarr;</a>\n", targetURL)
	sb.WriteString("</div>\n</body>\n</html>\n")
	return sb.String()
}
