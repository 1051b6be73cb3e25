// Package antibot detects blocking challenges (CAPTCHA, human-verification
// interstitials, security checkpoints) before extraction runs. Detection
// is advisory: callers decide whether to snapshot, escalate, or abandon
// the attempt.
package antibot

import (
	"strings"
	"time"

	"github.com/dealhound/dealhound/browser"
)

// contentMarkers is the fixed vocabulary of blocking phrases. Matching is
// case-insensitive substring search over the raw HTML.
var contentMarkers = []string{
	"captcha",
	"robot",
	"verify you are a human",
	"are you a human",
	"security check",
}

// selectorWait bounds the per-selector check in SuspiciousPage so one
// absent selector never stalls detection.
const selectorWait = 2 * time.Second

// SuspiciousContent reports whether fetched HTML carries any blocking
// phrase from the fixed vocabulary.
func SuspiciousContent(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range contentMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SuspiciousPage checks a live page for source-specific challenge
// selectors, each with a short wait, then falls back to the content
// heuristic over the rendered HTML. Either signal is sufficient.
func SuspiciousPage(d browser.Driver, selectors []string) bool {
	for _, sel := range selectors {
		if d.WaitVisible(sel, selectorWait) {
			return true
		}
	}
	html, err := d.HTML()
	if err != nil {
		return false
	}
	return SuspiciousContent(html)
}
