// Package extract maps raw HTML into structured product fields using
// ordered cascades of selector strategies. Selector lists are data, not
// code branches: each site adapter declares its cascades and the fold
// here returns the first strategy that yields a value.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Rule is one step of a cascade: a CSS selector plus an optional
// attribute name. An empty Attr means "take the element text".
type Rule struct {
	Selector string
	Attr     string
}

type compiledRule struct {
	matcher cascadia.Selector
	attr    string
}

// Cascade is an ordered list of extraction strategies, most specific
// first. Selectors are compiled once at construction.
type Cascade struct {
	rules []compiledRule
}

// MustCascade compiles the given rules, panicking on an invalid selector.
// Cascades are static per-site data, so a bad selector is a programming
// error caught at startup.
func MustCascade(rules ...Rule) Cascade {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		sel, err := cascadia.Compile(r.Selector)
		if err != nil {
			panic("extract: bad selector " + r.Selector + ": " + err.Error())
		}
		compiled = append(compiled, compiledRule{matcher: sel, attr: r.Attr})
	}
	return Cascade{rules: compiled}
}

// First returns the value produced by the first rule that matches an
// element and yields a non-empty string. Text is whitespace-trimmed.
func (c Cascade) First(s *goquery.Selection) string {
	for _, r := range c.rules {
		match := s.FindMatcher(r.matcher).First()
		if match.Length() == 0 {
			continue
		}
		var val string
		if r.attr == "" {
			val = strings.TrimSpace(match.Text())
		} else {
			val, _ = match.Attr(r.attr)
			val = strings.TrimSpace(val)
		}
		if val != "" {
			return val
		}
	}
	return ""
}

// FirstSelection returns the first matching element itself, for fields
// that need more than a single string (split prices, class-encoded
// ratings). Returns nil when no rule matches.
func (c Cascade) FirstSelection(s *goquery.Selection) *goquery.Selection {
	for _, r := range c.rules {
		match := s.FindMatcher(r.matcher).First()
		if match.Length() > 0 {
			return match
		}
	}
	return nil
}
