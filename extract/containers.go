package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxAncestorWalk bounds how far the currency-scan fallback climbs when
// approximating a listing container around a price node.
const maxAncestorWalk = 5

// Containers discovers listing containers in a results page. It tries
// each selector in order and returns the first non-empty match set.
// When every selector misses (layout drift), it falls back to scanning
// for elements containing a currency symbol and walking their ancestors
// to approximate containers.
func Containers(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			return found
		}
	}
	return currencyScan(doc)
}

// currencyScan is the last-resort container discovery: any span/div whose
// own text holds a "$" marks a candidate, and its nearest div ancestors
// (bounded walk) are treated as approximate containers.
func currencyScan(doc *goquery.Document) *goquery.Selection {
	containers := doc.Find("dealhound-no-such-element") // empty selection

	doc.Find("span, div").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(s.Text(), "$") {
			return
		}
		parent := s.Parent()
		for i := 0; i < maxAncestorWalk && parent.Length() > 0; i++ {
			if goquery.NodeName(parent) == "div" {
				containers = containers.AddSelection(parent)
			}
			parent = parent.Parent()
		}
	})
	return containers
}
