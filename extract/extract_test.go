package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealhound/dealhound/models"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestCascade_FirstFallsThrough(t *testing.T) {
	c := MustCascade(
		Rule{Selector: ".primary"},
		Rule{Selector: ".secondary"},
		Rule{Selector: "h3"},
	)

	tests := []struct {
		name string
		html string
		want string
	}{
		{"primary wins", `<div><span class="primary">A</span><span class="secondary">B</span></div>`, "A"},
		{"secondary when primary missing", `<div><span class="secondary">B</span><h3>C</h3></div>`, "B"},
		{"generic tag last", `<div><h3>C</h3></div>`, "C"},
		{"empty primary skipped", `<div><span class="primary">  </span><h3>C</h3></div>`, "C"},
		{"nothing matches", `<div><p>other</p></div>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docFrom(t, tt.html)
			if got := c.First(doc.Selection); got != tt.want {
				t.Errorf("First = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCascade_AttrRule(t *testing.T) {
	c := MustCascade(
		Rule{Selector: "a.item-link", Attr: "href"},
		Rule{Selector: "a", Attr: "href"},
	)
	doc := docFrom(t, `<div><a href="/fallback">x</a><a class="item-link" href="/primary">y</a></div>`)
	if got := c.First(doc.Selection); got != "/primary" {
		t.Errorf("First = %q, want /primary", got)
	}
}

func TestContainers_CascadeFallthrough(t *testing.T) {
	html := `<div class="srp-list"><li class="s-item">one</li><li class="s-item">two</li></div>`
	doc := docFrom(t, html)

	got := Containers(doc, []string{"ul.results li.s-item", ".srp-list .s-item"})
	if got.Length() != 2 {
		t.Fatalf("Containers matched %d elements via second selector, want 2", got.Length())
	}
}

func TestContainers_CurrencyScanLastResort(t *testing.T) {
	html := `<div class="card"><div class="inner"><span>$49.99</span></div></div>`
	doc := docFrom(t, html)

	got := Containers(doc, []string{".no-such-container", ".also-missing"})
	if got.Length() == 0 {
		t.Fatal("currency scan found no containers")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"plain", "$99.99", 99.99, true},
		{"thousands", "$1,299.99", 1299.99, true},
		{"embedded", "now only $15.00 shipped", 15.00, true},
		{"already normalized", "1299.99", 1299.99, true},
		{"no price", "call for pricing", 0, false},
		{"integer without cents", "$1250", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParsePrice_Idempotent(t *testing.T) {
	first, ok := ParsePrice("$1,299.99")
	if !ok {
		t.Fatal("first parse failed")
	}
	second, ok := ParsePrice("1299.99")
	if !ok || second != first {
		t.Errorf("re-parse of normalized value = %v, want %v", second, first)
	}
}

func TestParseLoosePrice(t *testing.T) {
	got, ok := ParseLoosePrice("$1,250")
	if !ok || got != 1250 {
		t.Errorf("ParseLoosePrice($1,250) = %v, %v; want 1250, true", got, ok)
	}
	if _, ok := ParseLoosePrice("free"); ok {
		t.Error("ParseLoosePrice(free) unexpectedly succeeded")
	}
}

func TestSplitPrice(t *testing.T) {
	doc := docFrom(t, `<li class="price-current">$<strong>199</strong><sup>99</sup></li>`)
	got, ok := SplitPrice(doc.Find(".price-current"))
	if !ok || got != 199.99 {
		t.Errorf("SplitPrice = %v, %v; want 199.99, true", got, ok)
	}

	doc = docFrom(t, `<li class="price-current">$<strong>1,049</strong><sup>.00</sup></li>`)
	got, ok = SplitPrice(doc.Find(".price-current"))
	if !ok || got != 1049.00 {
		t.Errorf("SplitPrice with comma = %v, %v; want 1049, true", got, ok)
	}

	doc = docFrom(t, `<li class="price-current">see cart</li>`)
	if _, ok := SplitPrice(doc.Find(".price-current")); ok {
		t.Error("SplitPrice without strong/sup unexpectedly succeeded")
	}
}

func TestInferCondition_Priority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"like new beats new", "Barely touched, like new condition", models.ConditionLikeNew},
		{"like new beats used", "used once, basically like new", models.ConditionLikeNew},
		{"open box", "Open Box - never installed", models.ConditionOpenBox},
		{"refurbished", "Seller refurbished unit", models.ConditionRefurbished},
		{"plain new", "New in sealed packaging", models.ConditionNew},
		{"plain used", "well used but works", models.ConditionUsed},
		{"good condition", "in good condition overall", models.ConditionGood},
		{"nothing", "mystery item", models.ConditionNotSpecified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferCondition(tt.text); got != tt.want {
				t.Errorf("InferCondition(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Pre-Owned", models.ConditionUsed},
		{"Brand New", models.ConditionNew},
		{" Open Box ", models.ConditionOpenBox},
		{"", models.ConditionNotSpecified},
		{"Parts Only", "Parts Only"},
	}
	for _, tt := range tests {
		if got := NormalizeCondition(tt.raw); got != tt.want {
			t.Errorf("NormalizeCondition(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestAbsURL(t *testing.T) {
	tests := []struct {
		origin string
		href   string
		want   string
	}{
		{"https://www.newegg.com", "/p/N82E123", "https://www.newegg.com/p/N82E123"},
		{"https://www.facebook.com", "/marketplace/item/123/", "https://www.facebook.com/marketplace/item/123/"},
		{"https://www.ebay.com", "https://www.ebay.com/itm/42", "https://www.ebay.com/itm/42"},
		{"https://www.ebay.com", "", ""},
	}
	for _, tt := range tests {
		if got := AbsURL(tt.origin, tt.href); got != tt.want {
			t.Errorf("AbsURL(%q, %q) = %q, want %q", tt.origin, tt.href, got, tt.want)
		}
	}
}
