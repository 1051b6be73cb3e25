// Package ebay searches eBay listings over the plain-HTTP tier. eBay
// serves complete server-rendered result pages, so no browser is needed.
package ebay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealhound/dealhound/antibot"
	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/engine"
	"github.com/dealhound/dealhound/extract"
	"github.com/dealhound/dealhound/models"
)

const (
	baseURL = "https://www.ebay.com/sch/i.html?_nkw="
	origin  = "https://www.ebay.com"
)

// Listing-condition codes in the search URL grammar.
const (
	conditionCodeNew  = "1000"
	conditionCodeUsed = "3000"
)

var containerSelectors = []string{
	"li.s-item",
	".srp-results .s-item",
	".srp-list .s-item",
	`[data-view="mi:1686|iid:1"]`,
}

var (
	titleCascade = extract.MustCascade(
		extract.Rule{Selector: ".s-item__title"},
		extract.Rule{Selector: ".item-title"},
		extract.Rule{Selector: `h3[class*="title"]`},
	)
	priceCascade = extract.MustCascade(
		extract.Rule{Selector: ".s-item__price"},
		extract.Rule{Selector: ".item-price"},
		extract.Rule{Selector: `span[class*="price"]`},
	)
	linkCascade = extract.MustCascade(
		extract.Rule{Selector: "a.s-item__link", Attr: "href"},
		extract.Rule{Selector: `a[class*="item__link"]`, Attr: "href"},
		extract.Rule{Selector: `a[href*="itm/"]`, Attr: "href"},
	)
	conditionCascade = extract.MustCascade(
		extract.Rule{Selector: ".SECONDARY_INFO"},
		extract.Rule{Selector: ".s-item__subtitle"},
		extract.Rule{Selector: `span[class*="condition"]`},
	)
	shippingCascade = extract.MustCascade(
		extract.Rule{Selector: ".s-item__shipping"},
		extract.Rule{Selector: ".s-item__logisticsCost"},
		extract.Rule{Selector: `span[class*="shipping"]`},
	)
	imageCascade = extract.MustCascade(
		extract.Rule{Selector: ".s-item__image-img", Attr: "src"},
		extract.Rule{Selector: `img[class*="s-item"]`, Attr: "src"},
		extract.Rule{Selector: "img", Attr: "src"},
	)
)

// conditionLabels are scanned over a card's detail spans when the
// dedicated condition elements are absent.
var conditionLabels = []string{"New", "Used", "Pre-Owned", "Refurbished", "Open Box"}

// Adapter implements aggregator.Adapter for eBay.
type Adapter struct {
	fetcher engine.Fetcher
	snap    *antibot.Snapshotter
	max     int
}

func New(fetcher engine.Fetcher, cfg config.FetchConfig, snap *antibot.Snapshotter) *Adapter {
	return &Adapter{fetcher: fetcher, snap: snap, max: cfg.MaxResultsPerSite}
}

func (a *Adapter) Name() string { return "ebay" }

// Search fetches and extracts listings. Any primary attempt that yields
// no listings, whether it failed outright, came back blocked, or parsed
// to nothing, is retried once against the minimal backup URL with a
// fresh identity and a longer delay.
func (a *Adapter) Search(ctx context.Context, filters models.SearchFilters) []models.Product {
	url := BuildURL(filters)
	slog.Info("searching ebay", "url", url)

	products := a.attempt(ctx, &engine.Request{URL: url})
	if len(products) == 0 {
		backup := backupURL(filters)
		slog.Warn("ebay primary attempt yielded nothing, trying backup", "url", backup)
		products = a.attempt(ctx, &engine.Request{URL: backup, Attempt: 1})
	}
	slog.Info("ebay search complete", "results", len(products))
	return products
}

// attempt runs one fetch-and-extract pass. Every failure mode collapses
// to an empty slice; the cause is logged before the collapse.
func (a *Adapter) attempt(ctx context.Context, req *engine.Request) []models.Product {
	res, err := a.fetcher.Fetch(ctx, req)
	if err != nil {
		slog.Warn("ebay fetch failed", "url", req.URL, "error", err)
		return []models.Product{}
	}

	if antibot.SuspiciousContent(res.HTML) {
		slog.Warn("ebay response looks blocked", "url", req.URL)
		a.snap.SaveHTML("ebay_blocked", res.HTML)
		return []models.Product{}
	}

	products, err := parse(res.HTML, a.max)
	if err != nil {
		slog.Warn("ebay parse failed", "error", err)
		return []models.Product{}
	}
	return products
}

// BuildURL assembles the search URL from the filters. Keyword terms are
// joined with "+"; the price ceiling renders with two decimals.
func BuildURL(f models.SearchFilters) string {
	var sb strings.Builder
	sb.WriteString(baseURL)
	sb.WriteString(joinKeywords(f.Keywords))

	if f.MaxPrice > 0 {
		fmt.Fprintf(&sb, "&_udhi=%.2f", f.MaxPrice)
	}

	switch strings.ToLower(f.Condition) {
	case "new":
		sb.WriteString("&LH_ItemCondition=" + conditionCodeNew)
	case "used":
		sb.WriteString("&LH_ItemCondition=" + conditionCodeUsed)
	}

	if loc := f.Location; loc != nil && loc.Zipcode != "" {
		distance := loc.Distance
		if distance <= 0 {
			distance = models.DefaultSearchRadius
		}
		fmt.Fprintf(&sb, "&_stpos=%s&_localstpos=%s&_sadis=%d&LH_PrefLoc=1",
			loc.Zipcode, loc.Zipcode, distance)
	}
	return sb.String()
}

// backupURL is a minimal variant used on retry: keywords plus an
// unformatted price ceiling, nothing else. A simpler URL avoids the
// filter combinations that occasionally trip eBay's error page.
func backupURL(f models.SearchFilters) string {
	url := baseURL + joinKeywords(f.Keywords)
	if f.MaxPrice > 0 {
		url += fmt.Sprintf("&_udhi=%v", f.MaxPrice)
	}
	return url
}

func joinKeywords(keywords string) string {
	return strings.Join(strings.Fields(keywords), "+")
}

func parse(html string, max int) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	extract.Containers(doc, containerSelectors).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if p, ok := extractCard(card); ok {
			products = append(products, p)
		}
		return max <= 0 || len(products) < max
	})
	return products, nil
}

// extractCard pulls one listing from a result card. Title, price and
// link are mandatory; a card missing any of them is dropped.
func extractCard(card *goquery.Selection) (models.Product, bool) {
	// Cards after the "more items like this" divider are loose rewrites
	// of the query, not matches.
	if card.PrevAllFiltered(`li[class*="srp-river-answer"]`).Length() > 0 {
		return models.Product{}, false
	}

	title := strings.TrimSpace(titleCascade.First(card))
	if title == "" || strings.EqualFold(title, "Shop on eBay") {
		return models.Product{}, false
	}

	price, ok := extract.ParsePrice(priceCascade.First(card))
	if !ok {
		return models.Product{}, false
	}

	link := linkCascade.First(card)
	if link == "" {
		return models.Product{}, false
	}

	return models.Product{
		Title:     title,
		Price:     price,
		URL:       extract.AbsURL(origin, link),
		Condition: condition(card),
		Shipping:  strings.TrimSpace(shippingCascade.First(card)),
		Image:     imageCascade.First(card),
		Source:    models.SourceEbay,
	}, true
}

// condition reads the dedicated condition elements first, then scans the
// card's detail spans for a known label.
func condition(card *goquery.Selection) string {
	if raw := conditionCascade.First(card); strings.TrimSpace(raw) != "" {
		return extract.NormalizeCondition(raw)
	}

	found := ""
	card.Find(".s-item__details span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		for _, label := range conditionLabels {
			if strings.Contains(text, label) {
				found = extract.NormalizeCondition(label)
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}
	return models.ConditionNotSpecified
}
