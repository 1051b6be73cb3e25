// Package newegg searches Newegg listings. The plain-HTTP tier is tried
// first; a blocked or empty response escalates to the browser tier,
// since Newegg gates suspicious traffic behind a captcha wall.
package newegg

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealhound/dealhound/antibot"
	"github.com/dealhound/dealhound/browser"
	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/engine"
	"github.com/dealhound/dealhound/extract"
	"github.com/dealhound/dealhound/models"
)

const (
	baseURL = "https://www.newegg.com/p/pl?d="
	origin  = "https://www.newegg.com"
)

// Catalog facet codes in the search URL grammar. Newegg has no plain
// "used" facet; open box is the closest match.
const (
	facetNew         = "100167671"
	facetRefurbished = "100167670"
	facetOpenBox     = "100167669"
)

const gridSelector = ".item-cells-wrap"

// gridTimeout bounds the wait for the product grid to render in the
// browser tier.
const gridTimeout = 10 * time.Second

// captchaSelectors are checked in the browser tier before the content
// vocabulary scan.
var captchaSelectors = []string{
	".modal-content",
	"#captcha",
	`img[src*="captcha"]`,
	`div[class*="captcha"]`,
}

var cellSelectors = []string{
	".item-cell",
	"div.item-container",
	`div[class*="item-cell"]`,
	`div[class*="product-card"]`,
}

var (
	titleCascade = extract.MustCascade(
		extract.Rule{Selector: ".item-title"},
		extract.Rule{Selector: ".product-title"},
		extract.Rule{Selector: `[class*="title"]`},
	)
	priceCascade = extract.MustCascade(
		extract.Rule{Selector: ".price-current"},
		extract.Rule{Selector: ".product-price"},
		extract.Rule{Selector: `[class*="price"]`},
	)
	linkCascade = extract.MustCascade(
		extract.Rule{Selector: "a.item-title", Attr: "href"},
		extract.Rule{Selector: "a.product-title", Attr: "href"},
		extract.Rule{Selector: `a[href*="/p/"]`, Attr: "href"},
		extract.Rule{Selector: "a", Attr: "href"},
	)
	imageCascade = extract.MustCascade(
		extract.Rule{Selector: "img[src]", Attr: "src"},
	)
)

// Adapter implements aggregator.Adapter for Newegg.
type Adapter struct {
	fetcher engine.Fetcher
	pages   browser.PageFactory
	snap    *antibot.Snapshotter
	max     int
}

func New(fetcher engine.Fetcher, pages browser.PageFactory, cfg config.FetchConfig, snap *antibot.Snapshotter) *Adapter {
	return &Adapter{fetcher: fetcher, pages: pages, snap: snap, max: cfg.MaxResultsPerSite}
}

func (a *Adapter) Name() string { return "newegg" }

// Search runs the HTTP tier and escalates to the browser tier when it
// yields nothing. All failures collapse to an empty slice.
func (a *Adapter) Search(ctx context.Context, filters models.SearchFilters) []models.Product {
	url := BuildURL(filters)
	slog.Info("searching newegg", "url", url)

	products := a.overHTTP(ctx, url)
	if len(products) == 0 && a.pages != nil {
		slog.Info("no products over http, escalating newegg search to browser")
		products = a.overBrowser(ctx, url)
	}
	slog.Info("newegg search complete", "results", len(products))
	return products
}

// BuildURL assembles the search URL from the filters.
func BuildURL(f models.SearchFilters) string {
	var sb strings.Builder
	sb.WriteString(baseURL)
	sb.WriteString(strings.Join(strings.Fields(f.Keywords), "+"))

	if f.MaxPrice > 0 {
		sb.WriteString("&Price=%7B0%7D+TO+")
		sb.WriteString(strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}

	switch strings.ToLower(f.Condition) {
	case "new":
		sb.WriteString("&N=" + facetNew)
	case "refurbished":
		sb.WriteString("&N=" + facetRefurbished)
	case "used":
		sb.WriteString("&N=" + facetOpenBox)
	}
	return sb.String()
}

func (a *Adapter) overHTTP(ctx context.Context, url string) []models.Product {
	res, err := a.fetcher.Fetch(ctx, &engine.Request{URL: url})
	if err != nil {
		slog.Warn("newegg http fetch failed", "error", err)
		return []models.Product{}
	}
	if antibot.SuspiciousContent(res.HTML) {
		slog.Warn("captcha wall in newegg http response")
		a.snap.SaveHTML("newegg_blocked_http", res.HTML)
		return []models.Product{}
	}
	products, err := parse(res.HTML, a.max)
	if err != nil {
		slog.Warn("newegg parse failed", "error", err)
		return []models.Product{}
	}
	return products
}

func (a *Adapter) overBrowser(ctx context.Context, url string) []models.Product {
	d, err := a.pages(ctx)
	if err != nil {
		slog.Warn("newegg browser page unavailable", "error", err)
		return []models.Product{}
	}
	defer d.Close()

	if err := d.Navigate(url); err != nil {
		slog.Warn("newegg navigation failed", "error", err)
		return []models.Product{}
	}

	if antibot.SuspiciousPage(d, captchaSelectors) {
		slog.Warn("captcha wall on rendered newegg page")
		if html, err := d.HTML(); err == nil {
			a.snap.SaveHTML("newegg_captcha", html)
		}
		a.snap.SaveScreenshot(d, "newegg_captcha")
		return []models.Product{}
	}

	if !d.WaitVisible(gridSelector, gridTimeout) {
		// The grid may still be present but slow to paint; parse
		// whatever rendered.
		slog.Debug("newegg product grid wait expired")
	}

	html, err := d.HTML()
	if err != nil {
		slog.Warn("cannot read rendered newegg page", "error", err)
		return []models.Product{}
	}
	products, err := parse(html, a.max)
	if err != nil {
		slog.Warn("newegg parse failed", "error", err)
		return []models.Product{}
	}
	return products
}

func parse(html string, max int) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	products := []models.Product{}
	extract.Containers(doc, cellSelectors).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if p, ok := extractCell(cell); ok {
			products = append(products, p)
		}
		return max <= 0 || len(products) < max
	})
	return products, nil
}

// extractCell pulls one listing from a product cell. Title, price and
// link are mandatory.
func extractCell(cell *goquery.Selection) (models.Product, bool) {
	if cell.Find(".item-sponsored").Length() > 0 || cell.Find(`[class*="sponsor"]`).Length() > 0 {
		return models.Product{}, false
	}

	title := strings.TrimSpace(titleCascade.First(cell))
	if title == "" {
		return models.Product{}, false
	}

	price, ok := price(cell)
	if !ok {
		return models.Product{}, false
	}

	link := linkCascade.First(cell)
	if link == "" {
		return models.Product{}, false
	}

	return models.Product{
		Title:     title,
		Price:     price,
		URL:       extract.AbsURL(origin, link),
		Condition: condition(cell),
		Image:     imageCascade.First(cell),
		Specs:     specs(cell),
		Rating:    rating(cell),
		Source:    models.SourceNewegg,
	}, true
}

// price reads the current-price element, handling both the flat "$199.99"
// form and the split strong-dollars sup-cents form.
func price(cell *goquery.Selection) (float64, bool) {
	sel := priceCascade.FirstSelection(cell)
	if sel == nil {
		return 0, false
	}
	if p, ok := extract.ParsePrice(sel.Text()); ok {
		return p, true
	}
	return extract.SplitPrice(sel)
}

func condition(cell *goquery.Selection) string {
	branding := strings.ToLower(cell.Find(".item-branding").Text())
	switch {
	case strings.Contains(branding, "refurbished"):
		return models.ConditionRefurbished
	case strings.Contains(branding, "open box"):
		return models.ConditionOpenBox
	}
	return models.ConditionNew
}

func specs(cell *goquery.Selection) []string {
	var out []string
	cell.Find(".item-features li").Each(func(_ int, li *goquery.Selection) {
		if text := strings.TrimSpace(li.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// rating decodes the star count from the rating icon's class list, e.g.
// "rating rating-4".
func rating(cell *goquery.Selection) int {
	class, ok := cell.Find(".item-rating i.rating").Attr("class")
	if !ok {
		return 0
	}
	for _, cls := range strings.Fields(class) {
		if n, found := strings.CutPrefix(cls, "rating-"); found {
			if v, err := strconv.Atoi(n); err == nil {
				return v
			}
		}
	}
	return 0
}
