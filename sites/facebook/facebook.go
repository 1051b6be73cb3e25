// Package facebook searches Facebook Marketplace. Marketplace renders
// nothing without JavaScript, so this adapter is browser-tier only. It
// works best with a logged-in session but degrades to whatever the
// anonymous view exposes when credentials are absent or login fails.
package facebook

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealhound/dealhound/antibot"
	"github.com/dealhound/dealhound/browser"
	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/extract"
	"github.com/dealhound/dealhound/models"
	"github.com/dealhound/dealhound/session"
)

const (
	origin         = "https://www.facebook.com"
	marketplaceURL = "https://www.facebook.com/marketplace/"
	searchURL      = "https://www.facebook.com/marketplace/search?query="
)

// fallbackTitle is used when a listing link carries no usable text.
const fallbackTitle = "Facebook Marketplace Item"

// noResultsMessages are the phrasings Marketplace uses for an empty
// result set.
var noResultsMessages = []string{
	"No results found",
	"We couldn't find any results",
	"We didn't find any results",
}

var itemLinkSelectors = []string{
	`a[href*="/marketplace/item/"]`,
	`a[href*="/item/"]`,
}

// Adapter implements aggregator.Adapter for Facebook Marketplace.
type Adapter struct {
	pages   browser.PageFactory
	session *session.Manager
	snap    *antibot.Snapshotter
	max     int
}

func New(pages browser.PageFactory, sess *session.Manager, cfg config.FetchConfig, snap *antibot.Snapshotter) *Adapter {
	return &Adapter{pages: pages, session: sess, snap: snap, max: cfg.MaxResultsPerSite}
}

func (a *Adapter) Name() string { return "facebook" }

// Search opens a page in the persistent profile, restores the saved
// session, logs in when possible and extracts listings from the search
// results. Every failure mode collapses to an empty slice.
func (a *Adapter) Search(ctx context.Context, filters models.SearchFilters) []models.Product {
	if a.pages == nil {
		slog.Warn("facebook search skipped, no browser configured")
		return []models.Product{}
	}

	d, err := a.pages(ctx)
	if err != nil {
		slog.Warn("facebook browser page unavailable", "error", err)
		return []models.Product{}
	}
	defer d.Close()

	a.session.Restore(d)

	if err := d.Navigate(marketplaceURL); err != nil {
		slog.Warn("cannot reach marketplace", "error", err)
		return []models.Product{}
	}
	if !a.session.LoginIfNeeded(ctx, d) {
		slog.Info("continuing facebook search unauthenticated")
	}

	url := BuildURL(filters)
	slog.Info("searching facebook marketplace", "url", url)
	if err := d.Navigate(url); err != nil {
		slog.Warn("facebook search navigation failed", "error", err)
		return []models.Product{}
	}
	// The search URL can bounce through a login redirect. Only then is a
	// login retried; a successful retry lands on the home feed, so the
	// results page has to be requested again before it is read.
	if bouncedToLogin(d) {
		if a.session.LoginIfNeeded(ctx, d) {
			if err := d.Navigate(url); err != nil {
				slog.Warn("facebook search navigation failed", "error", err)
				return []models.Product{}
			}
		}
	}

	html, err := d.HTML()
	if err != nil {
		slog.Warn("cannot read facebook results page", "error", err)
		return []models.Product{}
	}

	for _, msg := range noResultsMessages {
		if strings.Contains(html, msg) {
			slog.Info("facebook returned no results")
			return []models.Product{}
		}
	}

	products, err := parse(html, a.max)
	if err != nil {
		slog.Warn("facebook parse failed", "error", err)
		return []models.Product{}
	}
	if len(products) == 0 {
		slog.Warn("no listings found on facebook results page")
		a.snap.SaveScreenshot(d, "fb_no_products")
		a.snap.SaveHTML("fb_no_products", html)
	}
	slog.Info("facebook search complete", "results", len(products))
	return products
}

// bouncedToLogin reports whether the last navigation was redirected to
// the login or checkpoint surface instead of the requested page.
func bouncedToLogin(d browser.Driver) bool {
	url := d.CurrentURL()
	return strings.Contains(url, "login") || strings.Contains(url, "checkpoint")
}

// BuildURL assembles the Marketplace search URL. Keyword terms are
// joined with "%20"; the condition narrows to new or used only, which
// is the vocabulary Marketplace understands.
func BuildURL(f models.SearchFilters) string {
	var sb strings.Builder
	sb.WriteString(searchURL)
	sb.WriteString(strings.Join(strings.Fields(f.Keywords), "%20"))

	if f.MaxPrice > 0 {
		sb.WriteString("&maxPrice=")
		sb.WriteString(strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}

	if f.Condition != "" {
		cond := "used"
		if strings.EqualFold(f.Condition, "new") {
			cond = "new"
		}
		sb.WriteString("&condition=" + cond)
	}
	return sb.String()
}

// parse extracts listings from item links. Marketplace markup is a wall
// of generated class names, so the link href is the only stable anchor;
// title and price come from scanning the link's text nodes.
func parse(html string, max int) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var links *goquery.Selection
	for _, sel := range itemLinkSelectors {
		links = doc.Find(sel)
		if links.Length() > 0 {
			break
		}
	}

	products := []models.Product{}
	seen := map[string]bool{}
	links.EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}
		url := extract.AbsURL(origin, href)
		if seen[url] {
			return true
		}
		seen[url] = true

		title, price := titleAndPrice(link)
		products = append(products, models.Product{
			Title:     title,
			Price:     price,
			URL:       url,
			Condition: extract.InferCondition(link.Text()),
			Image:     imageOf(link),
			Source:    models.SourceFacebook,
		})
		return max <= 0 || len(products) < max
	})
	return products, nil
}

// titleAndPrice scans the link's spans and divs. The first non-price
// text longer than five characters is the title; the first text with a
// dollar sign is the price. A listing without a readable price keeps
// price zero rather than being dropped, since Marketplace hides prices
// from logged-out visitors.
func titleAndPrice(link *goquery.Selection) (string, float64) {
	title := fallbackTitle
	price := 0.0
	foundTitle, foundPrice := false, false

	link.Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		if !foundTitle && !strings.Contains(text, "$") && len(text) > 5 {
			title = text
			foundTitle = true
		}
		if !foundPrice && strings.Contains(text, "$") {
			if p, ok := extract.ParseLoosePrice(text); ok {
				price = p
				foundPrice = true
			}
		}
		return !(foundTitle && foundPrice)
	})
	return title, price
}

func imageOf(link *goquery.Selection) string {
	src, _ := link.Find("img").First().Attr("src")
	return src
}
