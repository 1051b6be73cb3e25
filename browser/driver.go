package browser

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// rodDriver implements Driver over a Rod page.
type rodDriver struct {
	page *rod.Page
}

// NewPage opens a tab in the session with stealth JS installed and the
// default navigation timeout applied. The page inherits the session's
// persistent cookies and storage.
//
// Order matters: stealth injection and header setup only take effect for
// navigations that happen after they are installed.
func (s *Session) NewPage(ctx context.Context) (Driver, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	p := page.Context(ctx).Timeout(s.cfg.NavigationTimeout)

	if _, evalErr := p.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"error", evalErr,
		)
	}

	return &rodDriver{page: p}, nil
}

func (d *rodDriver) Navigate(target string) error {
	// A Google-search referer makes the navigation look organic.
	if u, parseErr := url.Parse(target); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(d.page)
	}

	if err := d.page.Navigate(target); err != nil {
		return err
	}
	if stableErr := d.page.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}
	return nil
}

func (d *rodDriver) HTML() (string, error) {
	return d.page.HTML()
}

func (d *rodDriver) CurrentURL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *rodDriver) Has(selector string) bool {
	ok, _, err := d.page.Has(selector)
	return err == nil && ok
}

func (d *rodDriver) WaitVisible(selector string, timeout time.Duration) bool {
	el, err := d.page.Timeout(timeout).Element(selector)
	if err != nil {
		return false
	}
	visible, err := el.Visible()
	return err == nil && visible
}

func (d *rodDriver) Click(selector string) error {
	el, err := d.page.Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *rodDriver) Fill(selector, value string) error {
	el, err := d.page.Element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(value)
}

func (d *rodDriver) Screenshot(path string) error {
	data, err := d.page.Screenshot(false, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (d *rodDriver) SetCookies(cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   path,
		})
	}
	return d.page.SetCookies(params)
}

func (d *rodDriver) Cookies() ([]Cookie, error) {
	raw, err := d.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return cookies, nil
}

func (d *rodDriver) Close() error {
	return d.page.Close()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
