// Package drivertest provides a scripted in-memory browser.Driver for
// tests that exercise session and adapter logic without a Chromium.
package drivertest

import (
	"errors"
	"time"

	"github.com/dealhound/dealhound/browser"
)

// Fake is a programmable Driver. Pages maps URLs to the HTML "rendered"
// after navigating there; Present lists selectors considered present on
// the current page; Visible lists selectors WaitVisible succeeds for.
type Fake struct {
	Pages   map[string]string
	Present map[string]bool
	Visible map[string]bool

	// NavigateErr, when set, fails every navigation.
	NavigateErr error

	// URL is the current location; Navigate updates it.
	URL string

	// Jar holds injected/collected cookies.
	Jar []browser.Cookie

	// Recorded interactions, in order.
	Navigations []string
	Clicks      []string
	Fills       map[string]string
	Screenshots []string

	// Hooks lets a test mutate state after a navigation (e.g. flip a
	// login indicator on once the login form was submitted).
	OnNavigate func(url string)
}

func New() *Fake {
	return &Fake{
		Pages:   map[string]string{},
		Present: map[string]bool{},
		Visible: map[string]bool{},
		Fills:   map[string]string{},
	}
}

func (f *Fake) Navigate(url string) error {
	if f.NavigateErr != nil {
		return f.NavigateErr
	}
	f.Navigations = append(f.Navigations, url)
	f.URL = url
	if f.OnNavigate != nil {
		f.OnNavigate(url)
	}
	return nil
}

func (f *Fake) HTML() (string, error) {
	if html, ok := f.Pages[f.URL]; ok {
		return html, nil
	}
	return "", errors.New("drivertest: no page for " + f.URL)
}

func (f *Fake) CurrentURL() string { return f.URL }

func (f *Fake) Has(selector string) bool { return f.Present[selector] }

func (f *Fake) WaitVisible(selector string, _ time.Duration) bool {
	return f.Visible[selector]
}

func (f *Fake) Click(selector string) error {
	if !f.Present[selector] {
		return errors.New("drivertest: no element " + selector)
	}
	f.Clicks = append(f.Clicks, selector)
	return nil
}

func (f *Fake) Fill(selector, value string) error {
	if !f.Present[selector] {
		return errors.New("drivertest: no element " + selector)
	}
	f.Fills[selector] = value
	return nil
}

func (f *Fake) Screenshot(path string) error {
	f.Screenshots = append(f.Screenshots, path)
	return nil
}

func (f *Fake) SetCookies(cookies []browser.Cookie) error {
	f.Jar = append(f.Jar, cookies...)
	return nil
}

func (f *Fake) Cookies() ([]browser.Cookie, error) { return f.Jar, nil }

func (f *Fake) Close() error { return nil }
