// Package browser owns the heavyweight fetch tier: persistent Chromium
// sessions driven through Rod. Each source gets its own profile directory
// so cookies and local storage survive across runs. A Session is not safe
// for concurrent use; callers serialize access per profile.
package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/models"
)

// Cookie is the persisted cookie shape. The JSON field names are the
// session-file contract: a flat array of these objects.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Driver abstracts a live page so the session manager and site adapters
// can be exercised in tests without a running Chromium.
type Driver interface {
	// Navigate loads the URL and waits for the DOM to settle (best effort).
	Navigate(url string) error

	// HTML returns the rendered document markup.
	HTML() (string, error)

	// CurrentURL returns the page's current location, "" on failure.
	CurrentURL() string

	// Has reports whether the selector matches right now, without waiting.
	Has(selector string) bool

	// WaitVisible waits up to timeout for the selector to appear and be
	// visible. Expiry is a normal false, never an error.
	WaitVisible(selector string, timeout time.Duration) bool

	// Click clicks the first element matching the selector.
	Click(selector string) error

	// Fill clears and types into the first element matching the selector.
	Fill(selector, value string) error

	// Screenshot writes a PNG of the current viewport to path.
	Screenshot(path string) error

	// SetCookies injects cookies into the browsing context.
	SetCookies(cookies []Cookie) error

	// Cookies returns the context's current cookies.
	Cookies() ([]Cookie, error)

	// Close releases the underlying page.
	Close() error
}

// PageFactory opens a fresh page in some session. Site adapters depend
// on this instead of Session so tests can hand out fakes.
type PageFactory func(ctx context.Context) (Driver, error)

// Session is a persistent browser bound to one profile directory.
type Session struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
	profile string
}

// NewSession launches a Chromium with anti-automation flags and a
// persistent user-data directory, then connects Rod to it.
func NewSession(cfg config.BrowserConfig, profileDir string) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		UserDataDir(profileDir)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "IsolateOrigins,site-per-process")
	l.Set(flags.Flag("disable-site-isolation-trials"))
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewSearchError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewSearchError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	slog.Info("browser session launched", "profile", profileDir)

	return &Session{browser: b, cfg: cfg, profile: profileDir}, nil
}

// Profile returns the profile directory this session owns.
func (s *Session) Profile() string { return s.profile }

// Close kills the browser process. Cookies and storage persist in the
// profile directory for the next run.
func (s *Session) Close() {
	slog.Info("browser session shutting down", "profile", s.profile)
	s.browser.MustClose()
}
