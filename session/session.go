// Package session persists and restores authenticated browser state for
// sources behind a login wall. Cookies live in a JSON file next to the
// persistent profile directory; either alone is usually enough to skip
// the login form on the next run.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dealhound/dealhound/antibot"
	"github.com/dealhound/dealhound/browser"
)

// Credentials is the name/secret pair supplied via environment
// configuration. Absence degrades the adapter to unauthenticated mode.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) missing() bool {
	return c.Email == "" || c.Password == ""
}

const loginURL = "https://www.facebook.com/login"

// authIndicators mark an already-authenticated page. Checked before any
// login attempt so LoginIfNeeded is idempotent.
var authIndicators = []string{
	"[aria-label='Your profile']",
	"a[href='/marketplace/']",
	"a[href*='/marketplace/']",
	"div[aria-label='Facebook Menu']",
	"div[role='banner'] div[aria-label='Your profile']",
}

// consentButtons dismiss the cookie-consent dialog shown on fresh
// profiles before the login form is reachable.
var consentButtons = []string{
	"button[data-testid='cookie-policy-manage-dialog-accept-button']",
	"button[title='Allow all cookies']",
	"button[data-cookiebanner='accept_button']",
}

// Login form selectors.
const (
	emailField  = "input#email"
	passField   = "input#pass"
	loginButton = "button[name='login']"
)

// settleTimeout bounds the post-submit wait for the page to reach an
// authenticated state. Expiry is logged, not fatal.
const settleTimeout = 15 * time.Second

// Operator is an external party that can resolve a security checkpoint
// the automation cannot (solving a verification in the visible browser
// window). Confirm blocks until the operator signals completion or the
// context is canceled.
type Operator interface {
	Confirm(ctx context.Context, prompt string) error
}

// Manager owns the cookie file and login flow for one authenticated
// source. It is not safe for concurrent use; the owning adapter
// serializes access.
type Manager struct {
	cookieFile string
	creds      Credentials
	operator   Operator
	snap       *antibot.Snapshotter
}

// NewManager creates a session manager. operator may be a
// DeclineOperator in non-interactive deployments: checkpoints then
// degrade the attempt instead of blocking.
func NewManager(cookieFile string, creds Credentials, operator Operator, snap *antibot.Snapshotter) *Manager {
	return &Manager{
		cookieFile: cookieFile,
		creds:      creds,
		operator:   operator,
		snap:       snap,
	}
}

// Restore injects persisted cookies into the browsing context. Missing
// file, empty file, and malformed JSON all yield false without error.
func (m *Manager) Restore(d browser.Driver) bool {
	data, err := os.ReadFile(m.cookieFile)
	if err != nil {
		return false
	}
	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		slog.Warn("cookie file unreadable, ignoring", "file", m.cookieFile, "error", err)
		return false
	}
	if len(cookies) == 0 {
		return false
	}
	if err := d.SetCookies(cookies); err != nil {
		slog.Warn("cookie injection failed", "error", err)
		return false
	}
	slog.Info("restored session cookies", "count", len(cookies))
	return true
}

// Save persists the context's current cookies for the next run.
func (m *Manager) Save(d browser.Driver) {
	cookies, err := d.Cookies()
	if err != nil || len(cookies) == 0 {
		return
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.cookieFile), 0o755); err != nil {
		slog.Warn("cannot create cookie dir", "error", err)
		return
	}
	if err := os.WriteFile(m.cookieFile, data, 0o600); err != nil {
		slog.Warn("cookie save failed", "file", m.cookieFile, "error", err)
		return
	}
	slog.Info("saved session cookies", "count", len(cookies))
}

// LoginIfNeeded ensures the page is authenticated. It is idempotent:
// when any authenticated-state indicator is already present it returns
// true without touching the login surface. Without credentials it
// returns false and the caller proceeds unauthenticated.
func (m *Manager) LoginIfNeeded(ctx context.Context, d browser.Driver) bool {
	if m.authenticated(d) {
		slog.Debug("session already authenticated")
		return true
	}

	if m.creds.missing() {
		slog.Warn("credentials not configured, proceeding without login")
		return false
	}

	if !strings.Contains(d.CurrentURL(), "login") {
		if err := d.Navigate(loginURL); err != nil {
			slog.Warn("cannot reach login page", "error", err)
			return false
		}
	}

	m.dismissConsent(d)

	if !d.Has(emailField) || !d.Has(passField) || !d.Has(loginButton) {
		slog.Warn("login form elements not found")
		m.snap.SaveScreenshot(d, "login_form_not_found")
		return false
	}

	if err := d.Fill(emailField, m.creds.Email); err != nil {
		slog.Warn("email fill failed", "error", err)
		return false
	}
	if err := d.Fill(passField, m.creds.Password); err != nil {
		slog.Warn("password fill failed", "error", err)
		return false
	}
	if err := d.Click(loginButton); err != nil {
		slog.Warn("login submit failed", "error", err)
		return false
	}

	// Best-effort settle: expiry here is normal when the page redirects
	// slowly or a checkpoint appears.
	if !d.WaitVisible("div[role='navigation']", settleTimeout) {
		slog.Debug("post-login settle wait expired")
	}

	if m.loggedIn(d) {
		m.Save(d)
		return true
	}

	if strings.Contains(d.CurrentURL(), "checkpoint") {
		return m.resolveCheckpoint(ctx, d)
	}

	slog.Warn("login failed")
	m.snap.SaveScreenshot(d, "login_failed")
	return false
}

// resolveCheckpoint suspends until the operator resolves the security
// verification in the browser window, then re-checks authentication.
// This is the sole deliberately unbounded wait in the system.
func (m *Manager) resolveCheckpoint(ctx context.Context, d browser.Driver) bool {
	slog.Warn("security checkpoint detected, waiting for operator")
	m.snap.SaveScreenshot(d, "checkpoint")
	if html, err := d.HTML(); err == nil {
		m.snap.SaveHTML("checkpoint", html)
	}

	prompt := "Security checkpoint detected. Complete the verification in " +
		"the browser window, then confirm to continue."
	if err := m.operator.Confirm(ctx, prompt); err != nil {
		slog.Warn("operator did not confirm checkpoint", "error", err)
		return false
	}

	if m.loggedIn(d) {
		m.Save(d)
		slog.Info("logged in after checkpoint resolution")
		return true
	}
	slog.Warn("still not authenticated after checkpoint")
	return false
}

// authenticated checks indicator presence only, without navigating.
func (m *Manager) authenticated(d browser.Driver) bool {
	for _, sel := range authIndicators {
		if d.Has(sel) {
			return true
		}
	}
	return false
}

// loggedIn combines the URL-shape check (no "login"/"checkpoint"
// substring) with the indicator check.
func (m *Manager) loggedIn(d browser.Driver) bool {
	url := d.CurrentURL()
	if url != "" && !strings.Contains(url, "login") && !strings.Contains(url, "checkpoint") {
		return true
	}
	return m.authenticated(d)
}

func (m *Manager) dismissConsent(d browser.Driver) {
	for _, sel := range consentButtons {
		if d.Has(sel) {
			if err := d.Click(sel); err == nil {
				slog.Debug("dismissed cookie consent", "selector", sel)
			}
			return
		}
	}
}
