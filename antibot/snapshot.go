package antibot

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dealhound/dealhound/browser"
)

// Snapshotter writes diagnostic artifacts (raw HTML, screenshots) taken
// when a page looks blocked or unexpected. Every failure is logged and
// swallowed: debug capture must never break a search.
type Snapshotter struct {
	dir string
}

// NewSnapshotter ensures the debug directory exists. A directory that
// cannot be created disables capture rather than failing the caller.
func NewSnapshotter(dir string) *Snapshotter {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("debug dir unavailable, snapshots disabled", "dir", dir, "error", err)
		return &Snapshotter{}
	}
	return &Snapshotter{dir: dir}
}

// SaveHTML persists a raw HTML snapshot under name.html.
func (s *Snapshotter) SaveHTML(name, html string) {
	if s.dir == "" {
		return
	}
	path := filepath.Join(s.dir, name+".html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		slog.Warn("failed to save html snapshot", "path", path, "error", err)
		return
	}
	slog.Info("saved html snapshot", "path", path)
}

// SaveScreenshot captures the page into name.png.
func (s *Snapshotter) SaveScreenshot(d browser.Driver, name string) {
	if s.dir == "" {
		return
	}
	path := filepath.Join(s.dir, name+".png")
	if err := d.Screenshot(path); err != nil {
		slog.Warn("failed to save screenshot", "path", path, "error", err)
		return
	}
	slog.Info("saved screenshot", "path", path)
}
