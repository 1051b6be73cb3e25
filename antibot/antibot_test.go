package antibot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dealhound/dealhound/browser/drivertest"
)

func TestSuspiciousContent(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"captcha", "<html><body>Please solve this CAPTCHA</body></html>", true},
		{"verify human", "<p>Verify you are a human to continue</p>", true},
		{"are you a human", "ARE YOU A HUMAN?", true},
		{"security check", "<div>Security Check Required</div>", true},
		{"robot", "Pardon our interruption... robot detection", true},
		{"clean page", "<html><body><li class='s-item'>Gaming Laptop $999.99</li></body></html>", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuspiciousContent(tt.html); got != tt.want {
				t.Errorf("SuspiciousContent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuspiciousPage_SelectorHit(t *testing.T) {
	d := drivertest.New()
	d.URL = "https://example.com"
	d.Pages[d.URL] = "<html><body>normal page</body></html>"
	d.Visible["#captcha"] = true

	if !SuspiciousPage(d, []string{".modal-content", "#captcha"}) {
		t.Error("expected structural heuristic to flag the page")
	}
}

func TestSuspiciousPage_ContentFallback(t *testing.T) {
	d := drivertest.New()
	d.URL = "https://example.com"
	d.Pages[d.URL] = "<html><body>please complete the security check</body></html>"

	if !SuspiciousPage(d, []string{"#captcha"}) {
		t.Error("expected content heuristic to flag the page")
	}
}

func TestSuspiciousPage_CleanPage(t *testing.T) {
	d := drivertest.New()
	d.URL = "https://example.com"
	d.Pages[d.URL] = "<html><body><div class='item-cell'>GPU $499.99</div></body></html>"

	if SuspiciousPage(d, []string{"#captcha", ".modal-content"}) {
		t.Error("clean page flagged as suspicious")
	}
}

func TestSnapshotter_SaveHTML(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotter(dir)
	s.SaveHTML("blocked", "<html>blocked</html>")

	data, err := os.ReadFile(filepath.Join(dir, "blocked.html"))
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if string(data) != "<html>blocked</html>" {
		t.Errorf("snapshot content = %q", data)
	}
}

func TestSnapshotter_Screenshot(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotter(dir)
	d := drivertest.New()

	s.SaveScreenshot(d, "challenge")
	if len(d.Screenshots) != 1 {
		t.Fatalf("screenshots taken = %d, want 1", len(d.Screenshots))
	}
	if d.Screenshots[0] != filepath.Join(dir, "challenge.png") {
		t.Errorf("screenshot path = %q", d.Screenshots[0])
	}
}

func TestSnapshotter_DisabledIsNoop(t *testing.T) {
	var s Snapshotter
	s.SaveHTML("x", "y") // must not panic
}
