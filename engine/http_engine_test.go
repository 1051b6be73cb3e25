package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/models"
)

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:  5 * time.Second,
		DelayMin: time.Millisecond,
		DelayMax: 2 * time.Millisecond,
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request carried no User-Agent")
		}
		if r.Header.Get("Sec-Fetch-Mode") != "navigate" {
			t.Errorf("Sec-Fetch-Mode = %q, want navigate", r.Header.Get("Sec-Fetch-Mode"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><head><title>Results</title></head><body>ok</body></html>"))
	}))
	defer srv.Close()

	e := NewHTTPEngine(testFetchConfig())
	res, err := e.Fetch(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Title != "Results" {
		t.Errorf("Title = %q, want Results", res.Title)
	}
	if !strings.Contains(res.HTML, "ok") {
		t.Errorf("HTML missing body content: %q", res.HTML)
	}
}

func TestFetch_ErrorStatusIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewHTTPEngine(testFetchConfig())
	_, err := e.Fetch(context.Background(), &Request{URL: srv.URL})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	var se *models.SearchError
	if !errors.As(err, &se) {
		t.Fatalf("error is %T, want *models.SearchError", err)
	}
	if se.Code != models.ErrCodeTransport {
		t.Errorf("Code = %q, want %q", se.Code, models.ErrCodeTransport)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	cfg := testFetchConfig()
	cfg.DelayMin = time.Second
	cfg.DelayMax = 2 * time.Second
	e := NewHTTPEngine(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Fetch(ctx, &Request{URL: "http://example.invalid/"})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestRandomAgent_DrawsFromPool(t *testing.T) {
	for i := 0; i < 50; i++ {
		agent := RandomAgent()
		found := false
		for _, ua := range userAgents {
			if ua == agent {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("RandomAgent returned string outside the pool: %q", agent)
		}
	}
}

func TestJitter_Bounds(t *testing.T) {
	min, max := 10*time.Millisecond, 20*time.Millisecond
	for i := 0; i < 100; i++ {
		d := jitter(min, max)
		if d < min || d > max {
			t.Fatalf("jitter(%v, %v) = %v, out of bounds", min, max, d)
		}
	}

	// Degenerate window collapses to min.
	if d := jitter(max, min); d != max {
		t.Errorf("jitter with inverted bounds = %v, want %v", d, max)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", "<html><head><title>Hi</title></head></html>", "Hi"},
		{"whitespace", "<title>\n  Spaced \n</title>", "Spaced"},
		{"missing", "<html><body>no title</body></html>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.html); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
