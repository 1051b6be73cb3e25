package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealhound/dealhound/aggregator"
	"github.com/dealhound/dealhound/antibot"
	"github.com/dealhound/dealhound/api"
	"github.com/dealhound/dealhound/browser"
	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/engine"
	"github.com/dealhound/dealhound/rank"
	"github.com/dealhound/dealhound/session"
	"github.com/dealhound/dealhound/sites/ebay"
	"github.com/dealhound/dealhound/sites/facebook"
	"github.com/dealhound/dealhound/sites/newegg"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("dealhound starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"headless", cfg.Browser.Headless,
	)

	snap := antibot.NewSnapshotter(cfg.Debug.Dir)
	fetcher := engine.NewHTTPEngine(cfg.Fetch)

	// ── 3. Launch browser sessions ──────────────────────────────────
	// Each browser-backed source gets its own persistent profile. A
	// missing Chromium degrades those sources instead of aborting:
	// ebay still works over plain HTTP.
	neweggPages, closeNewegg := browserTier(cfg, "newegg")
	defer closeNewegg()
	facebookPages, closeFacebook := browserTier(cfg, "facebook")
	defer closeFacebook()

	// ── 4. Facebook session manager ─────────────────────────────────
	// Checkpoints need a human looking at a browser window; headless
	// deployments decline them and degrade instead of hanging.
	var operator session.Operator = session.DeclineOperator{}
	if !cfg.Browser.Headless {
		operator = session.NewTerminalOperator()
	}
	creds := session.Credentials{Email: cfg.Session.Email, Password: cfg.Session.Password}
	fbSession := session.NewManager(cfg.Session.CookieFile, creds, operator, snap)

	// ── 5. Assemble adapters, ranker and aggregator ─────────────────
	adapters := []aggregator.Adapter{
		ebay.New(fetcher, cfg.Fetch, snap),
		newegg.New(fetcher, neweggPages, cfg.Fetch, snap),
		facebook.New(facebookPages, fbSession, cfg.Fetch, snap),
	}

	var ranker aggregator.Ranker
	if cfg.Rank.APIKey != "" {
		ranker = rank.NewClient(nil, cfg.Rank)
		slog.Info("ranking enabled", "model", cfg.Rank.Model)
	} else {
		slog.Info("ranking disabled, results keep extraction order")
	}
	agg := aggregator.New(ranker, adapters...)

	sources := make([]string, len(adapters))
	for i, a := range adapters {
		sources[i] = a.Name()
	}

	// ── 6. Start HTTP server ────────────────────────────────────────
	router := api.NewRouter(agg, sources, cfg, time.Now())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Browser sessions close via the deferred closers.
	slog.Info("dealhound stopped")
}

// browserTier opens a persistent browser session for one source and
// returns its page factory plus a closer. Launch failure returns a nil
// factory, which the adapters treat as "no browser tier".
func browserTier(cfg *config.Config, name string) (browser.PageFactory, func()) {
	sess, err := browser.NewSession(cfg.Browser, filepath.Join(cfg.Browser.ProfileRoot, name))
	if err != nil {
		slog.Warn("browser unavailable, source degraded", "source", name, "error", err)
		return nil, func() {}
	}
	return sess.NewPage, sess.Close
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
