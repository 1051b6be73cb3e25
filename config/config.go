package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	Session   SessionConfig
	Debug     DebugConfig
	Rank      RankConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls the plain-HTTP fetch tier.
type FetchConfig struct {
	// Timeout is the deadline for a single HTTP fetch.
	Timeout time.Duration // default: 12s

	// DelayMin/DelayMax bound the randomized pause inserted before each
	// request. The backup retry tier waits between DelayMax and 2*DelayMax.
	DelayMin time.Duration // default: 2s
	DelayMax time.Duration // default: 5s

	// MaxResultsPerSite caps how many products an adapter returns.
	MaxResultsPerSite int // default: 50
}

// BrowserConfig controls the Rod browser sessions.
type BrowserConfig struct {
	// Headless controls whether browsers run headless. Login checkpoints
	// need a visible window, so facebook setups often run headful once.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// ProfileRoot is the directory holding per-source persistent profiles.
	ProfileRoot string // default: "data/profiles"

	// NavigationTimeout bounds page navigation and selector waits.
	NavigationTimeout time.Duration // default: 30s
}

// SessionConfig controls login/session persistence for sources that
// require authentication.
type SessionConfig struct {
	// CookieFile is where facebook session cookies are persisted.
	CookieFile string // default: "data/fb_cookies.json"

	// Email and Password are the facebook credentials. When either is
	// empty the adapter degrades to unauthenticated mode.
	Email    string
	Password string
}

// DebugConfig controls diagnostic artifact capture.
type DebugConfig struct {
	// Dir receives HTML snapshots and screenshots taken when a page looks
	// blocked or unexpected.
	Dir string // default: "data/debug"
}

// RankConfig controls the ranking collaborator client. An empty APIKey
// disables ranking; results are returned in extraction order.
type RankConfig struct {
	APIKey  string
	Model   string // default: "gpt-4o-mini"
	BaseURL string // default: "https://api.openai.com/v1"
	Timeout time.Duration
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 1
	Burst             int     // default: 3
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("DEALHOUND_HOST", "0.0.0.0"),
			Port: envIntOr("DEALHOUND_PORT", 8080),
			Mode: envOr("DEALHOUND_MODE", "release"),
		},
		Fetch: FetchConfig{
			Timeout:           envDurationOr("DEALHOUND_FETCH_TIMEOUT", 12*time.Second),
			DelayMin:          envDurationOr("DEALHOUND_DELAY_MIN", 2*time.Second),
			DelayMax:          envDurationOr("DEALHOUND_DELAY_MAX", 5*time.Second),
			MaxResultsPerSite: envIntOr("DEALHOUND_MAX_RESULTS", 50),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("DEALHOUND_HEADLESS", true),
			NoSandbox:         envBoolOr("DEALHOUND_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("DEALHOUND_BROWSER_BIN"),
			ProfileRoot:       envOr("DEALHOUND_PROFILE_ROOT", filepath.Join("data", "profiles")),
			NavigationTimeout: envDurationOr("DEALHOUND_NAV_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			CookieFile: envOr("DEALHOUND_FB_COOKIE_FILE", filepath.Join("data", "fb_cookies.json")),
			Email:      os.Getenv("FB_EMAIL"),
			Password:   os.Getenv("FB_PASSWORD"),
		},
		Debug: DebugConfig{
			Dir: envOr("DEALHOUND_DEBUG_DIR", filepath.Join("data", "debug")),
		},
		Rank: RankConfig{
			APIKey:  os.Getenv("DEALHOUND_RANK_API_KEY"),
			Model:   envOr("DEALHOUND_RANK_MODEL", "gpt-4o-mini"),
			BaseURL: envOr("DEALHOUND_RANK_BASE_URL", "https://api.openai.com/v1"),
			Timeout: envDurationOr("DEALHOUND_RANK_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("DEALHOUND_AUTH_ENABLED", false),
			APIKeys: envSliceOr("DEALHOUND_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("DEALHOUND_RATE_RPS", 1.0),
			Burst:             envIntOr("DEALHOUND_RATE_BURST", 3),
		},
		Log: LogConfig{
			Level:  envOr("DEALHOUND_LOG_LEVEL", "info"),
			Format: envOr("DEALHOUND_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
