package engine

import (
	"context"
)

// Fetcher is the interface for the plain-HTTP fetch tier. Site adapters
// depend on it rather than on a concrete client so tests can inject
// canned responses.
type Fetcher interface {
	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything a fetch needs.
type Request struct {
	URL string

	// Attempt distinguishes the primary request (0) from the backup-URL
	// retry (1). The retry tier waits longer and re-rotates its identity.
	Attempt int

	// Headers are merged over the default browser-like header set.
	Headers map[string]string
}

// Result is the output of a successful fetch.
type Result struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
}
