// Package youtube implements the video search and caption transcript
// providers. Search prefers the Data API v3 when a key is configured and
// falls back to scraping the results page; transcripts go through a chain of
// HTTP providers that each work from different network vantage points.
package youtube

import (
	"log/slog"
	"net/http"

	"ytscout/internal/httpx"
	"ytscout/internal/logging"
)

// Video is one search hit, the unit the scrape loop iterates over.
type Video struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Channel string `json:"channel"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Metadata describes a single video as reported by the player response.
type Metadata struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	HasCaptions bool    `json:"has_captions"`
}

// Client talks to YouTube. The zero value is not usable; construct with New.
type Client struct {
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	retry      httpx.RetryConfig

	// Endpoint bases, overridable in tests.
	apiBase string
	webBase string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryConfig overrides retry behavior, mostly for tests.
func WithRetryConfig(rc httpx.RetryConfig) Option {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithEndpoints redirects the Data API and web bases, for tests.
func WithEndpoints(apiBase, webBase string) Option {
	return func(c *Client) {
		if apiBase != "" {
			c.apiBase = apiBase
		}
		if webBase != "" {
			c.webBase = webBase
		}
	}
}

// New constructs a YouTube client. apiKey may be empty; search then uses the
// scrape backend only.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		httpClient: httpx.DefaultClient,
		logger:     logging.NewNop(),
		retry:      httpx.DefaultRetryConfig,
		apiBase:    "https://www.googleapis.com/youtube/v3",
		webBase:    "https://www.youtube.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
