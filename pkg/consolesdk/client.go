package consolesdk

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the AtlasBoard backend. Credential exchanges (login and
// refresh) go through the bare HTTPClient; everything else should go through
// API, an http.Client whose Transport is the authenticating Transport from
// this package.
type Client struct {
	AuthBaseURL string
	APIBaseURL  string

	// HTTPClient performs the credential exchanges. It carries a cookie jar
	// so a refresh-token cookie set by the auth endpoint survives between
	// exchanges.
	HTTPClient *http.Client

	// API performs authenticated calls. Wired by the application once a
	// token store exists; see NewTransport.
	API *http.Client

	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for exchange-level logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the exchange client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithExchangeLimit overrides the rate limit applied to credential
// exchanges.
func WithExchangeLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// NewClient creates a backend client. Base URLs are used as-is apart from a
// trailing slash trim.
func NewClient(authBaseURL, apiBaseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		AuthBaseURL: strings.TrimSuffix(authBaseURL, "/"),
		APIBaseURL:  strings.TrimSuffix(apiBaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
		// Generous enough to be invisible in normal use; only a runaway
		// refresh loop or scripted brute force would ever hit it.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}
