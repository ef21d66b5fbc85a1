// Package ingestion pulls the raw collections from the store API and persists
// them as pretty-printed JSON in the raw directory.
package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/salesdw/salesdw/internal/fileutil"
	"github.com/salesdw/salesdw/internal/raw"
	"github.com/salesdw/salesdw/internal/retry"
)

const (
	// DefaultBaseURL is the public store API.
	DefaultBaseURL = "https://fakestoreapi.com"

	defaultTimeout      = 30 * time.Second
	defaultRPS          = 2.0
	defaultBurst        = 1
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 500 * time.Millisecond
	maxResponseBytes    = 32 << 20
	jsonIndent          = "    "
)

var (
	// ErrFetchFailed is returned when an endpoint cannot be fetched.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrUnexpectedStatus is returned for non-200 responses.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// Endpoints maps each raw collection to its path on the store API.
var Endpoints = map[string]string{
	raw.CategoriesCollection: "products/categories",
	raw.ProductsCollection:   "products",
	raw.UsersCollection:      "users",
	raw.CartsCollection:      "carts",
}

// collectionOrder is the order collections are fetched and written.
var collectionOrder = []string{
	raw.CategoriesCollection,
	raw.ProductsCollection,
	raw.UsersCollection,
	raw.CartsCollection,
}

type (
	// Client fetches collections from the store API with rate limiting and retry.
	Client struct {
		baseURL    *url.URL
		httpClient *http.Client
		limiter    *rate.Limiter
		validator  *Validator
		logger     *slog.Logger
		policy     retry.Policy
	}

	// Option configures optional Client behavior.
	Option func(*Client)

	// Result describes one persisted collection.
	Result struct {
		Collection string
		Path       string
		Records    int
	}
)

// WithHTTPClient replaces the HTTP client. Its Timeout is kept as is.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit limits outgoing requests to rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithRetry sets the number of attempts per endpoint and the initial backoff.
// Transport errors and 5xx responses are retried; 4xx responses are not.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.policy = retry.Policy{Attempts: max(attempts, 1), Backoff: backoff}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a Client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		validator:  NewValidator(),
		logger:     slog.New(slog.DiscardHandler),
		policy:     retry.Policy{Attempts: defaultMaxAttempts, Backoff: defaultRetryBackoff},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Fetch returns the body of a successful GET on endpoint, relative to the base URL.
func (c *Client) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	target := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(endpoint, "/")})

	var (
		body    []byte
		attempt = 1
	)

	err := retry.Do(ctx, c.policy, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		fetched, retryable, err := c.get(ctx, target.String())
		if err != nil && !retryable {
			return retry.Permanent(err)
		}

		body = fetched

		return err
	}, func(err error, wait time.Duration) {
		attempt++

		c.logger.Warn("Retrying request",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, endpoint, err)
	}

	return body, nil
}

// get performs one request. The bool reports whether a failure is worth retrying.
func (c *Client) get(ctx context.Context, target string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return body, false, nil
}

// Ingest fetches and validates all four collections, then writes them to dir.
// Nothing is written unless every collection was fetched and validated.
func (c *Client) Ingest(ctx context.Context, dir string) ([]Result, error) {
	documents := make([][]byte, len(collectionOrder))
	results := make([]Result, len(collectionOrder))

	for i, collection := range collectionOrder {
		body, err := c.Fetch(ctx, Endpoints[collection])
		if err != nil {
			return nil, err
		}

		records, err := c.validator.Validate(collection, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, Endpoints[collection], err)
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", jsonIndent); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, Endpoints[collection], err)
		}

		pretty.WriteByte('\n')

		documents[i] = pretty.Bytes()
		results[i] = Result{Collection: collection, Path: raw.Path(dir, collection), Records: records}

		c.logger.Info("Fetched collection",
			slog.String("collection", collection),
			slog.Int("records", records),
		)
	}

	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, err
	}

	for i, result := range results {
		if err := fileutil.WriteAtomic(result.Path, documents[i]); err != nil {
			return nil, err
		}

		c.logger.Info("Saved collection", slog.String("path", result.Path))
	}

	return results, nil
}
