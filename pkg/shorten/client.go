// Package shorten is a client for an external link-shortening service.
// Every failure here is recoverable: the caller falls back to another
// delivery mode, it never propagates as a fatal error.
package shorten

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL points at a TinyURL-compatible simple-format endpoint.
const DefaultBaseURL = "https://tinyurl.com/api-create.php"

// ErrUnavailable means the shortening service could not produce a short URL:
// network failure, non-success status, or a nonsense response body.
var ErrUnavailable = errors.New("shortener unavailable")

// Client calls the shortening service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds shortener client configuration.
type Config struct {
	BaseURL string        // service endpoint (default: DefaultBaseURL)
	Timeout time.Duration // per-request timeout (default: 10s)
}

// NewClient creates a shortener client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Shorten asks the service for a short URL for longURL. Callers must only
// invoke it for URLs under the hard-cap length; above that the service is
// not to be bothered at all.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	endpoint := c.baseURL + "?format=simple&url=" + url.QueryEscape(longURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	short := strings.TrimSpace(string(body))
	if short == "" || !strings.HasPrefix(short, "http") {
		return "", fmt.Errorf("%w: unexpected response %q", ErrUnavailable, short)
	}
	return short, nil
}
