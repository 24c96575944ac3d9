// Package corsproxy routes outbound requests through a public CORS relay by
// appending the percent-encoded target URL to the relay's base URL.
package corsproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the relay prefix; the encoded target is appended verbatim.
const DefaultBaseURL = "https://corsproxy.io?"

// ErrUpstreamStatus is returned by FetchBytes for non-2xx responses.
var ErrUpstreamStatus = errors.New("corsproxy: unexpected upstream status")

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent escapes s the way JavaScript's encodeURIComponent does:
// everything except A-Z a-z 0-9 and - _ . ! ~ * ' ( ) is percent-encoded as
// UTF-8 bytes.
func EncodeURIComponent(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b = append(b, c)
			continue
		}
		b = append(b, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(b)
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// Rewrite returns target routed through DefaultBaseURL.
func Rewrite(target string) string {
	return DefaultBaseURL + EncodeURIComponent(target)
}

// Client issues HTTP requests through a CORS relay.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the relay prefix.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a Client for DefaultBaseURL with a 30s timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns target routed through the client's relay.
func (c *Client) URL(target string) string {
	return c.baseURL + EncodeURIComponent(target)
}

// Do sends a copy of req whose URL is rewritten through the relay. Method,
// headers and body are kept. Transport errors propagate unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	proxied, err := url.Parse(c.URL(req.URL.String()))
	if err != nil {
		return nil, fmt.Errorf("corsproxy: rewrite %q: %w", req.URL, err)
	}

	out := req.Clone(req.Context())
	out.URL = proxied
	out.Host = ""
	out.RequestURI = ""
	return c.httpClient.Do(out)
}

// Fetch issues a GET for target through the relay.
func (c *Client) Fetch(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("corsproxy: build request: %w", err)
	}
	return c.Do(req)
}

// FetchBytes fetches target through the relay and returns the body. Non-2xx
// responses fail with ErrUpstreamStatus.
func (c *Client) FetchBytes(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s for %s", ErrUpstreamStatus, resp.Status, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("corsproxy: read body: %w", err)
	}
	return body, nil
}
