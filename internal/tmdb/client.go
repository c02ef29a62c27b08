// Package tmdb forwards GET requests to the TMDB v3 API with a server-held
// API key.
//
// Forwarding is an unrestricted path and query pass-through unless an
// allow-list of path prefixes is configured: any TMDB endpoint reachable
// with the key is reachable through this client.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/supermancell/cinebuddy/internal/upstream"
)

// ErrPathNotAllowed is returned for paths outside the allow-list or
// containing dot segments.
var ErrPathNotAllowed = errors.New("tmdb path not allowed")

// StatusError is a non-2xx TMDB response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("TMDB responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("TMDB responded with status %d: %s", e.StatusCode, e.Message)
}

// Client forwards requests to TMDB.
type Client struct {
	httpClient   *http.Client
	baseURL      *url.URL
	apiKey       string
	allowedPaths []string
}

// NewClient creates a TMDB client. An empty allowedPaths leaves every
// upstream path reachable.
func NewClient(httpClient *http.Client, baseURL, apiKey string, allowedPaths []string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid TMDB base URL: %w", err)
	}

	allowed := make([]string, 0, len(allowedPaths))
	for _, p := range allowedPaths {
		if p = strings.Trim(p, "/"); p != "" {
			allowed = append(allowed, p)
		}
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      u,
		apiKey:       apiKey,
		allowedPaths: allowed,
	}, nil
}

// Allowed reports whether path may be forwarded. path is in escaped form;
// dot segments are rejected whether literal or percent-encoded.
func (c *Client) Allowed(path string) bool {
	path = strings.Trim(path, "/")
	for _, seg := range strings.Split(path, "/") {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return false
		}
		for _, part := range strings.Split(decoded, "/") {
			if part == ".." || part == "." {
				return false
			}
		}
	}
	if len(c.allowedPaths) == 0 {
		return true
	}
	for _, prefix := range c.allowedPaths {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// URL builds the upstream URL for the escaped path and query with the API
// key injected. Escapes in path reach TMDB as sent. A caller-supplied
// api_key is replaced.
func (c *Client) URL(path string, query url.Values) (string, error) {
	rawPath := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimPrefix(path, "/")
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", fmt.Errorf("invalid TMDB path: %w", err)
	}

	u := *c.baseURL
	u.Path = decoded
	u.RawPath = rawPath

	q := make(url.Values, len(query)+1)
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Get forwards a GET for the escaped path with query and returns the
// upstream JSON body unchanged.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if !c.Allowed(path) {
		return nil, ErrPathNotAllowed
	}

	target, err := c.URL(path, query)
	if err != nil {
		return nil, err
	}

	resp, err := upstream.Get(ctx, c.httpClient, target)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		var body struct {
			StatusMessage string `json:"status_message"`
		}
		_ = json.Unmarshal(resp.Body, &body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: body.StatusMessage}
	}

	if !json.Valid(resp.Body) {
		return nil, errors.New("TMDB returned a non-JSON response")
	}

	return json.RawMessage(resp.Body), nil
}
