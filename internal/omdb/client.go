// Package omdb is a minimal client for the OMDB search API.
package omdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/supermancell/cinebuddy/internal/upstream"
)

// SearchResult is one entry of an OMDB search.
type SearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// SearchResponse is the OMDB search payload. Response is "True" or "False";
// Error is set when it is "False".
type SearchResponse struct {
	Search       []SearchResult `json:"Search"`
	TotalResults string         `json:"totalResults"`
	Response     string         `json:"Response"`
	Error        string         `json:"Error"`
}

// APIError is an error reported by OMDB itself.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client calls OMDB with a server-held API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates an OMDB client.
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Search runs a title search. An OMDB-reported failure is returned as *APIError.
func (c *Client) Search(ctx context.Context, term string) (*SearchResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OMDB base URL: %w", err)
	}
	q := u.Query()
	q.Set("apikey", c.apiKey)
	q.Set("s", term)
	u.RawQuery = q.Encode()

	resp, err := upstream.Get(ctx, c.httpClient, u.String())
	if err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		if !resp.OK() {
			return nil, fmt.Errorf("OMDB responded with status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode OMDB response: %w", err)
	}

	if out.Response != "True" {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("OMDB request failed with status %d", resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &out, nil
}
