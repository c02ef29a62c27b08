// Package upstream builds the HTTP client used for third-party API calls
// and a small GET helper shared by the API clients.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"

	"github.com/supermancell/cinebuddy/internal/config"
	"github.com/supermancell/cinebuddy/internal/logging"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 10 << 20

const userAgent = "cinebuddy/1.0"

// ErrResponseTooLarge is returned when an upstream body exceeds the read cap.
var ErrResponseTooLarge = errors.New("upstream response too large")

// NewHTTPClient returns the client for outbound API calls. Without a proxy
// it is a zero-value http.Client (default transport, no timeout). With
// USE_PROXY set, connections are dialed through the SOCKS5 proxy.
func NewHTTPClient(cfg config.ProxyConfig) (*http.Client, error) {
	if !cfg.UseProxy || cfg.ProxyAddr == "" {
		return &http.Client{}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", cfg.ProxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	log := logging.WithComponent("upstream")
	log.Info().Str("proxy", cfg.ProxyAddr).Msg("Using SOCKS5 proxy for upstream APIs")
	return &http.Client{Transport: transport}, nil
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get issues a GET request and reads the whole body. Non-2xx statuses are
// returned as a Response, not an error; only transport failures error.
func Get(ctx context.Context, client *http.Client, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		// *url.Error embeds the full URL, query string and API key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, urlErr.Err)
		}
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s sent more than %d bytes", ErrResponseTooLarge, req.URL.Host, maxBodyBytes)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
