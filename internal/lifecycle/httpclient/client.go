// Package httpclient is the reference EndToEnd client provider. The client
// targets the base URL of the server started for the invocation.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"testrig/internal/lifecycle"
)

// Target is implemented by server handles that expose an http base URL.
type Target interface {
	BaseURL() string
}

// Client sends requests relative to the server's base URL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewRequest builds a request for path relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	return http.NewRequestWithContext(ctx, method, url, body)
}

// Do sends a request for path with an optional body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return c.HTTP.Do(req)
}

// Get issues a GET for path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Provider implements lifecycle.ClientProvider.
type Provider struct {
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
}

func (p Provider) Configure(ctx context.Context, rc *lifecycle.Context) (any, error) {
	handle, ok := rc.Server()
	if !ok {
		return nil, fmt.Errorf("client needs a running server")
	}
	target, ok := handle.(Target)
	if !ok {
		return nil, fmt.Errorf("server handle %T has no base URL", handle)
	}
	return target.BaseURL(), nil
}

func (p Provider) Create(ctx context.Context, rc *lifecycle.Context, raw any) (any, error) {
	baseURL, ok := raw.(string)
	if !ok || baseURL == "" {
		return nil, fmt.Errorf("expected a base URL, got %v", raw)
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout, Transport: &http.Transport{}},
	}, nil
}

func (p Provider) Close(ctx context.Context, client any) error {
	c, ok := client.(*Client)
	if !ok {
		return fmt.Errorf("expected *httpclient.Client, got %T", client)
	}
	c.HTTP.CloseIdleConnections()
	return nil
}
