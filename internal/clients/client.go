package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer is the subset of http.Client the station's clients need.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// TokenProvider mints the bearer token for authenticated backends.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// BaseClient executes JSON requests against one backend base URL. With a
// token provider attached, every request carries a bearer token; the
// partner endpoint runs without one.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
	tokens  TokenProvider
}

// NewBaseClient builds an unauthenticated client.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// NewBearerClient builds a client that authenticates every request with
// tokens from the provider.
func NewBearerClient(baseURL string, client HTTPDoer, tokens TokenProvider) *BaseClient {
	c := NewBaseClient(baseURL, client)
	c.tokens = tokens
	return c
}

func (c *BaseClient) get(ctx context.Context, path string) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *BaseClient) postJSON(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("clients: encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *BaseClient) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
