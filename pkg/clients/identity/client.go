// Package identity resolves session credentials against the external
// Identity Service. Trust is never cached beyond a single request.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"porthole/pkg/clients"
)

// ErrUnauthenticated is returned for any outcome that is not a verified
// identity: bad credential, non-2xx upstream answer, or transport failure.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is a verified user identity.
type Identity struct {
	UserID string `json:"user_id"`
}

type Client struct {
	baseURL      string
	client       *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool
}

type Option func(*Client)

func NewClient(baseURL string, opts ...Option) *Client {
	defaultConfig := clients.DefaultHTTPExecutorConfig()
	defaultConfig.WithCircuitBreaker = true
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: clients.DefaultTransport(),
		},
		httpExecutor: clients.NewHTTPExecutor(defaultConfig),
		shouldRetry:  defaultConfig.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func WithHTTPExecutorConfig(cfg clients.HTTPExecutorConfig) Option {
	return func(c *Client) {
		c.httpExecutor = clients.NewHTTPExecutor(cfg)
		c.shouldRetry = cfg.ShouldRetry
	}
}

// Resolve exchanges an opaque session credential for a verified identity.
// Any failure collapses into ErrUnauthenticated; callers only need the
// boolean-with-payload outcome.
func (c *Client) Resolve(ctx context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, ErrUnauthenticated
	}

	resp, err := clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/whoami", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+credential)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: identity service unreachable: %v", ErrUnauthenticated, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Identity{}, fmt.Errorf("%w: identity service returned status %d", ErrUnauthenticated, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: reading identity response: %v", ErrUnauthenticated, err)
	}

	var ident Identity
	if err := json.Unmarshal(body, &ident); err != nil || ident.UserID == "" {
		return Identity{}, fmt.Errorf("%w: malformed identity response", ErrUnauthenticated)
	}

	return ident, nil
}
