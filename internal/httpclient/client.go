// Package httpclient provides a size limited HTTP client used to fetch
// descriptor files from remote locations.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stacklok/catalog-ingester/internal/versions"
)

const (
	// DefaultTimeout is used when no timeout is given
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the largest response body accepted
	MaxResponseSize = 16 * 1024 * 1024

	acceptHeader = "application/yaml, application/x-yaml, text/yaml, text/plain;q=0.9, */*;q=0.8"
)

// UserAgent identifies the ingester build to remote servers
var UserAgent = versions.GetVersionInfo().UserAgent()

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client fetches the body of a URL
type Client interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// DefaultClient is the net/http backed Client
type DefaultClient struct {
	client  *http.Client
	maxSize int64
}

// NewDefaultClient creates a client with the given timeout. A zero timeout
// uses DefaultTimeout.
func NewDefaultClient(timeout time.Duration) *DefaultClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client:  &http.Client{Timeout: timeout},
		maxSize: MaxResponseSize,
	}
}

// Get performs a GET request and returns the response body
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewHTTPError(resp.StatusCode, url, http.StatusText(resp.StatusCode))
	}

	if resp.ContentLength > c.maxSize {
		return nil, fmt.Errorf("response size %d exceeds maximum allowed size of %.2f MB",
			resp.ContentLength, float64(c.maxSize)/(1024*1024))
	}

	// Read one byte past the limit to detect oversized bodies without a Content-Length
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("response body exceeds maximum allowed size of %.2f MB",
			float64(c.maxSize)/(1024*1024))
	}

	return body, nil
}
