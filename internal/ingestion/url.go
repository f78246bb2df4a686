package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/httpclient"
)

const (
	// DefaultMaxTries is the number of attempts the url reader makes
	DefaultMaxTries uint = 3

	// DefaultInitialInterval is the wait before the first retry
	DefaultInitialInterval = 500 * time.Millisecond
)

type urlReader struct {
	parser          *descriptors.Parser
	client          httpclient.Client
	maxTries        uint
	initialInterval time.Duration
}

// NewURLReader creates a reader for http and https targets. Transport errors
// and 5xx/429 responses are retried with exponential backoff; other 4xx
// responses fail immediately.
func NewURLReader(
	parser *descriptors.Parser, client httpclient.Client, maxTries uint, initialInterval time.Duration,
) Reader {
	if maxTries == 0 {
		maxTries = 1
	}
	return &urlReader{
		parser:          parser,
		client:          client,
		maxTries:        maxTries,
		initialInterval: initialInterval,
	}
}

func (r *urlReader) Read(ctx context.Context, target string) (*descriptors.ParserOutput, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported URL scheme %q", ErrInvalidTarget, parsed.Scheme)
	}

	expBackoff := backoff.NewExponentialBackOff()
	if r.initialInterval > 0 {
		expBackoff.InitialInterval = r.initialInterval
	}

	attempt := 0
	fetch := func() ([]byte, error) {
		attempt++
		data, err := r.client.Get(ctx, target)
		if err == nil {
			return data, nil
		}

		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusNotFound {
				return nil, backoff.Permanent(fmt.Errorf("%w: %w", ErrTargetNotFound, err))
			}
			if !httpErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}

		slog.Debug("Fetching descriptor failed, will retry",
			"url", target,
			"attempt", attempt,
			"error", err)
		return nil, err
	}

	data, err := backoff.Retry(ctx, fetch,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(r.maxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}

	return r.parser.ParseDescriptors(data)
}
