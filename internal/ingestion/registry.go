package ingestion

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/git"
	"github.com/stacklok/catalog-ingester/internal/httpclient"
)

// Location types served by the default registry
const (
	LocationTypeFile = "file"
	LocationTypeURL  = "url"
	LocationTypeGit  = "git"
)

// Registry dispatches reads to the reader registered for a location's type.
// It is populated once at startup and only read afterwards, so it carries no locking.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds the reader for a location type
func (r *Registry) Register(locationType string, reader Reader) error {
	if locationType == "" {
		return fmt.Errorf("location type cannot be empty")
	}
	if reader == nil {
		return fmt.Errorf("reader for location type %s cannot be nil", locationType)
	}
	if _, exists := r.readers[locationType]; exists {
		return fmt.Errorf("reader for location type %s is already registered", locationType)
	}
	r.readers[locationType] = reader
	return nil
}

// Read reads a location with the reader registered for its type
func (r *Registry) Read(ctx context.Context, location catalog.Location) (*descriptors.ParserOutput, error) {
	reader, ok := r.readers[location.Type]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownLocationType, location.Type)
	}

	output, err := reader.Read(ctx, location.Target)
	if err != nil {
		return nil, err
	}
	if output == nil {
		output = &descriptors.ParserOutput{}
	}
	return output, nil
}

// Types returns the registered location types in sorted order
func (r *Registry) Types() []string {
	return slices.Sorted(maps.Keys(r.readers))
}

// Option configures the readers of the default registry
type Option func(*options)

type options struct {
	httpClient      httpclient.Client
	gitClient       git.Client
	maxTries        uint
	initialInterval time.Duration
}

// WithHTTPClient sets the client used by the url reader
func WithHTTPClient(client httpclient.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithGitClient sets the client used by the git reader
func WithGitClient(client git.Client) Option {
	return func(o *options) {
		o.gitClient = client
	}
}

// WithRetry sets how often and how fast the url reader retries transient failures
func WithRetry(maxTries uint, initialInterval time.Duration) Option {
	return func(o *options) {
		o.maxTries = maxTries
		o.initialInterval = initialInterval
	}
}

// NewDefaultRegistry creates a registry with the file, url and git readers.
// A nil parser uses the default schema registry.
func NewDefaultRegistry(parser *descriptors.Parser, opts ...Option) *Registry {
	if parser == nil {
		parser = descriptors.NewParser(nil)
	}

	o := &options{
		maxTries:        DefaultMaxTries,
		initialInterval: DefaultInitialInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = httpclient.NewDefaultClient(0)
	}
	if o.gitClient == nil {
		o.gitClient = git.NewDefaultGitClient()
	}

	registry := NewRegistry()
	registry.readers[LocationTypeFile] = NewFileReader(parser)
	registry.readers[LocationTypeURL] = NewURLReader(parser, o.httpClient, o.maxTries, o.initialInterval)
	registry.readers[LocationTypeGit] = NewGitReader(parser, o.gitClient)
	return registry
}
