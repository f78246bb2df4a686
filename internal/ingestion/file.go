package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

type fileReader struct {
	parser *descriptors.Parser
}

// NewFileReader creates a reader for paths on the local filesystem.
// Targets may carry a file:// prefix.
func NewFileReader(parser *descriptors.Parser) Reader {
	return &fileReader{parser: parser}
}

func (r *fileReader) Read(_ context.Context, target string) (*descriptors.ParserOutput, error) {
	path := strings.TrimPrefix(target, "file://")
	if path == "" {
		return nil, fmt.Errorf("%w: file path cannot be empty", ErrInvalidTarget)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidTarget, path)
	}
	if info.Size() > descriptors.MaxDescriptorSize {
		return nil, fmt.Errorf("file %s exceeds maximum descriptor size of %d bytes", path, descriptors.MaxDescriptorSize)
	}

	//nolint:gosec // Reading the configured location target is the purpose of this reader
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	slog.Debug("Read descriptor file", "path", path, "bytes", len(data))
	return r.parser.ParseDescriptors(data)
}
