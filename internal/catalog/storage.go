package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

const (
	// SnapshotFileName is the name of the catalog snapshot file
	SnapshotFileName = "catalog.json"
)

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks -source=storage.go Storage

// Storage persists snapshots of the catalog components
type Storage interface {
	// Save replaces the stored snapshot with the given entries
	Save(ctx context.Context, entries []Entry) error

	// Load returns the entries of the stored snapshot, or none on first run
	Load(ctx context.Context) ([]Entry, error)
}

// storedEntry is the on-disk representation of an Entry
type storedEntry struct {
	LocationID string          `json:"locationId"`
	Component  json.RawMessage `json:"component"`
}

// fileStorage implements Storage using a JSON file on the local filesystem
type fileStorage struct {
	basePath string
	parser   *descriptors.Parser
}

// NewFileStorage creates a snapshot storage in basePath. Stored components are
// validated again with parser when loaded.
func NewFileStorage(basePath string, parser *descriptors.Parser) Storage {
	if parser == nil {
		parser = descriptors.NewParser(nil)
	}
	return &fileStorage{
		basePath: basePath,
		parser:   parser,
	}
}

// Save writes the snapshot atomically
func (f *fileStorage) Save(_ context.Context, entries []Entry) error {
	if err := os.MkdirAll(f.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	stored := make([]storedEntry, 0, len(entries))
	for _, entry := range entries {
		component, err := json.Marshal(entry.Component)
		if err != nil {
			return fmt.Errorf("failed to marshal component %s: %w", entry.Component.GetName(), err)
		}
		stored = append(stored, storedEntry{LocationID: entry.LocationID, Component: component})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog snapshot: %w", err)
	}

	filePath := filepath.Join(f.basePath, SnapshotFileName)

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary snapshot file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	return nil
}

// Load reads the snapshot. A missing file yields no entries.
func (f *fileStorage) Load(_ context.Context) ([]Entry, error) {
	filePath := filepath.Join(f.basePath, SnapshotFileName)

	//nolint:gosec // File path is internally managed by the storage, not user input
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var stored []storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	entries := make([]Entry, 0, len(stored))
	for i, item := range stored {
		component, err := f.parser.DecodeComponent(item.Component)
		if err != nil {
			return nil, fmt.Errorf("stored component %d of location %s: %w", i, item.LocationID, err)
		}
		entries = append(entries, Entry{LocationID: item.LocationID, Component: component})
	}

	return entries, nil
}
