// Package status tracks and persists the refresh status of catalog locations.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_persistence.go -package=mocks -source=persistence.go Persistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// Persistence stores the refresh status of locations
type Persistence interface {
	// SaveStatus saves the status of a location
	SaveStatus(ctx context.Context, locationID string, status *LocationStatus) error

	// LoadStatus loads the status of a location.
	// Returns an empty LocationStatus if none was saved yet.
	LoadStatus(ctx context.Context, locationID string) (*LocationStatus, error)

	// LoadAllStatus loads the status of every location with a saved status
	LoadAllStatus(ctx context.Context) (map[string]*LocationStatus, error)
}

// filePersistence keeps one directory per location under basePath
type filePersistence struct {
	basePath string
}

// NewFilePersistence creates a file based status persistence rooted at basePath
func NewFilePersistence(basePath string) Persistence {
	return &filePersistence{
		basePath: basePath,
	}
}

// locationDir escapes the location id into a single path element
func (f *filePersistence) locationDir(locationID string) (string, error) {
	name := url.PathEscape(locationID)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid location id %q", locationID)
	}
	return filepath.Join(f.basePath, name), nil
}

// SaveStatus writes the status atomically
func (f *filePersistence) SaveStatus(_ context.Context, locationID string, status *LocationStatus) error {
	dir, err := f.locationDir(locationID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for location '%s': %w", locationID, err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status for location '%s': %w", locationID, err)
	}

	filePath := filepath.Join(dir, StatusFileName)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for location '%s': %w", locationID, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for location '%s': %w", locationID, err)
	}

	return nil
}

// LoadStatus reads the status of a location
func (f *filePersistence) LoadStatus(_ context.Context, locationID string) (*LocationStatus, error) {
	dir, err := f.locationDir(locationID)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- the location id is escaped into a single path element
	data, err := os.ReadFile(filepath.Join(dir, StatusFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &LocationStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for location '%s': %w", locationID, err)
	}

	var status LocationStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status for location '%s': %w", locationID, err)
	}

	return &status, nil
}

// LoadAllStatus reads every saved status. Unreadable entries are skipped.
func (f *filePersistence) LoadAllStatus(ctx context.Context) (map[string]*LocationStatus, error) {
	result := make(map[string]*LocationStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		locationID, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}

		status, err := f.LoadStatus(ctx, locationID)
		if err != nil {
			slog.Warn("Skipping unreadable location status", "location", locationID, "error", err)
			continue
		}
		result[locationID] = status
	}

	return result, nil
}
