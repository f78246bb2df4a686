// Package catalog defines the catalog collaborator consumed by the refresh
// engine, together with an in-memory implementation and optional snapshot
// persistence.
package catalog

import (
	"context"
	"errors"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

var (
	// ErrLocationNotFound is returned when a location id is not known to the catalog
	ErrLocationNotFound = errors.New("location not found")

	// ErrInvalidComponent is returned when a component cannot be stored
	ErrInvalidComponent = errors.New("invalid component")
)

// Location identifies where descriptor content is fetched from
type Location struct {
	// ID uniquely identifies the location within the catalog
	ID string `json:"id" yaml:"id"`

	// Type selects the reader used for the location, e.g. file, url or git
	Type string `json:"type" yaml:"type"`

	// Target is the reader specific address of the content
	Target string `json:"target" yaml:"target"`
}

//go:generate mockgen -destination=mocks/mock_catalog.go -package=mocks -source=types.go Catalog

// Catalog is the store the refresh engine reconciles components into
type Catalog interface {
	// Locations returns the current list of locations.
	// Every call returns a fresh list; changes take effect on the next call.
	Locations(ctx context.Context) ([]Location, error)

	// AddOrUpdateComponent stores a component for the given location
	AddOrUpdateComponent(ctx context.Context, locationID string, component descriptors.ComponentDescriptor) error
}

// Entry is a component stored in the catalog together with its origin
type Entry struct {
	LocationID string
	Component  descriptors.ComponentDescriptor
}
