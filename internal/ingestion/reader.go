// Package ingestion reads descriptor files from the places catalog locations
// point at. A Registry maps each location type to the Reader that understands
// its target format.
package ingestion

import (
	"context"
	"errors"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

var (
	// ErrUnknownLocationType is returned when no reader is registered for a location type
	ErrUnknownLocationType = errors.New("unknown location type")

	// ErrTargetNotFound is returned when the content a location points at does not exist
	ErrTargetNotFound = errors.New("location target not found")

	// ErrInvalidTarget is returned when a target cannot be interpreted by its reader
	ErrInvalidTarget = errors.New("invalid location target")
)

// Reader fetches the raw content of a target and parses it into descriptors.
// An error means the target as a whole could not be read; problems with
// individual documents are reported through the ParserOutput instead.
type Reader interface {
	Read(ctx context.Context, target string) (*descriptors.ParserOutput, error)
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(ctx context.Context, target string) (*descriptors.ParserOutput, error)

// Read calls f(ctx, target)
func (f ReaderFunc) Read(ctx context.Context, target string) (*descriptors.ParserOutput, error) {
	return f(ctx, target)
}
