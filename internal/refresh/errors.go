package refresh

import (
	"errors"
	"fmt"
)

var (
	// ErrNoValidData is the failure of a location whose descriptors produced no components
	ErrNoValidData = errors.New("no valid data found")

	// ErrNotReady means no refresh cycle has completed yet
	ErrNotReady = errors.New("no refresh cycle completed yet")
)

// UpsertError is the failure of the catalog to store a component of a location
type UpsertError struct {
	LocationID string
	Component  string
	Err        error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("failed to add or update component %q of location %s: %v", e.Component, e.LocationID, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}
