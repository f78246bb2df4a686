package descriptors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecodeFailure means the documents of a source could not be enumerated at all
	ErrDecodeFailure = errors.New("could not decode descriptor data")

	// ErrMalformedDocument means a single document was rejected by the YAML decoder
	ErrMalformedDocument = errors.New("malformed YAML document")

	// ErrInvalidEnvelope means a document lacks a usable apiVersion or kind
	ErrInvalidEnvelope = errors.New("invalid descriptor envelope")

	// ErrUnsupportedDescriptor means no validator is registered for the apiVersion and kind
	ErrUnsupportedDescriptor = errors.New("unsupported descriptor")

	// ErrMalformedDescriptor means a document failed version specific validation
	ErrMalformedDescriptor = errors.New("malformed descriptor")
)

// noDocument marks an Error that is not tied to a document position
const noDocument = -1

// Error describes why a descriptor, or a whole source of descriptors, could not
// be turned into components.
type Error struct {
	// Kind is one of the Err* sentinels of this package
	Kind error

	// Document is the zero-based position of the document within its source,
	// or -1 when the error is not tied to a single document
	Document int

	// Detail is a short human readable description of the failure
	Detail string

	// Err is the underlying cause, if any
	Err error
}

func newError(kind error, detail string, cause error) *Error {
	return &Error{
		Kind:     kind,
		Document: noDocument,
		Detail:   detail,
		Err:      cause,
	}
}

// Error returns the error message
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Document >= 0 {
		fmt.Fprintf(&b, " (document %d)", e.Document)
	}
	if e.Detail != "" {
		b.WriteString(", ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// atDocument tags err with the position of the document it belongs to.
// Errors that are not *Error are treated as malformed descriptors.
func atDocument(err error, index int) *Error {
	var descErr *Error
	if errors.As(err, &descErr) {
		tagged := *descErr
		tagged.Document = index
		return &tagged
	}

	return &Error{
		Kind:     ErrMalformedDescriptor,
		Document: index,
		Err:      err,
	}
}
