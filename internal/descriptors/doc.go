// Package descriptors turns raw catalog descriptor data into typed,
// versioned component records.
//
// Parsing happens in three stages:
//
//   - Document decoding: a YAML stream is split into its documents and each
//     document is decoded on its own, so a syntax error in one document does
//     not hide the others.
//   - Envelope parsing: every document must carry the common
//     apiVersion/kind/metadata/spec envelope. This stage never looks inside
//     metadata or spec.
//   - Schema validation: the SchemaRegistry resolves a Validator for the
//     (apiVersion, kind) pair and turns the envelope into a
//     ComponentDescriptor.
//
// Per-document failures are collected in ParserOutput.Errors and never abort
// the remaining documents. Only a failure to enumerate the documents at all is
// returned as an error from ParseDescriptors.
//
// All failures produced by this package are *Error values that unwrap to one
// of the ErrDecodeFailure, ErrMalformedDocument, ErrInvalidEnvelope,
// ErrUnsupportedDescriptor or ErrMalformedDescriptor sentinels.
package descriptors
