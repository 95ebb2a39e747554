package normdoc

import "errors"

var (
	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("normdoc: document not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("normdoc: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("normdoc: parsing failed")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("normdoc: embedding generation failed")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("normdoc: store is closed")

	// ErrNoResults is returned when search yields no matching chunks.
	ErrNoResults = errors.New("normdoc: no results found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("normdoc: invalid configuration")
)
