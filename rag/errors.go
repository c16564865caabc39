package rag

import "errors"

var (
	// ErrUnreadyService means no completion client is configured.
	ErrUnreadyService = errors.New("backend service not ready: completion client not initialized")

	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrExtraction          = errors.New("text extraction failed")
	ErrMalformedInput      = errors.New("malformed input")
	ErrUpstreamStream      = errors.New("upstream stream failed")
)
