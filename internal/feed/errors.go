package feed

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no listing entry matches the requested name prefix.
// There is nothing to download, so callers treat it as fatal for the run.
var ErrNotFound = errors.New("no data file matches the name prefix")

// ErrPayloadTooLarge is returned when a response body exceeds the fetcher's size limit.
// The body is rejected rather than truncated so a partial file is never parsed.
var ErrPayloadTooLarge = errors.New("payload exceeds maximum size")

// TransportError describes a failed GET against the feed bucket.
// StatusCode is zero when no HTTP response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError describes a payload that is not in the expected format.
type ParseError struct {
	Source string // "listing" or "records"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
