// Package apperr classifies the failures the relay can hit.
//
// A symbol with no data rows is not an error: providers return an empty
// optional for it.
//
// Kinds:
//   - ErrFetch: network or parse failure for a single symbol
//   - ErrConfig: missing API key, missing input file or invalid configuration
//   - ErrUpload: remote rejected the upload or the transport failed
//
// Usage:
//
//	err := apperr.Wrap(apperr.ErrFetch, "fetch AAPL.US", cause)
//	if errors.Is(err, apperr.ErrFetch) { ... }
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrFetch  = errors.New("fetch failed")
	ErrConfig = errors.New("invalid configuration")
	ErrUpload = errors.New("upload failed")
)

// Error carries a kind, the operation that failed and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Wrap returns an *Error of the given kind. cause may be nil.
func Wrap(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Wrapf is Wrap with a formatted operation.
func Wrapf(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPError is a non-success response from a remote API. Body holds the
// response body exactly as received.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// StatusCode returns the status of the first *HTTPError in err's chain, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
