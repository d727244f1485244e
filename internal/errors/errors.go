// Package errors defines the typed errors trove reports on its wire and log
// surfaces. Codes are stable strings; everything without a code uses plain
// fmt.Errorf wrapping at the call site.
package errors

import "fmt"

// Code identifies a class of failure.
type Code string

const (
	// CodeConfigInvalid marks configuration that failed to load or validate.
	CodeConfigInvalid Code = "config_invalid"
	// CodeSnapshotMissing marks a snapshot file that does not exist.
	CodeSnapshotMissing Code = "snapshot_missing"
	// CodeSnapshotCorrupt marks a snapshot that exists but cannot be decoded.
	CodeSnapshotCorrupt Code = "snapshot_corrupt"
	// CodeExtractUnsupported marks a file extension outside the allowlist.
	CodeExtractUnsupported Code = "extract_unsupported"
	// CodeExtractFailed marks a supported file whose content could not be read.
	CodeExtractFailed Code = "extract_failed"
	// CodeWalkFailed marks a directory traversal failure.
	CodeWalkFailed Code = "walk_failed"
	// CodeWatchFailed marks a file watcher that could not be started.
	CodeWatchFailed Code = "watch_failed"
	// CodeServerFailed marks an HTTP server lifecycle failure.
	CodeServerFailed Code = "server_failed"
	// CodeQueryInvalid marks an unusable search request.
	CodeQueryInvalid Code = "query_invalid"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against code sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around a cause. Returns nil when cause is nil.
func Wrap(code Code, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf creates a coded error around a cause with a formatted message.
func Wrapf(code Code, cause error, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// GetCode extracts the code from an *Error anywhere in err's chain.
// Returns the empty code when none is present.
func GetCode(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
