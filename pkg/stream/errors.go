package stream

import (
	"errors"
	"fmt"
)

// Standard stream errors. Callers should match with errors.Is; every
// backend wraps these sentinels in a *Error carrying operational context.
var (
	// ErrOpenFailed indicates the backend could not be made ready:
	// a missing file, an unreachable resource, or a zero-length remote.
	ErrOpenFailed = errors.New("open failed")

	// ErrReadFailed indicates a value-returning read produced zero bytes
	// for a non-zero request.
	ErrReadFailed = errors.New("read failed")

	// ErrWriteFailed indicates the backend cannot accept the write, such
	// as raw byte writes on the remote backend.
	ErrWriteFailed = errors.New("write failed")

	// ErrMapFailed indicates a memory view could not be created, including
	// writable views over read-only sessions and platform mapping failures.
	ErrMapFailed = errors.New("mmap failed")

	// ErrTransferFailed indicates a content transfer left either side in
	// an error state.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrAllocFailed indicates buffer growth could not be satisfied.
	ErrAllocFailed = errors.New("allocation failed")

	// ErrResourceAccess covers all remote probe/fetch/push failures,
	// including empty range responses and zero-length resources. The
	// wrapping *Error carries the transport status and resource path.
	ErrResourceAccess = errors.New("resource access failed")

	// ErrConfigMissing indicates required configuration is unset: the
	// remote upload endpoint, or a non-positive transfer timeout.
	ErrConfigMissing = errors.New("required configuration missing")
)

// Error wraps a sentinel stream error with structured context.
//
// It keeps errors.Is matching on the underlying sentinel:
//
//	err := newError("fetch", path, "remote", ErrResourceAccess).withStatus(503)
//	errors.Is(err, ErrResourceAccess) // true
type Error struct {
	// Op is the operation that failed: "open", "read", "write", "fetch",
	// "push", "mmap", "transfer".
	Op string

	// Path identifies the affected resource.
	Path string

	// Backend is the stream backend type: "file", "memory", or "remote".
	Backend string

	// Status is the transport status code for remote failures, 0 otherwise.
	Status int

	// Err is the wrapped sentinel.
	Err error
}

// Error returns a human-readable description including the operation and
// key context fields.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("stream %s: %s (path=%s, backend=%s, status=%d)",
			e.Op, e.Err, e.Path, e.Backend, e.Status)
	}
	return fmt.Sprintf("stream %s: %s (path=%s, backend=%s)", e.Op, e.Err, e.Path, e.Backend)
}

// Unwrap returns the underlying sentinel, enabling errors.Is and errors.As
// through Error wrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path, backend string, err error) *Error {
	return &Error{Op: op, Path: path, Backend: backend, Err: err}
}

func (e *Error) withStatus(status int) *Error {
	e.Status = status
	return e
}
