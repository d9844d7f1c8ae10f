// Package mmap wraps the platform memory-mapping primitive behind a small
// capability-gated API.
//
// On platforms without a mapping primitive, Supported reports false and Map
// returns ErrUnsupported; callers are expected to fall back to a heap copy
// of the file contents.
package mmap

import "errors"

// ErrUnsupported is returned by Map on platforms without a native mapping
// primitive.
var ErrUnsupported = errors.New("memory mapping not supported on this platform")

// Mapping is a live page-level view of a file. It must be released with
// Unmap; the view must not be used after the owning file handle is closed.
type Mapping struct {
	data []byte
}

// Data returns the mapped byte view.
func (m *Mapping) Data() []byte { return m.data }
