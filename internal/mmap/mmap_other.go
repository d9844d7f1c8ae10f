//go:build !unix

package mmap

import "os"

// Supported reports whether the platform has a native mapping primitive.
func Supported() bool { return false }

// Map always fails on platforms without a mapping primitive.
func Map(_ *os.File, _ int, _ bool) (*Mapping, error) {
	return nil, ErrUnsupported
}

// Unmap is a no-op on platforms without a mapping primitive.
func (m *Mapping) Unmap() error {
	m.data = nil
	return nil
}
