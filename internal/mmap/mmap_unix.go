//go:build unix

package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Supported reports whether the platform has a native mapping primitive.
func Supported() bool { return true }

// Map creates a shared page-level mapping of the first length bytes of f.
func Map(f *os.File, length int, writable bool) (*Mapping, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %q: %w", f.Name(), err)
	}
	return &Mapping{data: data}, nil
}

// Unmap releases the mapping. Writable mappings are shared, so dirty pages
// reach the file without an explicit flush.
func (m *Mapping) Unmap() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
