package stream

import "io"

const (
	// memFirstBlock is the allocation granule for a buffer's first growth.
	memFirstBlock = 32 * 1024

	// memMaxGrowth caps the doubling growth step. Bounding the step keeps
	// worst-case over-allocation at 4MiB while still bounding the number
	// of reallocations for large appends.
	memMaxGrowth = 4 * 1024 * 1024
)

// MemoryStream is a Stream over a growable heap buffer.
//
// The buffer distinguishes logical length from allocated capacity and grows
// geometrically: the first allocation is the smallest multiple of 32KiB
// covering the requirement, later growth doubles the capacity capped at a
// 4MiB step. The buffer persists across Open/Close and is released only by
// a transfer to another instance.
type MemoryStream struct {
	data      []byte // len(data) is the allocated capacity
	length    int64  // logical size; highest byte ever written or reserved
	allocated int64
	idx       int64
	eof       bool
	owned     bool // false while wrapping a caller-supplied slice
}

// NewMemory returns an empty in-memory stream. No buffer is allocated until
// the first write.
func NewMemory() *MemoryStream {
	return &MemoryStream{}
}

// NewMemoryFromBytes returns an in-memory stream over data. The slice is
// adopted without copying; the first growth copies it out, so the caller's
// slice is never mutated.
func NewMemoryFromBytes(data []byte) *MemoryStream {
	return &MemoryStream{
		data:      data,
		length:    int64(len(data)),
		allocated: int64(len(data)),
	}
}

// reserve grows the buffer so that wcount bytes fit at the cursor.
func (m *MemoryStream) reserve(wcount int64) {
	need := m.idx + wcount

	if !m.owned {
		// First owned allocation: smallest multiple of the granule
		// covering the requirement, never below the current length.
		size := int64(memFirstBlock) * (1 + need/memFirstBlock)
		if size < m.length {
			size = m.length
		}
		buf := make([]byte, size)
		copy(buf, m.data[:m.length])
		m.data = buf
		m.allocated = size
		m.owned = true
	}

	if need > m.length {
		if need > m.allocated {
			step := 2 * m.allocated
			if step > memMaxGrowth {
				step = memMaxGrowth
			}
			want := step * (1 + need/step)
			buf := make([]byte, want)
			copy(buf, m.data[:m.length])
			m.data = buf
			m.allocated = want
		}
		m.length = need
	}
}

// Open resets the cursor; the buffer contents persist.
func (m *MemoryStream) Open() error {
	m.idx = 0
	m.eof = false
	return nil
}

// IsOpen always reports true: a memory stream needs no session.
func (m *MemoryStream) IsOpen() bool { return true }

// Close is a no-op; the buffer is kept for reuse.
func (m *MemoryStream) Close() error { return nil }

// Write grows the buffer to cover the write, copies p at the cursor and
// advances the cursor by the full count. Unlike file writes it never
// returns short.
func (m *MemoryStream) Write(p []byte) (int, error) {
	m.reserve(int64(len(p)))
	copy(m.data[m.idx:], p)
	m.idx += int64(len(p))
	return len(p), nil
}

// WriteByte stores one byte at the cursor.
func (m *MemoryStream) WriteByte(c byte) error {
	m.reserve(1)
	m.data[m.idx] = c
	m.idx++
	return nil
}

// ReadFrom copies from src's cursor to exhaustion through the staging
// buffer.
func (m *MemoryStream) ReadFrom(src Stream) (int64, error) {
	if Stream(m) == src {
		return 0, nil
	}
	if !src.IsOpen() {
		return 0, nil
	}
	return copyStream(m, src)
}

// Read copies up to len(p) bytes from the cursor. Reading past the logical
// length returns only the available bytes and sets EOF.
func (m *MemoryStream) Read(p []byte) (int, error) {
	avail := m.length - m.idx
	allow := int64(len(p))
	if allow > avail {
		allow = avail
	}
	if allow > 0 {
		copy(p, m.data[m.idx:m.idx+allow])
	}
	m.idx += allow
	if int64(len(p)) > avail {
		m.eof = true
	}
	return int(allow), nil
}

// ReadN returns up to n bytes from the cursor, failing with ErrReadFailed
// if nothing could be produced.
func (m *MemoryStream) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := m.Read(buf)
	if err != nil {
		return nil, err
	}
	if got == 0 && n > 0 {
		return nil, newError("read", m.Path(), "memory", ErrReadFailed)
	}
	return buf[:got], nil
}

// ReadByte returns the byte at the cursor. At end of buffer it sets EOF and
// returns io.EOF.
func (m *MemoryStream) ReadByte() (byte, error) {
	if m.idx >= m.length {
		m.eof = true
		return 0, io.EOF
	}
	c := m.data[m.idx]
	m.idx++
	return c, nil
}

// Seek repositions the cursor. Negative results fail; positions past the
// logical length set EOF and fail.
func (m *MemoryStream) Seek(offset int64, whence int) error {
	var newIdx int64
	switch whence {
	case io.SeekCurrent:
		newIdx = m.idx + offset
	case io.SeekStart:
		newIdx = offset
	case io.SeekEnd:
		newIdx = m.length + offset
	}

	if newIdx < 0 {
		return newError("seek", m.Path(), "memory", ErrReadFailed)
	}
	if newIdx > m.length {
		m.eof = true
		return newError("seek", m.Path(), "memory", ErrReadFailed)
	}
	m.idx = newIdx
	m.eof = false
	return nil
}

// Tell returns the cursor position.
func (m *MemoryStream) Tell() int64 { return m.idx }

// Size returns the logical length.
func (m *MemoryStream) Size() int64 { return m.length }

// EOF reports whether a read or seek touched end of buffer.
func (m *MemoryStream) EOF() bool { return m.eof }

// Err always returns nil: memory operations cannot fail partially.
func (m *MemoryStream) Err() error { return nil }

// Path returns the fixed identifier of the memory backend.
func (m *MemoryStream) Path() string { return "memory" }

// Mmap returns the live internal buffer; no copy is made and Munmap is a
// no-op. The view stays valid until the next growth or transfer.
func (m *MemoryStream) Mmap(_ bool) ([]byte, error) {
	return m.data[:m.length], nil
}

// Munmap is a no-op for the memory backend.
func (m *MemoryStream) Munmap() error { return nil }

// Transfer replaces the buffer with src's content, consuming src. When src
// is another MemoryStream the buffer ownership is handed off without a
// copy; src is reset to empty-unallocated.
func (m *MemoryStream) Transfer(src Stream) error {
	if other, ok := src.(*MemoryStream); ok {
		m.idx = 0
		m.eof = false
		m.data = other.data
		m.length = other.length
		m.allocated = other.allocated
		m.owned = other.owned

		other.data = nil
		other.idx = 0
		other.length = 0
		other.allocated = 0
		other.owned = false
		other.eof = false
		return nil
	}

	// Generic path: reopen src to reset its cursor, then stage-copy.
	if err := src.Open(); err != nil {
		return newError("transfer", src.Path(), "memory", ErrOpenFailed)
	}
	m.idx = 0
	m.length = 0
	if _, err := m.ReadFrom(src); err != nil {
		return newError("transfer", m.Path(), "memory", ErrTransferFailed)
	}
	if err := src.Close(); err != nil {
		return newError("transfer", src.Path(), "memory", ErrTransferFailed)
	}
	if m.Err() != nil || src.Err() != nil {
		return newError("transfer", m.Path(), "memory", ErrTransferFailed)
	}
	return nil
}

var _ Stream = (*MemoryStream)(nil)
