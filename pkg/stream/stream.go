// Package stream provides a uniform random-access byte-stream abstraction
// with interchangeable backends: a local file, a growable in-memory buffer,
// and a block-cached remote resource fetched over ranged requests.
//
// All backends implement the Stream interface and behave identically from
// the consumer's point of view: one logical cursor, explicit EOF tracking,
// whole-object memory views, and content transfer between instances.
//
// A Stream instance is not safe for concurrent use. Every operation,
// including remote fetches, runs to completion on the caller's goroutine.
package stream

import "io"

// Stream is the contract every backend implements.
//
// Short reads, end-of-stream and out-of-range seeks are local conditions
// reported through EOF() and returned byte counts; errors are reserved for
// unrecoverable failures (failed reopen, transport failure, missing
// configuration). Callers composing many small operations should check both
// the returned count and EOF().
type Stream interface {
	// Open establishes readiness, closing any prior session first.
	Open() error

	// Close releases handles and mappings. Idempotent. Memory and remote
	// backends keep their cached bytes across Close; file handles do not.
	Close() error

	// Read copies up to len(p) bytes from the cursor into p and advances
	// the cursor by the number of bytes returned. EOF() is set when fewer
	// than len(p) bytes were available.
	Read(p []byte) (int, error)

	// ReadN returns up to n bytes from the cursor. It fails with
	// ErrReadFailed if zero bytes could be produced for a non-zero request.
	ReadN(n int) ([]byte, error)

	// ReadByte returns the byte at the cursor, advancing it by one.
	// At end of stream it sets EOF() and returns io.EOF.
	ReadByte() (byte, error)

	// Write stores p at the cursor; growth and overwrite semantics are
	// backend-specific.
	Write(p []byte) (int, error)

	// WriteByte stores a single byte at the cursor.
	WriteByte(c byte) error

	// ReadFrom copies from src's cursor to exhaustion, advancing both
	// cursors, and returns the total bytes moved. The remote backend
	// implements this as a diff-based write-back.
	ReadFrom(src Stream) (int64, error)

	// Seek repositions the cursor. whence is io.SeekStart, io.SeekCurrent
	// or io.SeekEnd; offsets may be negative. Backends return an error for
	// unhonorable positions or clamp and set EOF(), per their contract.
	Seek(offset int64, whence int) error

	// Tell returns the current cursor position.
	Tell() int64

	// Size returns the logical size of the object in bytes.
	Size() int64

	// IsOpen reports whether the stream is ready for I/O.
	IsOpen() bool

	// EOF reports whether the last read or seek touched end of stream.
	EOF() bool

	// Err returns the sticky error recorded by a prior failed operation,
	// or nil.
	Err() error

	// Path identifies the underlying resource.
	Path() string

	// Mmap returns a whole-object byte view. It must be paired with
	// Munmap. Requesting a writable view of a read-only session fails
	// with ErrMapFailed.
	Mmap(writable bool) ([]byte, error)

	// Munmap releases the view returned by Mmap, flushing it back first
	// when the view was writable and not a native mapping.
	Munmap() error

	// Transfer replaces this stream's content with src's content,
	// consuming src (src is left closed).
	Transfer(src Stream) error
}

// stageBufferSize is the staging buffer used by the generic stream-to-stream
// copy path.
const stageBufferSize = 4096

// copyStream moves bytes from src's cursor into dst until src is exhausted.
// It is the generic path behind ReadFrom: same-kind transfers may bypass it,
// but must produce identical results.
func copyStream(dst interface{ Write([]byte) (int, error) }, src Stream) (int64, error) {
	var buf [stageBufferSize]byte
	var total int64
	for {
		n, err := src.Read(buf[:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		w, err := dst.Write(buf[:n])
		total += int64(w)
		if err != nil {
			return total, err
		}
		if w != n {
			// Rewind src to where the write actually stopped.
			if serr := src.Seek(int64(w-n), io.SeekCurrent); serr != nil {
				return total, serr
			}
			return total, nil
		}
	}
}

// ReadOrFail reads exactly len(p) bytes or fails with the supplied error.
// It is a convenience for codec consumers that treat short reads as fatal.
func ReadOrFail(s Stream, p []byte, err error) error {
	n, rerr := s.Read(p)
	if rerr != nil {
		return rerr
	}
	if n != len(p) || s.Err() != nil {
		return err
	}
	return nil
}

// SeekOrFail seeks or fails with the supplied error.
func SeekOrFail(s Stream, offset int64, whence int, err error) error {
	if s.Seek(offset, whence) != nil {
		return err
	}
	return nil
}
