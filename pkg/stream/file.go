package stream

import (
	"io"
	"os"
	"strings"

	"github.com/marmos91/bytestream/internal/logger"
	"github.com/marmos91/bytestream/internal/mmap"
)

// opMode tracks what the underlying handle is currently primed for, so that
// alternating reads, writes and seeks reopen the file as rarely as possible.
type opMode int

const (
	opSeek opMode = iota
	opRead
	opWrite
)

// FileStream is a Stream over an OS file handle.
//
// Open takes C-style mode strings ("rb", "r+b", "wb", "w+b", "a+b") and the
// stream switches between read, write and seek access lazily, reopening the
// handle in "r+b" only when the current mode cannot serve the requested
// direction.
type FileStream struct {
	path     string
	openMode string
	f        *os.File
	op       opMode

	eof bool
	err error // sticky; cleared on Open

	mapped     []byte
	mapping    *mmap.Mapping // nil when the view is a heap copy
	mapHeap    bool
	mapWrite   bool
	mappedOpen bool
}

// NewFile returns a file-backed stream for path. The file is not touched
// until Open.
func NewFile(path string) *FileStream {
	return &FileStream{path: path}
}

// modeFlags translates a C-style mode string into os.OpenFile flags.
func modeFlags(mode string) int {
	plus := strings.Contains(mode, "+")
	switch {
	case strings.HasPrefix(mode, "r"):
		if plus {
			return os.O_RDWR
		}
		return os.O_RDONLY
	case strings.HasPrefix(mode, "w"):
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case strings.HasPrefix(mode, "a"):
		if plus {
			return os.O_RDWR | os.O_CREATE | os.O_APPEND
		}
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

// modeReadable reports whether a mode string can serve reads without a
// reopen, modeWritable the same for writes.
func modeReadable(mode string) bool {
	return strings.HasPrefix(mode, "r") || strings.Contains(mode, "+")
}

func modeWritable(mode string) bool {
	return !strings.HasPrefix(mode, "r") || strings.Contains(mode, "+")
}

// switchMode primes the handle for the target access mode, reopening the
// file only when really necessary. Reopening preserves the byte offset.
func (f *FileStream) switchMode(target opMode) error {
	if f.f == nil {
		return newError("switch", f.path, "file", ErrOpenFailed)
	}
	if f.op == target {
		return nil
	}
	old := f.op
	f.op = target

	reopen := true
	switch target {
	case opRead:
		if modeReadable(f.openMode) {
			reopen = false
		}
	case opWrite:
		if modeWritable(f.openMode) {
			reopen = false
		}
	case opSeek:
		reopen = false
	}

	if !reopen {
		// Nothing to do when switching from seek mode; the flush happens
		// when switching to it.
		if old == opSeek {
			return nil
		}
		// Zero-distance reposition forces buffered-I/O consistency
		// without reopening the handle.
		if _, err := f.f.Seek(0, io.SeekCurrent); err != nil {
			return err
		}
		return nil
	}

	// Reopen in "r+b", restoring the current offset.
	offset, err := f.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := f.f.Close(); err != nil {
		f.f = nil
		return err
	}
	f.openMode = "r+b"
	f.op = opSeek
	handle, err := os.OpenFile(f.path, os.O_RDWR, 0644)
	if err != nil {
		f.f = nil
		return newError("switch", f.path, "file", ErrOpenFailed)
	}
	f.f = handle
	_, err = f.f.Seek(offset, io.SeekStart)
	return err
}

// Open opens the file in read-only binary mode.
func (f *FileStream) Open() error {
	return f.OpenMode("rb")
}

// OpenMode opens the file with a C-style mode string, closing any prior
// session first.
func (f *FileStream) OpenMode(mode string) error {
	_ = f.Close()
	f.openMode = mode
	f.op = opSeek
	f.eof = false
	f.err = nil
	handle, err := os.OpenFile(f.path, modeFlags(mode), 0644)
	if err != nil {
		return newError("open", f.path, "file", ErrOpenFailed)
	}
	f.f = handle
	return nil
}

// IsOpen reports whether a handle is live.
func (f *FileStream) IsOpen() bool { return f.f != nil }

// Close releases the mapping and the handle. Idempotent.
func (f *FileStream) Close() error {
	var firstErr error
	if err := f.Munmap(); err != nil {
		firstErr = err
	}
	if f.f != nil {
		if err := f.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		f.f = nil
	}
	return firstErr
}

// SetPath closes the stream and retargets it at a new path.
func (f *FileStream) SetPath(path string) {
	_ = f.Close()
	f.path = path
}

// Read copies up to len(p) bytes from the cursor, setting EOF on a short
// read. Hard failures are recorded in Err.
func (f *FileStream) Read(p []byte) (int, error) {
	if err := f.switchMode(opRead); err != nil {
		return 0, err
	}
	n, err := f.f.Read(p)
	if err == io.EOF {
		f.eof = true
		return n, nil
	}
	if err != nil {
		f.err = err
		return n, err
	}
	if n < len(p) {
		f.eof = true
	}
	return n, nil
}

// ReadN returns up to n bytes from the cursor, failing with ErrReadFailed
// if nothing could be produced.
func (f *FileStream) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := f.Read(buf)
	if err != nil {
		return nil, err
	}
	if got == 0 && n > 0 {
		return nil, newError("read", f.path, "file", ErrReadFailed)
	}
	return buf[:got], nil
}

// ReadByte returns the byte at the cursor. At end of file it sets EOF and
// returns io.EOF.
func (f *FileStream) ReadByte() (byte, error) {
	var b [1]byte
	n, err := f.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return b[0], nil
}

// Write stores p at the cursor.
func (f *FileStream) Write(p []byte) (int, error) {
	if err := f.switchMode(opWrite); err != nil {
		return 0, err
	}
	n, err := f.f.Write(p)
	if err != nil {
		f.err = err
	}
	return n, err
}

// WriteByte stores one byte at the cursor.
func (f *FileStream) WriteByte(c byte) error {
	_, err := f.Write([]byte{c})
	return err
}

// ReadFrom copies from src's cursor to exhaustion through the staging
// buffer, rewinding src if the destination write came up short.
func (f *FileStream) ReadFrom(src Stream) (int64, error) {
	if Stream(f) == src {
		return 0, nil
	}
	if !src.IsOpen() {
		return 0, nil
	}
	if err := f.switchMode(opWrite); err != nil {
		return 0, err
	}
	return copyStream(f, src)
}

// Seek repositions the cursor. Out-of-range positions that the OS rejects
// (negative results) fail; positions past end of file are legal and extend
// the file on the next write.
func (f *FileStream) Seek(offset int64, whence int) error {
	if err := f.switchMode(opSeek); err != nil {
		return err
	}
	if _, err := f.f.Seek(offset, whence); err != nil {
		return err
	}
	f.eof = false
	return nil
}

// Tell returns the cursor position, or -1 when the stream is not open.
func (f *FileStream) Tell() int64 {
	if f.f == nil {
		return -1
	}
	pos, err := f.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	return pos
}

// Size returns the file size, or -1 when it cannot be determined. A handle
// open for writing is flushed first so the size is current.
func (f *FileStream) Size() int64 {
	if f.f != nil && modeWritable(f.openMode) {
		_ = f.f.Sync()
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return -1
	}
	return info.Size()
}

// EOF reports whether the last read hit end of file.
func (f *FileStream) EOF() bool { return f.eof }

// Err returns the sticky error recorded by a failed read or write.
func (f *FileStream) Err() error { return f.err }

// Path returns the file path.
func (f *FileStream) Path() string { return f.path }

// Mmap returns a view of the whole file. On platforms with a native mapping
// primitive the view is page-backed; otherwise the file is copied to the
// heap and flushed back on Munmap when the view is writable. A writable
// view forces the handle into write mode first.
func (f *FileStream) Mmap(writable bool) ([]byte, error) {
	if err := f.Munmap(); err != nil {
		return nil, newError("mmap", f.path, "file", ErrMapFailed)
	}
	length := f.Size()
	if length < 0 {
		return nil, newError("mmap", f.path, "file", ErrMapFailed)
	}
	f.mapWrite = writable
	if writable {
		if err := f.switchMode(opWrite); err != nil {
			return nil, newError("mmap", f.path, "file", ErrMapFailed)
		}
	}

	if mmap.Supported() {
		m, err := mmap.Map(f.f, int(length), writable)
		if err != nil {
			return nil, newError("mmap", f.path, "file", ErrMapFailed)
		}
		f.mapping = m
		f.mapped = m.Data()
		f.mapHeap = false
	} else {
		// Heap-copy fallback: read the whole file, write it back on
		// release if the view is writable.
		logger.Debug("mmap falling back to heap copy",
			logger.KeyPath, f.path, logger.KeyCount, length)
		if err := f.Seek(0, io.SeekStart); err != nil {
			return nil, newError("mmap", f.path, "file", ErrMapFailed)
		}
		buf := make([]byte, length)
		n, err := f.Read(buf)
		if err != nil || int64(n) != length {
			return nil, newError("mmap", f.path, "file", ErrMapFailed)
		}
		f.mapped = buf
		f.mapHeap = true
	}
	f.mappedOpen = true
	return f.mapped, nil
}

// Munmap releases the current view, flushing a writable heap copy back to
// the file first. After releasing a writable view the handle switches back
// to read mode.
func (f *FileStream) Munmap() error {
	var firstErr error
	if f.mappedOpen {
		if f.mapHeap {
			if f.mapWrite {
				if err := f.Seek(0, io.SeekStart); err != nil {
					firstErr = err
				} else if _, err := f.Write(f.mapped); err != nil {
					firstErr = err
				}
			}
		} else if f.mapping != nil {
			if err := f.mapping.Unmap(); err != nil {
				firstErr = err
			}
			f.mapping = nil
		}
	}
	if f.mapWrite {
		if f.f != nil {
			if err := f.switchMode(opRead); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		f.mapWrite = false
	}
	f.mapped = nil
	f.mapHeap = false
	f.mappedOpen = false
	return firstErr
}

// Transfer replaces the file's content with src's content, consuming src.
//
// When src is another FileStream the backing storage is renamed onto this
// stream's path instead of being copied: the destination is opened in
// append mode once to validate write permission, removed, and the source
// file renamed into place, restoring the destination's original permission
// bits if the rename changed them.
func (f *FileStream) Transfer(src Stream) error {
	wasOpen := f.f != nil
	lastMode := f.openMode

	if fileSrc, ok := src.(*FileStream); ok {
		_ = fileSrc.Close()
		if err := f.OpenMode("a+b"); err != nil {
			// The source is typically a temporary file; don't leave it
			// behind when the destination is not writable.
			_ = os.Remove(fileSrc.path)
			return newError("transfer", f.path, "file", ErrOpenFailed)
		}
		_ = f.Close()

		statOK := true
		var origMode os.FileMode
		if info, err := os.Stat(f.path); err == nil {
			origMode = info.Mode().Perm()
		} else {
			statOK = false
		}

		if _, err := os.Stat(f.path); err == nil {
			if err := os.Remove(f.path); err != nil {
				return newError("transfer", f.path, "file", ErrTransferFailed)
			}
		}
		if err := os.Rename(fileSrc.path, f.path); err != nil {
			return newError("transfer", f.path, "file", ErrTransferFailed)
		}
		logger.Debug("file transfer by rename",
			logger.KeyPath, f.path, "source", fileSrc.path)

		if statOK {
			if info, err := os.Stat(f.path); err == nil {
				if info.Mode().Perm() != origMode {
					if err := os.Chmod(f.path, origMode); err != nil {
						logger.Warn("failed to restore permissions",
							logger.KeyPath, f.path, logger.KeyError, err)
					}
				}
			} else {
				logger.Warn("failed to stat transferred file",
					logger.KeyPath, f.path, logger.KeyError, err)
			}
		}
	} else {
		// Generic handling: reopen both to reset to start.
		if err := f.OpenMode("w+b"); err != nil {
			return newError("transfer", f.path, "file", ErrOpenFailed)
		}
		if err := src.Open(); err != nil {
			return newError("transfer", src.Path(), "file", ErrOpenFailed)
		}
		if _, err := f.ReadFrom(src); err != nil {
			return newError("transfer", f.path, "file", ErrTransferFailed)
		}
		if err := src.Close(); err != nil {
			return newError("transfer", src.Path(), "file", ErrTransferFailed)
		}
	}

	if wasOpen {
		if err := f.OpenMode(lastMode); err != nil {
			return newError("transfer", f.path, "file", ErrOpenFailed)
		}
	} else {
		_ = f.Close()
	}

	if f.Err() != nil || src.Err() != nil {
		return newError("transfer", f.path, "file", ErrTransferFailed)
	}
	return nil
}

var _ Stream = (*FileStream)(nil)
