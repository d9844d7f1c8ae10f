package stream

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ReadWholeFile opens path, reads its entire content into memory and
// closes it again.
func ReadWholeFile(path string) ([]byte, error) {
	f := NewFile(path)
	if err := f.Open(); err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	size := f.Size()
	if size < 0 {
		return nil, newError("stat", path, "file", ErrOpenFailed)
	}
	buf := make([]byte, size)
	if _, err := f.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteWholeFile writes data to path, truncating any previous content, and
// returns the number of bytes written.
func WriteWholeFile(data []byte, path string) (int, error) {
	f := NewFile(path)
	if err := f.OpenMode("wb"); err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, err
	}
	return n, nil
}

// TempFileStream creates an empty uniquely named file under dir (or the
// system temp directory when dir is empty) and returns a closed FileStream
// over it. The caller removes the file when done.
func TempFileStream(dir, pattern string) (*FileStream, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, fmt.Sprintf("%s-%s", pattern, uuid.NewString()))
	f := NewFile(name)
	if err := f.OpenMode("wb"); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return f, nil
}
