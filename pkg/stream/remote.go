package stream

import (
	"context"
	"io"

	"github.com/marmos91/bytestream/internal/logger"
	"github.com/marmos91/bytestream/pkg/stream/block"
)

// WholeResource is the block index sentinel passed to Fetcher.FetchRange
// when the entire body is wanted in one request.
const WholeResource int64 = -1

// Fetcher supplies the three protocol primitives the remote backend is
// built on. Implementations live in pkg/stream/remote; they are injected as
// a strategy so the cache logic stays protocol-agnostic.
type Fetcher interface {
	// Length returns the resource length in bytes, or -1 when the
	// protocol cannot determine it up front (the stream then falls back
	// to a whole-resource fetch).
	Length(ctx context.Context) (int64, error)

	// FetchRange returns the bytes covering the inclusive block range
	// [low*BlockSize, (high+1)*BlockSize). low = high = WholeResource
	// requests the entire body.
	FetchRange(ctx context.Context, low, high int64) ([]byte, error)

	// PushRange uploads data as the replacement for resource bytes
	// [from, to).
	PushRange(ctx context.Context, data []byte, from, to int64) error

	// BlockSize returns the cache cell granularity for this protocol.
	BlockSize() int64

	// Path identifies the remote resource.
	Path() string
}

// RemoteMetrics records remote traffic. A nil RemoteMetrics disables
// recording with zero overhead.
type RemoteMetrics interface {
	// ObserveProbe counts a length probe.
	ObserveProbe()

	// ObserveFetch counts one range fetch spanning the given number of
	// blocks and bytes.
	ObserveFetch(blocks, bytes int)

	// ObservePush counts one write-back upload of the given size.
	ObservePush(bytes int)
}

// RemoteStream is a Stream over a virtual file whose bytes are fetched
// lazily in fixed-size blocks.
//
// Bytes arrive on demand inside Read and ReadByte; cells already fetched are
// never requested twice, and a single call issues at most one range request
// no matter how many cached blocks it skips. Writing back goes through a
// diff against the cached content so only the changed span is uploaded.
type RemoteStream struct {
	fetcher Fetcher
	ctx     context.Context
	metrics RemoteMetrics

	blockSize int64
	blocks    []block.Cell
	size      int64
	idx       int64
	eof       bool
	opened    bool
	mapped    []byte
}

// RemoteOption configures a RemoteStream.
type RemoteOption func(*RemoteStream)

// WithContext sets the context passed to the fetcher on every network call.
func WithContext(ctx context.Context) RemoteOption {
	return func(r *RemoteStream) { r.ctx = ctx }
}

// WithMetrics attaches a traffic recorder.
func WithMetrics(m RemoteMetrics) RemoteOption {
	return func(r *RemoteStream) { r.metrics = m }
}

// NewRemote returns a remote stream over the given fetcher. Nothing is
// fetched until Open.
func NewRemote(fetcher Fetcher, opts ...RemoteOption) *RemoteStream {
	r := &RemoteStream{
		fetcher:   fetcher,
		ctx:       context.Background(),
		blockSize: fetcher.BlockSize(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open determines the resource length and sizes the cell array. When the
// length cannot be determined cheaply the whole resource is fetched once
// and partitioned; a zero-length resource is an error. Reopening an already
// initialized stream only resets the cursor.
func (r *RemoteStream) Open() error {
	_ = r.Close()
	r.mapped = nil
	if r.opened {
		return nil
	}

	length, err := r.fetcher.Length(r.ctx)
	if err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.ObserveProbe()
	}

	switch {
	case length < 0:
		// Length unknown: fetch everything in one request.
		data, err := r.fetcher.FetchRange(r.ctx, WholeResource, WholeResource)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return newError("open", r.Path(), "remote", ErrResourceAccess)
		}
		if r.metrics != nil {
			r.metrics.ObserveFetch(int(block.Count(int64(len(data)), r.blockSize)), len(data))
		}
		r.size = int64(len(data))
		r.blocks = make([]block.Cell, block.Count(r.size, r.blockSize))
		for i := range r.blocks {
			start, end := block.Bounds(int64(i), r.blockSize, r.size)
			r.blocks[i].Populate(data[start:end])
		}
	case length == 0:
		return newError("open", r.Path(), "remote", ErrResourceAccess)
	default:
		r.size = length
		r.blocks = make([]block.Cell, block.Count(r.size, r.blockSize))
	}

	logger.Debug("remote stream opened",
		logger.KeyPath, r.Path(),
		logger.KeyCount, r.size,
		logger.KeyBlockSize, r.blockSize)
	r.opened = true
	return nil
}

// IsOpen reports whether the cell array has been initialized.
func (r *RemoteStream) IsOpen() bool { return r.opened }

// Close resets the cursor and drops the assembled mmap buffer. Cached cells
// persist so a reopened stream does not refetch.
func (r *RemoteStream) Close() error {
	if r.opened {
		r.eof = false
		r.idx = 0
	}
	r.mapped = nil
	return nil
}

// populateBlocks materializes every None cell in the inclusive range
// [low, high] with a single range fetch. The range first shrinks inward
// past cells cached at either end so neighbors are never refetched.
func (r *RemoteStream) populateBlocks(low, high int64) error {
	for low < high && !r.blocks[low].IsNone() {
		low++
	}
	for high > low && !r.blocks[high].IsNone() {
		high--
	}
	if !r.blocks[high].IsNone() {
		return nil
	}

	data, err := r.fetcher.FetchRange(r.ctx, low, high)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		// Insufficient permission and a genuinely empty range are
		// indistinguishable; reject both.
		return newError("fetch", r.Path(), "remote", ErrResourceAccess)
	}
	if r.metrics != nil {
		r.metrics.ObserveFetch(int(high-low+1), len(data))
	}
	logger.Debug("populated block range",
		logger.KeyPath, r.Path(),
		logger.KeyLowBlock, low,
		logger.KeyHighBlock, high,
		logger.KeyBytesRead, len(data))

	// Servers that ignore range requests reply with the whole body;
	// distribute from block zero in that case.
	iBlock := low
	if int64(len(data)) == r.size {
		iBlock = 0
	}
	for remain := data; len(remain) > 0 && iBlock < int64(len(r.blocks)); iBlock++ {
		n := r.blockSize
		if int64(len(remain)) < n {
			n = int64(len(remain))
		}
		r.blocks[iBlock].Populate(remain[:n])
		remain = remain[n:]
	}
	return nil
}

// Read copies up to len(p) bytes from the cursor, fetching uncached blocks
// with at most one range request. Cells in the Known placeholder state
// contribute zero-filled bytes without triggering a fetch.
func (r *RemoteStream) Read(p []byte) (int, error) {
	if !r.opened {
		return 0, newError("read", r.Path(), "remote", ErrOpenFailed)
	}
	if r.eof {
		return 0, nil
	}

	allow := int64(len(p))
	if avail := r.size - r.idx; allow > avail {
		allow = avail
	}
	if allow <= 0 {
		r.eof = true
		return 0, nil
	}

	low, high := block.Span(r.idx, allow, r.blockSize)
	if max := int64(len(r.blocks)) - 1; high > max {
		high = max
	}
	if err := r.populateBlocks(low, high); err != nil {
		return 0, err
	}

	startPos := r.idx - low*r.blockSize
	var total int64
	for remain := allow; remain > 0; {
		cell := &r.blocks[low]
		low++
		n := r.blockSize - startPos
		if n > remain {
			n = remain
		}
		dst := p[total : total+n]
		if data := cell.Data(); int64(len(data)) > startPos {
			copied := copy(dst, data[startPos:])
			clear(dst[copied:])
		} else {
			// Placeholder cell: known size, bytes read as zero.
			clear(dst)
		}
		total += n
		startPos = 0
		remain -= n
	}

	r.idx += total
	r.eof = r.idx == r.size
	return int(total), nil
}

// ReadN returns up to n bytes from the cursor, failing with ErrReadFailed
// if nothing could be produced.
func (r *RemoteStream) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := r.Read(buf)
	if err != nil {
		return nil, err
	}
	if got == 0 && n > 0 {
		return nil, newError("read", r.Path(), "remote", ErrReadFailed)
	}
	return buf[:got], nil
}

// ReadByte returns the byte at the cursor, fetching its block on demand.
func (r *RemoteStream) ReadByte() (byte, error) {
	if !r.opened {
		return 0, newError("read", r.Path(), "remote", ErrOpenFailed)
	}
	if r.idx == r.size {
		r.eof = true
		return 0, io.EOF
	}

	b := r.idx / r.blockSize
	if err := r.populateBlocks(b, b); err != nil {
		return 0, err
	}
	off := r.idx - b*r.blockSize
	r.idx++
	if data := r.blocks[b].Data(); int64(len(data)) > off {
		return data[off], nil
	}
	return 0, nil
}

// Write is not supported on the remote backend; content changes go through
// ReadFrom, which uploads a minimal diff.
func (r *RemoteStream) Write(_ []byte) (int, error) {
	return 0, newError("write", r.Path(), "remote", ErrWriteFailed)
}

// WriteByte is not supported on the remote backend.
func (r *RemoteStream) WriteByte(_ byte) error {
	return newError("write", r.Path(), "remote", ErrWriteFailed)
}

// ReadFrom treats the remote resource as already holding the old bytes and
// src as the new full content. It finds the longest common prefix and
// suffix against the cached cells (placeholder cells compare as all-zero)
// and uploads only the differing middle span, addressed as replacing
// destination bytes [left, size-right). An empty middle span uploads
// nothing.
func (r *RemoteStream) ReadFrom(src Stream) (int64, error) {
	if !r.opened {
		return 0, newError("write", r.Path(), "remote", ErrOpenFailed)
	}
	if !src.IsOpen() {
		return 0, nil
	}

	nBlocks := int64(len(r.blocks))
	buf := make([]byte, r.blockSize)
	var left, right int64

	// Longest common prefix. A None cell ends the comparable prefix:
	// nothing is known about those destination bytes.
	if err := src.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	findDiff := false
	for bi := int64(0); bi < nBlocks && !src.EOF() && !findDiff; bi++ {
		cell := &r.blocks[bi]
		if cell.IsNone() {
			break
		}
		bs := cell.Size()
		n, err := src.Read(buf[:bs])
		if err != nil {
			return 0, err
		}
		data := cell.Data() // nil for placeholders, which compare as zero
		for i := 0; int64(i) < int64(n) && int64(i) < bs && !findDiff; i++ {
			var want byte
			if data != nil {
				want = data[i]
			}
			if buf[i] != want {
				findDiff = true
			} else {
				left++
			}
		}
	}

	// Longest common suffix, scanning block-wise from the end.
	findDiff = false
	srcSize := src.Size()
	for bi := nBlocks; bi > 0 && right < srcSize && !findDiff; {
		bi--
		cell := &r.blocks[bi]
		if cell.IsNone() {
			break
		}
		bs := cell.Size()
		if err := src.Seek(-(bs + right), io.SeekEnd); err != nil {
			findDiff = true
			continue
		}
		n, err := src.Read(buf[:bs])
		if err != nil {
			return 0, err
		}
		data := cell.Data()
		for i := int64(0); i < int64(n) && i < bs && !findDiff; i++ {
			var want byte
			if data != nil {
				want = data[bs-i-1]
			}
			if buf[int64(n)-i-1] != want {
				findDiff = true
			} else {
				right++
			}
		}
	}

	middle := srcSize - left - right
	if middle > 0 {
		if err := src.Seek(left, io.SeekStart); err != nil {
			return 0, err
		}
		data := make([]byte, middle)
		n, err := src.Read(data)
		if err != nil {
			return 0, err
		}
		if err := r.fetcher.PushRange(r.ctx, data[:n], left, r.size-right); err != nil {
			return 0, err
		}
		if r.metrics != nil {
			r.metrics.ObservePush(n)
		}
		logger.Debug("pushed diff span",
			logger.KeyPath, r.Path(),
			logger.KeyOffset, left,
			logger.KeyBytesWritten, n)
	}
	return srcSize, nil
}

// Seek clamps the cursor to [0, size]. Seeking past the end sets EOF
// instead of failing; negative targets clamp to zero.
func (r *RemoteStream) Seek(offset int64, whence int) error {
	if !r.opened {
		return newError("seek", r.Path(), "remote", ErrOpenFailed)
	}
	var newIdx int64
	switch whence {
	case io.SeekCurrent:
		newIdx = r.idx + offset
	case io.SeekStart:
		newIdx = offset
	case io.SeekEnd:
		newIdx = r.size + offset
	}

	r.eof = newIdx > r.size
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx > r.size {
		newIdx = r.size
	}
	r.idx = newIdx
	return nil
}

// Tell returns the cursor position.
func (r *RemoteStream) Tell() int64 { return r.idx }

// Size returns the resource length established at Open.
func (r *RemoteStream) Size() int64 { return r.size }

// EOF reports whether the cursor reached or was pushed past the end.
func (r *RemoteStream) EOF() bool { return r.eof }

// Err always returns nil: remote failures surface as operation errors.
func (r *RemoteStream) Err() error { return nil }

// Path returns the remote resource locator.
func (r *RemoteStream) Path() string { return r.fetcher.Path() }

// Mmap assembles a contiguous buffer spanning the whole resource by copying
// every cell's bytes in block order; placeholder cells stay zero-filled.
// The buffer is cached until Close; the writable flag is ignored because
// the view never flows back to the remote. Munmap is a no-op.
func (r *RemoteStream) Mmap(_ bool) ([]byte, error) {
	if !r.opened {
		return nil, newError("mmap", r.Path(), "remote", ErrMapFailed)
	}
	if r.mapped == nil {
		buf := make([]byte, r.size)
		for i := range r.blocks {
			data := r.blocks[i].Data()
			if data == nil {
				continue
			}
			start, end := block.Bounds(int64(i), r.blockSize, r.size)
			copy(buf[start:end], data)
		}
		r.mapped = buf
	}
	return r.mapped, nil
}

// Munmap is a no-op; the assembled buffer is reused until Close.
func (r *RemoteStream) Munmap() error { return nil }

// Transfer replaces the remote content with src's content via the diff
// write-back, consuming src. The stream is opened first when needed.
func (r *RemoteStream) Transfer(src Stream) error {
	if !r.opened {
		if err := r.Open(); err != nil {
			return err
		}
	}
	if err := src.Open(); err != nil {
		return newError("transfer", src.Path(), "remote", ErrOpenFailed)
	}
	if _, err := r.ReadFrom(src); err != nil {
		return newError("transfer", r.Path(), "remote", ErrTransferFailed)
	}
	if err := src.Close(); err != nil {
		return newError("transfer", src.Path(), "remote", ErrTransferFailed)
	}
	if src.Err() != nil {
		return newError("transfer", r.Path(), "remote", ErrTransferFailed)
	}
	return nil
}

// MarkRemainingKnown converts every still-unfetched cell into a size-only
// placeholder. Consumers that only touch structured regions inside a large
// resource call this to stop the bulk payload from ever being fetched;
// those bytes afterwards read as zero.
func (r *RemoteStream) MarkRemainingKnown() {
	for i := range r.blocks {
		if r.blocks[i].IsNone() {
			r.blocks[i].MarkKnown(r.blockSize)
		}
	}
}

var _ Stream = (*RemoteStream)(nil)
