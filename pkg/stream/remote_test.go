package stream_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/bytestream/pkg/stream"
)

// fakeFetcher serves a byte slice and records every network interaction so
// tests can assert on fetch counts and ranges.
type fakeFetcher struct {
	data      []byte
	blockSize int64

	// hideLength makes Length report -1, forcing the whole-body fallback.
	hideLength bool

	fetches []fetchCall
	pushes  []pushCall
	probes  int
}

type fetchCall struct{ low, high int64 }

type pushCall struct {
	data     []byte
	from, to int64
}

func (f *fakeFetcher) Length(context.Context) (int64, error) {
	f.probes++
	if f.hideLength {
		return -1, nil
	}
	return int64(len(f.data)), nil
}

func (f *fakeFetcher) FetchRange(_ context.Context, low, high int64) ([]byte, error) {
	f.fetches = append(f.fetches, fetchCall{low, high})
	if low == stream.WholeResource && high == stream.WholeResource {
		return append([]byte(nil), f.data...), nil
	}
	start := low * f.blockSize
	end := (high + 1) * f.blockSize
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}
	return append([]byte(nil), f.data[start:end]...), nil
}

func (f *fakeFetcher) PushRange(_ context.Context, data []byte, from, to int64) error {
	f.pushes = append(f.pushes, pushCall{append([]byte(nil), data...), from, to})
	return nil
}

func (f *fakeFetcher) BlockSize() int64 { return f.blockSize }
func (f *fakeFetcher) Path() string     { return "fake://resource" }

// recorderMetrics counts observations for assertion.
type recorderMetrics struct {
	probes, fetches, fetchBlocks, fetchBytes, pushes, pushBytes int
}

func (m *recorderMetrics) ObserveProbe() { m.probes++ }
func (m *recorderMetrics) ObserveFetch(blocks, bytes int) {
	m.fetches++
	m.fetchBlocks += blocks
	m.fetchBytes += bytes
}
func (m *recorderMetrics) ObservePush(bytes int) {
	m.pushes++
	m.pushBytes += bytes
}

func newTestRemote(t *testing.T, data []byte, blockSize int64) (*stream.RemoteStream, *fakeFetcher) {
	t.Helper()
	fetcher := &fakeFetcher{data: data, blockSize: blockSize}
	r := stream.NewRemote(fetcher)
	require.NoError(t, r.Open())
	return r, fetcher
}

func TestRemoteOpen(t *testing.T) {
	t.Run("sizes the stream without fetching", func(t *testing.T) {
		r, fetcher := newTestRemote(t, []byte("0123456789"), 4)
		assert.Equal(t, int64(10), r.Size())
		assert.Empty(t, fetcher.fetches)
		assert.True(t, r.IsOpen())
	})

	t.Run("zero length resource fails", func(t *testing.T) {
		fetcher := &fakeFetcher{data: nil, blockSize: 4}
		r := stream.NewRemote(fetcher)
		err := r.Open()
		assert.ErrorIs(t, err, stream.ErrResourceAccess)
	})

	t.Run("unknown length falls back to whole fetch", func(t *testing.T) {
		fetcher := &fakeFetcher{data: []byte("0123456789"), blockSize: 4, hideLength: true}
		r := stream.NewRemote(fetcher)
		require.NoError(t, r.Open())

		assert.Equal(t, int64(10), r.Size())
		require.Len(t, fetcher.fetches, 1)
		assert.Equal(t, fetchCall{stream.WholeResource, stream.WholeResource}, fetcher.fetches[0])

		// Everything is cached; reads fetch nothing.
		buf, err := r.ReadN(10)
		require.NoError(t, err)
		assert.Equal(t, []byte("0123456789"), buf)
		assert.Len(t, fetcher.fetches, 1)
	})
}

func TestRemoteReadFetchesOnce(t *testing.T) {
	r, fetcher := newTestRemote(t, []byte("0123456789"), 4)

	buf := make([]byte, 10)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte("0123456789"), buf)
	assert.True(t, r.EOF())

	// One fetch covering all three blocks.
	require.Len(t, fetcher.fetches, 1)
	assert.Equal(t, fetchCall{0, 2}, fetcher.fetches[0])

	// A second pass over cached content fetches nothing.
	require.NoError(t, r.Seek(0, io.SeekStart))
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Len(t, fetcher.fetches, 1)
}

func TestRemoteReadShrinksFetchRange(t *testing.T) {
	r, fetcher := newTestRemote(t, []byte("0123456789"), 4)

	// First read covers block 0 only.
	buf, err := r.ReadN(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("012"), buf)
	require.Len(t, fetcher.fetches, 1)
	assert.Equal(t, fetchCall{0, 0}, fetcher.fetches[0])

	// The next read spans blocks 0..2, but block 0 is cached: the fetch
	// must shrink to blocks 1..2.
	buf, err = r.ReadN(7)
	require.NoError(t, err)
	assert.Equal(t, []byte("3456789"), buf)
	require.Len(t, fetcher.fetches, 2)
	assert.Equal(t, fetchCall{1, 2}, fetcher.fetches[1])
}

func TestRemoteReadAtEnd(t *testing.T) {
	r, _ := newTestRemote(t, []byte("0123456789"), 4)

	require.NoError(t, r.Seek(0, io.SeekEnd))
	n, err := r.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, r.EOF())
}

func TestRemoteReadByte(t *testing.T) {
	r, fetcher := newTestRemote(t, []byte("0123456789"), 4)

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('0'), b)
	assert.Len(t, fetcher.fetches, 1)

	// Second byte comes from the cached block.
	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('1'), b)
	assert.Len(t, fetcher.fetches, 1)

	require.NoError(t, r.Seek(0, io.SeekEnd))
	_, err = r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, r.EOF())
}

func TestRemoteSeekClamps(t *testing.T) {
	r, _ := newTestRemote(t, []byte("0123456789"), 4)

	t.Run("negative clamps to zero", func(t *testing.T) {
		require.NoError(t, r.Seek(-5, io.SeekStart))
		assert.Zero(t, r.Tell())
		assert.False(t, r.EOF())
	})

	t.Run("past end clamps to size and sets EOF", func(t *testing.T) {
		require.NoError(t, r.Seek(100, io.SeekStart))
		assert.Equal(t, int64(10), r.Tell())
		assert.True(t, r.EOF())
	})

	t.Run("relative seek", func(t *testing.T) {
		require.NoError(t, r.Seek(0, io.SeekStart))
		require.NoError(t, r.Seek(4, io.SeekCurrent))
		assert.Equal(t, int64(4), r.Tell())
		assert.False(t, r.EOF())
	})
}

func TestRemoteWriteIsRejected(t *testing.T) {
	r, _ := newTestRemote(t, []byte("0123456789"), 4)

	_, err := r.Write([]byte("x"))
	assert.ErrorIs(t, err, stream.ErrWriteFailed)
	assert.ErrorIs(t, r.WriteByte('x'), stream.ErrWriteFailed)
}

func TestRemoteMarkRemainingKnown(t *testing.T) {
	r, fetcher := newTestRemote(t, []byte("0123456789"), 4)

	// Fetch the head of the resource, then declare the rest
	// uninteresting. The first read materializes blocks 0 and 1.
	_, err := r.ReadN(4)
	require.NoError(t, err)
	require.Len(t, fetcher.fetches, 1)

	r.MarkRemainingKnown()

	buf, err := r.ReadN(6)
	require.NoError(t, err)
	assert.Equal(t, []byte{'4', '5', '6', '7', 0, 0}, buf, "placeholder blocks read as zero")
	assert.Len(t, fetcher.fetches, 1, "placeholders never trigger fetches")
}

func TestRemoteCloseKeepsCache(t *testing.T) {
	r, fetcher := newTestRemote(t, []byte("0123456789"), 4)

	_, err := r.ReadN(10)
	require.NoError(t, err)
	require.Len(t, fetcher.fetches, 1)

	require.NoError(t, r.Close())
	require.NoError(t, r.Open())
	assert.Zero(t, r.Tell())
	assert.Equal(t, 1, fetcher.probes, "reopen does not probe again")

	buf, err := r.ReadN(10)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), buf)
	assert.Len(t, fetcher.fetches, 1, "reopen keeps the block cache")
}

func TestRemoteMmapAssemblesContent(t *testing.T) {
	r, _ := newTestRemote(t, []byte("0123456789"), 4)

	_, err := r.ReadN(10)
	require.NoError(t, err)

	view, err := r.Mmap(false)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), view)
	require.NoError(t, r.Munmap())

	// The assembled view is cached until Close.
	again, err := r.Mmap(false)
	require.NoError(t, err)
	assert.Equal(t, &view[0], &again[0])
}

func TestRemoteReadFromUploadsDiffOnly(t *testing.T) {
	t.Run("interior change", func(t *testing.T) {
		r, fetcher := newTestRemote(t, []byte("aaaaaaaaaa"), 4)
		_, err := r.ReadN(10)
		require.NoError(t, err)

		src := stream.NewMemoryFromBytes([]byte("aaaXXaaaaa"))
		n, err := r.ReadFrom(src)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)

		require.Len(t, fetcher.pushes, 1)
		push := fetcher.pushes[0]
		assert.Equal(t, []byte("XX"), push.data)
		assert.Equal(t, int64(3), push.from)
		assert.Equal(t, int64(5), push.to)
	})

	t.Run("identical content uploads nothing", func(t *testing.T) {
		r, fetcher := newTestRemote(t, []byte("0123456789"), 4)
		_, err := r.ReadN(10)
		require.NoError(t, err)

		src := stream.NewMemoryFromBytes([]byte("0123456789"))
		n, err := r.ReadFrom(src)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)
		assert.Empty(t, fetcher.pushes)
	})

	t.Run("longer source extends the tail", func(t *testing.T) {
		r, fetcher := newTestRemote(t, []byte("01234"), 4)
		_, err := r.ReadN(5)
		require.NoError(t, err)

		src := stream.NewMemoryFromBytes([]byte("01234extra"))
		_, err = r.ReadFrom(src)
		require.NoError(t, err)

		require.Len(t, fetcher.pushes, 1)
		push := fetcher.pushes[0]
		assert.Equal(t, []byte("extra"), push.data)
		assert.Equal(t, int64(5), push.from)
		assert.Equal(t, int64(5), push.to)
	})

	t.Run("full replacement", func(t *testing.T) {
		r, fetcher := newTestRemote(t, []byte("aaaa"), 4)
		_, err := r.ReadN(4)
		require.NoError(t, err)

		src := stream.NewMemoryFromBytes([]byte("bbbb"))
		_, err = r.ReadFrom(src)
		require.NoError(t, err)

		require.Len(t, fetcher.pushes, 1)
		push := fetcher.pushes[0]
		assert.Equal(t, []byte("bbbb"), push.data)
		assert.Equal(t, int64(0), push.from)
		assert.Equal(t, int64(4), push.to)
	})
}

func TestRemoteTransferOpensAndPushes(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("old old old!"), blockSize: 4}
	r := stream.NewRemote(fetcher)

	src := stream.NewMemoryFromBytes([]byte("new new new!"))
	require.NoError(t, r.Transfer(src))
	require.Len(t, fetcher.pushes, 1)
}

func TestRemoteMetricsRecorded(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("0123456789"), blockSize: 4}
	rec := &recorderMetrics{}
	r := stream.NewRemote(fetcher, stream.WithMetrics(rec))
	require.NoError(t, r.Open())

	assert.Equal(t, 1, rec.probes)

	_, err := r.ReadN(10)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.fetches)
	assert.Equal(t, 3, rec.fetchBlocks)
	assert.Equal(t, 10, rec.fetchBytes)

	src := stream.NewMemoryFromBytes([]byte("0123456XYZ"))
	_, err = r.ReadFrom(src)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.pushes)
	assert.Equal(t, 3, rec.pushBytes)
}
