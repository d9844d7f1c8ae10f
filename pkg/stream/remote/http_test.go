package remote_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/bytestream/pkg/stream"
	"github.com/marmos91/bytestream/pkg/stream/remote"
)

// fakeTransport records every request and replies from a script.
type fakeTransport struct {
	requests  []remote.Request
	responses []remote.Response
}

func (ft *fakeTransport) Perform(_ context.Context, req remote.Request) (remote.Response, error) {
	ft.requests = append(ft.requests, req)
	resp := ft.responses[0]
	if len(ft.responses) > 1 {
		ft.responses = ft.responses[1:]
	}
	return resp, nil
}

const testURL = "http://example.com/images/photo.jpg"

func TestHTTPFetcherLength(t *testing.T) {
	t.Run("advertised length", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusOK, Header: map[string]string{"Content-Length": "1234"}},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{})

		length, err := f.Length(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1234), length)

		require.Len(t, ft.requests, 1)
		assert.Equal(t, http.MethodHead, ft.requests[0].Verb)
		assert.Equal(t, testURL, ft.requests[0].URL)
	})

	t.Run("missing header reports unknown", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusOK, Header: map[string]string{}},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{})

		length, err := f.Length(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(-1), length)
	})

	t.Run("error status fails", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusNotFound},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{})

		_, err := f.Length(context.Background())
		assert.ErrorIs(t, err, stream.ErrResourceAccess)

		var streamErr *stream.Error
		require.ErrorAs(t, err, &streamErr)
		assert.Equal(t, http.StatusNotFound, streamErr.Status)
	})
}

func TestHTTPFetcherFetchRange(t *testing.T) {
	t.Run("block range maps to byte range header", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusPartialContent, Body: []byte("45678901")},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{BlockSize: 4})

		body, err := f.FetchRange(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte("45678901"), body)

		require.Len(t, ft.requests, 1)
		assert.Equal(t, http.MethodGet, ft.requests[0].Verb)
		assert.Equal(t, "bytes=4-11", ft.requests[0].Header["Range"])
	})

	t.Run("whole resource omits the range header", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusOK, Body: []byte("whole")},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{BlockSize: 4})

		body, err := f.FetchRange(context.Background(), stream.WholeResource, stream.WholeResource)
		require.NoError(t, err)
		assert.Equal(t, []byte("whole"), body)
		assert.Empty(t, ft.requests[0].Header)
	})

	t.Run("error status fails", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusForbidden},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{BlockSize: 4})

		_, err := f.FetchRange(context.Background(), 0, 0)
		assert.ErrorIs(t, err, stream.ErrReadFailed)
	})
}

func TestHTTPFetcherPushRange(t *testing.T) {
	t.Run("without upload path", func(t *testing.T) {
		f := remote.NewHTTPFetcher(testURL, &fakeTransport{}, remote.Config{})

		err := f.PushRange(context.Background(), []byte("data"), 0, 4)
		assert.ErrorIs(t, err, stream.ErrConfigMissing)
	})

	t.Run("posts form-encoded diff", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusOK},
		}}
		cfg := remote.Config{UploadPath: "/upload.php"}
		f := remote.NewHTTPFetcher(testURL, ft, cfg)

		payload := []byte{0xde, 0xad, 0xbe, 0xef}
		require.NoError(t, f.PushRange(context.Background(), payload, 3, 7))

		require.Len(t, ft.requests, 1)
		req := ft.requests[0]
		assert.Equal(t, http.MethodPost, req.Verb)
		assert.Equal(t, "http://example.com/upload.php", req.URL)
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header["Content-Type"])

		form, err := url.ParseQuery(string(req.Body))
		require.NoError(t, err)
		assert.Equal(t, testURL, form.Get("path"))
		assert.Equal(t, "3", form.Get("from"))
		assert.Equal(t, "7", form.Get("to"))

		decoded, err := base64.StdEncoding.DecodeString(form.Get("data"))
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})

	t.Run("error status fails", func(t *testing.T) {
		ft := &fakeTransport{responses: []remote.Response{
			{Status: http.StatusInternalServerError},
		}}
		f := remote.NewHTTPFetcher(testURL, ft, remote.Config{UploadPath: "/upload.php"})

		err := f.PushRange(context.Background(), []byte("x"), 0, 1)
		assert.ErrorIs(t, err, stream.ErrWriteFailed)
	})
}

func TestHTTPFetcherDefaults(t *testing.T) {
	f := remote.NewHTTPFetcher(testURL, &fakeTransport{}, remote.Config{})
	assert.Equal(t, remote.DefaultBlockSize, f.BlockSize())
	assert.Equal(t, testURL, f.Path())
}
