package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/marmos91/bytestream/pkg/stream"
)

// ClientFetcher speaks the range-fetch protocol directly over net/http.
// Unlike HTTPFetcher it follows redirects, negotiates TLS and reuses
// connections through the standard client. The configured timeout bounds
// every exchange and is mandatory: remote reads must never hang a caller
// indefinitely.
type ClientFetcher struct {
	rawURL    string
	client    *http.Client
	cfg       Config
	blockSize int64
}

// NewClientFetcher builds a net/http backed fetcher for rawURL. It fails
// with ErrConfigMissing when the config carries no positive timeout.
func NewClientFetcher(rawURL string, cfg Config) (*ClientFetcher, error) {
	if cfg.Timeout <= 0 {
		return nil, &stream.Error{Op: "configure", Path: rawURL, Backend: "http", Err: stream.ErrConfigMissing}
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &stream.Error{Op: "configure", Path: rawURL, Backend: "http", Err: err}
	}
	blockSize := cfg.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &ClientFetcher{
		rawURL:    rawURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		cfg:       cfg,
		blockSize: blockSize,
	}, nil
}

// BlockSize returns the fetch granularity.
func (c *ClientFetcher) BlockSize() int64 { return c.blockSize }

// Path returns the resource URL.
func (c *ClientFetcher) Path() string { return c.rawURL }

// Length issues a HEAD request and returns the advertised content length,
// or -1 when the server does not advertise one.
func (c *ClientFetcher) Length(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.rawURL, nil)
	if err != nil {
		return 0, &stream.Error{Op: "probe", Path: c.rawURL, Backend: "http", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &stream.Error{Op: "probe", Path: c.rawURL, Backend: "http", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, &stream.Error{
			Op: "probe", Path: c.rawURL, Backend: "http",
			Status: resp.StatusCode, Err: stream.ErrResourceAccess,
		}
	}
	return resp.ContentLength, nil
}

// FetchRange GETs the inclusive block range [low, high], or the whole body
// when both indices are the WholeResource sentinel.
func (c *ClientFetcher) FetchRange(ctx context.Context, low, high int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rawURL, nil)
	if err != nil {
		return nil, &stream.Error{Op: "fetch", Path: c.rawURL, Backend: "http", Err: err}
	}
	if low >= 0 && high >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", low*c.blockSize, (high+1)*c.blockSize-1))
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &stream.Error{Op: "fetch", Path: c.rawURL, Backend: "http", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, &stream.Error{
			Op: "fetch", Path: c.rawURL, Backend: "http",
			Status: resp.StatusCode, Err: stream.ErrReadFailed,
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &stream.Error{Op: "fetch", Path: c.rawURL, Backend: "http", Err: err}
	}
	return body, nil
}

// PushRange POSTs the replacement bytes for [from, to) to the upload
// endpoint with the same form encoding HTTPFetcher uses.
func (c *ClientFetcher) PushRange(ctx context.Context, data []byte, from, to int64) error {
	if c.cfg.UploadPath == "" {
		return &stream.Error{Op: "push", Path: c.rawURL, Backend: "http", Err: stream.ErrConfigMissing}
	}
	target, err := resolveUpload(c.rawURL, c.cfg.UploadPath)
	if err != nil {
		return &stream.Error{Op: "push", Path: c.rawURL, Backend: "http", Err: err}
	}

	form := url.Values{}
	form.Set("path", c.rawURL)
	form.Set("from", fmt.Sprintf("%d", from))
	form.Set("to", fmt.Sprintf("%d", to))
	form.Set("data", encodePayload(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return &stream.Error{Op: "push", Path: c.rawURL, Backend: "http", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return &stream.Error{Op: "push", Path: c.rawURL, Backend: "http", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &stream.Error{
			Op: "push", Path: c.rawURL, Backend: "http",
			Status: resp.StatusCode, Err: stream.ErrWriteFailed,
		}
	}
	return nil
}

var _ stream.Fetcher = (*ClientFetcher)(nil)
