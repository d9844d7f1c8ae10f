// Package remote provides Fetcher implementations for the remote stream
// backend: a transport-pluggable HTTP fetcher, a net/http based fetcher and
// an S3 fetcher.
package remote

import "context"

// Request is a protocol-neutral HTTP request handed to a Transport.
type Request struct {
	URL    string
	Verb   string
	Header map[string]string
	Body   []byte
}

// Response carries the status, headers and body a Transport produced.
type Response struct {
	Status int
	Header map[string]string
	Body   []byte
}

// Transport performs a single HTTP exchange. Implementations decide how
// the bytes actually move; HTTPFetcher only composes requests and
// interprets responses.
type Transport interface {
	Perform(ctx context.Context, req Request) (Response, error)
}
