package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/bytestream/pkg/stream"
)

// S3API is the slice of the S3 client the fetcher needs. Tests substitute
// a stub.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Fetcher reads an S3 object in ranged GETs. S3 has no partial-object
// update, so PushRange downloads the object, splices the replacement span
// in and puts the whole object back.
type S3Fetcher struct {
	client    S3API
	bucket    string
	key       string
	blockSize int64
}

// NewS3Fetcher builds a fetcher over an existing client. A non-positive
// blockSize selects the S3 default.
func NewS3Fetcher(client S3API, bucket, key string, blockSize int64) *S3Fetcher {
	if blockSize <= 0 {
		blockSize = DefaultS3BlockSize
	}
	return &S3Fetcher{
		client:    client,
		bucket:    bucket,
		key:       key,
		blockSize: blockSize,
	}
}

// NewS3FetcherFromURL parses an s3://bucket/key URL and builds a fetcher
// with credentials from the default AWS config chain.
func NewS3FetcherFromURL(ctx context.Context, rawURL string, blockSize int64) (*S3Fetcher, error) {
	bucket, key, err := splitS3URL(rawURL)
	if err != nil {
		return nil, &stream.Error{Op: "configure", Path: rawURL, Backend: "s3", Err: err}
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, &stream.Error{Op: "configure", Path: rawURL, Backend: "s3", Err: err}
	}
	return NewS3Fetcher(s3.NewFromConfig(cfg), bucket, key, blockSize), nil
}

func splitS3URL(rawURL string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(rawURL, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %s", rawURL)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url needs bucket and key: %s", rawURL)
	}
	return bucket, key, nil
}

// BlockSize returns the fetch granularity.
func (f *S3Fetcher) BlockSize() int64 { return f.blockSize }

// Path returns the object locator.
func (f *S3Fetcher) Path() string {
	return fmt.Sprintf("s3://%s/%s", f.bucket, f.key)
}

// Length returns the object size from a HEAD request.
func (f *S3Fetcher) Length(ctx context.Context) (int64, error) {
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return 0, &stream.Error{Op: "probe", Path: f.Path(), Backend: "s3", Err: err}
	}
	return aws.ToInt64(out.ContentLength), nil
}

// FetchRange GETs the inclusive block range [low, high], or the whole
// object when both indices are the WholeResource sentinel.
func (f *S3Fetcher) FetchRange(ctx context.Context, low, high int64) ([]byte, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	}
	if low >= 0 && high >= 0 {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", low*f.blockSize, (high+1)*f.blockSize-1))
	}
	out, err := f.client.GetObject(ctx, in)
	if err != nil {
		return nil, &stream.Error{Op: "fetch", Path: f.Path(), Backend: "s3", Err: err}
	}
	defer func() { _ = out.Body.Close() }()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &stream.Error{Op: "fetch", Path: f.Path(), Backend: "s3", Err: err}
	}
	return body, nil
}

// PushRange rewrites the object with data replacing bytes [from, to).
func (f *S3Fetcher) PushRange(ctx context.Context, data []byte, from, to int64) error {
	current, err := f.FetchRange(ctx, stream.WholeResource, stream.WholeResource)
	if err != nil {
		return err
	}
	if from > int64(len(current)) {
		from = int64(len(current))
	}
	if to > int64(len(current)) {
		to = int64(len(current))
	}

	next := make([]byte, 0, from+int64(len(data))+int64(len(current))-to)
	next = append(next, current[:from]...)
	next = append(next, data...)
	next = append(next, current[to:]...)

	_, err = f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
		Body:   bytes.NewReader(next),
	})
	if err != nil {
		return &stream.Error{Op: "push", Path: f.Path(), Backend: "s3", Err: err}
	}
	return nil
}

var _ stream.Fetcher = (*S3Fetcher)(nil)
