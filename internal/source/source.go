// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdin is the source name that reads standard input.
const Stdin = "-"

// ErrUnsupportedScheme is returned for URLs other than local paths and s3://.
var ErrUnsupportedScheme = errors.New("unsupported source scheme")

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Fingerprint identifies one version of an input. Two opens of an unchanged
// file yield equal fingerprints.
type Fingerprint struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Key returns a stable string form of the fingerprint.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s|%d|%d", f.Name, f.Size, f.ModTime.UTC().UnixNano())
}

// Input is an opened source. Reads return decompressed log text.
type Input struct {
	Name string

	// Fingerprint is nil for stdin.
	Fingerprint *Fingerprint

	// Compression is "gzip", "zstd" or "" for plain text.
	Compression string

	reader io.Reader
	closes []func() error
}

// Read implements io.Reader.
func (in *Input) Read(p []byte) (int, error) {
	return in.reader.Read(p)
}

// Close releases the decompressor and the underlying stream.
func (in *Input) Close() error {
	var errs []error
	for i := len(in.closes) - 1; i >= 0; i-- {
		if err := in.closes[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// S3API is the subset of the S3 client used to read objects.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures s3:// access.
type Options struct {
	Region   string
	Endpoint string

	// S3 overrides the client built from the AWS default configuration.
	S3 S3API

	// Stdin overrides os.Stdin.
	Stdin io.Reader
}

// Opener opens named log sources.
type Opener struct {
	opts Options

	s3Once sync.Once
	s3     S3API
	s3Err  error
}

// NewOpener creates an Opener. The S3 client is created on first use.
func NewOpener(opts Options) *Opener {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	return &Opener{opts: opts, s3: opts.S3}
}

// Open opens name, which is "-" for standard input, an s3://bucket/key URL
// or a local path. gzip and zstd streams are detected from their magic
// bytes and decompressed transparently.
func (o *Opener) Open(ctx context.Context, name string) (*Input, error) {
	switch {
	case name == Stdin:
		return wrap(&Input{Name: name}, io.NopCloser(o.opts.Stdin))
	case strings.HasPrefix(name, "s3://"):
		return o.openS3(ctx, name)
	case strings.Contains(name, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, name)
	default:
		return openFile(name)
	}
}

func openFile(path string) (*Input, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	in := &Input{
		Name:        path,
		Fingerprint: &Fingerprint{Name: path, Size: info.Size(), ModTime: info.ModTime()},
	}
	return wrap(in, f)
}

func (o *Opener) openS3(ctx context.Context, name string) (*Input, error) {
	bucket, key, err := parseS3URL(name)
	if err != nil {
		return nil, err
	}
	client, err := o.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", name, err)
	}

	fp := &Fingerprint{Name: name, Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		fp.ModTime = *out.LastModified
	}
	return wrap(&Input{Name: name, Fingerprint: fp}, out.Body)
}

func (o *Opener) s3Client(ctx context.Context) (S3API, error) {
	o.s3Once.Do(func() {
		if o.s3 != nil {
			return
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if o.opts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(o.opts.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			o.s3Err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		endpoint := o.opts.Endpoint
		o.s3 = s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
			if endpoint != "" {
				opts.BaseEndpoint = aws.String(endpoint)
				opts.UsePathStyle = true
			}
		})
	})
	return o.s3, o.s3Err
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL %q: %w", raw, err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: want s3://bucket/key", raw)
	}
	return bucket, key, nil
}

// wrap sniffs the stream and installs a decompressor when needed.
func wrap(in *Input, rc io.ReadCloser) (*Input, error) {
	in.closes = append(in.closes, rc.Close)

	br := bufio.NewReaderSize(rc, 64*1024)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		_ = in.Close()
		return nil, fmt.Errorf("failed to read %s: %w", in.Name, err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = in.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", in.Name, err)
		}
		in.Compression = "gzip"
		in.reader = zr
		in.closes = append(in.closes, zr.Close)
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			_ = in.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", in.Name, err)
		}
		in.Compression = "zstd"
		in.reader = zr
		in.closes = append(in.closes, func() error {
			zr.Close()
			return nil
		})
	default:
		in.reader = br
	}
	return in, nil
}
