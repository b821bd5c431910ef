// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const sample = `192.168.1.1 - - [10/Mar/2024:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326 "-" "Mozilla/5.0"
10.0.0.5 - - [10/Mar/2024:13:55:37 +0000] "GET /about HTTP/1.1" 404 512 "-" "curl/8.0"
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close error = %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd.NewWriter() error = %v", err)
	}
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("zstd write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd close error = %v", err)
	}
	return buf.Bytes()
}

func readAll(t *testing.T, in *Input) string {
	t.Helper()
	data, err := io.ReadAll(in)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if err := in.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	return string(data)
}

func TestOpen_LocalFiles(t *testing.T) {
	tests := []struct {
		name            string
		file            string
		data            func(t *testing.T) []byte
		wantCompression string
	}{
		{"plain", "access.log", func(*testing.T) []byte { return []byte(sample) }, ""},
		{"gzip", "access.log.1.gz", func(t *testing.T) []byte { return gzipBytes(t, sample) }, "gzip"},
		{"zstd", "access.log.zst", func(t *testing.T) []byte { return zstdBytes(t, sample) }, "zstd"},
		{"gzip without extension", "rotated", func(t *testing.T) []byte { return gzipBytes(t, sample) }, "gzip"},
		{"empty", "empty.log", func(*testing.T) []byte { return nil }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data(t)
			path := writeFile(t, tt.file, data)

			in, err := NewOpener(Options{}).Open(context.Background(), path)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if in.Compression != tt.wantCompression {
				t.Errorf("Compression = %q, want %q", in.Compression, tt.wantCompression)
			}
			if in.Fingerprint == nil || in.Fingerprint.Size != int64(len(data)) {
				t.Errorf("Fingerprint = %+v, want size %d", in.Fingerprint, len(data))
			}

			want := sample
			if len(data) == 0 {
				want = ""
			}
			if got := readAll(t, in); got != want {
				t.Errorf("content = %q, want %q", got, want)
			}
		})
	}
}

func TestOpen_FingerprintStable(t *testing.T) {
	path := writeFile(t, "access.log", []byte(sample))
	opener := NewOpener(Options{})

	first, err := opener.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = first.Close()
	second, err := opener.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = second.Close()

	if first.Fingerprint.Key() != second.Fingerprint.Key() {
		t.Errorf("fingerprints differ: %s vs %s", first.Fingerprint.Key(), second.Fingerprint.Key())
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
	third, err := opener.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = third.Close()
	if third.Fingerprint.Key() == first.Fingerprint.Key() {
		t.Error("fingerprint unchanged after modification time changed")
	}
}

func TestOpen_Stdin(t *testing.T) {
	opener := NewOpener(Options{Stdin: bytes.NewReader(gzipBytes(t, sample))})

	in, err := opener.Open(context.Background(), Stdin)
	if err != nil {
		t.Fatalf("Open(-) error = %v", err)
	}
	if in.Fingerprint != nil {
		t.Errorf("stdin Fingerprint = %+v, want nil", in.Fingerprint)
	}
	if got := readAll(t, in); got != sample {
		t.Errorf("stdin content = %q", got)
	}
}

func TestOpen_Errors(t *testing.T) {
	opener := NewOpener(Options{})
	ctx := context.Background()

	if _, err := opener.Open(ctx, "https://example.com/access.log"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Open(https) error = %v, want ErrUnsupportedScheme", err)
	}
	if _, err := opener.Open(ctx, filepath.Join(t.TempDir(), "missing.log")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want ErrNotExist", err)
	}
	if _, err := opener.Open(ctx, t.TempDir()); err == nil {
		t.Error("Open(directory) error = nil")
	}

	corrupt := append([]byte{0x1f, 0x8b}, []byte("not really gzip")...)
	if _, err := opener.Open(ctx, writeFile(t, "bad.gz", corrupt)); err == nil {
		t.Error("Open(corrupt gzip) error = nil")
	}
}

type fakeS3 struct {
	objects map[string][]byte
	calls   int
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	modified := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		LastModified:  &modified,
	}, nil
}

func TestOpen_S3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"logs/nginx/access.log.gz": gzipBytes(t, sample),
	}}
	opener := NewOpener(Options{S3: fake})
	ctx := context.Background()

	in, err := opener.Open(ctx, "s3://logs/nginx/access.log.gz")
	if err != nil {
		t.Fatalf("Open(s3) error = %v", err)
	}
	if in.Compression != "gzip" {
		t.Errorf("Compression = %q, want gzip", in.Compression)
	}
	if in.Fingerprint == nil || !strings.HasPrefix(in.Fingerprint.Key(), "s3://logs/nginx/access.log.gz|") {
		t.Errorf("Fingerprint = %+v", in.Fingerprint)
	}
	if got := readAll(t, in); got != sample {
		t.Errorf("s3 content = %q", got)
	}

	if _, err := opener.Open(ctx, "s3://logs/missing"); err == nil {
		t.Error("Open(missing object) error = nil")
	}
	if fake.calls != 2 {
		t.Errorf("GetObject calls = %d, want 2", fake.calls)
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		raw        string
		bucket     string
		key        string
		wantErrMsg bool
	}{
		{"s3://logs/nginx/access.log", "logs", "nginx/access.log", false},
		{"s3://logs/a.gz", "logs", "a.gz", false},
		{"s3://logs/", "", "", true},
		{"s3:///key", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := parseS3URL(tt.raw)
		if (err != nil) != tt.wantErrMsg {
			t.Errorf("parseS3URL(%q) error = %v", tt.raw, err)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("parseS3URL(%q) = %q, %q; want %q, %q", tt.raw, bucket, key, tt.bucket, tt.key)
		}
	}
}
