// Package objectstore reads and publishes caption files in an S3-compatible
// bucket. It mirrors the Bunny storage zone layout so either backend can
// serve the resolver's storage pass.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"captionsync/internal/services"
	"captionsync/internal/subtitles"
)

const maxObjectBytes = 8 << 20

// Config describes the bucket holding caption files.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Store is an S3 caption backend.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects a Store. No network call is made until the first request.
func New(cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("objectstore: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: create client: %w", err)
	}
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Name identifies the backend in logs and metrics.
func (s *Store) Name() string { return "s3" }

// Key returns the object key of a caption file.
func (s *Store) Key(videoID, file string) string {
	return path.Join(s.prefix, videoID, "captions", file)
}

// Candidates returns object keys for lang in probe order.
func (s *Store) Candidates(videoID, lang string) []string {
	files := subtitles.FileNames(lang)
	out := make([]string, 0, len(files))
	for _, file := range files {
		out = append(out, s.Key(videoID, file))
	}
	return out
}

// Fetch reads one object. NoSuchKey maps to NotFound.
func (s *Store) Fetch(ctx context.Context, key string) services.Result[string] {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return classify(err)
	}
	defer obj.Close()
	body, err := io.ReadAll(io.LimitReader(obj, maxObjectBytes))
	if err != nil {
		return classify(err)
	}
	return services.Success(string(body), http.StatusOK)
}

// Put uploads a caption file for videoID.
func (s *Store) Put(ctx context.Context, videoID, file string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.Key(videoID, file), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType(file),
	})
	if err != nil {
		return services.Wrap(services.ErrVendor, "objectstore", "put", file, err)
	}
	return nil
}

func classify(err error) services.Result[string] {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return services.NotFound[string](http.StatusNotFound)
	default:
		return services.VendorError[string](fmt.Errorf("objectstore: get object: %w", err), resp.StatusCode)
	}
}

func contentType(file string) string {
	switch strings.ToLower(path.Ext(file)) {
	case ".vtt":
		return "text/vtt; charset=utf-8"
	case ".srt":
		return "application/x-subrip"
	default:
		return "application/octet-stream"
	}
}
