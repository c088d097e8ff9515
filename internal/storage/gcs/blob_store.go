// Package gcs stores debug artifacts in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the bucket and an optional object prefix.
type Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// BlobStore uploads artifacts to a bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New validates cfg and returns a BlobStore using client.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	return &BlobStore{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// ObjectName returns the object key for an artifact path.
func (s *BlobStore) ObjectName(p string) string {
	if s.prefix == "" {
		return p
	}
	return path.Join(s.prefix, p)
}

// PutObject uploads r and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, p string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("artifact path is required")
	}
	name := s.ObjectName(p)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("upload artifact: %w", errors.Join(err, closeErr))
		}
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize artifact: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}
