// Package local stores debug artifacts on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local artifact store.
type Config struct {
	// Dir is the root directory; artifacts land in <Dir>/<platform>/<name>.
	Dir string `mapstructure:"dir"`
}

// BlobStore writes artifacts below a root directory.
type BlobStore struct {
	root string
}

// New creates the root directory when missing and checks that it is writable.
func New(cfg Config) (*BlobStore, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create artifact directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat artifact directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("artifact path %q is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("artifact directory is not writable: %w", err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("close write probe: %w", err)
	}
	if err := os.Remove(name); err != nil {
		return nil, fmt.Errorf("remove write probe: %w", err)
	}
	return &BlobStore{root: filepath.Clean(dir)}, nil
}

// Root returns the directory artifacts are written under.
func (s *BlobStore) Root() string { return s.root }

// PutObject streams r into <root>/<path> and returns a file:// URI. The write goes to a
// temporary sibling first so readers never see a partial artifact.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("artifact path is required")
	}
	if !filepath.IsLocal(filepath.FromSlash(path)) {
		return "", fmt.Errorf("artifact path %q escapes the store root", path)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create artifact parent: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".artifact-*")
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return "file://" + full, nil
}
