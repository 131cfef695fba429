package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore saves audio bytes to a local directory that is also served as
// static files under urlPrefix
type FileStore struct {
	dir       string
	urlPrefix string
}

// NewFileStore creates the audio directory if it is absent
func NewFileStore(dir, urlPrefix string) (*FileStore, error) {
	if dir == "" {
		dir = "audios"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio dir: %w", err)
	}
	return &FileStore{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// Dir returns the directory files are written to
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Save writes data to {dir}/{name} and returns {urlPrefix}/{name}.
// A partially written file is removed when the write fails.
func (fs *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p := filepath.Join(fs.dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	return path.Join(fs.urlPrefix, name), nil
}

// Ping checks that the audio directory exists and is writable
func (fs *FileStore) Ping(ctx context.Context) (bool, error) {
	f, err := os.CreateTemp(fs.dir, ".ping-*")
	if err != nil {
		return false, fmt.Errorf("audio dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true, nil
}
