package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Local stores audio artifacts under a directory on disk. The reference
// returned by Put is the file path.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed and returns the store
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, goerr.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", dir))
	}
	return &Local{dir: dir}, nil
}

// Put writes the artifact, creating intermediate directories for names
// containing slashes. Names may not escape the storage directory.
func (s *Local) Put(_ context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", goerr.New("artifact name is required")
	}

	path := filepath.Join(s.dir, name)
	if !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return "", goerr.New("artifact name escapes the storage directory", goerr.V("name", name))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create artifact directory", goerr.V("path", path))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", goerr.Wrap(err, "failed to write artifact", goerr.V("path", path))
	}
	return path, nil
}
