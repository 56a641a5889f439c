package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/google/uuid"
)

const prefix = "imagine-"

// Stager owns the transient directory generated images are written to before
// they are handed to the caller.
type Stager struct {
	dir string
}

func NewStager(dir string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Stager{dir: dir}, nil
}

// Allocate reserves a fresh uniquely named file in the staging directory.
func (s *Stager) Allocate(ext string) (string, error) {
	for {
		path := filepath.Join(s.dir, prefix+uuid.NewString()+ext)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, f.Close()
	}
}

func (s *Stager) Save(ctx context.Context, artifact *image.Artifact, path string) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("stager")
	log.Debug("writing", "file", path, "bytes", len(artifact.Data))
	return os.WriteFile(path, artifact.Data, 0o600)
}

// Inspect returns the size of the file at path, or -1 when it does not exist.
func (s *Stager) Inspect(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

func (s *Stager) Discard(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Shutdown removes the staging directory when nothing was left in it.
// Successful images belong to the caller and keep the directory alive.
func (s *Stager) Shutdown() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(s.dir)
}
