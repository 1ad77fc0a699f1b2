package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dipdup-net/acquire/internal/cache"
	"github.com/pkg/errors"
)

// File - cache storage with one file per entry under a root directory
type File struct {
	root string
}

// NewFile -
func NewFile(root string) (*File, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, root)
	}
	return &File{root}, nil
}

// Get -
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put - writes a temp file and renames it over the entry, so readers never see a torn payload
func (f *File) Put(ctx context.Context, key string, data []byte) error {
	filename := f.path(key)
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, dir)
	}

	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

func (f *File) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}
