package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs on the local filesystem below a root directory.
type LocalStore struct {
	validator *PathValidator
}

func NewLocalStore(root string) (*LocalStore, error) {
	validator, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(validator.RootAbs(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{validator: validator}, nil
}

func (s *LocalStore) RootAbs() string {
	return s.validator.RootAbs()
}

// Put writes to a temporary file next to the target and renames it into place.
func (s *LocalStore) Put(ctx context.Context, key string, body io.ReadSeeker, _ int64, _ string) error {
	resolved, err := s.validator.ResolveKey(key)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %q: %w", key, err)
	}

	if err := os.Rename(tmpName, resolved); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %q: %w", key, err)
	}

	return nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, Object, error) {
	resolved, err := s.validator.ResolveKey(key)
	if err != nil {
		return nil, Object{}, err
	}

	file, err := os.Open(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Object{}, ErrNotFound
	}
	if err != nil {
		return nil, Object{}, fmt.Errorf("open %q: %w", key, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, Object{}, fmt.Errorf("stat %q: %w", key, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, Object{}, ErrNotFound
	}

	return file, Object{
		Key:         key,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(resolved)),
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	resolved, err := s.validator.ResolveKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}

	return nil
}
