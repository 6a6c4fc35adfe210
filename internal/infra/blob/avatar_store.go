// Package blob stores avatar images on an afero filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
	"movie-trivia-service/internal/domain"
)

// AvatarStore implements app.AvatarStore. Production mounts a base path on
// the OS filesystem; tests use an in-memory one.
type AvatarStore struct {
	fs afero.Fs
}

func NewAvatarStore(fsys afero.Fs) *AvatarStore {
	return &AvatarStore{fs: fsys}
}

// NewDiskAvatarStore roots the store at dir.
func NewDiskAvatarStore(dir string) (*AvatarStore, error) {
	base := afero.NewOsFs()
	if err := base.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return NewAvatarStore(afero.NewBasePathFs(base, dir)), nil
}

func (s *AvatarStore) Put(_ context.Context, key string, r io.Reader) error {
	name, err := clean(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create avatar dir: %w", err)
	}
	tmp := name + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create avatar: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write avatar: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close avatar: %w", err)
	}
	return s.fs.Rename(tmp, name)
}

func (s *AvatarStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	name, err := clean(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open avatar: %w", err)
	}
	return f, nil
}

func clean(key string) (string, error) {
	name := path.Clean("/" + key)
	if name == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: bad avatar key %q", domain.ErrInvalidInput, key)
	}
	return name, nil
}
