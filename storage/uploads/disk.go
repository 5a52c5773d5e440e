package uploads

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type diskStore struct {
	dir string
}

var _ core.UploadStore = (*diskStore)(nil)

// NewDiskStore returns an UploadStore backed by a local directory,
// creating it if needed.
func NewDiskStore(conf *core.Config) (*diskStore, error) {
	dir := conf.Uploads.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &diskStore{dir: dir}, nil
}

func (s *diskStore) path(key string) string {
	// keys are derived via core.UploadKey; SafeFilename here guards
	// against hand-crafted traversal keys
	return filepath.Join(s.dir, core.SafeFilename(key))
}

func (s *diskStore) Save(_ context.Context, key string, r io.Reader) error {
	f, err := os.Create(s.path(key))
	if err != nil {
		return errors.Wrap(err, "creating upload file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, r); err != nil {
		return errors.Wrap(err, "writing upload file")
	}
	return nil
}

func (s *diskStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, errors.Wrap(err, "opening upload file")
	}
	return f, nil
}
