package uploads

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// MemStore is a map-backed UploadStore for tests.
type MemStore struct {
	mutex sync.RWMutex
	files map[string][]byte
}

var _ core.UploadStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte)}
}

func (s *MemStore) Save(_ context.Context, key string, r io.Reader) error {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.files[key] = data
	return nil
}

func (s *MemStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	data, ok := s.files[key]
	if !ok {
		return nil, errors.New("file not found")
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}
