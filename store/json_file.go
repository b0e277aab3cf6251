package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// JsonFileStore stores each key as a separate JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  restaurants.json   # {"version": 3, "value": [...]}
//
// Values must themselves be valid JSON so the files stay readable.
// The mutex only serializes writers inside one process.
type JsonFileStore struct {
	mu  sync.RWMutex
	dir string
}

type jsonFileRecord struct {
	Version uint64          `json:"version"`
	Value   json.RawMessage `json:"value"`
}

func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{dir: dir}, nil
}

func (s *JsonFileStore) keyPath(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *JsonFileStore) load(key string) (Entry, error) {
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, nil
		}
		return Entry{}, err
	}
	var rec jsonFileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Entry{}, fmt.Errorf("corrupt store file for key %q: %w", key, err)
	}
	return Entry{Value: []byte(rec.Value), Version: rec.Version}, nil
}

// save writes to a temp file and renames it over the target so readers never
// see a partially written value.
func (s *JsonFileStore) save(key string, value []byte, version uint64) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for key %q is not valid JSON", key)
	}
	b, err := json.MarshalIndent(jsonFileRecord{Version: version, Value: value}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.keyPath(key))
}

func (s *JsonFileStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(key)
}

func (s *JsonFileStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, err := s.load(key)
	if err != nil {
		return err
	}
	return s.save(key, value, prev.Version+1)
}

func (s *JsonFileStore) CompareAndSet(_ context.Context, key string, value []byte, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, err := s.load(key)
	if err != nil {
		return err
	}
	if prev.Version != version {
		return ErrVersionConflict
	}
	return s.save(key, value, version+1)
}

func (s *JsonFileStore) Close() error {
	return nil
}
