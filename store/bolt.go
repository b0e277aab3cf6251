package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltBucket = "kv"

	// Each stored value is prefixed with its 8-byte big-endian version.
	boltVersionLen = 8
)

// BoltStore keeps keys in a single bbolt bucket. Every write runs inside one
// read-write transaction, so compare-and-set is atomic for the process that
// holds the file lock.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decodeBoltValue(raw []byte) (Entry, error) {
	if raw == nil {
		return Entry{}, nil
	}
	if len(raw) < boltVersionLen {
		return Entry{}, fmt.Errorf("corrupt bolt value: %d bytes", len(raw))
	}
	return Entry{
		Version: binary.BigEndian.Uint64(raw[:boltVersionLen]),
		Value:   cloneBytes(raw[boltVersionLen:]),
	}, nil
}

func encodeBoltValue(value []byte, version uint64) []byte {
	out := make([]byte, boltVersionLen+len(value))
	binary.BigEndian.PutUint64(out, version)
	copy(out[boltVersionLen:], value)
	return out
}

func (s *BoltStore) Get(_ context.Context, key string) (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		e, err = decodeBoltValue(tx.Bucket([]byte(boltBucket)).Get([]byte(key)))
		return err
	})
	return e, err
}

func (s *BoltStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		prev, err := decodeBoltValue(b.Get([]byte(key)))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), encodeBoltValue(value, prev.Version+1))
	})
}

func (s *BoltStore) CompareAndSet(_ context.Context, key string, value []byte, version uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		prev, err := decodeBoltValue(b.Get([]byte(key)))
		if err != nil {
			return err
		}
		if prev.Version != version {
			return ErrVersionConflict
		}
		return b.Put([]byte(key), encodeBoltValue(value, version+1))
	})
}
