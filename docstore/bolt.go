package docstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var documentsBucket = []byte("documents")

// BoltStore keeps all documents as values of a single bucket in a Bolt file.
type BoltStore struct {
	bdb *bbolt.DB
}

// Bolt opens (or creates) a Bolt-backed Store at path.
func Bolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	bdb, err := bbolt.Open(path, 0o666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("docstore: bolt: %w", err)
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("docstore: bolt: %w", err)
	}
	return &BoltStore{bdb: bdb}, nil
}

func (s *BoltStore) Exists(name string) (bool, error) {
	var found bool
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		found = btx.Bucket(documentsBucket).Get([]byte(name)) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) Read(name string) ([]byte, error) {
	var data []byte
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		v := btx.Bucket(documentsBucket).Get([]byte(name))
		if v == nil {
			return notExist(name)
		}
		// values are only valid for the lifetime of the transaction
		data = bytes.Clone(v)
		return nil
	})
	return data, err
}

func (s *BoltStore) Write(name string, data []byte) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(documentsBucket).Put([]byte(name), data)
	})
}

func (s *BoltStore) Append(name string, data []byte) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(documentsBucket)
		old := b.Get([]byte(name))
		buf := make([]byte, 0, len(old)+len(data))
		buf = append(buf, old...)
		buf = append(buf, data...)
		return b.Put([]byte(name), buf)
	})
}

func (s *BoltStore) Remove(name string) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(documentsBucket).Delete([]byte(name))
	})
}

func (s *BoltStore) List() ([]string, error) {
	var names []string
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		return btx.Bucket(documentsBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) Close() error {
	return s.bdb.Close()
}
