package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const blobPrefix = "blob:"

// BadgerStore keeps documents inside the embedded Badger database and serves
// them through the application's /files/ route.
type BadgerStore struct {
	db      *badger.DB
	baseURL string
}

// NewBadgerStore uses db for storage. baseURL is the prefix public URLs are
// built from, e.g. "/files".
func NewBadgerStore(db *badger.DB, baseURL string) *BadgerStore {
	return &BadgerStore{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func objectKey(bucket, path string) []byte {
	return []byte(blobPrefix + bucket + "/" + path)
}

func (s *BadgerStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("empty object key")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(objectKey(bucket, key), data)
	})
	if err != nil {
		return "", fmt.Errorf("store object %s: %w", key, err)
	}
	return key, nil
}

func (s *BadgerStore) PublicURL(ctx context.Context, bucket, path string) (string, error) {
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(path), nil
}

func (s *BadgerStore) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(objectKey(bucket, path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *BadgerStore) Remove(ctx context.Context, bucket, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(objectKey(bucket, path)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(objectKey(bucket, path))
	})
}

func (s *BadgerStore) List(ctx context.Context, bucket string) ([]string, error) {
	prefix := objectKey(bucket, "")
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			paths = append(paths, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	return paths, err
}
