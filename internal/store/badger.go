package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"revue/internal/model"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const articlePrefix = "article:"

// BadgerTable keeps articles as JSON documents in an embedded Badger database.
// It is the default backend for single-node deployments.
type BadgerTable struct {
	db    *badger.DB
	owned bool
	now   func() time.Time
}

// OpenBadgerTable opens (or creates) the database at path.
func OpenBadgerTable(path string) (*BadgerTable, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Silence default logger
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerTable{db: db, owned: true, now: time.Now}, nil
}

// NewBadgerTable wraps an already open database. The caller keeps ownership.
func NewBadgerTable(db *badger.DB) *BadgerTable {
	return &BadgerTable{db: db, now: time.Now}
}

// DB exposes the database so the blob store can share it.
func (t *BadgerTable) DB() *badger.DB { return t.db }

func (t *BadgerTable) Close() error {
	if t.owned && t.db != nil {
		return t.db.Close()
	}
	return nil
}

func articleKey(id string) []byte {
	return []byte(articlePrefix + id)
}

func (t *BadgerTable) ListArticles(ctx context.Context, filter Filter) ([]model.Article, error) {
	var articles []model.Article
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articlePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var a model.Article
			err := it.Item().Value(func(val []byte) error {
				var err error
				a, err = model.Decode(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if filter.Match(&a) {
				articles = append(articles, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(articles, func(i, j int) bool { return model.Less(&articles[i], &articles[j]) })
	return articles, nil
}

func (t *BadgerTable) GetArticle(ctx context.Context, id string) (model.Article, error) {
	var a model.Article
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(articleKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			a, err = model.Decode(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Article{}, ErrNotFound
	}
	return a, err
}

func (t *BadgerTable) InsertArticle(ctx context.Context, article model.Article) (model.Article, error) {
	if article.ID == "" {
		article.ID = model.NewID()
	}
	now := t.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now
	article.Normalize()

	data, err := json.Marshal(article)
	if err != nil {
		return model.Article{}, err
	}

	err = t.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(articleKey(article.ID)); err == nil {
			return fmt.Errorf("article %s already exists", article.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(articleKey(article.ID), data)
	})
	if err != nil {
		return model.Article{}, err
	}
	return article, nil
}

func (t *BadgerTable) UpdateArticle(ctx context.Context, id string, article model.Article) error {
	article.ID = id
	article.UpdatedAt = t.now().UTC()
	article.Normalize()

	data, err := json.Marshal(article)
	if err != nil {
		return err
	}

	return t.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(articleKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Set(articleKey(id), data)
	})
}

func (t *BadgerTable) DeleteArticle(ctx context.Context, id string) error {
	return t.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(articleKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(articleKey(id))
	})
}

// CollectGarbage reclaims value-log space every interval until ctx is done.
func CollectGarbage(ctx context.Context, db *badger.DB, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				err := db.RunValueLogGC(0.7)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
					logger.Warn("Value log GC failed", zap.Error(err))
				}
				break
			}
		}
	}
}
