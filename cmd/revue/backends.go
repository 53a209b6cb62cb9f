package main

import (
	"context"
	"errors"
	"fmt"

	"revue/internal/blob"
	"revue/internal/config"
	"revue/internal/store"
	"revue/internal/worker"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// filesPrefix is where the web server exposes Badger-stored documents.
const filesPrefix = "/files"

// backends are the remote collaborators chosen by configuration.
type backends struct {
	table      store.Table
	blobs      blob.Store
	serveFiles bool
	rdb        *redis.Client
	badger     *badger.DB
	closers    []func() error
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}
	fail := func(err error) (*backends, error) {
		b.Close()
		return nil, err
	}

	var db *badger.DB
	switch cfg.StoreBackend {
	case "postgres":
		t, err := store.OpenPostgresTable(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fail(err)
		}
		b.table = t
		b.closers = append(b.closers, t.Close)
		logger.Info("Using postgres article table")
	default:
		t, err := store.OpenBadgerTable(cfg.BadgerPath)
		if err != nil {
			return fail(err)
		}
		db = t.DB()
		b.table = t
		b.closers = append(b.closers, t.Close)
		logger.Info("Using badger article table", zap.String("path", cfg.BadgerPath))
	}

	switch cfg.BlobBackend {
	case "s3":
		s, err := blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return fail(fmt.Errorf("init s3: %w", err))
		}
		b.blobs = s
		logger.Info("Using s3 document store", zap.String("bucket", cfg.S3Bucket))
	default:
		if db == nil {
			opts := badger.DefaultOptions(cfg.BadgerPath)
			opts.Logger = nil
			var err error
			db, err = badger.Open(opts)
			if err != nil {
				return fail(fmt.Errorf("failed to open badger: %w", err))
			}
			b.closers = append(b.closers, db.Close)
		}
		b.blobs = blob.NewBadgerStore(db, filesPrefix)
		b.serveFiles = true
		logger.Info("Using badger document store", zap.String("path", cfg.BadgerPath))
	}

	b.badger = db

	rdb, err := worker.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return fail(err)
	}
	b.rdb = rdb
	b.closers = append(b.closers, rdb.Close)
	return b, nil
}

// Ping checks Redis; the table and blob stores fail loudly on use.
func (b *backends) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close releases backends in reverse order of opening.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
