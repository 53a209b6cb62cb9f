// Package worker removes stored documents that no article references.
package worker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"revue/internal/blob"
	"revue/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Referencer answers whether an article still points at a stored path.
type Referencer interface {
	References(ctx context.Context, path string) (bool, error)
}

type Worker struct {
	queue   *Queue
	blobs   blob.Store
	bucket  string
	refs    Referencer
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	// grace protects fresh uploads whose article write may still be in
	// flight from the sweep.
	grace time.Duration
	cron  *cron.Cron
}

func NewWorker(queue *Queue, blobs blob.Store, bucket string, refs Referencer, m *metrics.Metrics, logger *zap.Logger) *Worker {
	return &Worker{
		queue:   queue,
		blobs:   blobs,
		bucket:  bucket,
		refs:    refs,
		metrics: m,
		logger:  logger.With(zap.String("component", "worker")),
		now:     time.Now,
		grace:   time.Hour,
	}
}

// Start runs the queue loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started. Waiting for orphaned documents...")

	for {
		path, err := w.queue.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker shutting down")
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.processJob(ctx, path)
	}
}

// processJob removes one queued path unless an article references it again.
func (w *Worker) processJob(ctx context.Context, path string) {
	logger := w.logger.With(zap.String("path", path))

	referenced, err := w.refs.References(ctx, path)
	if err != nil {
		w.failJob(logger, err)
		return
	}
	if referenced {
		logger.Info("Document is referenced, keeping it")
		return
	}

	if err := w.blobs.Remove(ctx, w.bucket, path); err != nil && !errors.Is(err, blob.ErrNotFound) {
		w.failJob(logger, err)
		return
	}
	w.metrics.OrphanRemoved()
	logger.Info("Orphaned document removed")
}

// failJob drops the job. The object stays in storage until the next sweep
// finds it unreferenced.
func (w *Worker) failJob(logger *zap.Logger, err error) {
	w.metrics.RemoteFailure("cleanup")
	logger.Error("Cleanup failed, leaving document for the next sweep", zap.Error(err))
}

// Sweep lists every stored document and removes those no article
// references. Uploads younger than the grace period are skipped.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	paths, err := w.blobs.List(ctx, w.bucket)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range paths {
		if w.recent(path) {
			continue
		}
		referenced, err := w.refs.References(ctx, path)
		if err != nil {
			return removed, err
		}
		if referenced {
			continue
		}
		if err := w.blobs.Remove(ctx, w.bucket, path); err != nil && !errors.Is(err, blob.ErrNotFound) {
			w.logger.Warn("Sweep could not remove document", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
		w.metrics.OrphanRemoved()
	}
	w.logger.Info("Sweep finished", zap.Int("checked", len(paths)), zap.Int("removed", removed))
	return removed, nil
}

// recent reads the upload time encoded in the "<unix-millis>-name" key.
// Keys in another format are never considered recent.
func (w *Worker) recent(path string) bool {
	prefix, _, ok := strings.Cut(path, "-")
	if !ok {
		return false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return false
	}
	return w.now().Sub(time.UnixMilli(ms)) < w.grace
}

// Schedule runs Sweep on a cron spec such as "@every 6h" until Stop.
func (w *Worker) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := w.Sweep(ctx); err != nil {
			w.logger.Error("Scheduled sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	w.cron = c
	c.Start()
	w.logger.Info("Sweep scheduled", zap.String("schedule", spec))
	return nil
}

func (w *Worker) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}
