// Package records keeps the process-wide view of the article collection in
// sync with the durable table.
package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"revue/internal/blob"
	"revue/internal/metrics"
	"revue/internal/model"
	"revue/internal/store"

	"go.uber.org/zap"
)

// RemoteWriteError reports a table write that failed. The local collection
// has already been restored to its state before the write.
type RemoteWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("%s article %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func (e *RemoteWriteError) MessageKey() string { return "err.remoteWrite" }

// OrphanQueue receives object paths that may no longer be referenced.
type OrphanQueue interface {
	Enqueue(ctx context.Context, path string) error
}

// Store mediates between the in-memory collection and the table. All
// mutations go through Create, Update and Delete.
type Store struct {
	table   store.Table
	blobs   blob.Store
	bucket  string
	orphans OrphanQueue
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
	maxAge  time.Duration

	// writeMu serializes mutations; mu guards the collection itself so
	// readers are never blocked by a remote call.
	writeMu  sync.Mutex
	mu       sync.RWMutex
	articles []model.Article
	loadedAt time.Time
	loaded   bool
	// gen changes whenever a mutation starts or finishes. A fetch that
	// overlapped either edge is older than the collection and is dropped.
	gen uint64
}

type Option func(*Store)

// WithOrphanQueue enables cleanup of documents whose removal failed.
func WithOrphanQueue(q OrphanQueue) Option {
	return func(s *Store) { s.orphans = q }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithMaxAge makes List refetch once the collection is older than d. Zero
// keeps the collection until an explicit Refresh.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

func New(table store.Table, blobs blob.Store, bucket string, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		table:  table,
		blobs:  blobs,
		bucket: bucket,
		logger: logger.With(zap.String("component", "records")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the collection newest first. The first call fetches from the
// table; a failed fetch is logged and the previous collection returned.
func (s *Store) List(ctx context.Context) []model.Article {
	if s.stale() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("Failed to fetch articles, serving cached collection", zap.Error(err))
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.articles)
}

func (s *Store) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return true
	}
	return s.maxAge > 0 && s.now().Sub(s.loadedAt) > s.maxAge
}

// Refresh replaces the collection with the table's contents. A fetch that
// raced a mutation is discarded; the collection already holds that write.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	fetched, err := s.table.ListArticles(ctx, store.Filter{})
	if err != nil {
		s.metrics.RemoteFailure("list")
		return fmt.Errorf("list articles: %w", err)
	}
	sortArticles(fetched)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("Discarding fetch that overlapped a write")
		return nil
	}
	s.articles = fetched
	s.loaded = true
	s.loadedAt = s.now()
	s.mu.Unlock()

	s.logger.Debug("Articles fetched", zap.Int("count", len(fetched)))
	return nil
}

// Get returns one article, consulting the table when it is not in the
// collection yet.
func (s *Store) Get(ctx context.Context, id string) (model.Article, error) {
	for _, a := range s.List(ctx) {
		if a.ID == id {
			return a, nil
		}
	}
	a, err := s.table.GetArticle(ctx, id)
	if err != nil {
		return model.Article{}, err
	}
	return a, nil
}

// Create stores a new article. It is visible in List immediately and removed
// again if the table rejects it.
func (s *Store) Create(ctx context.Context, article model.Article) (model.Article, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ensureLoaded(ctx)

	if article.ID == "" {
		article.ID = model.NewID()
	}
	now := s.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now
	article.Normalize()

	cmd := &createCommand{article: article}
	if err := s.execute(ctx, cmd); err != nil {
		return model.Article{}, err
	}
	return cmd.stored, nil
}

// Update applies patch to the article with the given id.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Article, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ensureLoaded(ctx)

	prev, err := s.current(ctx, id)
	if err != nil {
		return model.Article{}, err
	}
	next := prev
	patch.Apply(&next)
	next.UpdatedAt = s.now().UTC()
	next.Normalize()

	if err := s.execute(ctx, &updateCommand{prev: prev, next: next}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.remove(id)
		}
		return model.Article{}, err
	}
	return next, nil
}

// Delete removes the article and then, best effort, its stored document.
// Confirmation is the caller's job.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ensureLoaded(ctx)

	prev, err := s.current(ctx, id)
	if err != nil {
		return err
	}
	if err := s.execute(ctx, &deleteCommand{prev: prev}); err != nil {
		return err
	}

	if prev.PDFPath != "" {
		s.DiscardDocument(ctx, prev.PDFPath)
	}
	return nil
}

// DiscardDocument removes a stored document that no article needs any more.
// Failures are logged and handed to the orphan queue, never returned.
func (s *Store) DiscardDocument(ctx context.Context, path string) {
	err := s.blobs.Remove(ctx, s.bucket, path)
	if err == nil || errors.Is(err, blob.ErrNotFound) {
		return
	}
	s.metrics.RemoteFailure("remove")
	s.logger.Warn("Failed to remove document", zap.String("path", path), zap.Error(err))
	if s.orphans == nil {
		return
	}
	if err := s.orphans.Enqueue(ctx, path); err != nil {
		s.logger.Error("Failed to queue orphaned document", zap.String("path", path), zap.Error(err))
	}
}

// References reports whether any article points at path. It reads the table
// directly so the answer does not depend on this process's cache.
func (s *Store) References(ctx context.Context, path string) (bool, error) {
	articles, err := s.table.ListArticles(ctx, store.Filter{})
	if err != nil {
		return false, err
	}
	for _, a := range articles {
		if a.PDFPath == path {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if s.stale() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("Failed to fetch articles before write", zap.Error(err))
		}
	}
}

// current finds the article locally, then remotely.
func (s *Store) current(ctx context.Context, id string) (model.Article, error) {
	s.mu.RLock()
	for _, a := range s.articles {
		if a.ID == id {
			s.mu.RUnlock()
			return a, nil
		}
	}
	s.mu.RUnlock()
	return s.table.GetArticle(ctx, id)
}

// execute applies cmd locally, commits it to the table and undoes the local
// change if the commit fails.
func (s *Store) execute(ctx context.Context, cmd command) error {
	s.mu.Lock()
	s.articles = cmd.apply(s.articles)
	s.gen++
	s.mu.Unlock()

	err := cmd.commit(ctx, s.table)

	// A refresh may have swapped the collection while the commit was in
	// flight, so the outcome is applied again rather than assumed.
	s.mu.Lock()
	if err != nil {
		s.articles = cmd.undo(s.articles)
	} else {
		s.articles = cmd.apply(s.articles)
		if after, ok := cmd.(interface{ committed() *model.Article }); ok {
			if stored := after.committed(); stored != nil {
				s.articles = put(s.articles, *stored)
			}
		}
	}
	s.gen++
	s.mu.Unlock()

	if err != nil {
		s.metrics.RemoteFailure(cmd.op())
		s.logger.Error("Remote write failed, local change rolled back",
			zap.String("op", cmd.op()), zap.String("id", cmd.id()), zap.Error(err))
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return &RemoteWriteError{Op: cmd.op(), ID: cmd.id(), Err: err}
	}

	s.metrics.ArticleWritten(cmd.op())
	s.logger.Info("Article written", zap.String("op", cmd.op()), zap.String("id", cmd.id()))
	return nil
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = without(s.articles, id)
}

func sortArticles(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool { return model.Less(&articles[i], &articles[j]) })
}

func cloneAll(articles []model.Article) []model.Article {
	out := make([]model.Article, len(articles))
	copy(out, articles)
	return out
}

// put inserts or replaces a and keeps the collection ordered.
func put(articles []model.Article, a model.Article) []model.Article {
	out := without(articles, a.ID)
	out = append([]model.Article{a}, out...)
	sortArticles(out)
	return out
}

func without(articles []model.Article, id string) []model.Article {
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
