package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"revue/internal/model"
)

// MemoryTable keeps articles in process memory. Nothing survives a restart;
// it backs demos and tests.
type MemoryTable struct {
	mu       sync.RWMutex
	articles map[string]model.Article
	now      func() time.Time
}

func NewMemoryTable(seed ...model.Article) *MemoryTable {
	t := &MemoryTable{articles: make(map[string]model.Article), now: time.Now}
	for _, a := range seed {
		a.Normalize()
		t.articles[a.ID] = a
	}
	return t
}

func (t *MemoryTable) Close() error { return nil }

func (t *MemoryTable) ListArticles(ctx context.Context, filter Filter) ([]model.Article, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Article, 0, len(t.articles))
	for _, a := range t.articles {
		if filter.Match(&a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(&out[i], &out[j]) })
	return out, nil
}

func (t *MemoryTable) GetArticle(ctx context.Context, id string) (model.Article, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.articles[id]
	if !ok {
		return model.Article{}, ErrNotFound
	}
	return a, nil
}

func (t *MemoryTable) InsertArticle(ctx context.Context, article model.Article) (model.Article, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if article.ID == "" {
		article.ID = model.NewID()
	}
	if _, exists := t.articles[article.ID]; exists {
		return model.Article{}, fmt.Errorf("article %s already exists", article.ID)
	}
	now := t.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now
	article.Normalize()
	t.articles[article.ID] = article
	return article, nil
}

func (t *MemoryTable) UpdateArticle(ctx context.Context, id string, article model.Article) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.articles[id]; !ok {
		return ErrNotFound
	}
	article.ID = id
	article.UpdatedAt = t.now().UTC()
	article.Normalize()
	t.articles[id] = article
	return nil
}

func (t *MemoryTable) DeleteArticle(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.articles[id]; !ok {
		return ErrNotFound
	}
	delete(t.articles, id)
	return nil
}
