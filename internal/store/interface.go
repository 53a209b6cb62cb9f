package store

import (
	"context"
	"errors"

	"revue/internal/model"
)

var (
	ErrNotFound = errors.New("article not found")
)

// Filter narrows ListArticles. The zero value matches every article.
type Filter struct {
	Status model.ArticleStatus
}

func (f Filter) Match(a *model.Article) bool {
	return f.Status == "" || a.Status == f.Status
}

// Table is the durable article table. Implementations return articles newest
// first, but callers sort again rather than rely on it.
type Table interface {
	ListArticles(ctx context.Context, filter Filter) ([]model.Article, error)
	GetArticle(ctx context.Context, id string) (model.Article, error)
	// InsertArticle stores a new article, assigning an ID when it has none,
	// and returns the stored record.
	InsertArticle(ctx context.Context, article model.Article) (model.Article, error)
	// UpdateArticle replaces the stored record with the given ID.
	UpdateArticle(ctx context.Context, id string, article model.Article) error
	DeleteArticle(ctx context.Context, id string) error
	Close() error
}
