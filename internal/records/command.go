package records

import (
	"context"
	"errors"

	"revue/internal/model"
	"revue/internal/store"
)

// command is one mutation of the collection together with its inverse.
type command interface {
	op() string
	id() string
	apply(articles []model.Article) []model.Article
	commit(ctx context.Context, table store.Table) error
	undo(articles []model.Article) []model.Article
}

type createCommand struct {
	article model.Article
	stored  model.Article
}

func (c *createCommand) op() string { return "create" }
func (c *createCommand) id() string { return c.article.ID }

func (c *createCommand) apply(articles []model.Article) []model.Article {
	return put(articles, c.article)
}

func (c *createCommand) commit(ctx context.Context, table store.Table) error {
	stored, err := table.InsertArticle(ctx, c.article)
	if err != nil {
		return err
	}
	c.stored = stored
	return nil
}

func (c *createCommand) undo(articles []model.Article) []model.Article {
	return without(articles, c.article.ID)
}

func (c *createCommand) committed() *model.Article { return &c.stored }

type updateCommand struct {
	prev model.Article
	next model.Article
}

func (c *updateCommand) op() string { return "update" }
func (c *updateCommand) id() string { return c.prev.ID }

func (c *updateCommand) apply(articles []model.Article) []model.Article {
	return put(articles, c.next)
}

func (c *updateCommand) commit(ctx context.Context, table store.Table) error {
	return table.UpdateArticle(ctx, c.prev.ID, c.next)
}

func (c *updateCommand) undo(articles []model.Article) []model.Article {
	return put(articles, c.prev)
}

type deleteCommand struct {
	prev model.Article
}

func (c *deleteCommand) op() string { return "delete" }
func (c *deleteCommand) id() string { return c.prev.ID }

func (c *deleteCommand) apply(articles []model.Article) []model.Article {
	return without(articles, c.prev.ID)
}

func (c *deleteCommand) commit(ctx context.Context, table store.Table) error {
	err := table.DeleteArticle(ctx, c.prev.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Already gone remotely; the local removal stands.
		return nil
	}
	return err
}

func (c *deleteCommand) undo(articles []model.Article) []model.Article {
	return put(articles, c.prev)
}
