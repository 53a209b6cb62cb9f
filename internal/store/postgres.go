package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"revue/internal/model"
	"revue/internal/store/migrations"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const selectColumns = `id::text, schema_version, title_en, title_fr, excerpt_en, excerpt_fr, author,
	to_char(issue_date, 'YYYY-MM-DD'), status, category, edition, pdf_path, pdf_url, created_at, updated_at`

var (
	listQuery = `SELECT ` + selectColumns + ` FROM articles
	WHERE ($1 = '' OR status = $1)
	ORDER BY issue_date DESC, created_at DESC, id`

	getQuery = `SELECT ` + selectColumns + ` FROM articles WHERE id = $1`

	insertQuery = `INSERT INTO articles (id, schema_version, title_en, title_fr, excerpt_en, excerpt_fr, author,
	issue_date, status, category, edition, pdf_path, pdf_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11, $12, $13, $14, $15)`

	updateQuery = `UPDATE articles SET schema_version = $2, title_en = $3, title_fr = $4, excerpt_en = $5,
	excerpt_fr = $6, author = $7, issue_date = $8::date, status = $9, category = $10, edition = $11,
	pdf_path = $12, pdf_url = $13, updated_at = $14
	WHERE id = $1`

	deleteQuery = `DELETE FROM articles WHERE id = $1`
)

// PostgresTable stores articles in a Postgres "articles" table.
type PostgresTable struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgresTable connects through the pgx driver and applies pending
// migrations.
func OpenPostgresTable(ctx context.Context, dsn string) (*PostgresTable, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewPostgresTable(db), nil
}

func NewPostgresTable(db *sql.DB) *PostgresTable {
	return &PostgresTable{db: db, now: time.Now}
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (t *PostgresTable) Close() error {
	return t.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (model.Article, error) {
	var a model.Article
	var status string
	err := row.Scan(&a.ID, &a.SchemaVersion, &a.Title.EN, &a.Title.FR, &a.Excerpt.EN, &a.Excerpt.FR,
		&a.Author, &a.Date, &status, &a.Category, &a.Edition, &a.PDFPath, &a.PDFURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Article{}, err
	}
	a.Status = model.ArticleStatus(status)
	a.Normalize()
	return a, nil
}

func (t *PostgresTable) ListArticles(ctx context.Context, filter Filter) ([]model.Article, error) {
	rows, err := t.db.QueryContext(ctx, listQuery, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return articles, nil
}

// validID reports whether id can name a row; the id column is a UUID and
// Postgres rejects anything else with a syntax error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (t *PostgresTable) GetArticle(ctx context.Context, id string) (model.Article, error) {
	if !validID(id) {
		return model.Article{}, ErrNotFound
	}
	a, err := scanArticle(t.db.QueryRowContext(ctx, getQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, ErrNotFound
	}
	if err != nil {
		return model.Article{}, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (t *PostgresTable) InsertArticle(ctx context.Context, article model.Article) (model.Article, error) {
	if article.ID == "" {
		article.ID = model.NewID()
	}
	if !validID(article.ID) {
		return model.Article{}, fmt.Errorf("article id %q is not a UUID", article.ID)
	}
	now := t.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now
	article.Normalize()

	_, err := t.db.ExecContext(ctx, insertQuery,
		article.ID, article.SchemaVersion, article.Title.EN, article.Title.FR,
		article.Excerpt.EN, article.Excerpt.FR, article.Author, article.Date,
		string(article.Status), article.Category, article.Edition,
		article.PDFPath, article.PDFURL, article.CreatedAt, article.UpdatedAt)
	if err != nil {
		return model.Article{}, fmt.Errorf("db error: %w", err)
	}
	return article, nil
}

func (t *PostgresTable) UpdateArticle(ctx context.Context, id string, article model.Article) error {
	if !validID(id) {
		return ErrNotFound
	}
	article.Normalize()
	res, err := t.db.ExecContext(ctx, updateQuery,
		id, article.SchemaVersion, article.Title.EN, article.Title.FR,
		article.Excerpt.EN, article.Excerpt.FR, article.Author, article.Date,
		string(article.Status), article.Category, article.Edition,
		article.PDFPath, article.PDFURL, t.now().UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (t *PostgresTable) DeleteArticle(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := t.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
