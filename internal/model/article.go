package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the version written with every stored article.
// Records without a version are treated as version 1 and upgraded on decode.
const SchemaVersion = 2

// DateLayout is the calendar date format used for Article.Date.
const DateLayout = "2006-01-02"

type ArticleStatus string

const (
	StatusPublished ArticleStatus = "published"
	StatusPending   ArticleStatus = "pending"
	StatusDraft     ArticleStatus = "draft"
	StatusRejected  ArticleStatus = "rejected"
)

// Statuses lists every known status in the order the admin form offers them.
var Statuses = []ArticleStatus{StatusPublished, StatusPending, StatusDraft, StatusRejected}

// ParseStatus accepts any known status, case-insensitively. An empty string
// yields the default status.
func ParseStatus(s string) (ArticleStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusPublished, nil
	}
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown article status %q", s)
}

// Public reports whether articles in this status are shown to visitors.
func (s ArticleStatus) Public() bool {
	return s == StatusPublished
}

// Localized holds one string per site language.
type Localized struct {
	EN string `json:"en"`
	FR string `json:"fr"`
}

// In returns the value for lang ("en" or "fr"), falling back to the other
// language when the preferred one is empty.
func (l Localized) In(lang string) string {
	primary, other := l.EN, l.FR
	if lang == "fr" {
		primary, other = l.FR, l.EN
	}
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return other
}

// Exact returns the value for lang without fallback.
func (l Localized) Exact(lang string) string {
	if lang == "fr" {
		return l.FR
	}
	return l.EN
}

func (l Localized) Empty() bool {
	return strings.TrimSpace(l.EN) == "" && strings.TrimSpace(l.FR) == ""
}

// Article is one publishable unit of the review.
type Article struct {
	ID            string        `json:"id"`
	SchemaVersion int           `json:"schema_version"`
	Title         Localized     `json:"title"`
	Excerpt       Localized     `json:"excerpt"`
	Author        string        `json:"author"`
	Date          string        `json:"date"`
	Status        ArticleStatus `json:"status"`
	Category      string        `json:"category,omitempty"`
	Edition       string        `json:"edition,omitempty"`
	PDFPath       string        `json:"pdf_path,omitempty"`
	PDFURL        string        `json:"pdf_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewArticle returns an article with every documented default applied and a
// fresh ID.
func NewArticle(now time.Time) Article {
	return Article{
		ID:            NewID(),
		SchemaVersion: SchemaVersion,
		Date:          now.Format(DateLayout),
		Status:        StatusPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func NewID() string {
	return uuid.NewString()
}

// HasDocument reports whether the article references a PDF in any form.
func (a *Article) HasDocument() bool {
	return a.PDFPath != "" || a.PDFURL != ""
}

// Day parses Date. The zero time is returned for malformed dates.
func (a *Article) Day() time.Time {
	t, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Month returns the "YYYY-MM" facet value of the article date.
func (a *Article) Month() string {
	if len(a.Date) < 7 {
		return ""
	}
	return a.Date[:7]
}

// Normalize fills documented defaults for fields older records left unset.
func (a *Article) Normalize() {
	if a.SchemaVersion == 0 {
		a.SchemaVersion = 1
	}
	if a.SchemaVersion < SchemaVersion {
		a.SchemaVersion = SchemaVersion
	}
	if a.Status == "" {
		a.Status = StatusPublished
	}
	a.Status = ArticleStatus(strings.ToLower(string(a.Status)))
	if a.Date == "" && !a.CreatedAt.IsZero() {
		a.Date = a.CreatedAt.Format(DateLayout)
	}
	a.Category = strings.TrimSpace(a.Category)
	a.Edition = strings.TrimSpace(a.Edition)
}

// Decode parses a stored article and upgrades it to the current schema.
// Version 1 records stored the PDF reference as "pdfUrl".
func Decode(data []byte) (Article, error) {
	var raw struct {
		Article
		LegacyPDFURL string `json:"pdfUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Article{}, err
	}
	a := raw.Article
	if a.PDFURL == "" {
		a.PDFURL = raw.LegacyPDFURL
	}
	a.Normalize()
	return a, nil
}

// Less orders articles newest first: date descending, then creation time
// descending, then ID.
func Less(a, b *Article) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Title    *Localized
	Excerpt  *Localized
	Author   *string
	Date     *string
	Status   *ArticleStatus
	Category *string
	Edition  *string
	PDFPath  *string
	PDFURL   *string
}

// Apply merges the patch into a. Applying the same patch twice yields the
// same article as applying it once.
func (p Patch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Excerpt != nil {
		a.Excerpt = *p.Excerpt
	}
	if p.Author != nil {
		a.Author = *p.Author
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Edition != nil {
		a.Edition = *p.Edition
	}
	if p.PDFPath != nil {
		a.PDFPath = *p.PDFPath
	}
	if p.PDFURL != nil {
		a.PDFURL = *p.PDFURL
	}
}

func (p Patch) Empty() bool {
	return p == Patch{}
}
