// Package editor validates the admin article form and commits it.
package editor

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"revue/internal/blob"
	"revue/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Form is the editable state of one article as submitted by the admin.
type Form struct {
	TitleEN   string
	TitleFR   string
	ExcerptEN string
	ExcerptFR string
	Author    string
	Date      string
	Status    string
	Category  string
	Edition   string
	// DocumentURL links an externally hosted PDF instead of an upload.
	DocumentURL    string
	RemoveDocument bool
}

// Attachment is an uploaded file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewForm returns the defaults for a new article: today's date and the
// published status.
func NewForm(now time.Time) Form {
	return Form{
		Date:   now.Format(model.DateLayout),
		Status: string(model.StatusPublished),
	}
}

// FormFromArticle pre-populates the form for editing a.
func FormFromArticle(a model.Article) Form {
	return Form{
		TitleEN:     a.Title.EN,
		TitleFR:     a.Title.FR,
		ExcerptEN:   a.Excerpt.EN,
		ExcerptFR:   a.Excerpt.FR,
		Author:      a.Author,
		Date:        a.Date,
		Status:      string(a.Status),
		Category:    a.Category,
		Edition:     a.Edition,
		DocumentURL: a.PDFURL,
	}
}

// Records is the part of the record store the editor writes through.
type Records interface {
	Get(ctx context.Context, id string) (model.Article, error)
	Create(ctx context.Context, article model.Article) (model.Article, error)
	Update(ctx context.Context, id string, patch model.Patch) (model.Article, error)
	DiscardDocument(ctx context.Context, path string)
}

type Editor struct {
	records  Records
	blobs    blob.Store
	bucket   string
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

func New(records Records, blobs blob.Store, bucket string, maxBytes int64, logger *zap.Logger) *Editor {
	return &Editor{
		records:  records,
		blobs:    blobs,
		bucket:   bucket,
		maxBytes: maxBytes,
		logger:   logger.With(zap.String("component", "editor")),
		now:      time.Now,
	}
}

// Today returns the default form for a new article.
func (e *Editor) Today() Form {
	return NewForm(e.now())
}

// Validate checks the form and attachment without contacting any remote
// service and returns the normalized fields.
func (e *Editor) Validate(form Form, att *Attachment) (model.Article, error) {
	verr := &ValidationError{}
	a := model.Article{
		Title:    model.Localized{EN: strings.TrimSpace(form.TitleEN), FR: strings.TrimSpace(form.TitleFR)},
		Excerpt:  model.Localized{EN: strings.TrimSpace(form.ExcerptEN), FR: strings.TrimSpace(form.ExcerptFR)},
		Author:   strings.TrimSpace(form.Author),
		Date:     strings.TrimSpace(form.Date),
		Category: strings.TrimSpace(form.Category),
		Edition:  strings.TrimSpace(form.Edition),
		PDFURL:   strings.TrimSpace(form.DocumentURL),
	}

	if a.Title.EN == "" {
		verr.add("title_en", "err.titleRequired")
	}
	if a.Author == "" {
		verr.add("author", "err.authorRequired")
	}
	if a.Date == "" {
		a.Date = e.now().Format(model.DateLayout)
	} else if _, err := time.Parse(model.DateLayout, a.Date); err != nil {
		verr.add("date", "err.dateInvalid")
	}
	status, err := model.ParseStatus(form.Status)
	if err != nil {
		verr.add("status", "err.statusInvalid")
	}
	a.Status = status

	if a.PDFURL != "" && !validDocumentURL(a.PDFURL) {
		verr.add("document_url", "err.pdfOnly")
	}
	if att != nil {
		if key := e.checkAttachment(att); key != "" {
			verr.add("pdf", key)
		}
	}

	if len(verr.Fields) > 0 {
		return model.Article{}, verr
	}
	return a, nil
}

// checkAttachment returns an error key, or "" for an acceptable PDF.
func (e *Editor) checkAttachment(att *Attachment) string {
	if !strings.EqualFold(filepath.Ext(att.Filename), ".pdf") {
		return "err.pdfOnly"
	}
	if ct := strings.ToLower(strings.TrimSpace(att.ContentType)); ct != "" &&
		!strings.HasPrefix(ct, "application/pdf") && !strings.HasPrefix(ct, "application/octet-stream") {
		return "err.pdfOnly"
	}
	if len(att.Data) == 0 {
		return "err.pdfEmpty"
	}
	if e.maxBytes > 0 && int64(len(att.Data)) > e.maxBytes {
		return "err.pdfTooLarge"
	}
	if !mimetype.Detect(att.Data).Is("application/pdf") {
		return "err.pdfOnly"
	}
	return ""
}

func validDocumentURL(raw string) bool {
	if strings.HasPrefix(raw, "data:application/pdf") {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Submit validates and commits the form. An empty id creates a new article;
// otherwise the existing article is updated. The document, if any, is
// uploaded before the article is written.
func (e *Editor) Submit(ctx context.Context, id string, form Form, att *Attachment) (model.Article, error) {
	fields, err := e.Validate(form, att)
	if err != nil {
		return model.Article{}, err
	}

	var previous model.Article
	if id != "" {
		previous, err = e.records.Get(ctx, id)
		if err != nil {
			return model.Article{}, err
		}
	}

	uploaded := ""
	if att != nil {
		uploaded, err = e.upload(ctx, att)
		if err != nil {
			return model.Article{}, err
		}
		fields.PDFPath = uploaded
		fields.PDFURL = ""
	}

	var saved model.Article
	if id == "" {
		saved, err = e.records.Create(ctx, fields)
	} else {
		saved, err = e.records.Update(ctx, id, e.patch(fields, previous, form, uploaded != ""))
	}
	if err != nil {
		if uploaded != "" {
			e.logger.Warn("Article write failed after upload, discarding document",
				zap.String("path", uploaded), zap.Error(err))
			e.records.DiscardDocument(context.WithoutCancel(ctx), uploaded)
		}
		return model.Article{}, err
	}

	if previous.PDFPath != "" && previous.PDFPath != saved.PDFPath {
		e.records.DiscardDocument(ctx, previous.PDFPath)
	}
	e.logger.Info("Article saved", zap.String("id", saved.ID), zap.String("status", string(saved.Status)))
	return saved, nil
}

func (e *Editor) upload(ctx context.Context, att *Attachment) (string, error) {
	key := blob.GenerateKey(e.now(), att.Filename)
	path, err := e.blobs.Upload(ctx, e.bucket, key, att.Data, "application/pdf")
	if err != nil {
		e.logger.Error("Upload failed", zap.String("key", key), zap.Error(err))
		return "", &UploadError{Err: err}
	}
	return path, nil
}

// patch turns validated fields into an update. The stored document is kept
// unless a new one was uploaded, a URL replaces it, or removal was requested.
func (e *Editor) patch(fields, previous model.Article, form Form, newUpload bool) model.Patch {
	p := model.Patch{
		Title:    &fields.Title,
		Excerpt:  &fields.Excerpt,
		Author:   &fields.Author,
		Date:     &fields.Date,
		Status:   &fields.Status,
		Category: &fields.Category,
		Edition:  &fields.Edition,
	}
	empty := ""
	switch {
	case newUpload:
		p.PDFPath = &fields.PDFPath
		p.PDFURL = &empty
	case form.RemoveDocument:
		p.PDFPath = &empty
		p.PDFURL = &empty
	case fields.PDFURL != previous.PDFURL:
		p.PDFURL = &fields.PDFURL
		if fields.PDFURL != "" {
			p.PDFPath = &empty
		}
	}
	return p
}
