package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"revue/internal/blob"
	"revue/internal/model"
	"revue/internal/records"
	"revue/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type failingBlobs struct {
	*blob.MemoryStore
}

func (f failingBlobs) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	return "", errors.New("bucket unavailable")
}

type refusingTable struct {
	store.Table
}

func (r refusingTable) InsertArticle(ctx context.Context, a model.Article) (model.Article, error) {
	return model.Article{}, errors.New("permission denied")
}

type fixture struct {
	editor *Editor
	recs   *records.Store
	table  store.Table
	blobs  *blob.MemoryStore
}

func newFixture(t *testing.T, table store.Table, blobs blob.Store) fixture {
	t.Helper()
	mem := blob.NewMemoryStore("/files")
	if blobs == nil {
		blobs = mem
	}
	if table == nil {
		table = store.NewMemoryTable()
	}
	recs := records.New(table, blobs, blob.DefaultBucket, zap.NewNop())
	ed := New(recs, blobs, blob.DefaultBucket, 1<<20, zap.NewNop())
	ed.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
	return fixture{editor: ed, recs: recs, table: table, blobs: mem}
}

func pdf(name string) *Attachment {
	return &Attachment{Filename: name, ContentType: "application/pdf", Data: samplePDF}
}

func TestNewForm_Defaults(t *testing.T) {
	f := newFixture(t, nil, nil)
	form := f.editor.Today()
	assert.Equal(t, "2024-03-09", form.Date)
	assert.Equal(t, "published", form.Status)
}

func TestSubmit_CreatesPublishedArticleWithDocument(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	saved, err := f.editor.Submit(ctx, "", Form{
		TitleEN: "Finance Law 2024",
		Author:  "J. Doe",
		Date:    "2024-01-15",
		Status:  "published",
	}, pdf("Finance Law.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "Finance Law 2024", saved.Title.EN)
	assert.Equal(t, model.StatusPublished, saved.Status)
	assert.Equal(t, "1709978400000-Finance-Law.pdf", saved.PDFPath)

	data, err := f.blobs.Get(ctx, blob.DefaultBucket, saved.PDFPath)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, data)

	list := f.recs.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
}

func TestSubmit_DefaultsDateAndStatus(t *testing.T) {
	f := newFixture(t, nil, nil)

	saved, err := f.editor.Submit(context.Background(), "", Form{TitleEN: "Untitled Essay", Author: "A. Author"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", saved.Date)
	assert.Equal(t, model.StatusPublished, saved.Status)
	assert.False(t, saved.HasDocument())
}

func TestSubmit_RejectsNonPDFBeforeAnyRemoteCall(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.editor.Submit(ctx, "", Form{TitleEN: "T", Author: "A"}, &Attachment{
		Filename:    "paper.docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:        []byte("PK\x03\x04"),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "err.pdfOnly", verr.For("pdf"))

	assert.Empty(t, f.recs.List(ctx), "no record is created")
	paths, _ := f.blobs.List(ctx, blob.DefaultBucket)
	assert.Empty(t, paths, "nothing is uploaded")
}

func TestValidate_Errors(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.editor.Validate(Form{TitleFR: "Seulement en français", Date: "15/01/2024", Status: "archived"}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "err.titleRequired", verr.For("title_en"))
	assert.Equal(t, "err.authorRequired", verr.For("author"))
	assert.Equal(t, "err.dateInvalid", verr.For("date"))
	assert.Equal(t, "err.statusInvalid", verr.For("status"))
	assert.Equal(t, "err.titleRequired", verr.MessageKey())

	// A renamed file that is not really a PDF is caught by sniffing.
	_, err = f.editor.Validate(Form{TitleEN: "T", Author: "A"}, &Attachment{Filename: "fake.pdf", Data: []byte("hello")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "err.pdfOnly", verr.For("pdf"))

	_, err = f.editor.Validate(Form{TitleEN: "T", Author: "A"}, &Attachment{Filename: "empty.pdf"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "err.pdfEmpty", verr.For("pdf"))

	big := &Attachment{Filename: "big.pdf", Data: append(append([]byte{}, samplePDF...), make([]byte, 2<<20)...)}
	_, err = f.editor.Validate(Form{TitleEN: "T", Author: "A"}, big)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "err.pdfTooLarge", verr.For("pdf"))

	_, err = f.editor.Validate(Form{TitleEN: "T", Author: "A", DocumentURL: "javascript:alert(1)"}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "err.pdfOnly", verr.For("document_url"))
}

func TestSubmit_UploadFailureCreatesNothing(t *testing.T) {
	f := newFixture(t, nil, failingBlobs{blob.NewMemoryStore("/files")})
	ctx := context.Background()

	_, err := f.editor.Submit(ctx, "", Form{TitleEN: "T", Author: "A"}, pdf("a.pdf"))

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "err.upload", uerr.MessageKey())
	assert.Empty(t, f.recs.List(ctx))
}

func TestSubmit_RecordFailureDiscardsUpload(t *testing.T) {
	mem := blob.NewMemoryStore("/files")
	f := newFixture(t, refusingTable{store.NewMemoryTable()}, mem)
	ctx := context.Background()

	_, err := f.editor.Submit(ctx, "", Form{TitleEN: "T", Author: "A"}, pdf("a.pdf"))

	var rwe *records.RemoteWriteError
	require.ErrorAs(t, err, &rwe)
	paths, _ := mem.List(ctx, blob.DefaultBucket)
	assert.Empty(t, paths, "orphaned upload is removed")
}

func TestSubmit_UpdateReplacesDocumentAndPublishes(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	draft, err := f.editor.Submit(ctx, "", Form{TitleEN: "Draft", Author: "A", Status: "pending"}, pdf("v1.pdf"))
	require.NoError(t, err)

	form := FormFromArticle(draft)
	assert.Equal(t, "pending", form.Status)
	form.Status = "published"
	form.TitleFR = "Brouillon"

	f.editor.now = func() time.Time { return time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC) }
	updated, err := f.editor.Submit(ctx, draft.ID, form, pdf("v2.pdf"))
	require.NoError(t, err)

	assert.Equal(t, draft.ID, updated.ID)
	assert.Equal(t, model.StatusPublished, updated.Status)
	assert.Equal(t, "Brouillon", updated.Title.FR)
	assert.NotEqual(t, draft.PDFPath, updated.PDFPath)

	_, err = f.blobs.Get(ctx, blob.DefaultBucket, draft.PDFPath)
	assert.ErrorIs(t, err, blob.ErrNotFound, "replaced document is removed")
}

func TestSubmit_UpdateKeepsDocumentWithoutNewUpload(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	a, err := f.editor.Submit(ctx, "", Form{TitleEN: "T", Author: "A"}, pdf("v1.pdf"))
	require.NoError(t, err)

	form := FormFromArticle(a)
	form.Author = "B"
	updated, err := f.editor.Submit(ctx, a.ID, form, nil)
	require.NoError(t, err)
	assert.Equal(t, a.PDFPath, updated.PDFPath)
	assert.Equal(t, "B", updated.Author)

	form.RemoveDocument = true
	updated, err = f.editor.Submit(ctx, a.ID, form, nil)
	require.NoError(t, err)
	assert.False(t, updated.HasDocument())
}

func TestSubmit_UpdateMissingArticle(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, err := f.editor.Submit(context.Background(), "missing", Form{TitleEN: "T", Author: "A"}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
