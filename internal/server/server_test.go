package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"revue/internal/auth"
	"revue/internal/blob"
	"revue/internal/editor"
	"revue/internal/i18n"
	"revue/internal/metrics"
	"revue/internal/model"
	"revue/internal/preview"
	"revue/internal/records"
	"revue/internal/store"
	"revue/internal/suggest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "editor@revue.test"
	adminPassword = "s3cret"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// MockSuggester returns a canned suggestion or fails.
type MockSuggester struct {
	ShouldFail bool
}

func (m *MockSuggester) Suggest(ctx context.Context, url string) (suggest.Suggestion, error) {
	if m.ShouldFail {
		return suggest.Suggestion{}, errors.New("simulated network error")
	}
	return suggest.Suggestion{Title: "Suggested Title", Excerpt: "Suggested abstract."}, nil
}

type testEnv struct {
	handler http.Handler
	table   *store.MemoryTable
	blobs   *blob.MemoryStore
	pingErr error
}

func seed() []model.Article {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.Article{
		{ID: "pub-1", Title: model.Localized{EN: "Finance Law 2024", FR: "Droit Financier 2024"}, Author: "J. Doe", Date: "2024-01-15", Status: model.StatusPublished, Category: "Law", PDFPath: "1705276800000-finance.pdf", CreatedAt: created},
		{ID: "pub-2", Title: model.Localized{EN: "Urban Sociology"}, Author: "M. Ndiaye", Date: "2024-02-03", Status: model.StatusPublished, CreatedAt: created},
		{ID: "pend-1", Title: model.Localized{EN: "Secret Draft"}, Author: "X", Date: "2024-03-01", Status: model.StatusPending, CreatedAt: created},
		{ID: "inline-1", Title: model.Localized{EN: "Inline Paper"}, Author: "Y", Date: "2023-12-01", Status: model.StatusPublished, PDFURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(samplePDF), CreatedAt: created},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := auth.NewPasswordAuthenticator(adminEmail, string(hash))
	require.NoError(t, err)
	guard := auth.NewGuard(authn, auth.NewSessions(rdb, time.Hour), []byte("test-secret-test-secret-test-secret"), time.Hour, logger)

	env := &testEnv{
		table: store.NewMemoryTable(seed()...),
		blobs: blob.NewMemoryStore("/files"),
	}
	_, err = env.blobs.Upload(context.Background(), blob.DefaultBucket, "1705276800000-finance.pdf", []byte("not really a pdf"), "application/pdf")
	require.NoError(t, err)

	m := metrics.New()
	recs := records.New(env.table, env.blobs, blob.DefaultBucket, logger, records.WithMetrics(m))
	srv, err := NewServer(Deps{
		Records:         recs,
		Editor:          editor.New(recs, env.blobs, blob.DefaultBucket, 1<<20, logger),
		Guard:           guard,
		Preview:         preview.NewRenderer(env.blobs, blob.DefaultBucket, 1<<20, m, logger),
		Suggester:       &MockSuggester{},
		Metrics:         m,
		Resolver:        i18n.NewResolver(),
		Blobs:           env.blobs,
		Bucket:          blob.DefaultBucket,
		ServeFiles:      true,
		DefaultLanguage: i18n.EN,
		SubmissionEmail: "submissions@revue.test",
		MaxUploadBytes:  1 << 20,
		Ping:            func(ctx context.Context) error { return env.pingErr },
	}, logger)
	require.NoError(t, err)
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (e *testEnv) postForm(path string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req, cookies...)
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.postForm("/admin/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	c := cookieNamed(rec, sessionCookie)
	require.NotNil(t, c)
	return c
}

func multipartArticle(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("pdf", filename)
		require.NoError(t, err)
		fw.Write(data)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHome_ShowsLatestPublished(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Urban Sociology")
	assert.Contains(t, body, "Finance Law 2024")
	assert.NotContains(t, body, "Secret Draft")
}

func TestArticles_FiltersAndLanguage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/articles?q=finance")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Finance Law 2024")
	assert.NotContains(t, rec.Body.String(), "Urban Sociology")

	rec = env.get("/articles?q=secret")
	assert.Contains(t, rec.Body.String(), "No articles found matching your criteria.")

	rec = env.get("/articles", &http.Cookie{Name: i18n.CookieName, Value: "fr"})
	assert.Contains(t, rec.Body.String(), "Droit Financier 2024")
	assert.Contains(t, rec.Body.String(), "Archives de la Revue")
	assert.Contains(t, rec.Body.String(), "15 janvier 2024")

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Accept-Language", "fr-CA,fr;q=0.9")
	rec = env.do(req)
	assert.Contains(t, rec.Body.String(), "Archives de la Revue")
}

func TestLanguageSwitch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/lang/fr?next=/articles%3Fq%3Dlaw")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/articles?q=law", rec.Header().Get("Location"))
	c := cookieNamed(rec, i18n.CookieName)
	require.NotNil(t, c)
	assert.Equal(t, "fr", c.Value)

	rec = env.get("/lang/en?next=//evil.example")
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.get("/lang/de")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArticle_UnpublishedHiddenFromVisitors(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.get("/articles/pend-1").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/articles/missing").Code)

	rec := env.get("/articles/pub-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/articles/pub-1/preview")

	session := env.login(t)
	assert.Equal(t, http.StatusOK, env.get("/articles/pend-1", session).Code)
}

func TestPreview_Placeholders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/articles/pub-1/preview")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Preview unavailable")

	rec = env.get("/articles/pub-2/preview", &http.Cookie{Name: i18n.CookieName, Value: "fr"})
	assert.Contains(t, rec.Body.String(), "Aucun document joint")
}

func TestPreview_FirstPageOfRealDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := os.ReadFile("../preview/testdata/three-pages.pdf")
	require.NoError(t, err)
	_, err = env.blobs.Upload(ctx, blob.DefaultBucket, "1705276800001-three.pdf", doc, "application/pdf")
	require.NoError(t, err)
	_, err = env.table.InsertArticle(ctx, model.Article{
		ID: "real-1", Title: model.Localized{EN: "Three Pages"}, Author: "Z", Date: "2024-04-01",
		Status: model.StatusPublished, PDFPath: "1705276800001-three.pdf",
	})
	require.NoError(t, err)

	rec := env.get("/articles/real-1/preview")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "3", rec.Header().Get("X-Page-Count"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestArticles_CardsCarryPreviewViewerAndDownload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/articles")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `src="/articles/pub-1/preview#toolbar=0"`)
	assert.Contains(t, body, `href="/articles/pub-1/view"`)
	assert.Contains(t, body, `href="/articles/pub-1/download"`)

	// Without a document there is nothing to preview, view or download.
	assert.NotContains(t, body, "/articles/pub-2/preview")
	assert.NotContains(t, body, "/articles/pub-2/view")
	assert.NotContains(t, body, "/articles/pub-2/download")
	assert.Contains(t, body, `href="/articles/pub-2"`)
}

func TestViewerAndDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/articles/pub-1/view")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `src="/articles/pub-1/document"`)
	assert.Contains(t, rec.Body.String(), `href="/articles/pub-1"`)

	assert.Equal(t, http.StatusNotFound, env.get("/articles/pub-2/view").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/articles/pend-1/view").Code)

	rec = env.get("/articles/pub-1/document")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "not really a pdf", rec.Body.String())

	rec = env.get("/articles/inline-1/document")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, samplePDF, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, env.get("/articles/pub-2/document").Code)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/profile")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Dr. Eleanor Sterling, PhD")
	assert.Contains(t, body, "Editor-in-Chief | RASS")
	assert.Contains(t, body, "Areas of Expertise")
	assert.Contains(t, body, "mailto:submissions@revue.test")

	rec = env.get("/profile", &http.Cookie{Name: i18n.CookieName, Value: "fr"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rédactrice en Chef | RASS")
	assert.Contains(t, rec.Body.String(), "Titres et Certifications")
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/articles/pub-1/download")
	require.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Equal(t, "/files/article-pdfs/1705276800000-finance.pdf", loc)

	rec = env.get(loc)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not really a pdf", rec.Body.String())

	rec = env.get("/articles/inline-1/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, samplePDF, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, env.get("/articles/pub-2/download").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/files/other-bucket/x.pdf").Code)
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/submit", url.Values{"name": {"A. Mbarga"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in your name and the paper title.")

	rec = env.postForm("/submit", url.Values{"name": {"A. Mbarga"}, "contact": {"a@uni.cm"}, "title": {"Land & Law"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "mailto:submissions@revue.test?subject=Submission%3A%20Land%20%26%20Law&body="), loc)
}

func TestMailtoURL(t *testing.T) {
	u := MailtoURL("r@x.org", "Jo", "jo@x.org", "A+B")

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "mailto", parsed.Scheme)
	q := parsed.Query()
	assert.Equal(t, "Submission: A+B", q.Get("subject"))
	assert.Contains(t, q.Get("body"), "Author Name: Jo\nContact: jo@x.org\nArticle Title: A+B")
}

func TestAdmin_LoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access Code")

	rec = env.postForm("/admin/login", url.Values{"email": {adminEmail}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect password")
	assert.Nil(t, cookieNamed(rec, sessionCookie))

	session := env.login(t)
	assert.True(t, session.HttpOnly)

	rec = env.get("/admin", session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Editorial Dashboard")
	assert.Contains(t, body, "Secret Draft", "admins see every status")

	rec = env.postForm("/admin/logout", nil, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.get("/admin", session)
	assert.Contains(t, rec.Body.String(), "Access Code", "revoked session falls back to the login form")
}

func TestAdmin_RoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/admin/articles/new")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = env.get("/admin/articles/new", &http.Cookie{Name: sessionCookie, Value: "forged"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = env.postForm("/admin/articles/pub-1/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err := env.table.GetArticle(context.Background(), "pub-1")
	assert.NoError(t, err)
}

func TestAdmin_CreateArticle(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t)

	rec := env.get("/admin/articles/new", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="published" selected`)

	body, ct := multipartArticle(t, map[string]string{
		"title_en": "Water Rights in the Sahel",
		"author":   "F. Diallo",
		"date":     "2024-05-01",
		"status":   "pending",
		"category": "Law",
	}, "water.pdf", samplePDF)
	req := httptest.NewRequest(http.MethodPost, "/admin/articles", body)
	req.Header.Set("Content-Type", ct)
	rec = env.do(req, session)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.NotNil(t, cookieNamed(rec, flashCookie))

	all, err := env.table.ListArticles(context.Background(), store.Filter{Status: model.StatusPending})
	require.NoError(t, err)
	var created *model.Article
	for i := range all {
		if all[i].Title.EN == "Water Rights in the Sahel" {
			created = &all[i]
		}
	}
	require.NotNil(t, created)
	assert.True(t, strings.HasSuffix(created.PDFPath, "-water.pdf"))

	stored, err := env.blobs.Get(context.Background(), blob.DefaultBucket, created.PDFPath)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, stored)

	// Pending articles stay off the public catalog.
	assert.NotContains(t, env.get("/articles").Body.String(), "Water Rights")
}

func TestAdmin_CreateArticleValidation(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t)

	body, ct := multipartArticle(t, map[string]string{"author": "F. Diallo"}, "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/admin/articles", body)
	req.Header.Set("Content-Type", ct)
	rec := env.do(req, session)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "An English title is required.")
	assert.Contains(t, rec.Body.String(), "Only PDF documents can be attached.")
	assert.Contains(t, rec.Body.String(), `value="F. Diallo"`, "entered values are kept")

	objects, err := env.blobs.List(context.Background(), blob.DefaultBucket)
	require.NoError(t, err)
	assert.Len(t, objects, 1, "nothing is uploaded for an invalid form")
}

func TestAdmin_UpdateArticle(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t)

	rec := env.get("/admin/articles/pend-1/edit", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Secret Draft"`)

	rec = env.postForm("/admin/articles/pend-1", url.Values{
		"title_en": {"Secret Draft"},
		"author":   {"X"},
		"date":     {"2024-03-01"},
		"status":   {"published"},
	}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	assert.Contains(t, env.get("/articles").Body.String(), "Secret Draft")

	rec = env.postForm("/admin/articles/missing", url.Values{"title_en": {"T"}, "author": {"A"}}, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_DeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t)

	rec := env.get("/admin/articles/pub-1/delete", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete this document permanently?")

	rec = env.postForm("/admin/articles/pub-1/delete", nil, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := env.table.GetArticle(context.Background(), "pub-1")
	require.NoError(t, err, "unconfirmed delete keeps the article")

	rec = env.postForm("/admin/articles/pub-1/delete", url.Values{"confirm": {"yes"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = env.table.GetArticle(context.Background(), "pub-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.blobs.Get(context.Background(), blob.DefaultBucket, "1705276800000-finance.pdf")
	assert.ErrorIs(t, err, blob.ErrNotFound, "the stored document goes with the article")
}

func TestAdmin_Suggest(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t)

	rec := env.postForm("/admin/suggest", url.Values{"source_url": {"https://example.org/paper"}, "author": {"F. Diallo"}}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Suggested Title"`)
	assert.Contains(t, body, "Suggested abstract.")
	assert.Contains(t, body, `value="F. Diallo"`)
}

func TestFlash_ShownOnce(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t)

	rec := env.postForm("/admin/articles/pub-2/delete", url.Values{"confirm": {"yes"}}, session)
	flashC := cookieNamed(rec, flashCookie)
	require.NotNil(t, flashC)

	rec = env.get("/admin", session, flashC)
	assert.Contains(t, rec.Body.String(), "Document deleted.")
	cleared := cookieNamed(rec, flashCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	env.pingErr = errors.New("redis down")
	assert.Equal(t, http.StatusServiceUnavailable, env.get("/healthz").Code)

	env.get("/articles")
	rec = env.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `revue_http_requests_total{code="200",route="/articles"}`)
}
