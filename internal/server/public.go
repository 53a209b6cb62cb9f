package web

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"revue/internal/blob"
	"revue/internal/catalog"
	"revue/internal/i18n"
	"revue/internal/model"
	"revue/internal/preview"
	"revue/internal/store"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const latestCount = 3

type homePage struct {
	Cards []catalog.Card
}

type articlePage struct {
	Card    catalog.Card
	Article model.Article
}

type submitPage struct {
	Recipient string
	Name      string
	Contact   string
	Topic     string
	Error     string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	articles := s.deps.Records.List(r.Context())
	data := homePage{Cards: catalog.Latest(articles, latestCount, langFrom(r))}
	s.render(w, http.StatusOK, "home.html", s.newView(w, r, "navHome", data))
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Month:    q.Get("month"),
		Lang:     langFrom(r),
	}
	page := catalog.Build(s.deps.Records.List(r.Context()), query, s.deps.Resolver)
	s.render(w, http.StatusOK, "articles.html", s.newView(w, r, "journalArchives", page))
}

// visibleArticle loads the article named in the route. Unpublished articles
// are only visible to a signed-in admin.
func (s *Server) visibleArticle(r *http.Request) (model.Article, error) {
	a, err := s.deps.Records.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return model.Article{}, err
	}
	if !a.Status.Public() {
		if _, ok := s.session(r); !ok {
			return model.Article{}, store.ErrNotFound
		}
	}
	return a, nil
}

func (s *Server) lookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "err.notFound")
		return
	}
	s.logger.Error("Failed to load article", zap.String("id", mux.Vars(r)["id"]), zap.Error(err))
	s.renderError(w, r, http.StatusInternalServerError, "err.internal")
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	a, err := s.visibleArticle(r)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	data := articlePage{Card: catalog.NewCard(&a, langFrom(r)), Article: a}
	v := s.newView(w, r, "read", data)
	v.Title = data.Card.Title
	s.render(w, http.StatusOK, "article.html", v)
}

// handlePreview serves page one of the document as a standalone PDF, or a
// placeholder image when the document cannot be previewed.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	a, err := s.visibleArticle(r)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	ref, ok := preview.RefFor(a)
	if !ok {
		s.placeholder(w, r, "noDocument")
		return
	}

	res := s.deps.Preview.Render(r.Context(), ref, nil)
	if res.Discarded {
		return
	}
	if res.State != preview.Ready {
		s.placeholder(w, r, "previewUnavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Page-Count", strconv.Itoa(res.Pages))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(res.FirstPage)
}

func (s *Server) placeholder(w http.ResponseWriter, r *http.Request, key string) {
	var buf bytes.Buffer
	data := struct{ Message string }{Message: s.deps.Resolver.T(langFrom(r), key)}
	if err := s.pages.placeholder.ExecuteTemplate(&buf, "placeholder.svg", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// handleViewer shows the whole document full-screen.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	a, err := s.visibleArticle(r)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	if !a.HasDocument() {
		s.renderError(w, r, http.StatusNotFound, "noDocument")
		return
	}
	card := catalog.NewCard(&a, langFrom(r))
	v := s.newView(w, r, "read", card)
	v.Title = card.Title
	s.render(w, http.StatusOK, "viewer.html", v)
}

// handleDocument streams the complete document inline for the viewer.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	a, err := s.visibleArticle(r)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	ref, ok := preview.RefFor(a)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "noDocument")
		return
	}
	data, err := s.deps.Preview.Document(r.Context(), ref)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		if errors.Is(err, blob.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "noDocument")
			return
		}
		s.logger.Warn("Failed to load document", zap.String("id", a.ID), zap.Error(err))
		s.renderError(w, r, http.StatusBadGateway, "previewUnavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	d := s.deps.Profile.In(langFrom(r))
	if d.Contact == "" {
		d.Contact = s.deps.SubmissionEmail
	}
	s.render(w, http.StatusOK, "profile.html", s.newView(w, r, "navProfile", d))
}

// handleDownload sends the visitor to the document itself.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	a, err := s.visibleArticle(r)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	ref, ok := preview.RefFor(a)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "noDocument")
		return
	}

	if strings.HasPrefix(ref.URL, "data:") {
		data, err := s.deps.Preview.Document(r.Context(), ref)
		if err != nil {
			s.logger.Warn("Bad inline document", zap.String("id", a.ID), zap.Error(err))
			s.renderError(w, r, http.StatusNotFound, "noDocument")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+a.ID+`.pdf"`)
		w.Write(data)
		return
	}

	target, err := s.deps.Preview.URL(r.Context(), ref)
	if err != nil {
		s.logger.Error("Failed to resolve document URL", zap.String("id", a.ID), zap.Error(err))
		s.renderError(w, r, http.StatusBadGateway, "err.internal")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleFile serves stored documents for backends without public URLs.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/files/"), "/")
	if !ok || bucket != s.deps.Bucket || key == "" {
		http.NotFound(w, r)
		return
	}
	data, err := s.deps.Blobs.Get(r.Context(), bucket, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("Failed to read document", zap.String("path", key), zap.Error(err))
		http.Error(w, "Storage error", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(data))
}

// handleLanguage stores the visitor's choice and returns them to where they
// were.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	lang, ok := i18n.ParseLanguage(mux.Vars(r)["lang"])
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "err.notFound")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     i18n.CookieName,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, backTarget(r), http.StatusSeeOther)
}

// backTarget picks a same-site path to return to: the next parameter, then
// the referer, then the home page.
func backTarget(r *http.Request) string {
	if next := r.URL.Query().Get("next"); localPath(next) {
		return next
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host && localPath(ref.Path) {
		return ref.RequestURI()
	}
	return "/"
}

func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	data := submitPage{Recipient: s.deps.SubmissionEmail}
	s.render(w, http.StatusOK, "submit.html", s.newView(w, r, "navSubmit", data))
}

// handleSubmit hands the submission over to the visitor's mail client.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	data := submitPage{
		Recipient: s.deps.SubmissionEmail,
		Name:      strings.TrimSpace(r.FormValue("name")),
		Contact:   strings.TrimSpace(r.FormValue("contact")),
		Topic:     strings.TrimSpace(r.FormValue("title")),
	}
	if data.Name == "" || data.Topic == "" {
		data.Error = "submitMissing"
		s.render(w, http.StatusUnprocessableEntity, "submit.html", s.newView(w, r, "navSubmit", data))
		return
	}
	if data.Recipient == "" {
		s.renderError(w, r, http.StatusServiceUnavailable, "err.internal")
		return
	}
	http.Redirect(w, r, MailtoURL(data.Recipient, data.Name, data.Contact, data.Topic), http.StatusSeeOther)
}

// MailtoURL builds the submission e-mail link.
func MailtoURL(recipient, name, contact, title string) string {
	body := "Author Name: " + name + "\n" +
		"Contact: " + contact + "\n" +
		"Article Title: " + title + "\n\n" +
		"[IMPORTANT: I have attached the Word document to this email.]"
	return "mailto:" + recipient +
		"?subject=" + mailtoEscape("Submission: "+title) +
		"&body=" + mailtoEscape(body)
}

// mailtoEscape percent-encodes for RFC 6068, where "+" is not a space.
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
