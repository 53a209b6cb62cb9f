package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"revue/internal/auth"
	"revue/internal/editor"
	"revue/internal/model"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the text fields next to the document.
const multipartOverhead = 1 << 20

type loginPage struct {
	Email string
	Error string
}

type dashboardPage struct {
	Email     string
	Published int
	Pending   int
	Total     int
	Articles  []model.Article
}

type editorPage struct {
	ID          string
	Form        editor.Form
	Statuses    []model.ArticleStatus
	Errors      map[string]string
	Error       string
	SourceURL   string
	HasDocument bool
	DocumentURL string
}

// Action is the form target for this page.
func (p editorPage) Action() string {
	if p.ID == "" {
		return "/admin/articles"
	}
	return "/admin/articles/" + p.ID
}

// handleAdmin shows the dashboard to a signed-in admin and the login form to
// everybody else.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r)
	if !ok {
		s.render(w, http.StatusOK, "login.html", s.newView(w, r, "navAdmin", loginPage{}))
		return
	}
	r = r.WithContext(withSession(r.Context(), sess))

	articles := s.deps.Records.List(r.Context())
	data := dashboardPage{Email: sess.Email, Total: len(articles), Articles: articles}
	for _, a := range articles {
		switch a.Status {
		case model.StatusPublished:
			data.Published++
		case model.StatusPending:
			data.Pending++
		}
	}
	s.render(w, http.StatusOK, "dashboard.html", s.newView(w, r, "adminDashboard", data))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		s.render(w, http.StatusUnauthorized, "login.html",
			s.newView(w, r, "navAdmin", loginPage{Email: email, Error: "invalidCreds"}))
		return
	}

	token, sess, err := s.deps.Guard.Login(r.Context(), email, password)
	s.deps.Metrics.Login(err == nil)
	if err != nil {
		key := "err.internal"
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrInvalidCredentials) {
			key, status = "incorrectPass", http.StatusUnauthorized
		}
		s.render(w, status, "login.html", s.newView(w, r, "navAdmin", loginPage{Email: email, Error: key}))
		return
	}

	s.setSessionCookie(w, token)
	if err := s.deps.Records.Refresh(r.Context()); err != nil {
		s.logger.Warn("Failed to fetch articles after login", zap.String("email", sess.Email), zap.Error(err))
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.deps.Guard.Logout(r.Context(), c.Value); err != nil {
			s.logger.Warn("Logout failed", zap.Error(err))
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) newEditorPage(id string, form editor.Form) editorPage {
	return editorPage{
		ID:       id,
		Form:     form,
		Statuses: model.Statuses,
		Errors:   map[string]string{},
	}
}

func (s *Server) handleNewArticle(w http.ResponseWriter, r *http.Request) {
	page := s.newEditorPage("", s.deps.Editor.Today())
	s.render(w, http.StatusOK, "editor.html", s.newView(w, r, "uploadNew", page))
}

func (s *Server) handleEditArticle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := s.deps.Records.Get(r.Context(), id)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	page := s.newEditorPage(id, editor.FormFromArticle(a))
	page.HasDocument = a.HasDocument()
	page.DocumentURL = "/articles/" + id + "/download"
	s.render(w, http.StatusOK, "editor.html", s.newView(w, r, "editDocument", page))
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	s.submitArticle(w, r, "")
}

func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	s.submitArticle(w, r, mux.Vars(r)["id"])
}

// submitArticle runs the editor and redirects to the dashboard on success.
// On failure the form is shown again with what the admin entered.
func (s *Server) submitArticle(w http.ResponseWriter, r *http.Request, id string) {
	form, att, err := s.readArticleForm(w, r)
	if err != nil {
		s.logger.Warn("Unreadable article form", zap.Error(err))
		page := s.newEditorPage(id, form)
		page.Error = "err.pdfTooLarge"
		s.render(w, http.StatusRequestEntityTooLarge, "editor.html", s.newView(w, r, titleFor(id), page))
		return
	}

	saved, err := s.deps.Editor.Submit(r.Context(), id, form, att)
	if err != nil {
		page := s.newEditorPage(id, form)
		var verr *editor.ValidationError
		if errors.As(err, &verr) {
			lang := langFrom(r)
			for _, f := range verr.Fields {
				page.Errors[f.Field] = s.deps.Resolver.T(lang, f.Key)
			}
		} else {
			page.Error = messageKey(err)
			s.logger.Error("Failed to save article", zap.String("id", id), zap.Error(err))
		}
		s.render(w, statusFor(err), "editor.html", s.newView(w, r, titleFor(id), page))
		return
	}

	s.logger.Info("Article submitted", zap.String("id", saved.ID))
	setFlash(w, "success", "uploadSuccessMsg")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func titleFor(id string) string {
	if id == "" {
		return "uploadNew"
	}
	return "editDocument"
}

// readArticleForm parses the editor form and the optional PDF.
func (s *Server) readArticleForm(w http.ResponseWriter, r *http.Request) (editor.Form, *editor.Attachment, error) {
	if s.deps.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return formFromValues(r), nil, err
	}
	form := formFromValues(r)

	file, header, err := r.FormFile("pdf")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return form, nil, nil
		}
		return form, nil, err
	}
	defer file.Close()
	if header.Filename == "" {
		return form, nil, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return form, nil, err
	}
	return form, &editor.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formFromValues(r *http.Request) editor.Form {
	return editor.Form{
		TitleEN:        r.FormValue("title_en"),
		TitleFR:        r.FormValue("title_fr"),
		ExcerptEN:      r.FormValue("excerpt_en"),
		ExcerptFR:      r.FormValue("excerpt_fr"),
		Author:         r.FormValue("author"),
		Date:           r.FormValue("date"),
		Status:         r.FormValue("status"),
		Category:       r.FormValue("category"),
		Edition:        r.FormValue("edition"),
		DocumentURL:    r.FormValue("document_url"),
		RemoveDocument: r.FormValue("remove_document") == "yes",
	}
}

// handleDeleteArticle asks for confirmation on GET and deletes on a
// confirmed POST.
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := s.deps.Records.Get(r.Context(), id)
	if err != nil {
		s.lookupFailed(w, r, err)
		return
	}
	if r.Method != http.MethodPost || r.FormValue("confirm") != "yes" {
		s.render(w, http.StatusOK, "confirm_delete.html", s.newView(w, r, "confirmDelete", a))
		return
	}

	if err := s.deps.Records.Delete(r.Context(), id); err != nil {
		s.logger.Error("Failed to delete article", zap.String("id", id), zap.Error(err))
		setFlash(w, "error", messageKey(err))
	} else {
		setFlash(w, "success", "deleteSuccessMsg")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleSuggest fills the English title and abstract from a source page and
// shows the form again for review.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	form := formFromValues(r)
	page := s.newEditorPage(id, form)
	page.SourceURL = strings.TrimSpace(r.FormValue("source_url"))

	if s.deps.Suggester == nil {
		page.Error = "suggestFailed"
		s.render(w, http.StatusServiceUnavailable, "editor.html", s.newView(w, r, titleFor(id), page))
		return
	}
	sug, err := s.deps.Suggester.Suggest(r.Context(), page.SourceURL)
	if err != nil {
		s.logger.Warn("Suggestion failed", zap.String("url", page.SourceURL), zap.Error(err))
		page.Error = "suggestFailed"
		s.render(w, http.StatusUnprocessableEntity, "editor.html", s.newView(w, r, titleFor(id), page))
		return
	}
	if sug.Title != "" {
		page.Form.TitleEN = sug.Title
	}
	if sug.Excerpt != "" {
		page.Form.ExcerptEN = sug.Excerpt
	}
	s.render(w, http.StatusOK, "editor.html", s.newView(w, r, titleFor(id), page))
}
