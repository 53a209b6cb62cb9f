package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"revue/internal/auth"
	"revue/internal/i18n"
	"revue/internal/model"
	"revue/internal/store"

	"go.uber.org/zap"
)

//go:embed templates static
var assets embed.FS

var pageNames = []string{
	"home.html",
	"articles.html",
	"article.html",
	"viewer.html",
	"profile.html",
	"submit.html",
	"login.html",
	"dashboard.html",
	"editor.html",
	"confirm_delete.html",
	"error.html",
}

type pages struct {
	byName      map[string]*template.Template
	placeholder *template.Template
}

// loadPages parses each page together with the shared layout.
func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout").ParseFS(assets, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		p.byName[name] = tmpl
	}
	ph, err := template.New("placeholder.svg").ParseFS(assets, "templates/placeholder.svg")
	if err != nil {
		return nil, err
	}
	p.placeholder = ph
	return p, nil
}

// view is what every page template receives.
type view struct {
	Lang  i18n.Language
	Other i18n.Language
	Title string
	Path  string
	Admin bool
	Flash *flash
	Data  any

	resolver *i18n.Resolver
}

func (v view) T(key string) string { return v.resolver.T(v.Lang, key) }

func (v view) Tf(key string, args ...any) string { return v.resolver.Tf(v.Lang, key, args...) }

func (v view) Date(date string) string { return i18n.FormatDate(v.Lang, date) }

func (v view) Status(s model.ArticleStatus) string { return v.T("status." + string(s)) }

func (v view) FlashText() string {
	if v.Flash == nil || !v.resolver.Has(v.Flash.Key) {
		return ""
	}
	return v.T(v.Flash.Key)
}

func (s *Server) newView(w http.ResponseWriter, r *http.Request, titleKey string, data any) view {
	lang := langFrom(r)
	_, admin := r.Context().Value(sessionKey).(auth.Session)
	return view{
		Lang:     lang,
		Other:    lang.Other(),
		Title:    s.deps.Resolver.T(lang, titleKey),
		Path:     r.URL.RequestURI(),
		Admin:    admin,
		Flash:    getFlash(w, r),
		Data:     data,
		resolver: s.deps.Resolver,
	}
}

// render executes page into a buffer first so a template error never leaves
// a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, page string, v view) {
	tmpl, ok := s.pages.byName[page]
	if !ok {
		s.logger.Error("Unknown page", zap.String("page", page))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		s.logger.Error("Template error", zap.String("page", page), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows a localized error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, key string) {
	s.render(w, status, "error.html", s.newView(w, r, key, key))
}

// messageKey maps an error to the message shown to the visitor.
func messageKey(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return "err.notFound"
	}
	var keyed interface{ MessageKey() string }
	if errors.As(err, &keyed) {
		return keyed.MessageKey()
	}
	return "err.internal"
}

// statusFor maps an error from the editor or record store to a status code.
func statusFor(err error) int {
	var keyed interface{ MessageKey() string }
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &keyed) && keyed.MessageKey() != "err.upload" && keyed.MessageKey() != "err.remoteWrite":
		return http.StatusUnprocessableEntity
	case errors.As(err, &keyed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
