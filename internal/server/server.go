package web

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"revue/internal/auth"
	"revue/internal/blob"
	"revue/internal/editor"
	"revue/internal/i18n"
	"revue/internal/metrics"
	"revue/internal/preview"
	"revue/internal/profile"
	"revue/internal/records"
	"revue/internal/suggest"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Suggester prefills editor fields from a source page.
type Suggester interface {
	Suggest(ctx context.Context, url string) (suggest.Suggestion, error)
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Records   *records.Store
	Editor    *editor.Editor
	Guard     *auth.Guard
	Preview   *preview.Renderer
	Suggester Suggester
	Metrics   *metrics.Metrics
	Resolver  *i18n.Resolver

	// Blobs is served under /files/ when ServeFiles is set, which is the
	// case for backends without a public endpoint of their own.
	Blobs      blob.Store
	Bucket     string
	ServeFiles bool

	DefaultLanguage i18n.Language
	SubmissionEmail string
	MaxUploadBytes  int64
	SecureCookies   bool

	// Profile is shown on the editorial board page; nil means the built-in
	// profile.
	Profile *profile.Profile

	// Ping reports whether the backing services are reachable.
	Ping func(ctx context.Context) error
}

type Server struct {
	deps   Deps
	logger *zap.Logger
	router *mux.Router
	pages  *pages
	server *http.Server
}

func NewServer(deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Resolver == nil {
		deps.Resolver = i18n.NewResolver()
	}
	if deps.DefaultLanguage == "" {
		deps.DefaultLanguage = i18n.Default
	}
	if deps.Bucket == "" {
		deps.Bucket = blob.DefaultBucket
	}
	if deps.Profile == nil {
		p := profile.Default()
		deps.Profile = &p
	}

	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		deps:   deps,
		logger: logger.With(zap.String("component", "web")),
		router: mux.NewRouter(),
		pages:  p,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	static, _ := fs.Sub(assets, "static")
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	s.router.Handle("/metrics", s.deps.Metrics.Handler()).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	s.router.Use(s.recoverer, s.observe, s.language)

	// Public
	s.router.HandleFunc("/", s.handleHome).Methods("GET")
	s.router.HandleFunc("/articles", s.handleArticles).Methods("GET")
	s.router.HandleFunc("/articles/{id}", s.handleArticle).Methods("GET")
	s.router.HandleFunc("/articles/{id}/view", s.handleViewer).Methods("GET")
	s.router.HandleFunc("/articles/{id}/preview", s.handlePreview).Methods("GET")
	s.router.HandleFunc("/articles/{id}/document", s.handleDocument).Methods("GET")
	s.router.HandleFunc("/articles/{id}/download", s.handleDownload).Methods("GET")
	s.router.HandleFunc("/profile", s.handleProfile).Methods("GET")
	s.router.HandleFunc("/lang/{lang}", s.handleLanguage).Methods("GET")
	s.router.HandleFunc("/submit", s.handleSubmitForm).Methods("GET")
	s.router.HandleFunc("/submit", s.handleSubmit).Methods("POST")
	if s.deps.ServeFiles {
		s.router.PathPrefix("/files/").HandlerFunc(s.handleFile).Methods("GET")
	}

	// Admin
	s.router.HandleFunc("/admin", s.handleAdmin).Methods("GET")
	s.router.HandleFunc("/admin/login", s.handleLoginForm).Methods("GET")
	s.router.HandleFunc("/admin/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/admin/logout", s.handleLogout).Methods("POST")

	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/articles/new", s.handleNewArticle).Methods("GET")
	admin.HandleFunc("/articles", s.handleCreateArticle).Methods("POST")
	admin.HandleFunc("/articles/{id}/edit", s.handleEditArticle).Methods("GET")
	admin.HandleFunc("/articles/{id}", s.handleUpdateArticle).Methods("POST")
	admin.HandleFunc("/articles/{id}/delete", s.handleDeleteArticle).Methods("GET", "POST")
	admin.HandleFunc("/suggest", s.handleSuggest).Methods("POST")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
