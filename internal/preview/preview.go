// Package preview turns a document reference into a first-page preview.
package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revue/internal/blob"
	"revue/internal/metrics"
	"revue/internal/model"

	"go.uber.org/zap"
)

type State int

const (
	Resolving State = iota
	Loading
	Ready
	Unavailable
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unavailable"
	}
}

var (
	ErrNoDocument = errors.New("article has no document")
	ErrNotPDF     = errors.New("document is not a PDF")
)

// Ref points at a document: either a directly usable URL (http, https or
// data:) or a path in the object store.
type Ref struct {
	URL  string
	Path string
}

// RefFor returns the document reference of a. The stored path wins over a
// direct URL.
func RefFor(a model.Article) (Ref, bool) {
	switch {
	case a.PDFPath != "":
		return Ref{Path: a.PDFPath}, true
	case a.PDFURL != "":
		return Ref{URL: a.PDFURL}, true
	}
	return Ref{}, false
}

// Result is the outcome of one render attempt.
type Result struct {
	State State
	// FirstPage is a single-page PDF holding page one of the document.
	FirstPage []byte
	Pages     int
	Err       error
	// Discarded is set when the caller went away before the attempt
	// finished. Nothing in a discarded result should be shown.
	Discarded bool
}

// Extractor pulls the first page out of a PDF.
type Extractor interface {
	FirstPage(data []byte) (page []byte, pages int, err error)
}

type Renderer struct {
	blobs     blob.Store
	bucket    string
	client    *http.Client
	extractor Extractor
	maxBytes  int64
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewRenderer(blobs blob.Store, bucket string, maxBytes int64, m *metrics.Metrics, logger *zap.Logger) *Renderer {
	return &Renderer{
		blobs:     blobs,
		bucket:    bucket,
		client:    &http.Client{Timeout: 30 * time.Second},
		extractor: PDFCPUExtractor{},
		maxBytes:  maxBytes,
		metrics:   m,
		logger:    logger.With(zap.String("component", "preview")),
	}
}

// URL resolves ref to something a browser can open or download. Data URLs
// are returned as they are.
func (r *Renderer) URL(ctx context.Context, ref Ref) (string, error) {
	if ref.URL != "" {
		return ref.URL, nil
	}
	if ref.Path == "" {
		return "", ErrNoDocument
	}
	return r.blobs.PublicURL(ctx, r.bucket, ref.Path)
}

// Document returns the raw bytes behind ref. Download uses it for data URLs,
// which browsers refuse to follow as redirects.
func (r *Renderer) Document(ctx context.Context, ref Ref) ([]byte, error) {
	return r.fetch(ctx, ref)
}

// Render runs one attempt: Resolving, then Loading, then Ready or
// Unavailable. observe, if not nil, is told about each state entered while
// ctx is still live. Failures are never retried.
func (r *Renderer) Render(ctx context.Context, ref Ref, observe func(State)) Result {
	res := Result{State: Resolving}
	enter := func(s State) bool {
		if ctx.Err() != nil {
			res.Discarded = true
			return false
		}
		res.State = s
		if observe != nil {
			observe(s)
		}
		return true
	}
	fail := func(err error) Result {
		if ctx.Err() != nil {
			res.Discarded = true
			return res
		}
		enter(Unavailable)
		res.Err = err
		r.metrics.Preview(Unavailable.String())
		r.logger.Info("Preview unavailable", zap.String("path", ref.Path), zap.Error(err))
		return res
	}

	if !enter(Resolving) {
		return res
	}
	data, err := r.fetch(ctx, ref)
	if err != nil {
		return fail(err)
	}

	if !enter(Loading) {
		return res
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return fail(ErrNotPDF)
	}
	page, pages, err := r.extractor.FirstPage(data)
	if err != nil {
		return fail(fmt.Errorf("extract first page: %w", err))
	}

	if ctx.Err() != nil {
		res.Discarded = true
		return res
	}
	res.FirstPage = page
	res.Pages = pages
	enter(Ready)
	r.metrics.Preview(Ready.String())
	return res
}

// fetch loads the document bytes for ref.
func (r *Renderer) fetch(ctx context.Context, ref Ref) ([]byte, error) {
	switch {
	case ref.Path != "":
		return r.blobs.Get(ctx, r.bucket, ref.Path)
	case strings.HasPrefix(ref.URL, "data:"):
		return decodeDataURL(ref.URL)
	case ref.URL != "":
		return r.download(ctx, ref.URL)
	}
	return nil, ErrNoDocument
}

func (r *Renderer) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("unsupported document URL %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document: %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if r.maxBytes > 0 {
		body = io.LimitReader(resp.Body, r.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", r.maxBytes)
	}
	return data, nil
}

// decodeDataURL handles the base64 "data:application/pdf;base64,..." form.
func decodeDataURL(raw string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	if !strings.HasSuffix(meta, ";base64") {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, err
		}
		return []byte(unescaped), nil
	}
	return base64.StdEncoding.DecodeString(payload)
}
