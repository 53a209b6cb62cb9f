// Package suggest prefills editor fields from a source web page.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

var ErrInvalidURL = errors.New("source URL must be absolute http(s)")

// Scraper fetches a source page and reduces it to its readable content.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// DefaultScraper fetches over HTTP through go-readability.
type DefaultScraper struct{}

func (s *DefaultScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}

// Suggestion holds the fields an editor can accept into the form.
type Suggestion struct {
	Title   string
	Excerpt string
}

type Suggester struct {
	scraper Scraper
	timeout time.Duration
	logger  *zap.Logger
}

func NewSuggester(logger *zap.Logger) *Suggester {
	return &Suggester{
		scraper: &DefaultScraper{},
		timeout: 30 * time.Second,
		logger:  logger.With(zap.String("component", "suggest")),
	}
}

// Suggest downloads rawURL and extracts its title and excerpt.
func (s *Suggester) Suggest(ctx context.Context, rawURL string) (Suggestion, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Suggestion{}, ErrInvalidURL
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	s.logger.Info("Downloading", zap.String("url", u.String()))
	art, err := s.scraper.Scrape(u.String(), timeout)
	if err != nil {
		s.logger.Warn("Scraping failed", zap.String("url", u.String()), zap.Error(err))
		return Suggestion{}, fmt.Errorf("scrape %s: %w", u.Host, err)
	}

	return Suggestion{
		Title:   strings.TrimSpace(art.Title),
		Excerpt: truncate(strings.TrimSpace(art.Excerpt), 500),
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
