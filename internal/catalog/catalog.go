// Package catalog builds the public list of published articles.
package catalog

import (
	"sort"
	"strings"

	"revue/internal/i18n"
	"revue/internal/model"

	"golang.org/x/text/cases"
)

// All is the facet value that disables filtering on that facet.
const All = "All"

// Query is the visitor's search and facet selection.
type Query struct {
	Search   string
	Category string
	Month    string
	Lang     i18n.Language
}

func (q Query) category() string { return facetValue(q.Category) }
func (q Query) month() string    { return facetValue(q.Month) }

func facetValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, All) {
		return ""
	}
	return v
}

// Card is one rendered article.
type Card struct {
	ID          string
	Title       string
	Excerpt     string
	Author      string
	Date        string
	RawDate     string
	Category    string
	Edition     string
	HasDocument bool
}

// Facet is one selectable chip.
type Facet struct {
	Value    string
	Label    string
	Selected bool
}

// Page is the catalog output consumed by the templates.
type Page struct {
	Query        Query
	Cards        []Card
	Categories   []Facet
	Months       []Facet
	Empty        bool
	EmptyMessage string
}

// normalize case-folds s for matching. Casers keep state, so each call gets
// its own.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Published returns the public subset, newest first.
func Published(articles []model.Article) []model.Article {
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if a.Status.Public() {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return model.Less(&out[i], &out[j]) })
	return out
}

// Matches reports whether a passes the search and both facets.
func Matches(a *model.Article, q Query) bool {
	if c := q.category(); c != "" && !strings.EqualFold(a.Category, c) {
		return false
	}
	if m := q.month(); m != "" && a.Month() != m {
		return false
	}
	needle := normalize(q.Search)
	if needle == "" {
		return true
	}
	lang := string(q.Lang)
	return strings.Contains(normalize(a.Title.In(lang)), needle) ||
		strings.Contains(normalize(a.Excerpt.In(lang)), needle)
}

// Build filters articles for q and renders the cards and facets. Only
// published articles are ever included.
func Build(articles []model.Article, q Query, r *i18n.Resolver) Page {
	if q.Lang == "" {
		q.Lang = i18n.Default
	}
	published := Published(articles)

	page := Page{
		Query:      q,
		Categories: categoryFacets(published, q, r),
		Months:     monthFacets(published, q, r),
	}
	for i := range published {
		a := &published[i]
		if !Matches(a, q) {
			continue
		}
		page.Cards = append(page.Cards, NewCard(a, q.Lang))
	}
	if len(page.Cards) == 0 {
		page.Empty = true
		page.EmptyMessage = r.T(q.Lang, "noResults")
	}
	return page
}

// Latest returns up to n published cards for the home page.
func Latest(articles []model.Article, n int, lang i18n.Language) []Card {
	published := Published(articles)
	if len(published) > n {
		published = published[:n]
	}
	cards := make([]Card, 0, len(published))
	for i := range published {
		cards = append(cards, NewCard(&published[i], lang))
	}
	return cards
}

// NewCard renders a for display in lang.
func NewCard(a *model.Article, lang i18n.Language) Card {
	l := string(lang)
	return Card{
		ID:          a.ID,
		Title:       a.Title.In(l),
		Excerpt:     a.Excerpt.In(l),
		Author:      a.Author,
		Date:        i18n.FormatDate(lang, a.Date),
		RawDate:     a.Date,
		Category:    a.Category,
		Edition:     a.Edition,
		HasDocument: a.HasDocument(),
	}
}

func (c Card) ReadURL() string { return "/articles/" + c.ID }

// ViewURL opens the full-screen viewer.
func (c Card) ViewURL() string { return c.ReadURL() + "/view" }

// PreviewURL serves page one only.
func (c Card) PreviewURL() string { return c.ReadURL() + "/preview" }

// DocumentURL serves the whole document inline.
func (c Card) DocumentURL() string { return c.ReadURL() + "/document" }

func (c Card) DownloadURL() string { return c.ReadURL() + "/download" }

func categoryFacets(published []model.Article, q Query, r *i18n.Resolver) []Facet {
	seen := map[string]bool{}
	var values []string
	for _, a := range published {
		if a.Category == "" || seen[strings.ToLower(a.Category)] {
			continue
		}
		seen[strings.ToLower(a.Category)] = true
		values = append(values, a.Category)
	}
	sort.Slice(values, func(i, j int) bool { return strings.ToLower(values[i]) < strings.ToLower(values[j]) })

	selected := q.category()
	facets := []Facet{{Value: All, Label: r.T(q.Lang, "filterAll"), Selected: selected == ""}}
	for _, v := range values {
		facets = append(facets, Facet{Value: v, Label: v, Selected: strings.EqualFold(v, selected)})
	}
	return facets
}

func monthFacets(published []model.Article, q Query, r *i18n.Resolver) []Facet {
	seen := map[string]bool{}
	var values []string
	for _, a := range published {
		m := a.Month()
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		values = append(values, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(values)))

	selected := q.month()
	facets := []Facet{{Value: All, Label: r.T(q.Lang, "filterAll"), Selected: selected == ""}}
	for _, v := range values {
		facets = append(facets, Facet{Value: v, Label: i18n.FormatMonth(q.Lang, v), Selected: v == selected})
	}
	return facets
}
