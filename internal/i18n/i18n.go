// Package i18n resolves user-visible strings in English or French.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type Language string

const (
	EN Language = "en"
	FR Language = "fr"
)

// Default is used when neither the cookie nor the request headers select a
// supported language.
const Default = EN

// CookieName holds the visitor's explicit language choice.
const CookieName = "lang"

var supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(supported)

// ParseLanguage maps "en"/"fr" (any case, optional region) to a Language.
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "en" || strings.HasPrefix(s, "en-"):
		return EN, true
	case s == "fr" || strings.HasPrefix(s, "fr-"):
		return FR, true
	}
	return "", false
}

// Negotiate picks the request language: an explicit cookie value wins, then
// the Accept-Language header, then fallback.
func Negotiate(cookie, acceptLanguage string, fallback Language) Language {
	if l, ok := ParseLanguage(cookie); ok {
		return l
	}
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	if supported[idx] == language.French {
		return FR
	}
	return EN
}

// Other returns the language the toggle switches to.
func (l Language) Other() Language {
	if l == FR {
		return EN
	}
	return FR
}

func (l Language) String() string { return string(l) }

// Resolver looks up message keys. Unknown keys are echoed back unchanged.
type Resolver struct {
	messages map[string]map[Language]string
}

// NewResolver returns a resolver over the built-in message table.
func NewResolver() *Resolver {
	return &Resolver{messages: messages}
}

// T returns the message for key in lang, falling back to English and then to
// the key itself.
func (r *Resolver) T(lang Language, key string) string {
	entry, ok := r.messages[key]
	if !ok {
		return key
	}
	if s, ok := entry[lang]; ok && s != "" {
		return s
	}
	if s, ok := entry[EN]; ok && s != "" {
		return s
	}
	return key
}

// Tf formats the message for key with args.
func (r *Resolver) Tf(lang Language, key string, args ...any) string {
	return fmt.Sprintf(r.T(lang, key), args...)
}

// Has reports whether key is in the table.
func (r *Resolver) Has(key string) bool {
	_, ok := r.messages[key]
	return ok
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders a "YYYY-MM-DD" date for display. Unparseable input is
// returned as-is.
func FormatDate(lang Language, date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	if lang == FR {
		return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
	}
	return t.Format("January 2, 2006")
}

// FormatMonth renders a "YYYY-MM" facet value, e.g. "January 2024" or
// "janvier 2024".
func FormatMonth(lang Language, month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	if lang == FR {
		return fmt.Sprintf("%s %d", frenchMonths[t.Month()-1], t.Year())
	}
	return t.Format("January 2006")
}
