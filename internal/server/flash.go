package web

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookie = "revue_flash"

// flash is a one-shot notice shown after a redirect. Key is a message key so
// the notice follows a language switch.
type flash struct {
	Kind string
	Key  string
}

// setFlash stores a message for the next page the visitor loads.
func setFlash(w http.ResponseWriter, kind, key string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + ":" + key),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// getFlash retrieves and immediately deletes a message
func getFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, key, ok := strings.Cut(raw, ":")
	if !ok || key == "" {
		return nil
	}
	if kind != "success" {
		kind = "error"
	}
	return &flash{Kind: kind, Key: key}
}
