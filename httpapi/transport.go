package httpapi

import (
	"net"
	"net/http"
	"strings"
)

func setAccessHeader(w http.ResponseWriter, token string) {
	w.Header().Set("Authorization", "Bearer "+token)
}

func (h *Handler) refreshCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.sessions.CookieConfig().Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	cfg := h.sessions.CookieConfig()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(h.sessions.RefreshTTL().Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// clearRefreshCookie emits the same cookie with Max-Age=0.
func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	cfg := h.sessions.CookieConfig()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

func clientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
