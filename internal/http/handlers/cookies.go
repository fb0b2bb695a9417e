package handlers

import (
	"net/http"

	"github.com/pribylovaa/accounts-service/internal/models"
)

// Имена cookie фиксированы контрактом фронта.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// setAuthCookies выставляет обе cookie с токенами: HttpOnly, SameSite=Strict,
// Secure — из конфига. Сроки жизни совпадают со сроками токенов.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   h.Cfg.Cookies.Domain,
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.Cfg.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   h.Cfg.Cookies.Domain,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.Cfg.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies сбрасывает обе cookie (MaxAge<0 — немедленное удаление).
func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.Cfg.Cookies.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.Cfg.Cookies.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// refreshTokenFromRequest — cookie в приоритете, JSON-тело как fallback.
func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeStrict(r, &body); err == nil {
		return body.RefreshToken
	}

	return ""
}
