package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/accounts-service/internal/http/httperr"
	"github.com/pribylovaa/accounts-service/internal/service"
)

type ctxKey string

// CtxUserID — ключ контекста с ID аутентифицированного пользователя.
const CtxUserID ctxKey = "user_id"

// AccessTokenVerifier проверяет access-токен и возвращает ID пользователя.
// Реализуется сервисным слоем (service.ValidateAccessToken).
type AccessTokenVerifier interface {
	ValidateAccessToken(token string) (string, error)
}

// Auth — guard закрытых маршрутов: достаёт access-токен из cookie
// "accessToken" либо из Authorization: Bearer, валидирует его и кладёт
// ID пользователя в контекст. Без валидного токена — 401.
func Auth(verifier AccessTokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				httperr.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			userID, err := verifier.ValidateAccessToken(token)
			if err != nil {
				httperr.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom достаёт ID пользователя, положенный Auth-мидлваром.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxUserID).(string)
	return id, ok && id != ""
}

// tokenFromRequest — cookie в приоритете, Bearer-заголовок как fallback.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie("accessToken"); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}
