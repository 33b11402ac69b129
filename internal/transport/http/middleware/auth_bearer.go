package middleware

import (
	"context"
	"net/http"
	"strings"
)

// AuthBearer извлекает токен из "Authorization: Bearer <token>" и кладёт
// его в контекст (см. BearerToken). Схема сравнивается без учёта регистра.
// Проверку токена выполняет обработчик.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if ok && strings.EqualFold(scheme, "Bearer") {
				if token = strings.TrimSpace(token); token != "" {
					r = r.WithContext(context.WithValue(r.Context(), ctxBearerToken, token))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
