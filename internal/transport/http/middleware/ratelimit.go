package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pribylovaa/go-auth-service/internal/pkg/log"
	apierrors "github.com/pribylovaa/go-auth-service/internal/transport/http/errors"
)

// Limiter — счётчик попыток по ключу.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit отклоняет запросы сверх лимита с 429 и Retry-After.
// Ключ — IP клиента. Если лимитер недоступен, запрос пропускается.
// onLimited (может быть nil) вызывается на каждый отклонённый запрос.
func RateLimit(l Limiter, onLimited func()) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.From(r.Context()).Warn("rate_limit_unavailable", slog.String("err", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if onLimited != nil {
					onLimited()
				}
				apierrors.WriteError(w, r, &apierrors.RateLimitedError{RetryAfter: retryAfter})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
