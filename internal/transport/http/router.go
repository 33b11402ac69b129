package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-auth-service/internal/metrics"
	"github.com/pribylovaa/go-auth-service/internal/transport/http/handlers"
	"github.com/pribylovaa/go-auth-service/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Metrics  *metrics.Metrics   // nil — метрики выключены
	Limiter  middleware.Limiter // nil — без ограничения попыток входа
	BasePath string             // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(auth handlers.AuthService, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),             // безопасно ловим паники
		middleware.RequestID(),           // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),  // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics), // считаем запросы по шаблону маршрута
		middleware.Timeout(opts.Timeout), // общий дедлайн запроса
	)

	h := handlers.New(auth, opts.Metrics)

	var onLimited func()
	if opts.Metrics != nil {
		onLimited = opts.Metrics.RateLimited
	}
	limit := middleware.RateLimit(opts.Limiter, onLimited)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, limit)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, limit)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, limit middleware.Middleware) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/verification", h.Verification)
		r.With(limit).Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.With(middleware.AuthBearer()).Get("/me", h.Me)
	})
}
