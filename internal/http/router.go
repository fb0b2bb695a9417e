package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/http/handlers"
	"github.com/pribylovaa/accounts-service/internal/http/middleware"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, cfg *config.Config, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),            // счётчик запросов
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// Зависимости хендлеров.
	h := handlers.New(svc, cfg)

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, svc *service.Service) {
	// открытые маршруты
	r.Post("/users/register", h.RegisterUser)
	r.Post("/users/login", h.LoginUser)
	r.Post("/users/refresh-token", h.RefreshToken)

	// закрытые маршруты (guard по access-токену)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Auth(svc))

		pr.Post("/users/logout", h.LogoutUser)
		pr.Post("/users/change-password", h.ChangePassword)
		pr.Get("/users/current-user", h.CurrentUser)
		pr.Patch("/users/update-account", h.UpdateAccount)
		pr.Patch("/users/avatar", h.UpdateAvatar)
		pr.Patch("/users/cover-image", h.UpdateCoverImage)
	})
}
