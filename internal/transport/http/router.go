package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MochaChoco/my-site/internal/auth"
	"github.com/MochaChoco/my-site/internal/transport/http/handlers"
	"github.com/MochaChoco/my-site/internal/transport/http/middleware"
)

// Options: параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// RateRPM/RateBurst: лимит запросов с одного IP; RateRPM <= 0 отключает лимит.
	RateRPM   int
	RateBurst int
	// Tokens: проверка Bearer-токенов зрителя; nil: токены игнорируются.
	Tokens *auth.Manager
	// Registry: реестр метрик; nil: отдельный реестр роутера.
	Registry *prometheus.Registry
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                    // безопасно ловим паники
		middleware.RequestID(),                  // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),         // кладём request-scoped логгер в контекст и логируем
		middleware.NewMetrics(reg).Middleware(), // счётчики и латентность по шаблону маршрута
	)

	// Служебные эндпойнты: без лимита и зрителя.
	root.Get("/livez", h.Livez)
	root.Get("/healthz", h.Healthz)
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	root.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateRPM, opts.RateBurst), // лимит на IP
			middleware.Viewer(opts.Tokens),                     // зритель для лайков
			middleware.Timeout(opts.Timeout),                   // общий дедлайн запроса
		)
		registerRoutes(r, h)
	})

	return root
}

// registerRoutes: единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// comments
	r.Route("/api/comments", func(r chi.Router) {
		r.Get("/", h.ListComments)
		r.Post("/", h.CreateComment)
		r.Put("/{id}", h.UpdateComment)
		r.Delete("/{id}", h.DeleteComment)
		r.Get("/{id}/replies", h.ListReplies)
		r.Post("/{id}/replies", h.CreateReply)
		r.Post("/{id}/like", h.LikeComment)
		r.Post("/{id}/unlike", h.UnlikeComment)
	})

	// widget host
	if h.Widgets == nil {
		return
	}

	r.Route("/widget/mounts", func(r chi.Router) {
		r.Post("/", h.MountWidget)
		r.Get("/{key}", h.RenderWidget)
		r.Get("/{key}/state", h.WidgetState)
		r.Post("/{key}/events", h.DispatchWidgetEvent)
		r.Delete("/{key}", h.UnmountWidget)
	})
}
