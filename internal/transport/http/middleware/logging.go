package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	logctx "github.com/MochaChoco/my-site/pkg/log"
)

// Logging кладёт request-scoped логгер в контекст и после ответа пишет
// запись http_request: метод, шаблон маршрута, статус, длительность, размер,
// а также зрителя (от Viewer) и ключ монтирования или id комментария из пути.
// Ответы 5xx пишутся уровнем Error.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			ctx, info := withRequestInfo(logctx.Into(r.Context(), reqLogger))
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			}

			if info.viewer != "" {
				attrs = append(attrs, slog.String("viewer", info.viewer))
			}

			// chi заполняет параметры пути в том же RouteContext по ходу маршрутизации.
			if rc := chi.RouteContext(ctx); rc != nil {
				if key := rc.URLParam("key"); key != "" {
					attrs = append(attrs, slog.String("mount_key", key))
				}
				if id := rc.URLParam("id"); id != "" {
					attrs = append(attrs, slog.String("comment_id", id))
				}
			}

			level := slog.LevelInfo
			if sw.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logctx.From(ctx).LogAttrs(ctx, level, "http_request", attrs...)
		})
	}
}
