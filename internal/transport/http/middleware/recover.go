package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

var errPanic = errors.New("handler panic")

// Recover перехватывает panic обработчика и отвечает 500/internal без деталей.
// Стек и маршрут уходят только в лог. http.ErrAbortHandler пробрасывается дальше.
// Если заголовки уже отправлены, дописать конверт нельзя: соединение
// обрывается через http.ErrAbortHandler.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).
					LogAttrs(r.Context(), slog.LevelError, "handler_panic",
						slog.String("path", r.URL.Path),
						slog.String("route", routePattern(r)),
						slog.String("request_id", r.Header.Get(HeaderRequestID)),
						slog.Any("reason", rec),
						slog.String("stack", string(debug.Stack())),
					)

				if sw.wrote() {
					panic(http.ErrAbortHandler)
				}
				apierrors.WriteError(sw, r, errPanic)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
