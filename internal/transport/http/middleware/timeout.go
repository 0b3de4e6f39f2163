package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

// Timeout ограничивает запрос дедлайном d, если у контекста его ещё нет.
// Существующий deadline не переопределяется. Значение <=0 делает мидлвар no-op.
//
// Если обработчик вернулся по истёкшему дедлайну, ничего не записав
// (например, хост виджетов не дождался затихания цикла), клиент получает
// 504 в формате apierrors вместо пустого 200.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := ctx.Deadline(); !ok {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
				r = r.WithContext(ctx)
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			if sw.wrote() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logctx.From(ctx).Warn("request_deadline_exceeded",
				slog.String("path", r.URL.Path),
				slog.Duration("timeout", d),
			)
			apierrors.WriteError(sw, r, context.DeadlineExceeded)
		})
	}
}
