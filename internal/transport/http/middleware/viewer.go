package middleware

import (
	"net/http"
	"strings"

	"github.com/MochaChoco/my-site/internal/auth"
	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/backend/httpapi"
	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

// Viewer определяет зрителя запроса и кладёт его в контекст (backend.WithViewer):
//  1. Bearer-токен из Authorization (если tokens != nil): subject токена;
//     битый или просроченный токен: 401;
//  2. иначе заголовок X-Viewer-Id (его шлёт httpapi-клиент);
//  3. иначе backend.AnonymousViewer.
func Viewer(tokens *auth.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer := backend.AnonymousViewer

			if token, ok := bearer(r); ok && tokens != nil {
				u, err := tokens.Parse(token)
				if err != nil {
					logctx.From(r.Context()).Warn("viewer_token_rejected",
						"token", auth.Redacted(),
						"err", err.Error(),
					)
					apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
					return
				}
				viewer = u.ID
			} else if id := strings.TrimSpace(r.Header.Get(httpapi.HeaderViewerID)); id != "" {
				viewer = id
			}

			noteViewer(r.Context(), viewer)

			ctx := backend.WithViewer(r.Context(), viewer)
			ctx = logctx.With(ctx, "viewer", viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "

	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}

	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
