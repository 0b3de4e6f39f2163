// Package handlers: HTTP-обработчики REST API комментариев и хоста виджетов.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/host"
	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
)

// WidgetHost: операции хоста виджетов, которые нужны транспорту.
type WidgetHost interface {
	Mount(ctx context.Context, req host.MountRequest) (string, error)
	Dispatch(ctx context.Context, key string, ev host.Event) (string, error)
	Render(ctx context.Context, key string) (string, error)
	State(ctx context.Context, key string) (*host.MountState, error)
	Unmount(ctx context.Context, key string) error
}

// Pinger: проверка готовности хранилища для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers агрегирует зависимости.
type Handlers struct {
	Comments backend.Backend
	Widgets  WidgetHost
	Ready    Pinger
}

func New(comments backend.Backend, widgets WidgetHost, ready Pinger) *Handlers {
	return &Handlers{Comments: comments, Widgets: widgets, Ready: ready}
}

// writeJSON: единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeHTML(w http.ResponseWriter, status int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

// decodeStrict: строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// queryInt читает целый query-параметр; отсутствие даёт 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apierrors.ErrBadRequest
	}

	return n, nil
}

// Livez: процесс жив.
func (h *Handlers) Livez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Healthz: хранилище доступно.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
