// Package middleware: net/http мидлвары REST-сервера commentbox.
package middleware

import (
	"context"
	"net/http"
)

// Middleware: стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain применяет мидлвары к обработчику в порядке их перечисления.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requestInfo: то, что внутренние мидлвары узнают о запросе и сообщают
// внешним. Создаётся в Logging, заполняется ниже по цепочке (Viewer).
type requestInfo struct {
	viewer string
}

type requestInfoKey struct{}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// noteViewer сообщает зрителя запроса внешнему Logging, если он есть в цепочке.
func noteViewer(ctx context.Context, viewer string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.viewer = viewer
	}
}

// statusWriter оборачивает ResponseWriter, чтобы перехватить статус и размер.
// Одна обёртка на запрос: Logging, Metrics, Recover и Timeout делят её.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

// Status: итоговый статус; обработчик без записи даёт 200.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// wrote: заголовки ответа уже отправлены.
func (w *statusWriter) wrote() bool { return w.status != 0 }

// Flush нужен для потоковых ответов через обёртку.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if w.status == 0 {
			w.status = http.StatusOK
		}
		f.Flush()
	}
}

// Unwrap отдаёт исходный writer для http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	if sw, ok := w.(*statusWriter); ok {
		return sw
	}
	return &statusWriter{ResponseWriter: w}
}
