package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MochaChoco/my-site/internal/host"
	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
)

// mountResponse: ответ на POST /widget/mounts.
type mountResponse struct {
	Key  string `json:"key"`
	HTML string `json:"html"`
}

func (h *Handlers) MountWidget(w http.ResponseWriter, r *http.Request) {
	var in host.MountRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	key, err := h.Widgets.Mount(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	html, err := h.Widgets.Render(r.Context(), key)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mountResponse{Key: key, HTML: html})
}

func (h *Handlers) RenderWidget(w http.ResponseWriter, r *http.Request) {
	html, err := h.Widgets.Render(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeHTML(w, http.StatusOK, html)
}

func (h *Handlers) DispatchWidgetEvent(w http.ResponseWriter, r *http.Request) {
	var ev host.Event
	if err := decodeStrict(r, &ev); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	html, err := h.Widgets.Dispatch(r.Context(), chi.URLParam(r, "key"), ev)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeHTML(w, http.StatusOK, html)
}

func (h *Handlers) WidgetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.Widgets.State(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) UnmountWidget(w http.ResponseWriter, r *http.Request) {
	if err := h.Widgets.Unmount(r.Context(), chi.URLParam(r, "key")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
