package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
)

// createCommentRequest: тело POST /api/comments.
type createCommentRequest struct {
	ObjectID string              `json:"objectId"`
	Content  string              `json:"content"`
	Sticker  *models.StickerData `json:"sticker,omitempty"`
	Author   *models.Author      `json:"author,omitempty"`
}

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	var (
		p   models.GetCommentsParams
		err error
	)

	p.ObjectID = r.URL.Query().Get("objectId")
	p.Sort = models.Sort(r.URL.Query().Get("sort"))

	if p.Page, err = queryInt(r, "page"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if p.PageSize, err = queryInt(r, "pageSize"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page, err := h.Comments.GetComments(r.Context(), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in createCommentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	c, err := h.Comments.CreateComment(r.Context(), in.ObjectID, models.CreateCommentData{
		Content: in.Content,
		Sticker: in.Sticker,
		Author:  in.Author,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateCommentData
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	c, err := h.Comments.UpdateComment(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.Comments.DeleteComment(r.Context(), chi.URLParam(r, "id")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListReplies(w http.ResponseWriter, r *http.Request) {
	var (
		p   models.GetRepliesParams
		err error
	)

	if p.Page, err = queryInt(r, "page"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if p.PageSize, err = queryInt(r, "pageSize"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page, err := h.Comments.GetReplies(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) CreateReply(w http.ResponseWriter, r *http.Request) {
	var in models.CreateCommentData
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	c, err := h.Comments.CreateReply(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) LikeComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.Comments.LikeComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) UnlikeComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.Comments.UnlikeComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}
