package widget

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/events"
	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/internal/render"
)

// stickerFromPreview читает стикер из видимого превью формы.
func (in *Instance) stickerFromPreview(editor *goquery.Selection) *models.StickerData {
	preview := editor.Find(in.r.Sel("sticker-preview")).First()
	if preview.Length() == 0 || dom.IsHidden(preview) {
		return nil
	}

	pack, _ := dom.Data(preview, "sticker-pack-id")
	id, _ := dom.Data(preview, "sticker-id")
	url, _ := dom.Data(preview, "sticker-image-url")

	return &models.StickerData{PackID: pack, StickerID: id, ImageURL: url}
}

func (in *Instance) author() *models.Author {
	ui := in.userInfo()
	if ui == nil {
		return nil
	}

	return &models.Author{
		ID:         ui.ID,
		Nickname:   ui.Nickname,
		ProfileURL: ui.ProfileURL,
		IsManager:  in.opts.IsManager,
	}
}

// onSubmit: единая точка создания, правки и ответа.
func (in *Instance) onSubmit(m *goquery.Selection) {
	editor := m.Closest(in.r.Sel("editor"))
	if editor.Length() == 0 {
		return
	}

	sticker := in.stickerFromPreview(editor)
	content := ""
	if sticker == nil {
		content = dom.TrimmedValue(editor.Find(in.r.Sel("editor-textarea")).First())
	}

	if content == "" && sticker == nil {
		return
	}

	if !in.loggedIn() {
		in.requireLogin()
		return
	}

	parentID, _ := dom.Data(editor, "parent-id")
	commentID, _ := dom.Data(editor, "comment-id")

	switch {
	case editor.HasClass(in.r.Class("editor--edit")):
		if commentID != "" {
			in.submitEdit(commentID, content)
		}
	case parentID != "":
		in.submitReply(parentID, models.CreateCommentData{Content: content, Sticker: sticker, Author: in.author()})
	default:
		in.submitComment(models.CreateCommentData{Content: content, Sticker: sticker, Author: in.author()})
	}
}

func (in *Instance) submitEdit(id, content string) {
	in.async(func(ctx context.Context) func() {
		c, err := in.be.UpdateComment(ctx, id, models.UpdateCommentData{Content: content})

		return func() {
			if err != nil {
				in.handleError(err, false)
				return
			}

			in.setState(func(s *State) { s.EditingComment = "" })
			in.bus.Emit(events.CommentUpdate, *c)
			if in.opts.OnCommentUpdate != nil {
				in.opts.OnCommentUpdate(*c)
			}

			in.load(nil)
		}
	})
}

func (in *Instance) submitReply(parentID string, data models.CreateCommentData) {
	in.async(func(ctx context.Context) func() {
		reply, err := in.be.CreateReply(ctx, parentID, data)

		return func() {
			if err != nil {
				in.handleError(err, false)
				return
			}

			in.bus.Emit(events.ReplyAdd, events.ReplyAdded{Reply: *reply, ParentID: parentID})
			if in.opts.OnReplyAdd != nil {
				in.opts.OnReplyAdd(*reply, parentID)
			}

			in.load(func() { in.hideReplyEditor(parentID) })
		}
	})
}

func (in *Instance) submitComment(data models.CreateCommentData) {
	in.async(func(ctx context.Context) func() {
		c, err := in.be.CreateComment(ctx, in.opts.ObjectID, data)

		return func() {
			if err != nil {
				in.handleError(err, false)
				return
			}

			in.bus.Emit(events.CommentAdd, *c)
			if in.opts.OnCommentAdd != nil {
				in.opts.OnCommentAdd(*c)
			}

			in.load(func() {
				editor := in.region("editor-wrapper").Find(in.r.Sel("editor")).First()
				if editor.Length() == 0 {
					return
				}
				dom.SetValue(editor.Find(in.r.Sel("editor-textarea")).First(), "")
				in.clearStickerPreview(editor)
			})
		}
	})
}

func (in *Instance) onCancel(m *goquery.Selection) {
	editor := m.Closest(in.r.Sel("editor"))
	if editor.Length() == 0 {
		return
	}

	if parentID, ok := dom.Data(editor, "parent-id"); ok && parentID != "" {
		in.hideReplyEditor(parentID)
	}

	if commentID, ok := dom.Data(editor, "comment-id"); ok && commentID != "" {
		in.cancelEdit(commentID)
	}
}

// showReplyEditor открывает форму ответа под комментарием parentID.
func (in *Instance) showReplyEditor(parentID string) {
	if in.st.EditingComment != "" {
		in.cancelEdit(in.st.EditingComment)
	}

	wrapper := in.byAttr("reply-editor-wrapper", "data-parent-id", parentID).First()
	if wrapper.Length() == 0 {
		return
	}

	wrapper.SetHtml(in.r.Editor(render.EditorParams{
		Mode:           render.ModeReply,
		ParentID:       parentID,
		StickerEnabled: in.opts.stickersEnabled(),
	}))
	dom.Show(wrapper)
	in.doc.Focus(wrapper.Find(in.r.Sel("editor-textarea")).First())

	in.setState(func(s *State) { s.ReplyEditors[parentID] = struct{}{} })
}

func (in *Instance) hideReplyEditor(parentID string) {
	wrapper := in.byAttr("reply-editor-wrapper", "data-parent-id", parentID).First()
	if wrapper.Length() > 0 {
		wrapper.Empty()
		dom.Hide(wrapper)
	}

	in.setState(func(s *State) { delete(s.ReplyEditors, parentID) })
}

// commentElement: элемент комментария или ответа по id.
func (in *Instance) commentElement(id string) *goquery.Selection {
	return in.root.Find(in.r.Sel("comment-item") + ", " + in.r.Sel("reply-item")).FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("data-comment-id")
		return v == id
	}).First()
}

// contentOf: блок текста самого элемента, без вложенных ответов.
func (in *Instance) contentOf(item *goquery.Selection) *goquery.Selection {
	body := item.ChildrenFiltered(in.r.Sel("comment-main")).ChildrenFiltered(in.r.Sel("comment-body"))
	if body.Length() == 0 {
		body = item.ChildrenFiltered(in.r.Sel("comment-body"))
	}

	return body
}

// startEdit заменяет текст комментария формой правки. Одновременно правится один комментарий.
func (in *Instance) startEdit(id string) {
	if in.st.EditingComment != "" {
		in.cancelEdit(in.st.EditingComment)
	}

	for _, parentID := range in.st.ReplyEditors.Sorted() {
		in.hideReplyEditor(parentID)
	}

	item := in.commentElement(id)
	if item.Length() == 0 {
		return
	}

	body := in.contentOf(item)
	content := body.ChildrenFiltered(in.r.Sel("comment-content")).First()
	footer := body.ChildrenFiltered(in.r.Sel("comment-footer")).First()
	if content.Length() == 0 {
		return
	}

	original, err := content.Html()
	if err != nil {
		in.log.Error("edit_snapshot_failed")
		return
	}
	dom.SetData(content, "original-html", original)

	raw, _ := dom.Data(content, "raw-content")
	content.SetHtml(in.r.Editor(render.EditorParams{
		Mode:         render.ModeEdit,
		InitialValue: raw,
		CommentID:    id,
	}))

	dom.Hide(footer)
	in.doc.Focus(content.Find(in.r.Sel("editor-textarea")).First())

	in.setState(func(s *State) { s.EditingComment = id })
}

// cancelEdit возвращает исходную разметку и подвал.
func (in *Instance) cancelEdit(id string) {
	if item := in.commentElement(id); item.Length() > 0 {
		body := in.contentOf(item)
		content := body.ChildrenFiltered(in.r.Sel("comment-content")).First()

		if original, ok := dom.Data(content, "original-html"); ok {
			content.SetHtml(original)
			dom.RemoveData(content, "original-html")
		}

		dom.Show(body.ChildrenFiltered(in.r.Sel("comment-footer")).First())
	}

	in.setState(func(s *State) { s.EditingComment = "" })
}
