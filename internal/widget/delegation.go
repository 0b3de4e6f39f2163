package widget

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/MochaChoco/my-site/internal/dom"
)

// setupDelegation вешает обработчики один раз на контейнер экземпляра.
func (in *Instance) setupDelegation() error {
	routes := []struct {
		class string
		h     func(m *goquery.Selection)
	}{
		{"editor-submit", in.onSubmit},
		{"editor-cancel", in.onCancel},
		{"action-btn", in.onAction},
		{"reply-toggle", in.onReplyToggle},
		{"like-btn", in.onLike},
		{"page-btn", in.onPage},
		{"sticker-btn", in.onStickerButton},
		{"sticker-tab", in.onStickerTab},
		{"sticker-item", in.onStickerSelect},
		{"sticker-preview-cancel", in.onStickerPreviewCancel},
		{"sticker-purchase-btn", in.onStickerPurchase},
	}

	for _, rt := range routes {
		h := rt.h
		off, err := in.doc.Delegate(in.root, in.r.Sel(rt.class), dom.Click, func(_ *dom.Event, m *goquery.Selection) {
			if in.destroyed.Load() {
				return
			}
			h(m)
		})
		if err != nil {
			return err
		}

		in.cleanups = append(in.cleanups, off)
	}

	in.cleanups = append(in.cleanups, in.doc.Listen(dom.Click, in.onOutsideClick))

	return nil
}

func (in *Instance) onAction(m *goquery.Selection) {
	action, _ := dom.Data(m, "action")
	id, _ := dom.Data(m, "comment-id")
	if action == "" || id == "" {
		return
	}

	switch action {
	case "reply":
		in.showReplyEditor(id)
	case "edit":
		in.startEdit(id)
	case "delete":
		in.deleteComment(id)
	}
}

func (in *Instance) onReplyToggle(m *goquery.Selection) {
	if id, ok := dom.Data(m, "comment-id"); ok && id != "" {
		in.toggleReplies(id)
	}
}
