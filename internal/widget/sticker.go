package widget

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/MochaChoco/my-site/internal/dom"
)

func (in *Instance) onStickerButton(m *goquery.Selection) {
	anchor := m.Closest(in.r.Sel("sticker-popup-anchor"))
	if anchor.Length() == 0 || in.opts.Sticker == nil {
		return
	}

	if in.st.StickerPopupVisible {
		in.closeStickerPopup()
		return
	}

	anchor.Find(in.r.Sel("sticker-popup")).Remove()
	anchor.AppendHtml(in.r.StickerPopup(in.opts.Sticker.Groups))

	in.setState(func(s *State) { s.StickerPopupVisible = true })
}

func (in *Instance) closeStickerPopup() {
	in.root.Find(in.r.Sel("sticker-popup")).Remove()
	in.setState(func(s *State) { s.StickerPopupVisible = false })
}

// onStickerTab переключает вкладку, не закрывая попап.
func (in *Instance) onStickerTab(m *goquery.Selection) {
	popup := m.Closest(in.r.Sel("sticker-popup"))
	if popup.Length() == 0 {
		return
	}

	group, _ := dom.Data(m, "group-id")
	active := in.r.Class("sticker-tab--active")

	popup.Find(in.r.Sel("sticker-tab")).RemoveClass(active)
	m.AddClass(active)

	popup.Find(in.r.Sel("sticker-panel")).Each(func(_ int, panel *goquery.Selection) {
		if id, _ := dom.Data(panel, "group-id"); id == group {
			dom.Show(panel)
			return
		}
		dom.Hide(panel)
	})
}

// onStickerSelect показывает превью стикера вместо текста.
func (in *Instance) onStickerSelect(m *goquery.Selection) {
	pack, _ := dom.Data(m, "pack-id")
	id, _ := dom.Data(m, "sticker-id")
	url, _ := dom.Data(m, "image-url")

	editor := m.Closest(in.r.Sel("sticker-popup-anchor")).Closest(in.r.Sel("editor"))
	if editor.Length() == 0 {
		return
	}

	textarea := editor.Find(in.r.Sel("editor-textarea")).First()
	if textarea.Length() > 0 {
		dom.Hide(textarea)
		dom.SetDisabled(textarea, true)
	}

	preview := editor.Find(in.r.Sel("sticker-preview")).First()
	img := preview.Find(in.r.Sel("sticker-preview-img")).First()
	if preview.Length() > 0 && img.Length() > 0 {
		img.SetAttr("src", url)
		dom.SetData(preview, "sticker-pack-id", pack)
		dom.SetData(preview, "sticker-id", id)
		dom.SetData(preview, "sticker-image-url", url)
		dom.Show(preview)
	}

	in.closeStickerPopup()
}

func (in *Instance) onStickerPreviewCancel(m *goquery.Selection) {
	if editor := m.Closest(in.r.Sel("editor")); editor.Length() > 0 {
		in.clearStickerPreview(editor)
	}
}

// clearStickerPreview прячет превью и возвращает поле ввода.
func (in *Instance) clearStickerPreview(editor *goquery.Selection) {
	if preview := editor.Find(in.r.Sel("sticker-preview")).First(); preview.Length() > 0 {
		dom.Hide(preview)
		dom.RemoveData(preview, "sticker-pack-id")
		dom.RemoveData(preview, "sticker-id")
		dom.RemoveData(preview, "sticker-image-url")
		preview.Find(in.r.Sel("sticker-preview-img")).SetAttr("src", "")
	}

	if textarea := editor.Find(in.r.Sel("editor-textarea")).First(); textarea.Length() > 0 {
		dom.Show(textarea)
		dom.SetDisabled(textarea, false)
	}
}

func (in *Instance) onStickerPurchase(*goquery.Selection) {
	if in.opts.Sticker != nil && in.opts.Sticker.OnPurchase != nil {
		in.opts.Sticker.OnPurchase()
	}

	in.closeStickerPopup()
}

// onOutsideClick закрывает попап при клике вне его и вне кнопок стикеров.
func (in *Instance) onOutsideClick(ev *dom.Event) {
	if in.destroyed.Load() || !in.st.StickerPopupVisible {
		return
	}

	popup := in.root.Find(in.r.Sel("sticker-popup"))
	if popup.Length() == 0 {
		return
	}

	if ev.Target.Closest(in.r.Sel("sticker-popup")).IsSelection(popup) {
		return
	}

	if ev.Target.Closest(in.r.Sel("sticker-btn")).IsSelection(in.root.Find(in.r.Sel("sticker-btn"))) {
		return
	}

	in.closeStickerPopup()
}
