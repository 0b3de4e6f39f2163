package widget

import (
	"context"
	"strconv"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/events"
	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/internal/render"
)

// onLike переключает «нравится» и патчит только кнопку, без перезагрузки.
func (in *Instance) onLike(m *goquery.Selection) {
	id, _ := dom.Data(m, "comment-id")
	if id == "" {
		return
	}

	if !in.loggedIn() {
		in.requireLogin()
		return
	}

	active := m.HasClass(in.r.Class("like-btn--active"))

	in.async(func(ctx context.Context) func() {
		var (
			c   *models.Comment
			err error
		)
		if active {
			c, err = in.be.UnlikeComment(ctx, id)
		} else {
			c, err = in.be.LikeComment(ctx, id)
		}

		return func() {
			if err != nil {
				in.handleError(err, false)
				return
			}

			// Кнопку ищем заново: DOM мог перерисоваться, пока шёл запрос.
			btn := in.byAttr("like-btn", "data-comment-id", id)
			dom.ToggleClass(btn, in.r.Class("like-btn--active"), c.IsLiked)
			btn.Find(in.r.Sel("like-icon")).SetText(render.LikeIcon(c.IsLiked))
			btn.Find(in.r.Sel("like-count")).SetText(render.LikeCount(c.LikeCount))

			in.setState(func(s *State) {
				if sc := s.comment(id); sc != nil {
					sc.LikeCount = c.LikeCount
					sc.IsLiked = c.IsLiked
				}
			})

			in.bus.Emit(events.CommentLike, events.LikeToggled{Comment: *c, Liked: c.IsLiked})
			if in.opts.OnCommentLike != nil {
				in.opts.OnCommentLike(*c, c.IsLiked)
			}
		}
	})
}

// deleteComment спрашивает подтверждение и удаляет комментарий.
func (in *Instance) deleteComment(id string) {
	if in.opts.OnDeleteConfirm != nil {
		var once sync.Once
		in.opts.OnDeleteConfirm(id, func() {
			once.Do(func() {
				_ = in.doc.Post(func() {
					if in.destroyed.Load() {
						return
					}
					in.executeDelete(id)
				})
			})
		})
		return
	}

	if in.doc.Confirm(in.msgs.ConfirmDelete) {
		in.executeDelete(id)
	}
}

func (in *Instance) executeDelete(id string) {
	in.async(func(ctx context.Context) func() {
		err := in.be.DeleteComment(ctx, id)

		return func() {
			if err != nil {
				in.handleError(err, false)
				return
			}

			in.bus.Emit(events.CommentDelete, id)
			if in.opts.OnCommentDelete != nil {
				in.opts.OnCommentDelete(id)
			}

			in.load(nil)
		}
	})
}

func (in *Instance) onPage(m *goquery.Selection) {
	if dom.IsDisabled(m) {
		return
	}

	raw, ok := dom.Data(m, "page")
	if !ok {
		return
	}

	page, err := strconv.Atoi(raw)
	if err != nil {
		return
	}

	in.goToPage(page)
}

// goToPage переходит на страницу из [0, TotalPages); иначе ничего не делает.
func (in *Instance) goToPage(page int) {
	if page < 0 || page >= in.st.TotalPages {
		return
	}

	in.setState(func(s *State) { s.CurrentPage = page })
	in.load(func() {
		in.doc.ScrollIntoView(in.root)
		in.bus.Emit(events.PageChange, page)
	})
}
