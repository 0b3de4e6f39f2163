package widget

import (
	"context"
	"log/slog"
	"strings"

	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/events"
	"github.com/MochaChoco/my-site/internal/models"
)

const loadedKey = "loaded"

// toggleReplies раскрывает или сворачивает ветку parentID.
// Загруженная ветка кэшируется в DOM до следующей полной перерисовки.
func (in *Instance) toggleReplies(parentID string) {
	replies := in.byAttr("replies", "data-parent-id", parentID).First()
	toggle := in.byAttr("reply-toggle", "data-comment-id", parentID).First()
	if replies.Length() == 0 || toggle.Length() == 0 {
		return
	}

	if in.st.ExpandedReplies.Has(parentID) {
		dom.Hide(replies)
		in.setState(func(s *State) { delete(s.ExpandedReplies, parentID) })

		if c := in.st.comment(parentID); c != nil {
			toggle.SetText(in.r.ShowRepliesText(c.ReplyCount))
		}

		in.bus.Emit(events.ReplyToggle, events.ReplyToggled{CommentID: parentID, Expanded: false})
		return
	}

	in.setState(func(s *State) { s.ExpandedReplies[parentID] = struct{}{} })
	toggle.SetText(in.msgs.HideReplies)

	if _, loaded := dom.Data(replies, loadedKey); loaded || in.replyPending[parentID] {
		dom.Show(replies)
	} else {
		in.loadReplies(parentID)
	}

	in.bus.Emit(events.ReplyToggle, events.ReplyToggled{CommentID: parentID, Expanded: true})
}

// loadReplies загружает ветку в её область. Ошибка остаётся в этой области
// и не трогает состояние экземпляра.
func (in *Instance) loadReplies(parentID string) {
	region := in.byAttr("replies", "data-parent-id", parentID).First()
	if region.Length() == 0 || in.replyPending[parentID] {
		return
	}

	region.SetHtml(in.r.Loading())
	dom.RemoveData(region, loadedKey)
	dom.Show(region)

	in.replyPending[parentID] = true
	gen := in.listGen

	in.async(func(ctx context.Context) func() {
		res, err := in.be.GetReplies(ctx, parentID, models.GetRepliesParams{Page: 0, PageSize: repliesPageSize})

		return func() {
			if gen != in.listGen {
				return
			}
			delete(in.replyPending, parentID)

			region := in.byAttr("replies", "data-parent-id", parentID).First()
			if region.Length() == 0 {
				return
			}

			if err != nil {
				in.log.Error("replies_load_failed", slog.String("parent_id", parentID), slog.String("error", err.Error()))
				region.SetHtml(in.r.Error(in.msgs.LoadError))
				return
			}

			if len(res.Replies) == 0 {
				region.SetHtml(in.r.Empty())
			} else {
				var b strings.Builder
				for i := range res.Replies {
					r := &res.Replies[i]
					b.WriteString(in.r.Reply(r, in.itemParams(*r)))
				}
				region.SetHtml(b.String())
			}
			dom.SetData(region, loadedKey, "true")

			if !in.st.ExpandedReplies.Has(parentID) {
				dom.Hide(region)
			}
		}
	})
}
