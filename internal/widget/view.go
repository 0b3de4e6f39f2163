package widget

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/events"
	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/internal/render"
)

// region: область оболочки виджета по имени класса без префикса.
func (in *Instance) region(name string) *goquery.Selection {
	return in.root.Find(in.r.Sel(name)).First()
}

// byAttr: элементы класса name, у которых attr == value.
func (in *Instance) byAttr(name, attr, value string) *goquery.Selection {
	return in.root.Find(in.r.Sel(name)).FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		return ok && v == value
	})
}

func (in *Instance) renderContainer() {
	in.root.Empty()
	in.root.AppendHtml(in.r.Container(in.opts.Theme == ThemeDark, *in.opts.Responsive))

	sections := []struct {
		f      Formation
		region string
	}{
		{FormationCount, "header"},
		{FormationWrite, "editor-wrapper"},
		{FormationList, "list-wrapper"},
		{FormationPage, "pagination-wrapper"},
	}

	for _, s := range sections {
		if !in.opts.has(s.f) {
			dom.Hide(in.region(s.region))
		}
	}
}

// load: цикл загрузки текущей страницы. Побеждает последний выданный запрос:
// ответы устаревших запросов отбрасываются. after выполняется после отрисовки.
func (in *Instance) load(after func()) {
	in.loadSeq++
	seq := in.loadSeq

	params := models.GetCommentsParams{
		ObjectID: in.opts.ObjectID,
		Page:     in.st.CurrentPage,
		PageSize: in.opts.PageSize,
	}

	in.setState(func(s *State) {
		s.IsLoading = true
		s.Err = nil
	})
	in.region("list-wrapper").SetHtml(in.r.Loading())

	in.async(func(ctx context.Context) func() {
		res, err := in.be.GetComments(ctx, params)

		return func() {
			if seq != in.loadSeq {
				in.log.Debug("stale_load_dropped", slog.Uint64("seq", seq))
				return
			}

			if err != nil {
				in.handleError(err, true)
				in.markReady()
				return
			}

			in.setState(func(s *State) {
				s.Comments = res.Comments
				s.TotalCount = res.TotalCount
				s.TotalPages = totalPages(res.TotalCount, in.opts.PageSize)
				s.IsLoading = false
			})

			in.render()
			in.bus.Emit(events.CommentsLoaded, *res)
			in.markReady()

			if after != nil {
				after()
			}
		}
	})
}

// render: полная перерисовка. DOM строится заново, поэтому открытые формы,
// правка и попап сбрасываются, а раскрытые ветки текущей страницы загружаются снова.
func (in *Instance) render() {
	in.renderHeader()
	in.renderEditor()
	in.renderList()
	in.renderPagination()
}

func (in *Instance) renderHeader() {
	in.region("header").SetHtml(in.r.Header(in.st.TotalCount))
}

func (in *Instance) renderEditor() {
	wrapper := in.region("editor-wrapper")

	if !in.loggedIn() {
		wrapper.SetHtml(in.r.LoginRequired())
		return
	}

	wrapper.SetHtml(in.r.Editor(render.EditorParams{StickerEnabled: in.opts.stickersEnabled()}))
}

func (in *Instance) itemParams(c models.Comment) render.ItemParams {
	owner := false
	if ui := in.userInfo(); ui != nil {
		owner = ui.ID == c.Author.ID
	}

	return render.ItemParams{IsOwner: owner, ShowManagerBadge: in.opts.IsManager}
}

func (in *Instance) renderList() {
	list := in.region("list-wrapper")

	in.listGen++
	clear(in.replyPending)

	if len(in.st.Comments) == 0 {
		list.SetHtml(in.r.Empty())
	} else {
		var b strings.Builder
		for i := range in.st.Comments {
			c := &in.st.Comments[i]
			b.WriteString(in.r.Comment(c, in.itemParams(*c)))
		}
		list.SetHtml(b.String())
	}

	onPage := make(IDSet, len(in.st.Comments))
	for _, c := range in.st.Comments {
		onPage[c.ID] = struct{}{}
	}

	in.setState(func(s *State) {
		for id := range s.ExpandedReplies {
			if !onPage.Has(id) {
				delete(s.ExpandedReplies, id)
			}
		}
		s.ReplyEditors = IDSet{}
		s.EditingComment = ""
		s.StickerPopupVisible = false
	})

	for _, id := range in.st.ExpandedReplies.Sorted() {
		in.byAttr("reply-toggle", "data-comment-id", id).SetText(in.msgs.HideReplies)
		in.loadReplies(id)
	}
}

func (in *Instance) renderPagination() {
	in.region("pagination-wrapper").SetHtml(in.r.Pagination(in.st.CurrentPage, in.st.TotalPages))
}
