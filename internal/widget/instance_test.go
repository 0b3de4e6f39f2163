package widget

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/events"
	"github.com/MochaChoco/my-site/internal/models"
)

func TestInit_RendersFirstPage(t *testing.T) {
	f := newFixture(t, seedComments(12, "u1"))

	var ready atomic.Int32
	inst := f.init(t, Options{OnReady: func() { ready.Add(1) }})

	require.EqualValues(t, 1, ready.Load())
	require.Equal(t, 10, f.count(t, "#box .cb-comment-item"))
	require.Equal(t, "댓글 12개", f.text(t, "#box .cb-count"))
	require.Equal(t, 1, f.count(t, "#box .cb-container.cb-container--responsive"))
	require.Equal(t, 1, f.count(t, "#box .cb-editor-wrapper .cb-editor"))

	id, _ := f.attr(t, "#box .cb-comment-item", "data-comment-id")
	require.Equal(t, "seed-0", id)

	st := inst.State()
	require.Equal(t, 12, st.TotalCount)
	require.Equal(t, 2, st.TotalPages)
	require.Equal(t, 0, st.CurrentPage)
	require.False(t, st.IsLoading)
	require.NoError(t, st.Err)
	require.Len(t, st.Comments, 10)
}

func TestInit_FormationThemeAndEmpty(t *testing.T) {
	f := newFixture(t, nil)

	f.init(t, Options{
		Formation:  []Formation{FormationList},
		Theme:      ThemeDark,
		Responsive: Bool(false),
		Locale:     "en",
	})

	require.Equal(t, 1, f.count(t, "#box .cb-container--dark"))
	require.Zero(t, f.count(t, "#box .cb-container--responsive"))
	require.True(t, f.hidden(t, "#box .cb-header"))
	require.True(t, f.hidden(t, "#box .cb-editor-wrapper"))
	require.True(t, f.hidden(t, "#box .cb-pagination-wrapper"))
	require.False(t, f.hidden(t, "#box .cb-list-wrapper"))
	require.Equal(t, "Be the first to comment!", f.text(t, "#box .cb-empty-text"))
}

func TestInit_LoadErrorStillReady(t *testing.T) {
	f := newFixture(t, nil)

	var (
		ready  atomic.Int32
		onErr  atomic.Int32
		errEvt atomic.Int32
	)
	inst := f.init(t, Options{
		Backend: &countingBackend{Backend: f.mem, failList: errBoom},
		OnReady: func() { ready.Add(1) },
		OnError: func(error) { onErr.Add(1) },
	})
	inst.On(events.Error, func(any) { errEvt.Add(1) })

	require.EqualValues(t, 1, ready.Load())
	require.EqualValues(t, 1, onErr.Load())
	require.Equal(t, 1, f.count(t, "#box .cb-list-wrapper .cb-error"))
	require.ErrorIs(t, inst.State().Err, errBoom)
	require.False(t, inst.State().IsLoading)

	inst.Refresh()
	f.settle(t)
	require.EqualValues(t, 1, errEvt.Load())
	require.EqualValues(t, 1, ready.Load())
}

func TestSubmit_CreatesCommentListedFirst(t *testing.T) {
	f := newFixture(t, seedComments(3, "u-other"))

	var added []models.Comment
	inst := f.init(t, Options{
		Auth:         loggedInAs("u1"),
		IsManager:    true,
		OnCommentAdd: func(c models.Comment) { added = append(added, c) },
	})

	var evt atomic.Int32
	inst.On(events.CommentAdd, func(any) { evt.Add(1) })

	f.input(t, "#box .cb-editor-wrapper .cb-editor-textarea", "  hello  ")
	f.click(t, "#box .cb-editor-wrapper .cb-editor-submit")

	require.Len(t, added, 1)
	require.EqualValues(t, 1, evt.Load())
	require.Equal(t, "hello", added[0].Content)
	require.Equal(t, "u1", added[0].Author.ID)
	require.True(t, added[0].Author.IsManager)

	id, _ := f.attr(t, "#box .cb-comment-item", "data-comment-id")
	require.Equal(t, added[0].ID, id)
	require.Equal(t, "hello", f.text(t, "#box .cb-comment-item .cb-comment-content"))
	require.Equal(t, "", f.value(t, "#box .cb-editor-wrapper .cb-editor-textarea"))
	require.Equal(t, 4, inst.State().TotalCount)
}

func TestSubmit_BlankIsIgnored(t *testing.T) {
	f := newFixture(t, nil)

	called := false
	f.init(t, Options{OnCommentAdd: func(models.Comment) { called = true }})

	f.input(t, "#box .cb-editor-wrapper .cb-editor-textarea", "   \n ")
	f.click(t, "#box .cb-editor-wrapper .cb-editor-submit")

	require.False(t, called)
	require.Empty(t, f.mem.All())
}

func TestLoginRequired(t *testing.T) {
	f := newFixture(t, seedComments(1, "u1"))

	auth := &stubAuth{}
	inst := f.init(t, Options{Auth: auth})

	var evt atomic.Int32
	inst.On(events.LoginRequired, func(any) { evt.Add(1) })

	require.Equal(t, 1, f.count(t, "#box .cb-editor-wrapper .cb-login-required"))
	require.Zero(t, f.count(t, "#box .cb-editor-wrapper .cb-editor"))

	f.click(t, `#box .cb-like-btn[data-comment-id="seed-0"]`)
	require.EqualValues(t, 1, auth.required.Load())
	require.EqualValues(t, 1, evt.Load())
	require.Zero(t, f.mem.All()[0].LikeCount)

	// Форма ответа доступна, но отправка требует входа.
	f.click(t, `#box .cb-action-btn[data-action="reply"][data-comment-id="seed-0"]`)
	f.input(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-0"] .cb-editor-textarea`, "hi")
	f.click(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-0"] .cb-editor-submit`)
	require.EqualValues(t, 2, auth.required.Load())
	require.Len(t, f.mem.All(), 1)
}

func TestEditThenReply(t *testing.T) {
	f := newFixture(t, seedComments(2, "u1"))

	var (
		replies []string
		updated []models.Comment
	)
	inst := f.init(t, Options{
		Auth:            loggedInAs("u1"),
		OnReplyAdd:      func(_ models.Comment, parentID string) { replies = append(replies, parentID) },
		OnCommentUpdate: func(c models.Comment) { updated = append(updated, c) },
	})

	f.click(t, `#box .cb-action-btn[data-action="edit"][data-comment-id="seed-0"]`)
	require.Equal(t, "seed-0", inst.State().EditingComment)
	require.Equal(t, 1, f.count(t, `#box .cb-editor--edit[data-comment-id="seed-0"]`))
	require.Equal(t, "comment 0", f.value(t, "#box .cb-editor--edit .cb-editor-textarea"))
	require.Zero(t, f.count(t, "#box .cb-editor--edit .cb-sticker-btn"))
	require.True(t, f.hidden(t, `#box .cb-comment-item[data-comment-id="seed-0"] .cb-comment-footer`))

	focused := false
	require.NoError(t, f.doc.Do(func() {
		focused = f.doc.IsFocused(f.doc.Find("#box .cb-editor--edit .cb-editor-textarea"))
	}))
	require.True(t, focused)

	// Ответ на другой комментарий закрывает правку.
	f.click(t, `#box .cb-action-btn[data-action="reply"][data-comment-id="seed-1"]`)

	st := inst.State()
	require.Empty(t, st.EditingComment)
	require.True(t, st.ReplyEditors.Has("seed-1"))
	require.Zero(t, f.count(t, "#box .cb-editor--edit"))
	require.Equal(t, "comment 0", f.text(t, `#box .cb-comment-item[data-comment-id="seed-0"] .cb-comment-content`))
	require.False(t, f.hidden(t, `#box .cb-comment-item[data-comment-id="seed-0"] .cb-comment-footer`))
	require.False(t, f.hidden(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-1"]`))

	f.input(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-1"] .cb-editor-textarea`, "a reply")
	f.click(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-1"] .cb-editor-submit`)

	require.Equal(t, []string{"seed-1"}, replies)
	st = inst.State()
	require.Empty(t, st.ReplyEditors)
	require.Equal(t, 1, st.Comments[1].ReplyCount)
	require.Equal(t, "답글 1개 보기", f.text(t, `#box .cb-reply-toggle[data-comment-id="seed-1"]`))
	require.True(t, f.hidden(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-1"]`))

	// Правка и отправка.
	f.click(t, `#box .cb-action-btn[data-action="edit"][data-comment-id="seed-0"]`)
	f.input(t, "#box .cb-editor--edit .cb-editor-textarea", "edited")
	f.click(t, "#box .cb-editor--edit .cb-editor-submit")

	require.Len(t, updated, 1)
	require.Equal(t, "edited", updated[0].Content)
	require.Empty(t, inst.State().EditingComment)
	require.Equal(t, "edited", f.text(t, `#box .cb-comment-item[data-comment-id="seed-0"] .cb-comment-content`))
}

func TestEdit_CancelRestores(t *testing.T) {
	f := newFixture(t, seedComments(1, "u1"))
	inst := f.init(t, Options{Auth: loggedInAs("u1")})

	f.click(t, `#box .cb-action-btn[data-action="edit"][data-comment-id="seed-0"]`)
	f.click(t, "#box .cb-editor--edit .cb-editor-cancel")

	require.Empty(t, inst.State().EditingComment)
	require.Zero(t, f.count(t, "#box .cb-editor--edit"))
	require.Equal(t, "comment 0", f.text(t, "#box .cb-comment-content"))
	_, ok := f.attr(t, "#box .cb-comment-content", "data-original-html")
	require.False(t, ok)
}

func TestReplyEditor_Cancel(t *testing.T) {
	f := newFixture(t, seedComments(1, "u1"))
	inst := f.init(t, Options{Auth: loggedInAs("u1")})

	f.click(t, `#box .cb-action-btn[data-action="reply"][data-comment-id="seed-0"]`)
	require.True(t, inst.State().ReplyEditors.Has("seed-0"))

	f.click(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-0"] .cb-editor-cancel`)
	require.Empty(t, inst.State().ReplyEditors)
	require.True(t, f.hidden(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-0"]`))
	require.Zero(t, f.count(t, `#box .cb-reply-editor-wrapper[data-parent-id="seed-0"] *`))
}

func threadSeed() []models.Comment {
	seed := seedComments(2, "u1")
	seed[0].ReplyCount = 2
	at := seed[0].CreatedAt
	return append(seed, seedReply("r-1", "seed-0", at+1), seedReply("r-2", "seed-0", at+2))
}

func TestToggleReplies_FetchesOnce(t *testing.T) {
	f := newFixture(t, threadSeed())
	cb := &countingBackend{Backend: f.mem}
	inst := f.init(t, Options{Backend: cb})

	var toggles []bool
	inst.On(events.ReplyToggle, func(p any) { toggles = append(toggles, p.(events.ReplyToggled).Expanded) })

	toggle := `#box .cb-reply-toggle[data-comment-id="seed-0"]`
	region := `#box .cb-replies[data-parent-id="seed-0"]`

	require.Equal(t, "답글 2개 보기", f.text(t, toggle))

	f.click(t, toggle)
	require.False(t, f.hidden(t, region))
	require.Equal(t, 2, f.count(t, region+" .cb-reply-item"))
	require.Equal(t, "답글 숨기기", f.text(t, toggle))
	require.True(t, inst.State().ExpandedReplies.Has("seed-0"))

	id, _ := f.attr(t, region+" .cb-reply-item", "data-comment-id")
	require.Equal(t, "r-1", id)

	f.click(t, toggle)
	require.True(t, f.hidden(t, region))
	require.Equal(t, "답글 2개 보기", f.text(t, toggle))
	require.False(t, inst.State().ExpandedReplies.Has("seed-0"))

	f.click(t, toggle)
	require.False(t, f.hidden(t, region))
	require.EqualValues(t, 1, cb.replies.Load())
	require.Equal(t, []bool{true, false, true}, toggles)

	// Полная перерисовка загружает раскрытую ветку заново.
	inst.Refresh()
	f.settle(t)
	require.EqualValues(t, 2, cb.replies.Load())
	require.False(t, f.hidden(t, region))
	require.Equal(t, 2, f.count(t, region+" .cb-reply-item"))
	require.Equal(t, "답글 숨기기", f.text(t, toggle))
}

func TestToggleReplies_ErrorIsScoped(t *testing.T) {
	f := newFixture(t, threadSeed())
	cb := &countingBackend{Backend: f.mem, failReplies: errBoom}

	var onErr atomic.Int32
	inst := f.init(t, Options{Backend: cb, OnError: func(error) { onErr.Add(1) }})

	f.click(t, `#box .cb-reply-toggle[data-comment-id="seed-0"]`)

	require.Equal(t, 1, f.count(t, `#box .cb-replies[data-parent-id="seed-0"] .cb-error`))
	require.NoError(t, inst.State().Err)
	require.Zero(t, onErr.Load())
	require.Equal(t, 2, f.count(t, "#box .cb-list-wrapper > .cb-comment-item"))

	// Неудачная ветка не кэшируется: повторное раскрытие идёт в бэкенд.
	f.click(t, `#box .cb-reply-toggle[data-comment-id="seed-0"]`)
	f.click(t, `#box .cb-reply-toggle[data-comment-id="seed-0"]`)
	require.EqualValues(t, 2, cb.replies.Load())
}

func TestLike_PatchesButtonOnly(t *testing.T) {
	f := newFixture(t, seedComments(2, "u1"))
	cb := &countingBackend{Backend: f.mem}

	var liked []bool
	inst := f.init(t, Options{
		Backend:       cb,
		Auth:          loggedInAs("u2"),
		OnCommentLike: func(_ models.Comment, l bool) { liked = append(liked, l) },
	})

	var payload events.LikeToggled
	inst.On(events.CommentLike, func(p any) { payload = p.(events.LikeToggled) })

	btn := `#box .cb-like-btn[data-comment-id="seed-1"]`
	lists := cb.lists.Load()

	f.click(t, btn)
	require.Equal(t, 1, f.count(t, btn+".cb-like-btn--active"))
	require.Equal(t, "♥", f.text(t, btn+" .cb-like-icon"))
	require.Equal(t, "1", f.text(t, btn+" .cb-like-count"))
	require.True(t, payload.Liked)
	require.Equal(t, "seed-1", payload.Comment.ID)

	st := inst.State()
	require.True(t, st.Comments[1].IsLiked)
	require.Equal(t, 1, st.Comments[1].LikeCount)

	f.click(t, btn)
	require.Zero(t, f.count(t, btn+".cb-like-btn--active"))
	require.Equal(t, "♡", f.text(t, btn+" .cb-like-icon"))
	require.Equal(t, "", f.text(t, btn+" .cb-like-count"))

	require.Equal(t, []bool{true, false}, liked)
	require.Equal(t, lists, cb.lists.Load())
}

func TestDelete_BuiltinConfirm(t *testing.T) {
	var answer atomic.Bool
	f := newFixture(t, seedComments(2, "u1"), dom.WithConfirmer(func(string) bool { return answer.Load() }))

	var deleted []string
	inst := f.init(t, Options{
		Auth:            loggedInAs("u1"),
		OnCommentDelete: func(id string) { deleted = append(deleted, id) },
	})

	del := `#box .cb-action-btn[data-action="delete"][data-comment-id="seed-0"]`

	f.click(t, del)
	require.Empty(t, deleted)
	require.Equal(t, 2, inst.State().TotalCount)

	answer.Store(true)
	f.click(t, del)
	require.Equal(t, []string{"seed-0"}, deleted)
	require.Equal(t, 1, inst.State().TotalCount)

	id, _ := f.attr(t, "#box .cb-comment-item", "data-comment-id")
	require.Equal(t, "seed-1", id)
}

func TestDelete_DeferredProceedRunsOnce(t *testing.T) {
	f := newFixture(t, seedComments(2, "u1"))
	cb := &countingBackend{Backend: f.mem}

	var (
		mu      sync.Mutex
		proceed func()
		onErr   atomic.Int32
	)
	inst := f.init(t, Options{
		Backend: cb,
		Auth:    loggedInAs("u1"),
		OnError: func(error) { onErr.Add(1) },
		OnDeleteConfirm: func(id string, p func()) {
			mu.Lock()
			proceed = p
			mu.Unlock()
		},
	})

	f.click(t, `#box .cb-action-btn[data-action="delete"][data-comment-id="seed-0"]`)
	require.Zero(t, cb.deletes.Load())

	mu.Lock()
	p := proceed
	mu.Unlock()
	require.NotNil(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p()
		}()
	}
	wg.Wait()
	f.settle(t)

	require.EqualValues(t, 1, cb.deletes.Load())
	require.Zero(t, onErr.Load())
	require.Equal(t, 1, inst.State().TotalCount)
}

func TestPagination(t *testing.T) {
	f := newFixture(t, seedComments(25, "u1"))
	inst := f.init(t, Options{})

	var pages []int
	inst.On(events.PageChange, func(p any) { pages = append(pages, p.(int)) })

	// Кнопка «назад» на первой странице выключена.
	f.click(t, "#box .cb-page-prev")
	require.Equal(t, 0, inst.State().CurrentPage)

	f.click(t, "#box .cb-page-next")
	require.Equal(t, 1, inst.State().CurrentPage)
	id, _ := f.attr(t, "#box .cb-comment-item", "data-comment-id")
	require.Equal(t, "seed-10", id)

	f.click(t, `#box .cb-page-btn[data-page="2"]:not(.cb-page-next)`)
	require.Equal(t, 2, inst.State().CurrentPage)
	require.Equal(t, 5, f.count(t, "#box .cb-comment-item"))
	require.Equal(t, 1, f.count(t, "#box .cb-page-next[disabled]"))
	require.Equal(t, []int{1, 2}, pages)

	scrolled := false
	require.NoError(t, f.doc.Do(func() {
		scrolled = f.doc.IsScrolledTo(f.doc.Find("#box"))
		inst.goToPage(3)
		inst.goToPage(-1)
	}))
	f.settle(t)
	require.True(t, scrolled)
	require.Equal(t, 2, inst.State().CurrentPage)
}

func TestLoad_LastIssuedRequestWins(t *testing.T) {
	f := newFixture(t, nil)
	gb := &gatedBackend{Backend: f.mem, gate: make(chan struct{})}

	ready := make(chan struct{})
	inst, err := f.mgr.Init(Options{
		Container: "#box",
		ObjectID:  testObject,
		Backend:   gb,
		OnReady:   func() { close(ready) },
	})
	require.NoError(t, err)

	// Первая загрузка должна занять gate до того, как выпущен Refresh.
	require.Eventually(t, func() bool { return gb.calls.Load() == 1 }, 3*time.Second, 5*time.Millisecond)

	inst.Refresh()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("refresh was not applied")
	}

	close(gb.gate)
	f.settle(t)

	st := inst.State()
	require.Len(t, st.Comments, 2)
	require.Equal(t, "new-1", st.Comments[0].ID)
	require.Equal(t, 2, f.count(t, "#box .cb-comment-item"))
	require.Zero(t, f.count(t, `#box .cb-comment-item[data-comment-id="old"]`))
}

func TestDestroy_CancelsInFlight(t *testing.T) {
	f := newFixture(t, nil)
	gb := &gatedBackend{Backend: f.mem, gate: make(chan struct{})}

	inst, err := f.mgr.Init(Options{Container: "#box", ObjectID: testObject, Backend: gb})
	require.NoError(t, err)

	inst.Destroy()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, inst.Settle(ctx))
	require.Zero(t, f.count(t, "#box *"))
}

func TestStickers(t *testing.T) {
	groups := []models.StickerGroup{
		{ID: "g1", Name: "one", Thumbnail: "https://img/g1.png", Stickers: []models.Sticker{{ID: "s1", ImageURL: "https://img/s1.png"}}},
		{ID: "g2", Name: "two", Thumbnail: "https://img/g2.png", Stickers: []models.Sticker{{ID: "s2", ImageURL: "https://img/s2.png"}}},
	}

	f := newFixture(t, nil)

	var added []models.Comment
	inst := f.init(t, Options{
		Auth:         loggedInAs("u1"),
		Sticker:      &StickerConfig{Enabled: true, Groups: groups},
		OnCommentAdd: func(c models.Comment) { added = append(added, c) },
	})

	btn := "#box .cb-editor-wrapper .cb-sticker-btn"

	f.click(t, btn)
	require.True(t, inst.State().StickerPopupVisible)
	require.Equal(t, 1, f.count(t, "#box .cb-sticker-popup"))

	// Повторный клик закрывает попап.
	f.click(t, btn)
	require.False(t, inst.State().StickerPopupVisible)
	require.Zero(t, f.count(t, "#box .cb-sticker-popup"))

	// Клик снаружи закрывает попап.
	f.click(t, btn)
	f.click(t, "#outside")
	require.False(t, inst.State().StickerPopupVisible)
	require.Zero(t, f.count(t, "#box .cb-sticker-popup"))

	// Вкладка переключает панель без закрытия.
	f.click(t, btn)
	f.click(t, `#box .cb-sticker-tab[data-group-id="g2"]`)
	require.True(t, inst.State().StickerPopupVisible)
	require.True(t, f.hidden(t, `#box .cb-sticker-panel[data-group-id="g1"]`))
	require.False(t, f.hidden(t, `#box .cb-sticker-panel[data-group-id="g2"]`))
	require.Equal(t, 1, f.count(t, `#box .cb-sticker-tab--active[data-group-id="g2"]`))

	f.click(t, `#box .cb-sticker-item[data-sticker-id="s2"]`)
	require.False(t, inst.State().StickerPopupVisible)
	require.False(t, f.hidden(t, "#box .cb-editor-wrapper .cb-sticker-preview"))
	require.True(t, f.hidden(t, "#box .cb-editor-wrapper .cb-editor-textarea"))
	src, _ := f.attr(t, "#box .cb-sticker-preview-img", "src")
	require.Equal(t, "https://img/s2.png", src)

	// Отмена превью возвращает поле ввода.
	f.click(t, "#box .cb-sticker-preview-cancel")
	require.True(t, f.hidden(t, "#box .cb-editor-wrapper .cb-sticker-preview"))
	require.False(t, f.hidden(t, "#box .cb-editor-wrapper .cb-editor-textarea"))
	_, disabled := f.attr(t, "#box .cb-editor-wrapper .cb-editor-textarea", "disabled")
	require.False(t, disabled)

	// Стикер отправляется вместо текста.
	f.click(t, btn)
	f.click(t, `#box .cb-sticker-item[data-sticker-id="s1"]`)
	f.click(t, "#box .cb-editor-wrapper .cb-editor-submit")

	require.Len(t, added, 1)
	require.Equal(t, &models.StickerData{PackID: "g1", StickerID: "s1", ImageURL: "https://img/s1.png"}, added[0].Sticker)
	require.Empty(t, added[0].Content)
	require.Equal(t, 1, f.count(t, "#box .cb-comment-item .cb-sticker-comment-img"))
	require.Zero(t, f.count(t, `#box .cb-comment-item [data-action="edit"]`))
}

func TestStickers_EmptyCatalogPurchase(t *testing.T) {
	f := newFixture(t, nil)

	var bought atomic.Int32
	inst := f.init(t, Options{
		Sticker: &StickerConfig{Enabled: true, OnPurchase: func() { bought.Add(1) }},
	})

	f.click(t, "#box .cb-sticker-btn")
	require.Equal(t, 1, f.count(t, "#box .cb-sticker-purchase-btn"))

	f.click(t, "#box .cb-sticker-purchase-btn")
	require.EqualValues(t, 1, bought.Load())
	require.False(t, inst.State().StickerPopupVisible)
	require.Zero(t, f.count(t, "#box .cb-sticker-popup"))
}

func TestState_SnapshotIsDeepCopy(t *testing.T) {
	f := newFixture(t, seedComments(1, "u1"))
	inst := f.init(t, Options{})

	var changes atomic.Int32
	inst.On(events.StateChange, func(p any) {
		_ = p.(State)
		changes.Add(1)
	})

	st := inst.State()
	st.Comments[0].Content = "mutated"
	st.ExpandedReplies["x"] = struct{}{}

	again := inst.State()
	require.Equal(t, "comment 0", again.Comments[0].Content)
	require.False(t, again.ExpandedReplies.Has("x"))

	inst.Refresh()
	f.settle(t)
	require.Positive(t, changes.Load())
}
