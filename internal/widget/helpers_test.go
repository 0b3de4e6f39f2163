package widget

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/backend/memory"
	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/models"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

const testPage = `<html><body>
<div id="box"></div>
<div id="box2"></div>
<p id="outside">outside</p>
</body></html>`

const testObject = "post-1"

type fixture struct {
	doc *dom.Document
	mgr *Manager
	mem *memory.Memory
}

func newFixture(t *testing.T, seed []models.Comment, opts ...dom.Option) *fixture {
	t.Helper()

	doc, err := dom.New(testPage, opts...)
	require.NoError(t, err)
	t.Cleanup(doc.Close)

	mgr := NewManager(doc, logctx.Nop())
	t.Cleanup(mgr.DestroyAll)

	return &fixture{
		doc: doc,
		mgr: mgr,
		mem: memory.New(memory.WithDelay(0), memory.WithSeed(seed), memory.WithLogger(logctx.Nop())),
	}
}

func (f *fixture) init(t *testing.T, opts Options) *Instance {
	t.Helper()

	if opts.Container == "" {
		opts.Container = "#box"
	}
	if opts.ObjectID == "" {
		opts.ObjectID = testObject
	}
	if opts.Backend == nil {
		opts.Backend = f.mem
	}

	inst, err := f.mgr.Init(opts)
	require.NoError(t, err)
	f.settle(t)

	return inst
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, f.doc.Settle(ctx))
}

func (f *fixture) click(t *testing.T, selector string) {
	t.Helper()

	require.NoError(t, f.doc.Click(selector))
	f.settle(t)
}

func (f *fixture) input(t *testing.T, selector, value string) {
	t.Helper()

	require.NoError(t, f.doc.Input(selector, value))
	f.settle(t)
}

func (f *fixture) count(t *testing.T, selector string) int {
	t.Helper()

	n := 0
	require.NoError(t, f.doc.Query(func(root *goquery.Selection) { n = root.Find(selector).Length() }))
	return n
}

func (f *fixture) text(t *testing.T, selector string) string {
	t.Helper()

	s := ""
	require.NoError(t, f.doc.Query(func(root *goquery.Selection) { s = root.Find(selector).First().Text() }))
	return s
}

func (f *fixture) hidden(t *testing.T, selector string) bool {
	t.Helper()

	h := false
	require.NoError(t, f.doc.Query(func(root *goquery.Selection) { h = dom.IsHidden(root.Find(selector).First()) }))
	return h
}

func (f *fixture) attr(t *testing.T, selector, name string) (string, bool) {
	t.Helper()

	var (
		v  string
		ok bool
	)
	require.NoError(t, f.doc.Query(func(root *goquery.Selection) { v, ok = root.Find(selector).First().Attr(name) }))
	return v, ok
}

func (f *fixture) value(t *testing.T, selector string) string {
	t.Helper()

	v := ""
	require.NoError(t, f.doc.Query(func(root *goquery.Selection) { v = dom.Value(root.Find(selector).First()) }))
	return v
}

// seedComments: n корней объекта testObject, seed-0 самый новый.
func seedComments(n int, authorID string) []models.Comment {
	base := time.Now().Add(-time.Hour).Unix()

	out := make([]models.Comment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Comment{
			ID:        fmt.Sprintf("seed-%d", i),
			ObjectID:  testObject,
			Content:   fmt.Sprintf("comment %d", i),
			Author:    models.Author{ID: authorID, Nickname: "author"},
			CreatedAt: base - int64(i),
			UpdatedAt: base - int64(i),
		})
	}

	return out
}

func seedReply(id, parentID string, at int64) models.Comment {
	p := parentID
	return models.Comment{
		ID:        id,
		ObjectID:  testObject,
		ParentID:  &p,
		Content:   "reply " + id,
		Author:    models.Author{ID: "u-other", Nickname: "other"},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

type stubAuth struct {
	user     atomic.Pointer[models.UserInfo]
	required atomic.Int32
}

func loggedInAs(id string) *stubAuth {
	a := &stubAuth{}
	a.user.Store(&models.UserInfo{ID: id, Nickname: "nick-" + id})
	return a
}

func (a *stubAuth) IsLoggedIn() bool           { return a.user.Load() != nil }
func (a *stubAuth) UserInfo() *models.UserInfo { return a.user.Load() }
func (a *stubAuth) OnLoginRequired()           { a.required.Add(1) }

// countingBackend считает обращения и умеет отказывать.
type countingBackend struct {
	backend.Backend

	lists       atomic.Int32
	replies     atomic.Int32
	deletes     atomic.Int32
	failList    error
	failReplies error
}

func (b *countingBackend) GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error) {
	b.lists.Add(1)
	if b.failList != nil {
		return nil, b.failList
	}

	return b.Backend.GetComments(ctx, p)
}

func (b *countingBackend) GetReplies(ctx context.Context, id string, p models.GetRepliesParams) (*models.RepliesPage, error) {
	b.replies.Add(1)
	if b.failReplies != nil {
		return nil, b.failReplies
	}

	return b.Backend.GetReplies(ctx, id, p)
}

func (b *countingBackend) DeleteComment(ctx context.Context, id string) error {
	b.deletes.Add(1)
	return b.Backend.DeleteComment(ctx, id)
}

// gatedBackend задерживает первую выдачу списка до закрытия gate.
type gatedBackend struct {
	backend.Backend

	calls atomic.Int32
	gate  chan struct{}
}

func (b *gatedBackend) GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error) {
	if b.calls.Add(1) == 1 {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return &models.CommentsPage{
			Comments:   []models.Comment{{ID: "old", ObjectID: p.ObjectID, Author: models.Author{Nickname: "o"}}},
			TotalCount: 1,
		}, nil
	}

	return &models.CommentsPage{
		Comments: []models.Comment{
			{ID: "new-1", ObjectID: p.ObjectID, Author: models.Author{Nickname: "n"}},
			{ID: "new-2", ObjectID: p.ObjectID, Author: models.Author{Nickname: "n"}},
		},
		TotalCount: 2,
	}, nil
}

var errBoom = errors.New("boom")
