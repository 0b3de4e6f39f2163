package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/models"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

// testTimeout: общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, а каждый тест
// создаёт свою БД с уникальным именем (см. mustNewMongo).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("DATABASE_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// mustNewMongo подключается к отдельной тестовой БД и регистрирует очистку.
func mustNewMongo(t *testing.T, opts ...Option) *Mongo {
	t.Helper()

	uri := os.Getenv("DATABASE_URL")
	if os.Getenv("GO_TEST_INTEGRATION") == "" || uri == "" {
		t.Skip("GO_TEST_INTEGRATION is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	opts = append([]Option{WithLogger(logctx.Nop())}, opts...)
	m, err := New(ctx, uri, "comments_test_"+uuid.NewString(), opts...)
	require.NoError(t, err, "cannot connect to MongoDB in container (DATABASE_URL=%s)", uri)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	return ctx
}

func TestDatabaseName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "site", databaseName("mongodb://localhost:27017/site", "x"))
	require.Equal(t, "x", databaseName("mongodb://localhost:27017", "x"))
	require.Equal(t, "commentbox", databaseName("mongodb://localhost:27017/", ""))
}

func TestCommentDoc_ToModel(t *testing.T) {
	t.Parallel()

	pid := "comment-1"
	doc := commentDoc{ID: "comment-2", ParentID: &pid, Sticker: &models.StickerData{StickerID: "s"}, LikeCount: 3}

	c := doc.toModel(true)
	require.True(t, c.IsLiked)
	require.True(t, c.IsReply())
	require.Equal(t, 3, c.LikeCount)

	*c.ParentID = "changed"
	c.Sticker.StickerID = "changed"
	require.Equal(t, "comment-1", pid)
	require.Equal(t, "s", doc.Sticker.StickerID)
}

// Новые корни идут первыми, пагинация и hasNext как у памяти.
func TestGetComments_OrderAndPagination(t *testing.T) {
	m := mustNewMongo(t, WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	ctx := testCtx(t)

	var ids []string
	for i := 0; i < 5; i++ {
		c, err := m.CreateComment(ctx, "o1", models.CreateCommentData{Content: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	_, err := m.CreateComment(ctx, "other", models.CreateCommentData{Content: "x"})
	require.NoError(t, err)

	p0, err := m.GetComments(ctx, models.GetCommentsParams{ObjectID: "o1", Page: 0, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, p0.TotalCount)
	require.True(t, p0.HasNext)
	require.Equal(t, ids[4], p0.Comments[0].ID, "equal timestamps: last inserted first")
	require.Equal(t, models.AnonymousAuthor(), p0.Comments[0].Author)

	p2, err := m.GetComments(ctx, models.GetCommentsParams{ObjectID: "o1", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.False(t, p2.HasNext)
	require.Len(t, p2.Comments, 1)
	require.Equal(t, ids[0], p2.Comments[0].ID)

	p9, err := m.GetComments(ctx, models.GetCommentsParams{ObjectID: "o1", Page: 9, PageSize: 2})
	require.NoError(t, err)
	require.Empty(t, p9.Comments)
	require.Equal(t, 9, p9.CurrentPage)
}

// Счётчик ответов: +1 на ответ, -1 на удаление (ровно один раз), ответ на ответ запрещён.
func TestReplies_CounterAndDepth(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	root, err := m.CreateComment(ctx, "o1", models.CreateCommentData{Content: "root"})
	require.NoError(t, err)

	r1, err := m.CreateReply(ctx, root.ID, models.CreateCommentData{Content: "r1"})
	require.NoError(t, err)
	require.Equal(t, "o1", r1.ObjectID)
	require.Equal(t, root.ID, *r1.ParentID)

	_, err = m.CreateReply(ctx, root.ID, models.CreateCommentData{Content: "r2"})
	require.NoError(t, err)

	_, err = m.CreateReply(ctx, r1.ID, models.CreateCommentData{Content: "deep"})
	require.ErrorIs(t, err, backend.ErrInvalidArgument)

	_, err = m.CreateReply(ctx, "comment-missing", models.CreateCommentData{Content: "x"})
	require.ErrorIs(t, err, backend.ErrNotFound)

	page, err := m.GetComments(ctx, models.GetCommentsParams{ObjectID: "o1", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	require.Equal(t, 2, page.Comments[0].ReplyCount)

	replies, err := m.GetReplies(ctx, root.ID, models.GetRepliesParams{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 2, replies.TotalCount)
	require.Equal(t, "r1", replies.Replies[0].Content)

	require.NoError(t, m.DeleteComment(ctx, r1.ID))
	require.ErrorIs(t, m.DeleteComment(ctx, r1.ID), backend.ErrNotFound)

	page, err = m.GetComments(ctx, models.GetCommentsParams{ObjectID: "o1", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.Comments[0].ReplyCount)

	replies, err = m.GetReplies(ctx, root.ID, models.GetRepliesParams{PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, replies.TotalCount)
}

func TestUpdate_AndNotFound(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	c, err := m.CreateComment(ctx, "o1", models.CreateCommentData{Content: "before"})
	require.NoError(t, err)

	up, err := m.UpdateComment(ctx, c.ID, models.UpdateCommentData{Content: "after"})
	require.NoError(t, err)
	require.Equal(t, "after", up.Content)

	require.NoError(t, m.DeleteComment(ctx, c.ID))

	_, err = m.UpdateComment(ctx, c.ID, models.UpdateCommentData{Content: "again"})
	require.ErrorIs(t, err, backend.ErrNotFound)

	require.ErrorIs(t, m.DeleteComment(ctx, "comment-nope"), backend.ErrNotFound)
}

// Лайки идемпотентны и персональны для зрителя.
func TestLikes_IdempotentPerViewer(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	c, err := m.CreateComment(ctx, "o1", models.CreateCommentData{Content: "x"})
	require.NoError(t, err)

	alice := backend.WithViewer(ctx, "alice")
	bob := backend.WithViewer(ctx, "bob")

	got, err := m.LikeComment(alice, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikeCount)
	require.True(t, got.IsLiked)

	got, err = m.LikeComment(alice, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikeCount)

	page, err := m.GetComments(bob, models.GetCommentsParams{ObjectID: "o1", PageSize: 10})
	require.NoError(t, err)
	require.False(t, page.Comments[0].IsLiked)
	require.Equal(t, 1, page.Comments[0].LikeCount)

	page, err = m.GetComments(alice, models.GetCommentsParams{ObjectID: "o1", PageSize: 10})
	require.NoError(t, err)
	require.True(t, page.Comments[0].IsLiked)

	got, err = m.UnlikeComment(alice, c.ID)
	require.NoError(t, err)
	require.Zero(t, got.LikeCount)
	require.False(t, got.IsLiked)

	got, err = m.UnlikeComment(alice, c.ID)
	require.NoError(t, err)
	require.Zero(t, got.LikeCount)

	_, err = m.LikeComment(alice, "comment-nope")
	require.ErrorIs(t, err, backend.ErrNotFound)
}

func TestPopularSort(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	a, err := m.CreateComment(ctx, "o1", models.CreateCommentData{Content: "a"})
	require.NoError(t, err)
	_, err = m.CreateComment(ctx, "o1", models.CreateCommentData{Content: "b"})
	require.NoError(t, err)

	_, err = m.CreateReply(ctx, a.ID, models.CreateCommentData{Content: "r"})
	require.NoError(t, err)

	page, err := m.GetComments(ctx, models.GetCommentsParams{ObjectID: "o1", PageSize: 10, Sort: models.SortPopular})
	require.NoError(t, err)
	require.Equal(t, a.ID, page.Comments[0].ID)
}

func TestEnsureIndexes_Created(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	names := func(t *testing.T, specs []map[string]any) map[string]bool {
		t.Helper()
		out := map[string]bool{}
		for _, s := range specs {
			if n, _ := s["name"].(string); n != "" {
				out[n] = true
			}
		}
		return out
	}

	var commentIdx, likeIdx []map[string]any

	cur, err := m.comments.Indexes().List(ctx)
	require.NoError(t, err)
	require.NoError(t, cur.All(ctx, &commentIdx))

	cur, err = m.likes.Indexes().List(ctx)
	require.NoError(t, err)
	require.NoError(t, cur.All(ctx, &likeIdx))

	have := names(t, commentIdx)
	require.True(t, have["object_parent_created_desc"])
	require.True(t, have["object_parent_replies_desc"])
	require.True(t, have["parent_created_asc"])
	require.True(t, names(t, likeIdx)["comment_viewer_unique"])
}
