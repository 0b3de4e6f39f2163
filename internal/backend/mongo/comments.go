package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/models"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

// commentDoc: документ коллекции comments. Признак IsLiked не хранится.
type commentDoc struct {
	ID         string              `bson:"_id"`
	ObjectID   string              `bson:"object_id"`
	ParentID   *string             `bson:"parent_id"`
	Content    string              `bson:"content"`
	Author     models.Author       `bson:"author"`
	Sticker    *models.StickerData `bson:"sticker,omitempty"`
	CreatedAt  int64               `bson:"created_at"`
	UpdatedAt  int64               `bson:"updated_at"`
	IsDeleted  bool                `bson:"is_deleted"`
	ReplyCount int                 `bson:"reply_count"`
	LikeCount  int                 `bson:"like_count"`
	Seq        int64               `bson:"seq"`
}

func (d commentDoc) toModel(liked bool) models.Comment {
	c := models.Comment{
		ID:         d.ID,
		ObjectID:   d.ObjectID,
		ParentID:   d.ParentID,
		Content:    d.Content,
		Author:     d.Author,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		IsDeleted:  d.IsDeleted,
		ReplyCount: d.ReplyCount,
		LikeCount:  d.LikeCount,
		IsLiked:    liked,
		Sticker:    d.Sticker,
	}

	return c.Clone()
}

type likeDoc struct {
	CommentID string `bson:"comment_id"`
	ViewerID  string `bson:"viewer_id"`
}

func (m *Mongo) logger(ctx context.Context) *slog.Logger {
	if l := logctx.From(ctx); l != slog.Default() {
		return l
	}

	return m.log
}

func newID() string {
	return "comment-" + primitive.NewObjectID().Hex()
}

// live: фильтр неудалённой записи по id.
func live(id string) bson.D {
	return bson.D{{Key: "_id", Value: strings.TrimSpace(id)}, {Key: "is_deleted", Value: false}}
}

// findLive возвращает неудалённый документ или backend.ErrNotFound.
func (m *Mongo) findLive(ctx context.Context, id string) (*commentDoc, error) {
	var doc commentDoc
	if err := m.comments.FindOne(ctx, live(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, backend.ErrNotFound
		}

		return nil, err
	}

	return &doc, nil
}

// likedSet: какие из ids лайкнул зритель.
func (m *Mongo) likedSet(ctx context.Context, viewer string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := m.likes.Find(ctx, bson.D{
		{Key: "viewer_id", Value: viewer},
		{Key: "comment_id", Value: bson.D{{Key: "$in", Value: ids}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var l likeDoc
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out[l.CommentID] = true
	}

	return out, cur.Err()
}

// page читает страницу документов и проставляет лайки зрителя.
func (m *Mongo) page(ctx context.Context, filter bson.D, sort bson.D, page, size int) ([]models.Comment, int, bool, error) {
	total64, err := m.comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, false, fmt.Errorf("count: %w", err)
	}
	total := int(total64)

	start, end, hasNext := backend.Paginate(total, page, size)
	if end <= start {
		return []models.Comment{}, total, hasNext, nil
	}

	findOpts := options.Find().
		SetSort(sort).
		SetSkip(int64(start)).
		SetLimit(int64(end - start))

	cur, err := m.comments.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, false, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, false, fmt.Errorf("decode: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	liked, err := m.likedSet(ctx, backend.ViewerFrom(ctx), ids)
	if err != nil {
		return nil, 0, false, fmt.Errorf("likes: %w", err)
	}

	items := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toModel(liked[d.ID]))
	}

	return items, total, hasNext, nil
}

// GetComments: см. backend.Backend.
func (m *Mongo) GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error) {
	const op = "backend/mongo/GetComments"

	filter := bson.D{
		{Key: "object_id", Value: p.ObjectID},
		{Key: "parent_id", Value: nil},
		{Key: "is_deleted", Value: false},
	}

	sort := bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}
	if p.Sort == models.SortPopular {
		sort = append(bson.D{{Key: "reply_count", Value: -1}}, sort...)
	}

	items, total, hasNext, err := m.page(ctx, filter, sort, p.Page, p.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.logger(ctx).Debug("comments_listed",
		slog.String("op", op),
		slog.String("object_id", p.ObjectID),
		slog.Int("page", p.Page),
		slog.Int("count", len(items)),
	)

	return &models.CommentsPage{
		Comments:    items,
		TotalCount:  total,
		HasNext:     hasNext,
		CurrentPage: p.Page,
	}, nil
}

func (m *Mongo) newDoc(objectID string, parentID *string, data models.CreateCommentData) commentDoc {
	now := m.now().Unix()

	author := models.AnonymousAuthor()
	if data.Author != nil {
		author = *data.Author
	}

	var sticker *models.StickerData
	if data.Sticker != nil {
		s := *data.Sticker
		sticker = &s
	}

	return commentDoc{
		ID:        newID(),
		ObjectID:  objectID,
		ParentID:  parentID,
		Content:   data.Content,
		Author:    author,
		Sticker:   sticker,
		CreatedAt: now,
		UpdatedAt: now,
		Seq:       m.seq.Add(1),
	}
}

// CreateComment: см. backend.Backend.
func (m *Mongo) CreateComment(ctx context.Context, objectID string, data models.CreateCommentData) (*models.Comment, error) {
	const op = "backend/mongo/CreateComment"

	doc := m.newDoc(objectID, nil, data)
	if _, err := m.comments.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	m.logger(ctx).Debug("comment_created", slog.String("op", op), slog.String("id", doc.ID))

	out := doc.toModel(false)
	return &out, nil
}

// UpdateComment: см. backend.Backend.
func (m *Mongo) UpdateComment(ctx context.Context, id string, data models.UpdateCommentData) (*models.Comment, error) {
	const op = "backend/mongo/UpdateComment"

	var doc commentDoc
	err := m.comments.FindOneAndUpdate(ctx, live(id),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "content", Value: data.Content},
			{Key: "updated_at", Value: m.now().Unix()},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, backend.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	liked, err := m.likedSet(ctx, backend.ViewerFrom(ctx), []string{doc.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: likes: %w", op, err)
	}

	out := doc.toModel(liked[doc.ID])
	return &out, nil
}

// DeleteComment: см. backend.Backend. Переход is_deleted false->true атомарный,
// поэтому счётчик родителя уменьшается ровно один раз.
func (m *Mongo) DeleteComment(ctx context.Context, id string) error {
	const op = "backend/mongo/DeleteComment"

	var doc commentDoc
	err := m.comments.FindOneAndUpdate(ctx, live(id),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_deleted", Value: true},
			{Key: "updated_at", Value: m.now().Unix()},
		}}},
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return fmt.Errorf("%s: %w", op, backend.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if doc.ParentID != nil {
		_, err := m.comments.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: *doc.ParentID}, {Key: "reply_count", Value: bson.D{{Key: "$gt", Value: 0}}}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "reply_count", Value: -1}}}},
		)
		if err != nil {
			return fmt.Errorf("%s: parent counter: %w", op, err)
		}
	}

	m.logger(ctx).Debug("comment_deleted", slog.String("op", op), slog.String("id", doc.ID))
	return nil
}

// GetReplies: см. backend.Backend.
func (m *Mongo) GetReplies(ctx context.Context, parentID string, p models.GetRepliesParams) (*models.RepliesPage, error) {
	const op = "backend/mongo/GetReplies"

	filter := bson.D{
		{Key: "parent_id", Value: strings.TrimSpace(parentID)},
		{Key: "is_deleted", Value: false},
	}
	sort := bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}

	items, total, hasNext, err := m.page(ctx, filter, sort, p.Page, p.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.RepliesPage{
		Replies:    items,
		TotalCount: total,
		HasNext:    hasNext,
	}, nil
}

// CreateReply: см. backend.Backend. Ответ на ответ: ErrInvalidArgument.
func (m *Mongo) CreateReply(ctx context.Context, parentID string, data models.CreateCommentData) (*models.Comment, error) {
	const op = "backend/mongo/CreateReply"

	parent, err := m.findLive(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("%s: parent: %w", op, err)
	}

	if parent.ParentID != nil {
		return nil, fmt.Errorf("%s: reply to reply: %w", op, backend.ErrInvalidArgument)
	}

	pid := parent.ID
	doc := m.newDoc(parent.ObjectID, &pid, data)
	if _, err := m.comments.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	if _, err := m.comments.UpdateByID(ctx, pid, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "reply_count", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("%s: parent counter: %w", op, err)
	}

	m.logger(ctx).Debug("reply_created",
		slog.String("op", op),
		slog.String("id", doc.ID),
		slog.String("parent_id", pid),
	)

	out := doc.toModel(false)
	return &out, nil
}

// LikeComment: см. backend.Backend. Повторный лайк (duplicate key) ничего не меняет.
func (m *Mongo) LikeComment(ctx context.Context, id string) (*models.Comment, error) {
	const op = "backend/mongo/LikeComment"

	doc, err := m.findLive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	viewer := backend.ViewerFrom(ctx)
	_, err = m.likes.InsertOne(ctx, likeDoc{CommentID: doc.ID, ViewerID: viewer})
	switch {
	case mongodriver.IsDuplicateKeyError(err):
	case err != nil:
		return nil, fmt.Errorf("%s: insert like: %w", op, err)
	default:
		if err := m.bumpLikes(ctx, doc, 1); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	out := doc.toModel(true)
	return &out, nil
}

// UnlikeComment: см. backend.Backend.
func (m *Mongo) UnlikeComment(ctx context.Context, id string) (*models.Comment, error) {
	const op = "backend/mongo/UnlikeComment"

	doc, err := m.findLive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := m.likes.DeleteOne(ctx, likeDoc{CommentID: doc.ID, ViewerID: backend.ViewerFrom(ctx)})
	if err != nil {
		return nil, fmt.Errorf("%s: delete like: %w", op, err)
	}

	if res.DeletedCount > 0 {
		if err := m.bumpLikes(ctx, doc, -1); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	out := doc.toModel(false)
	return &out, nil
}

// bumpLikes меняет like_count на delta (не ниже 0) и обновляет doc.
func (m *Mongo) bumpLikes(ctx context.Context, doc *commentDoc, delta int) error {
	filter := bson.D{{Key: "_id", Value: doc.ID}}
	if delta < 0 {
		filter = append(filter, bson.E{Key: "like_count", Value: bson.D{{Key: "$gt", Value: 0}}})
	}

	err := m.comments.FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$inc", Value: bson.D{{Key: "like_count", Value: delta}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if err != nil && !errors.Is(err, mongodriver.ErrNoDocuments) {
		return fmt.Errorf("like counter: %w", err)
	}

	return nil
}
