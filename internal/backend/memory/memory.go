// Package memory: бэкенд комментариев в памяти процесса с искусственной задержкой.
// Используется для разработки, демо-стенда и детерминированных тестов.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/models"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

const (
	// DefaultDelay: задержка по умолчанию перед каждой операцией.
	DefaultDelay = 300 * time.Millisecond

	resetCounter = 100
)

// Option настраивает Memory.
type Option func(*Memory)

// WithDelay задаёт искусственную задержку; 0 отключает её.
func WithDelay(d time.Duration) Option {
	return func(m *Memory) {
		if d < 0 {
			d = 0
		}
		m.delay = d
	}
}

// WithSeed задаёт начальный набор комментариев (копируется).
func WithSeed(comments []models.Comment) Option {
	return func(m *Memory) {
		m.comments = make([]*models.Comment, 0, len(comments))
		for _, c := range comments {
			cp := c.Clone()
			m.comments = append(m.comments, &cp)
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger задаёт логгер по умолчанию (если в ctx его нет).
func WithLogger(l *slog.Logger) Option {
	return func(m *Memory) {
		if l != nil {
			m.log = l
		}
	}
}

// Memory хранит комментарии в срезе: новые корни вставляются в начало, ответы: в конец.
// Лайки ведутся отдельно для каждого зрителя.
type Memory struct {
	mu       sync.Mutex
	comments []*models.Comment
	likes    map[string]map[string]struct{} // viewer -> set(comment_id)
	counter  int
	delay    time.Duration
	now      func() time.Time
	log      *slog.Logger
}

var _ backend.Backend = (*Memory)(nil)

// New создаёт пустое хранилище.
func New(opts ...Option) *Memory {
	m := &Memory{
		likes:   make(map[string]map[string]struct{}),
		counter: 1,
		delay:   DefaultDelay,
		now:     time.Now,
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// simulateDelay ждёт m.delay либо отмены контекста.
func (m *Memory) simulateDelay(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(m.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Memory) logger(ctx context.Context) *slog.Logger {
	if l := logctx.From(ctx); l != slog.Default() {
		return l
	}

	return m.log
}

func (m *Memory) nextID() string {
	id := fmt.Sprintf("comment-%d", m.counter)
	m.counter++
	return id
}

// find возвращает живой комментарий по id (под m.mu).
func (m *Memory) find(id string) *models.Comment {
	for _, c := range m.comments {
		if c.ID == id && !c.IsDeleted {
			return c
		}
	}

	return nil
}

// view собирает копию комментария с признаком лайка для зрителя (под m.mu).
func (m *Memory) view(c *models.Comment, viewer string) models.Comment {
	out := c.Clone()
	_, out.IsLiked = m.likes[viewer][c.ID]
	return out
}

// GetComments: см. backend.Backend.
func (m *Memory) GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error) {
	const op = "backend/memory/GetComments"

	if err := m.simulateDelay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	viewer := backend.ViewerFrom(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := make([]*models.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		if c.ObjectID == p.ObjectID && !c.IsReply() && !c.IsDeleted {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if p.Sort == models.SortPopular {
			return filtered[i].ReplyCount > filtered[j].ReplyCount
		}
		return filtered[i].CreatedAt > filtered[j].CreatedAt
	})

	start, end, hasNext := backend.Paginate(len(filtered), p.Page, p.PageSize)

	items := make([]models.Comment, 0, end-start)
	for _, c := range filtered[start:end] {
		items = append(items, m.view(c, viewer))
	}

	m.logger(ctx).Debug("comments_listed",
		slog.String("op", op),
		slog.String("object_id", p.ObjectID),
		slog.Int("page", p.Page),
		slog.Int("count", len(items)),
	)

	return &models.CommentsPage{
		Comments:    items,
		TotalCount:  len(filtered),
		HasNext:     hasNext,
		CurrentPage: p.Page,
	}, nil
}

// newComment собирает запись с нулевыми счётчиками (под m.mu).
func (m *Memory) newComment(objectID string, parentID *string, data models.CreateCommentData) *models.Comment {
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

	return &models.Comment{
		ID:        m.nextID(),
		ObjectID:  objectID,
		ParentID:  parentID,
		Content:   data.Content,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
		Sticker:   sticker,
	}
}

// CreateComment: см. backend.Backend. Новый корень вставляется в начало хранилища.
func (m *Memory) CreateComment(ctx context.Context, objectID string, data models.CreateCommentData) (*models.Comment, error) {
	const op = "backend/memory/CreateComment"

	if err := m.simulateDelay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.newComment(objectID, nil, data)
	m.comments = append([]*models.Comment{c}, m.comments...)

	m.logger(ctx).Debug("comment_created", slog.String("op", op), slog.String("id", c.ID))

	out := c.Clone()
	return &out, nil
}

// UpdateComment: см. backend.Backend.
func (m *Memory) UpdateComment(ctx context.Context, id string, data models.UpdateCommentData) (*models.Comment, error) {
	const op = "backend/memory/UpdateComment"

	if err := m.simulateDelay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	viewer := backend.ViewerFrom(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(strings.TrimSpace(id))
	if c == nil {
		return nil, fmt.Errorf("%s: %w", op, backend.ErrNotFound)
	}

	c.Content = data.Content
	c.UpdatedAt = m.now().Unix()

	out := m.view(c, viewer)
	return &out, nil
}

// DeleteComment: см. backend.Backend. Повторное удаление: ErrNotFound, счётчик родителя не трогается.
func (m *Memory) DeleteComment(ctx context.Context, id string) error {
	const op = "backend/memory/DeleteComment"

	if err := m.simulateDelay(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(strings.TrimSpace(id))
	if c == nil {
		return fmt.Errorf("%s: %w", op, backend.ErrNotFound)
	}

	c.IsDeleted = true
	c.UpdatedAt = m.now().Unix()

	if c.IsReply() {
		for _, parent := range m.comments {
			if parent.ID == *c.ParentID && parent.ReplyCount > 0 {
				parent.ReplyCount--
				break
			}
		}
	}

	m.logger(ctx).Debug("comment_deleted", slog.String("op", op), slog.String("id", c.ID))
	return nil
}

// GetReplies: см. backend.Backend.
func (m *Memory) GetReplies(ctx context.Context, parentID string, p models.GetRepliesParams) (*models.RepliesPage, error) {
	const op = "backend/memory/GetReplies"

	if err := m.simulateDelay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	viewer := backend.ViewerFrom(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := make([]*models.Comment, 0)
	for _, c := range m.comments {
		if c.IsReply() && *c.ParentID == parentID && !c.IsDeleted {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt < filtered[j].CreatedAt
	})

	start, end, hasNext := backend.Paginate(len(filtered), p.Page, p.PageSize)

	items := make([]models.Comment, 0, end-start)
	for _, c := range filtered[start:end] {
		items = append(items, m.view(c, viewer))
	}

	return &models.RepliesPage{
		Replies:    items,
		TotalCount: len(filtered),
		HasNext:    hasNext,
	}, nil
}

// CreateReply: см. backend.Backend. Ответ на ответ запрещён (глубина дерева: 2).
func (m *Memory) CreateReply(ctx context.Context, parentID string, data models.CreateCommentData) (*models.Comment, error) {
	const op = "backend/memory/CreateReply"

	if err := m.simulateDelay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.find(strings.TrimSpace(parentID))
	if parent == nil {
		return nil, fmt.Errorf("%s: parent: %w", op, backend.ErrNotFound)
	}

	if parent.IsReply() {
		return nil, fmt.Errorf("%s: reply to reply: %w", op, backend.ErrInvalidArgument)
	}

	pid := parent.ID
	reply := m.newComment(parent.ObjectID, &pid, data)
	m.comments = append(m.comments, reply)
	parent.ReplyCount++

	m.logger(ctx).Debug("reply_created",
		slog.String("op", op),
		slog.String("id", reply.ID),
		slog.String("parent_id", pid),
	)

	out := reply.Clone()
	return &out, nil
}

// LikeComment: см. backend.Backend.
func (m *Memory) LikeComment(ctx context.Context, id string) (*models.Comment, error) {
	return m.setLike(ctx, "backend/memory/LikeComment", id, true)
}

// UnlikeComment: см. backend.Backend.
func (m *Memory) UnlikeComment(ctx context.Context, id string) (*models.Comment, error) {
	return m.setLike(ctx, "backend/memory/UnlikeComment", id, false)
}

// setLike приводит членство комментария в наборе лайков зрителя к liked.
// Повторный вызов с тем же значением ничего не меняет.
func (m *Memory) setLike(ctx context.Context, op, id string, liked bool) (*models.Comment, error) {
	if err := m.simulateDelay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	viewer := backend.ViewerFrom(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(strings.TrimSpace(id))
	if c == nil {
		return nil, fmt.Errorf("%s: %w", op, backend.ErrNotFound)
	}

	set := m.likes[viewer]
	if set == nil {
		set = make(map[string]struct{})
		m.likes[viewer] = set
	}

	_, has := set[c.ID]
	switch {
	case liked && !has:
		set[c.ID] = struct{}{}
		c.LikeCount++
	case !liked && has:
		delete(set, c.ID)
		if c.LikeCount > 0 {
			c.LikeCount--
		}
	}

	out := m.view(c, viewer)
	return &out, nil
}

// Reset очищает хранилище и лайки; счётчик идентификаторов начинается со 100.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.comments = nil
	m.likes = make(map[string]map[string]struct{})
	m.counter = resetCounter
}

// All возвращает копию всего хранилища, включая удалённые записи.
func (m *Memory) All() []models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		out = append(out, c.Clone())
	}

	return out
}
