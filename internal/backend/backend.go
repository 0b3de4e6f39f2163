// Package backend описывает контракт источника данных виджета.
// Реализации: memory (в памяти с искусственной задержкой), httpapi (REST-клиент), mongo.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MochaChoco/my-site/internal/models"
)

var (
	// ErrNotFound: комментарий/родитель не существует или уже удалён.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: некорректные входные данные (например, ответ на ответ).
	ErrInvalidArgument = errors.New("invalid argument")
)

// Backend описывает операции над комментариями.
// Все методы могут блокироваться и обязаны уважать ctx.
type Backend interface {
	// GetComments возвращает страницу неудалённых корневых комментариев объекта.
	// Срез страницы: [page*pageSize, page*pageSize+pageSize); HasNext: есть ли элементы дальше.
	// Сортировка: latest: created_at DESC, popular: reply_count DESC.
	GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error)

	// CreateComment создаёт корневой комментарий (ParentID == nil, счётчики нулевые).
	CreateComment(ctx context.Context, objectID string, data models.CreateCommentData) (*models.Comment, error)

	// UpdateComment заменяет текст и updated_at. Нет живой записи: ErrNotFound.
	UpdateComment(ctx context.Context, id string, data models.UpdateCommentData) (*models.Comment, error)

	// DeleteComment выполняет мягкое удаление; у родителя ответа reply_count уменьшается (не ниже 0).
	// Нет живой записи: ErrNotFound.
	DeleteComment(ctx context.Context, id string) error

	// GetReplies возвращает страницу неудалённых ответов, сначала старые (created_at ASC).
	GetReplies(ctx context.Context, parentID string, p models.GetRepliesParams) (*models.RepliesPage, error)

	// CreateReply создаёт ответ с object_id родителя и инкрементирует reply_count родителя.
	// Родитель не найден: ErrNotFound.
	CreateReply(ctx context.Context, parentID string, data models.CreateCommentData) (*models.Comment, error)

	// LikeComment идемпотентно ставит лайк от имени зрителя из ctx.
	LikeComment(ctx context.Context, id string) (*models.Comment, error)

	// UnlikeComment идемпотентно снимает лайк зрителя из ctx.
	UnlikeComment(ctx context.Context, id string) (*models.Comment, error)
}

// HTTPError: не-2xx ответ сетевого бэкенда.
type HTTPError struct {
	Op         string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
}

// Unwrap позволяет сопоставлять статусы с доменными ошибками через errors.Is.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidArgument
	default:
		return nil
	}
}

// AnonymousViewer: зритель по умолчанию, если в контексте никого нет.
const AnonymousViewer = "anonymous"

type viewerKey struct{}

// WithViewer кладёт идентификатор зрителя в контекст.
// По нему бэкенды ведут персональные наборы лайков.
func WithViewer(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerKey{}, strings.TrimSpace(viewerID))
}

// ViewerFrom достаёт идентификатор зрителя (или AnonymousViewer).
func ViewerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(viewerKey{}).(string); ok && v != "" {
		return v
	}

	return AnonymousViewer
}

// HasViewer сообщает, задан ли зритель явно.
func HasViewer(ctx context.Context) bool {
	v, ok := ctx.Value(viewerKey{}).(string)
	return ok && v != ""
}

// Paginate возвращает границы среза [start, end) и признак следующей страницы.
// Отрицательные page/pageSize приводятся к пустой выдаче.
func Paginate(total, page, pageSize int) (start, end int, hasNext bool) {
	if page < 0 || pageSize <= 0 {
		return 0, 0, false
	}

	start = page * pageSize
	end = start + pageSize
	hasNext = end < total

	if start > total {
		start = total
	}

	if end > total {
		end = total
	}

	return start, end, hasNext
}
