package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/pkg/log"
)

// GetComments: страница корневых комментариев объекта.
//
// Валидация:
//   - ObjectID обязателен;
//   - Page >= 0;
//   - PageSize: 0 -> limits.Default, больше limits.Max -> limits.Max, отрицательный -> ErrInvalidArgument;
//   - Sort: пусто -> latest, иначе latest|popular.
func (s *Service) GetComments(ctx context.Context, p models.GetCommentsParams) (*models.CommentsPage, error) {
	const op = "service/comments/GetComments"

	p.ObjectID = strings.TrimSpace(p.ObjectID)
	lg := log.From(ctx).With("op", op, "object_id", p.ObjectID, "page", p.Page)

	if p.ObjectID == "" {
		lg.Warn("invalid argument: empty object_id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if p.Page < 0 {
		lg.Warn("invalid argument: negative page")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	size, err := s.pageSize(p.PageSize)
	if err != nil {
		lg.Warn("invalid argument: negative page_size")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.PageSize = size

	switch p.Sort {
	case "":
		p.Sort = models.SortLatest
	case models.SortLatest, models.SortPopular:
	default:
		lg.Warn("invalid argument: unknown sort", slog.String("sort", string(p.Sort)))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	page, err := s.backend.GetComments(ctx, p)
	if err != nil {
		return nil, s.mapErr(lg, op, err)
	}

	return page, nil
}

// CreateComment: создание корневого комментария.
//
// Валидация:
//   - objectID обязателен;
//   - текст нормализуется (TrimSpace); пустой допустим только для стикера;
//   - длина текста не больше limits.MaxContent рун;
//   - у стикера обязательны sticker_id и image_url.
func (s *Service) CreateComment(ctx context.Context, objectID string, data models.CreateCommentData) (*models.Comment, error) {
	const op = "service/comments/CreateComment"

	objectID = strings.TrimSpace(objectID)
	lg := log.From(ctx).With("op", op, "object_id", objectID)

	if objectID == "" {
		lg.Warn("invalid argument: empty object_id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	data, err := s.normalizeCreate(lg, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.backend.CreateComment(ctx, objectID, data)
	if err != nil {
		return nil, s.mapErr(lg, op, err)
	}

	return c, nil
}

// UpdateComment: замена текста комментария.
func (s *Service) UpdateComment(ctx context.Context, id string, data models.UpdateCommentData) (*models.Comment, error) {
	const op = "service/comments/UpdateComment"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	data.Content = strings.TrimSpace(data.Content)
	if err := s.checkContent(lg, data.Content, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.backend.UpdateComment(ctx, id, data)
	if err != nil {
		return nil, s.mapErr(lg, op, err)
	}

	return c, nil
}

// DeleteComment: мягкое удаление комментария по ID.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	const op = "service/comments/DeleteComment"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if err := s.backend.DeleteComment(ctx, id); err != nil {
		return s.mapErr(lg, op, err)
	}

	return nil
}

// GetReplies: страница ответов в пределах одной ветки.
func (s *Service) GetReplies(ctx context.Context, parentID string, p models.GetRepliesParams) (*models.RepliesPage, error) {
	const op = "service/comments/GetReplies"

	parentID = strings.TrimSpace(parentID)
	lg := log.From(ctx).With("op", op, "parent_id", parentID)

	if parentID == "" {
		lg.Warn("invalid argument: empty parent_id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if p.Page < 0 {
		lg.Warn("invalid argument: negative page")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	size, err := s.pageSize(p.PageSize)
	if err != nil {
		lg.Warn("invalid argument: negative page_size")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.PageSize = size

	page, err := s.backend.GetReplies(ctx, parentID, p)
	if err != nil {
		return nil, s.mapErr(lg, op, err)
	}

	return page, nil
}

// CreateReply: ответ на корневой комментарий. Валидация как у CreateComment.
func (s *Service) CreateReply(ctx context.Context, parentID string, data models.CreateCommentData) (*models.Comment, error) {
	const op = "service/comments/CreateReply"

	parentID = strings.TrimSpace(parentID)
	lg := log.From(ctx).With("op", op, "parent_id", parentID)

	if parentID == "" {
		lg.Warn("invalid argument: empty parent_id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	data, err := s.normalizeCreate(lg, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.backend.CreateReply(ctx, parentID, data)
	if err != nil {
		return nil, s.mapErr(lg, op, err)
	}

	return c, nil
}

// LikeComment: лайк от имени зрителя из ctx.
func (s *Service) LikeComment(ctx context.Context, id string) (*models.Comment, error) {
	return s.like(ctx, "service/comments/LikeComment", id, s.backend.LikeComment)
}

// UnlikeComment: снятие лайка зрителя из ctx.
func (s *Service) UnlikeComment(ctx context.Context, id string) (*models.Comment, error) {
	return s.like(ctx, "service/comments/UnlikeComment", id, s.backend.UnlikeComment)
}

func (s *Service) like(ctx context.Context, op, id string, call func(context.Context, string) (*models.Comment, error)) (*models.Comment, error) {
	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id, "viewer", backend.ViewerFrom(ctx))

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	c, err := call(ctx, id)
	if err != nil {
		return nil, s.mapErr(lg, op, err)
	}

	return c, nil
}

// pageSize нормализует размер страницы по лимитам.
func (s *Service) pageSize(size int) (int, error) {
	switch {
	case size < 0:
		return 0, ErrInvalidArgument
	case size == 0:
		return s.limits.Default, nil
	case size > s.limits.Max:
		return s.limits.Max, nil
	default:
		return size, nil
	}
}

func (s *Service) normalizeCreate(lg *slog.Logger, data models.CreateCommentData) (models.CreateCommentData, error) {
	data.Content = strings.TrimSpace(data.Content)

	if data.Sticker != nil {
		st := *data.Sticker
		st.StickerID = strings.TrimSpace(st.StickerID)
		st.ImageURL = strings.TrimSpace(st.ImageURL)
		if st.StickerID == "" || st.ImageURL == "" {
			lg.Warn("invalid argument: incomplete sticker")
			return data, ErrInvalidArgument
		}
		data.Sticker = &st
	}

	if err := s.checkContent(lg, data.Content, data.Sticker != nil); err != nil {
		return data, err
	}

	if data.Author != nil {
		a := *data.Author
		a.ID = strings.TrimSpace(a.ID)
		a.Nickname = strings.TrimSpace(a.Nickname)
		if a.ID == "" || a.Nickname == "" {
			lg.Warn("invalid argument: incomplete author")
			return data, ErrInvalidArgument
		}
		data.Author = &a
	}

	return data, nil
}

func (s *Service) checkContent(lg *slog.Logger, content string, sticker bool) error {
	if content == "" && !sticker {
		lg.Warn("invalid argument: empty content")
		return ErrInvalidArgument
	}

	if s.limits.MaxContent > 0 && utf8.RuneCountInString(content) > s.limits.MaxContent {
		lg.Warn("invalid argument: content too long", slog.Int("max", s.limits.MaxContent))
		return ErrInvalidArgument
	}

	return nil
}

// mapErr транслирует ошибки бэкенда в сервисные. Ошибки контекста
// сохраняются как есть, чтобы транспорт отличал отмену от дедлайна.
func (s *Service) mapErr(lg *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		lg.Warn("comment not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, backend.ErrInvalidArgument):
		lg.Warn("rejected by backend", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		lg.Warn("request aborted", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	default:
		lg.Error("backend error", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}
}
