// Package models содержит доменные сущности виджета комментариев.
package models

// Sort: порядок выдачи корневых комментариев.
type Sort string

const (
	// SortLatest: сначала новые (created_at DESC), значение по умолчанию.
	SortLatest Sort = "latest"
	// SortPopular: по количеству ответов (reply_count DESC).
	SortPopular Sort = "popular"
)

// Author: автор комментария.
type Author struct {
	ID         string `json:"id" bson:"id"`
	Nickname   string `json:"nickname" bson:"nickname"`
	ProfileURL string `json:"profileUrl,omitempty" bson:"profile_url,omitempty"`
	IsManager  bool   `json:"isManager,omitempty" bson:"is_manager,omitempty"`
}

// AnonymousAuthor: автор по умолчанию, когда вызывающая сторона его не передала.
func AnonymousAuthor() Author {
	return Author{ID: "anonymous", Nickname: "익명"}
}

// StickerData: стикер, сохранённый в комментарии вместо текста.
type StickerData struct {
	PackID    string `json:"packId" bson:"pack_id"`
	StickerID string `json:"stickerId" bson:"sticker_id"`
	ImageURL  string `json:"imageUrl" bson:"image_url"`
}

// Comment: комментарий или ответ.
// Важно:
//   - ParentID == nil: корневой комментарий; ответы глубже одного уровня не бывают;
//   - ReplyCount: число неудалённых прямых ответов, никогда не отрицательное;
//   - IsLiked: признак конкретного зрителя, вычисляется при чтении и не хранится;
//   - CreatedAt/UpdatedAt: unix-секунды;
//   - Sticker != nil: комментарий-стикер, текст в Content не отображается.
type Comment struct {
	ID         string       `json:"id"`
	ObjectID   string       `json:"objectId"`
	ParentID   *string      `json:"parentId"`
	Content    string       `json:"content"`
	Author     Author       `json:"author"`
	CreatedAt  int64        `json:"createdAt"`
	UpdatedAt  int64        `json:"updatedAt"`
	IsDeleted  bool         `json:"isDeleted"`
	ReplyCount int          `json:"replyCount"`
	LikeCount  int          `json:"likeCount"`
	IsLiked    bool         `json:"isLiked"`
	Sticker    *StickerData `json:"sticker,omitempty"`
}

// IsReply сообщает, является ли комментарий ответом.
func (c Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// Clone возвращает копию без общих указателей с оригиналом.
func (c Comment) Clone() Comment {
	out := c
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}

	if c.Sticker != nil {
		s := *c.Sticker
		out.Sticker = &s
	}

	return out
}

// CreateCommentData: данные для создания комментария или ответа.
type CreateCommentData struct {
	Content string       `json:"content"`
	Sticker *StickerData `json:"sticker,omitempty"`
	Author  *Author      `json:"author,omitempty"`
}

// UpdateCommentData: данные для изменения текста комментария.
type UpdateCommentData struct {
	Content string `json:"content"`
}

// GetCommentsParams: параметры постраничной выдачи корней по объекту.
// Page считается с нуля.
type GetCommentsParams struct {
	ObjectID string
	Page     int
	PageSize int
	Sort     Sort
}

// CommentsPage: страница корневых комментариев.
type CommentsPage struct {
	Comments    []Comment `json:"comments"`
	TotalCount  int       `json:"totalCount"`
	HasNext     bool      `json:"hasNext"`
	CurrentPage int       `json:"currentPage"`
}

// GetRepliesParams: параметры постраничной выдачи ответов.
type GetRepliesParams struct {
	Page     int
	PageSize int
}

// RepliesPage: страница ответов одной ветки.
type RepliesPage struct {
	Replies    []Comment `json:"replies"`
	TotalCount int       `json:"totalCount"`
	HasNext    bool      `json:"hasNext"`
}

// UserInfo: сведения о текущем пользователе от коллаборатора аутентификации.
type UserInfo struct {
	ID         string `json:"id"`
	Nickname   string `json:"nickname"`
	ProfileURL string `json:"profileUrl,omitempty"`
}
