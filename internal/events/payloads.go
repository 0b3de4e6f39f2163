package events

import "github.com/MochaChoco/my-site/internal/models"

// ReplyAdded: полезная нагрузка ReplyAdd.
type ReplyAdded struct {
	Reply    models.Comment
	ParentID string
}

// ReplyToggled: полезная нагрузка ReplyToggle.
type ReplyToggled struct {
	CommentID string
	Expanded  bool
}

// LikeToggled: полезная нагрузка CommentLike.
type LikeToggled struct {
	Comment models.Comment
	Liked   bool
}
