package render

import "reflect"

// Messages: тексты интерфейса виджета. Плейсхолдеры вида {count} подставляет Format.
type Messages struct {
	CommentCount         string `yaml:"comment_count" json:"commentCount"`
	Placeholder          string `yaml:"placeholder" json:"placeholder"`
	Submit               string `yaml:"submit" json:"submit"`
	Cancel               string `yaml:"cancel" json:"cancel"`
	Reply                string `yaml:"reply" json:"reply"`
	Edit                 string `yaml:"edit" json:"edit"`
	Delete               string `yaml:"delete" json:"delete"`
	ConfirmDelete        string `yaml:"confirm_delete" json:"confirmDelete"`
	NoComments           string `yaml:"no_comments" json:"noComments"`
	LoadMore             string `yaml:"load_more" json:"loadMore"`
	ShowReplies          string `yaml:"show_replies" json:"showReplies"`
	HideReplies          string `yaml:"hide_replies" json:"hideReplies"`
	Manager              string `yaml:"manager" json:"manager"`
	Today                string `yaml:"today" json:"today"`
	DaysAgo              string `yaml:"days_ago" json:"daysAgo"`
	MonthsAgo            string `yaml:"months_ago" json:"monthsAgo"`
	YearsAgo             string `yaml:"years_ago" json:"yearsAgo"`
	LoginRequired        string `yaml:"login_required" json:"loginRequired"`
	Like                 string `yaml:"like" json:"like"`
	StickerButton        string `yaml:"sticker_button" json:"stickerButton"`
	StickerPurchase      string `yaml:"sticker_purchase" json:"stickerPurchase"`
	StickerPreviewCancel string `yaml:"sticker_preview_cancel" json:"stickerPreviewCancel"`
	LoadError            string `yaml:"load_error" json:"loadError"`
}

// Поддерживаемые локали.
const (
	LocaleKO = "ko"
	LocaleEN = "en"
)

var ko = Messages{
	CommentCount:         "댓글 {count}개",
	Placeholder:          "댓글을 입력하세요",
	Submit:               "등록",
	Cancel:               "취소",
	Reply:                "답글",
	Edit:                 "수정",
	Delete:               "삭제",
	ConfirmDelete:        "정말 삭제하시겠습니까?",
	NoComments:           "첫 번째 댓글을 남겨보세요!",
	LoadMore:             "더보기",
	ShowReplies:          "답글 {count}개 보기",
	HideReplies:          "답글 숨기기",
	Manager:              "작성자",
	Today:                "오늘",
	DaysAgo:              "{days}일 전",
	MonthsAgo:            "{months}개월 전",
	YearsAgo:             "{years}년 전",
	LoginRequired:        "댓글을 작성하려면 로그인이 필요합니다.",
	Like:                 "좋아요",
	StickerButton:        "스티커",
	StickerPurchase:      "스티커 구매하기",
	StickerPreviewCancel: "취소",
	LoadError:            "댓글을 불러오지 못했습니다.",
}

var en = Messages{
	CommentCount:         "{count} comments",
	Placeholder:          "Write a comment",
	Submit:               "Submit",
	Cancel:               "Cancel",
	Reply:                "Reply",
	Edit:                 "Edit",
	Delete:               "Delete",
	ConfirmDelete:        "Are you sure you want to delete this?",
	NoComments:           "Be the first to comment!",
	LoadMore:             "Load more",
	ShowReplies:          "Show {count} replies",
	HideReplies:          "Hide replies",
	Manager:              "Author",
	Today:                "Today",
	DaysAgo:              "{days} days ago",
	MonthsAgo:            "{months} months ago",
	YearsAgo:             "{years} years ago",
	LoginRequired:        "Please log in to write a comment.",
	Like:                 "Like",
	StickerButton:        "Sticker",
	StickerPurchase:      "Buy stickers",
	StickerPreviewCancel: "Cancel",
	LoadError:            "Failed to load comments.",
}

// MessagesFor возвращает тексты локали; неизвестная локаль даёт корейские.
func MessagesFor(locale string) Messages {
	if locale == LocaleEN {
		return en
	}

	return ko
}

// Merge накладывает непустые поля override поверх m.
func (m Messages) Merge(override Messages) Messages {
	dst := reflect.ValueOf(&m).Elem()
	src := reflect.ValueOf(override)

	for i := 0; i < src.NumField(); i++ {
		if s := src.Field(i).String(); s != "" {
			dst.Field(i).SetString(s)
		}
	}

	return m
}
