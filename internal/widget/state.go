package widget

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/MochaChoco/my-site/internal/models"
)

// IDSet: множество идентификаторов комментариев.
type IDSet map[string]struct{}

// Has сообщает, есть ли id в множестве.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted: элементы по возрастанию.
func (s IDSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// MarshalJSON кодирует множество как отсортированный массив.
func (s IDSet) MarshalJSON() ([]byte, error) {
	ids := s.Sorted()
	if ids == nil {
		ids = []string{}
	}

	return json.Marshal(ids)
}

// UnmarshalJSON читает множество из массива идентификаторов.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}

	out := make(IDSet, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	*s = out

	return nil
}

// State: состояние экземпляра.
type State struct {
	Comments            []models.Comment `json:"comments"`
	TotalCount          int              `json:"totalCount"`
	CurrentPage         int              `json:"currentPage"`
	TotalPages          int              `json:"totalPages"`
	IsLoading           bool             `json:"isLoading"`
	Err                 error            `json:"-"`
	ExpandedReplies     IDSet            `json:"expandedReplies"`
	ReplyEditors        IDSet            `json:"replyEditors"`
	EditingComment      string           `json:"editingComment,omitempty"`
	StickerPopupVisible bool             `json:"stickerPopupVisible"`
}

func newState() State {
	return State{
		Comments:        []models.Comment{},
		ExpandedReplies: IDSet{},
		ReplyEditors:    IDSet{},
	}
}

// Clone: глубокая копия.
func (s State) Clone() State {
	out := s
	out.Comments = make([]models.Comment, len(s.Comments))
	for i, c := range s.Comments {
		out.Comments[i] = c.Clone()
	}

	out.ExpandedReplies = maps.Clone(s.ExpandedReplies)
	if out.ExpandedReplies == nil {
		out.ExpandedReplies = IDSet{}
	}

	out.ReplyEditors = maps.Clone(s.ReplyEditors)
	if out.ReplyEditors == nil {
		out.ReplyEditors = IDSet{}
	}

	return out
}

func (s *State) comment(id string) *models.Comment {
	for i := range s.Comments {
		if s.Comments[i].ID == id {
			return &s.Comments[i]
		}
	}

	return nil
}

// totalPages: ceil(total/pageSize).
func totalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}

	return (total + pageSize - 1) / pageSize
}
