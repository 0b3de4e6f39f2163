// Package render собирает HTML-фрагменты виджета из встроенных шаблонов.
// Пакет чистый: не хранит состояния между вызовами и не трогает DOM.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/MochaChoco/my-site/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Глифы кнопки «нравится».
const (
	LikeIconOn  = "♥"
	LikeIconOff = "♡"
)

// Режимы редактора.
const (
	ModeCreate = ""
	ModeEdit   = "edit"
	ModeReply  = "reply"
)

// EditorParams: параметры формы ввода.
type EditorParams struct {
	Mode           string
	InitialValue   string
	ParentID       string
	CommentID      string
	StickerEnabled bool
}

// ItemParams: параметры отрисовки комментария или ответа.
type ItemParams struct {
	IsOwner          bool
	ShowManagerBadge bool
}

// Option настраивает Renderer.
type Option func(*Renderer)

// WithClock подменяет часы для относительного времени.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger задаёт логгер ошибок исполнения шаблонов.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// Renderer рисует фрагменты для одного CSS-префикса и набора сообщений.
type Renderer struct {
	prefix string
	msgs   Messages
	tmpl   *template.Template
	now    func() time.Time
	log    *slog.Logger
}

// New разбирает встроенные шаблоны.
func New(prefix string, msgs Messages, opts ...Option) (*Renderer, error) {
	const op = "render/New"

	r := &Renderer{
		prefix: prefix,
		msgs:   msgs,
		now:    time.Now,
		log:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	tmpl, err := template.New("widget").Funcs(template.FuncMap{
		"initial":   initial,
		"likeIcon":  LikeIcon,
		"likeCount": LikeCount,
		"parent":    parentID,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.tmpl = tmpl
	return r, nil
}

// Prefix: CSS-префикс классов.
func (r *Renderer) Prefix() string { return r.prefix }

// Messages: активные тексты.
func (r *Renderer) Messages() Messages { return r.msgs }

// Class: имя класса с префиксом: Class("editor") == "cb-editor".
func (r *Renderer) Class(name string) string { return r.prefix + "-" + name }

// Sel: селектор класса с префиксом: Sel("editor") == ".cb-editor".
func (r *Renderer) Sel(name string) string { return "." + r.prefix + "-" + name }

type base struct {
	P string
	M Messages
}

func (r *Renderer) base() base { return base{P: r.prefix, M: r.msgs} }

func (r *Renderer) exec(name string, data any) string {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		r.log.Error("render_failed", slog.String("template", name), slog.String("error", err.Error()))
		return ""
	}

	return buf.String()
}

// Container: оболочка с четырьмя областями.
func (r *Renderer) Container(dark, responsive bool) string {
	return r.exec("container", struct {
		base
		Dark, Responsive bool
	}{r.base(), dark, responsive})
}

// Header: счётчик комментариев.
func (r *Renderer) Header(count int) string {
	return r.exec("header", struct {
		base
		Text string
	}{r.base(), Format(r.msgs.CommentCount, map[string]int{"count": count})})
}

// Editor: форма ввода для создания, ответа или правки.
func (r *Renderer) Editor(p EditorParams) string {
	return r.exec("editor", struct {
		base
		ModeClass    string
		InitialValue string
		ParentID     string
		CommentID    string
		Sticker      bool
	}{r.base(), p.Mode, p.InitialValue, p.ParentID, p.CommentID, p.StickerEnabled})
}

// StickerPopup: попап выбора стикеров; без групп: предложение купить.
func (r *Renderer) StickerPopup(groups []models.StickerGroup) string {
	return r.exec("sticker-popup", struct {
		base
		Groups []models.StickerGroup
	}{r.base(), groups})
}

type item struct {
	base
	C          *models.Comment
	Content    template.HTML
	Time       string
	Owner      bool
	Badge      bool
	ToggleText string
}

func (r *Renderer) item(c *models.Comment, p ItemParams) item {
	return item{
		base:       r.base(),
		C:          c,
		Content:    ProcessContent(c.Content),
		Time:       TimeAgo(c.CreatedAt, r.now(), r.msgs),
		Owner:      p.IsOwner,
		Badge:      p.ShowManagerBadge,
		ToggleText: r.ShowRepliesText(c.ReplyCount),
	}
}

// Comment: комментарий верхнего уровня вместе с пустыми областями ответов.
func (r *Renderer) Comment(c *models.Comment, p ItemParams) string {
	return r.exec("comment", r.item(c, p))
}

// Reply: ответ в ветке.
func (r *Renderer) Reply(c *models.Comment, p ItemParams) string {
	return r.exec("reply", r.item(c, p))
}

// Empty: заглушка пустого списка.
func (r *Renderer) Empty() string { return r.exec("empty", r.base()) }

// Loading: индикатор загрузки.
func (r *Renderer) Loading() string { return r.exec("loading", r.base()) }

// LoginRequired: приглашение войти вместо формы.
func (r *Renderer) LoginRequired() string { return r.exec("login-required", r.base()) }

// Error: сообщение об ошибке.
func (r *Renderer) Error(text string) string {
	return r.exec("error", struct {
		base
		Text string
	}{r.base(), text})
}

// ShowRepliesText: подпись свёрнутой ветки.
func (r *Renderer) ShowRepliesText(count int) string {
	return Format(r.msgs.ShowReplies, map[string]int{"count": count})
}

// PageItem: кнопка номера страницы или многоточие.
type PageItem struct {
	Page     int
	Label    int
	Active   bool
	Ellipsis bool
}

// PageItems строит номера вокруг current (±2) с первой/последней страницей и многоточиями.
func PageItems(current, total int) []PageItem {
	if total <= 1 {
		return nil
	}

	start := max(0, current-2)
	end := min(total-1, current+2)

	var items []PageItem
	if start > 0 {
		items = append(items, PageItem{Page: 0, Label: 1})
		if start > 1 {
			items = append(items, PageItem{Ellipsis: true})
		}
	}

	for i := start; i <= end; i++ {
		items = append(items, PageItem{Page: i, Label: i + 1, Active: i == current})
	}

	if end < total-1 {
		if end < total-2 {
			items = append(items, PageItem{Ellipsis: true})
		}
		items = append(items, PageItem{Page: total - 1, Label: total})
	}

	return items
}

// Pagination: навигация по страницам; при одной странице пусто.
func (r *Renderer) Pagination(current, total int) string {
	return r.exec("pagination", struct {
		base
		Total               int
		Prev, Next          int
		FirstPage, LastPage bool
		Items               []PageItem
	}{
		base:      r.base(),
		Total:     total,
		Prev:      current - 1,
		Next:      current + 1,
		FirstPage: current == 0,
		LastPage:  current == total-1,
		Items:     PageItems(current, total),
	})
}

// LikeIcon: глиф кнопки для состояния liked.
func LikeIcon(liked bool) string {
	if liked {
		return LikeIconOn
	}

	return LikeIconOff
}

// LikeCount: текст счётчика; ноль не показывается.
func LikeCount(n int) string {
	if n <= 0 {
		return ""
	}

	return strconv.Itoa(n)
}

func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}

	return string(r)
}

func parentID(c *models.Comment) string {
	if c.ParentID == nil {
		return ""
	}

	return *c.ParentID
}
