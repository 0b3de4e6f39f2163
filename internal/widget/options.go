// Package widget: контроллер виджета комментариев и реестр его экземпляров.
//
// Экземпляр живёт внутри dom.Document: всё состояние меняется только на цикле
// событий документа, обращения к бэкенду уходят в Document.Go, а их результаты
// применяются продолжениями на том же цикле.
package widget

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/backend/httpapi"
	"github.com/MochaChoco/my-site/internal/backend/memory"
	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/internal/render"
)

var (
	// ErrInvalidOptions: не заданы обязательные опции (Container, ObjectID).
	ErrInvalidOptions = errors.New("widget: invalid options")
	// ErrContainerNotFound: селектор контейнера ничего не нашёл в документе.
	ErrContainerNotFound = errors.New("widget: container not found")
)

// Formation: секция интерфейса.
type Formation string

const (
	FormationCount Formation = "count"
	FormationWrite Formation = "write"
	FormationList  Formation = "list"
	FormationPage  Formation = "page"
)

// Theme: цветовая тема.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Значения по умолчанию.
const (
	DefaultPageSize  = 10
	DefaultPrefix    = "cb"
	DefaultTimeout   = 10 * time.Second
	repliesPageSize  = 50
	markerAttr       = "data-cb-id"
	markerKeyPrefix  = "cb-"
	defaultLocale    = render.LocaleKO
	defaultThemeName = ThemeLight
)

// DefaultFormation: все четыре секции.
func DefaultFormation() []Formation {
	return []Formation{FormationCount, FormationWrite, FormationList, FormationPage}
}

// Authenticator: сведения о текущем зрителе.
type Authenticator interface {
	IsLoggedIn() bool
	// UserInfo возвращает nil, если зритель неизвестен.
	UserInfo() *models.UserInfo
}

// LoginRequirer: необязательная реакция на действие, требующее входа.
type LoginRequirer interface {
	OnLoginRequired()
}

// StickerConfig: каталог стикеров.
type StickerConfig struct {
	Enabled    bool
	Groups     []models.StickerGroup
	OnPurchase func()
}

// Options: настройки экземпляра. После Init не меняются.
//
// Колбэки вызываются на цикле документа: внутри них нельзя вызывать
// блокирующие методы Document (Do, Settle) и методы Manager.
type Options struct {
	Container string
	ObjectID  string

	// Backend имеет приоритет над APIURL. Без обоих: память с задержкой 300ms.
	Backend backend.Backend
	APIURL  string

	PageSize   int
	Formation  []Formation
	IsManager  bool
	Theme      Theme
	Responsive *bool
	CSSPrefix  string

	Locale   string
	Messages *render.Messages

	Sticker *StickerConfig
	Auth    Authenticator

	// Timeout: дедлайн одного обращения к бэкенду.
	Timeout time.Duration
	Logger  *slog.Logger
	// Clock: часы для относительного времени; по умолчанию time.Now.
	Clock func() time.Time

	OnReady         func()
	OnError         func(err error)
	OnCommentAdd    func(c models.Comment)
	OnCommentUpdate func(c models.Comment)
	OnCommentDelete func(id string)
	OnReplyAdd      func(reply models.Comment, parentID string)
	OnCommentLike   func(c models.Comment, liked bool)
	// OnDeleteConfirm заменяет встроенное подтверждение. proceed можно вызвать
	// позже и из любой горутины; удаление выполнится не больше одного раза.
	OnDeleteConfirm func(id string, proceed func())
}

// Bool: указатель на v, для Options.Responsive.
func Bool(v bool) *bool { return &v }

// normalize проверяет обязательные поля и подставляет значения по умолчанию.
func (o Options) normalize() (Options, error) {
	const op = "widget/Options/normalize"

	if o.Container == "" {
		return o, fmt.Errorf("%s: %w: container is required", op, ErrInvalidOptions)
	}

	if o.ObjectID == "" {
		return o, fmt.Errorf("%s: %w: objectId is required", op, ErrInvalidOptions)
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}

	if len(o.Formation) == 0 {
		o.Formation = DefaultFormation()
	} else {
		o.Formation = slices.Clone(o.Formation)
	}

	if o.Theme == "" {
		o.Theme = defaultThemeName
	}

	if o.Responsive == nil {
		o.Responsive = Bool(true)
	}

	if o.CSSPrefix == "" {
		o.CSSPrefix = DefaultPrefix
	}

	if o.Locale == "" {
		o.Locale = defaultLocale
	}

	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.Clock == nil {
		o.Clock = time.Now
	}

	if o.Sticker != nil {
		sc := *o.Sticker
		sc.Groups = slices.Clone(sc.Groups)
		o.Sticker = &sc
	}

	switch {
	case o.Backend != nil:
	case o.APIURL != "":
		o.Backend = httpapi.New(o.APIURL, httpapi.WithLogger(o.Logger))
	default:
		o.Backend = memory.New(memory.WithLogger(o.Logger))
	}

	return o, nil
}

func (o Options) has(f Formation) bool {
	return slices.Contains(o.Formation, f)
}

func (o Options) messages() render.Messages {
	m := render.MessagesFor(o.Locale)
	if o.Messages != nil {
		m = m.Merge(*o.Messages)
	}

	return m
}

func (o Options) stickersEnabled() bool {
	return o.Sticker != nil && o.Sticker.Enabled
}
