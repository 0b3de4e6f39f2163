// Package host держит смонтированные на сервере виджеты: у каждого монтирования
// свой dom.Document, реестр widget.Manager и сессия зрителя.
//
// Клиент монтирует виджет, шлёт события (click/input/outside) и получает
// HTML контейнера после того, как цикл документа затих.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MochaChoco/my-site/internal/auth"
	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/config"
	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/widget"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

var (
	// ErrNotFound: монтирования с таким ключом нет.
	ErrNotFound = errors.New("mount not found")
	// ErrInvalidArgument: неверный запрос монтирования или события.
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	containerSelector = "#commentbox"
	outsideSelector   = "#cb-outside"
	page              = `<!DOCTYPE html><html><head></head><body><div id="commentbox"></div><div id="cb-outside"></div></body></html>`
)

// Типы событий Dispatch.
const (
	EventClick   = "click"
	EventInput   = "input"
	EventOutside = "outside"
)

// Event: событие клиента.
type Event struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	Value    string `json:"value,omitempty"`
}

// MountRequest: параметры нового монтирования. Пустые поля берутся из конфигурации.
type MountRequest struct {
	ObjectID  string   `json:"objectId"`
	Token     string   `json:"token,omitempty"`
	PageSize  int      `json:"pageSize,omitempty"`
	Theme     string   `json:"theme,omitempty"`
	Locale    string   `json:"locale,omitempty"`
	Formation []string `json:"formation,omitempty"`
	IsManager bool     `json:"isManager,omitempty"`
}

// MountState: снимок монтирования.
type MountState struct {
	Key           string       `json:"key"`
	ObjectID      string       `json:"objectId"`
	LoggedIn      bool         `json:"loggedIn"`
	LoginRequests int64        `json:"loginRequests"`
	Error         string       `json:"error,omitempty"`
	Widget        widget.State `json:"widget"`
}

type mount struct {
	key      string
	objectID string
	doc      *dom.Document
	mgr      *widget.Manager
	inst     *widget.Instance
	session  *auth.Session
	// events сериализует Dispatch одного монтирования.
	events sync.Mutex
}

// Option настраивает Host.
type Option func(*Host)

// WithTokens включает разбор токенов зрителя.
func WithTokens(m *auth.Manager) Option {
	return func(h *Host) { h.tokens = m }
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock задаёт часы для относительного времени в виджетах.
func WithClock(now func() time.Time) Option {
	return func(h *Host) {
		if now != nil {
			h.now = now
		}
	}
}

// WithSettleTimeout ограничивает ожидание затихания цикла после события.
func WithSettleTimeout(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.settle = d
		}
	}
}

// Host: реестр монтирований.
type Host struct {
	be       backend.Backend
	defaults config.WidgetConfig
	timeout  time.Duration
	tokens   *auth.Manager
	log      *slog.Logger
	now      func() time.Time
	settle   time.Duration

	mu     sync.RWMutex
	mounts map[string]*mount
}

// New создаёт Host поверх be. timeout: дедлайн одного обращения виджета к бэкенду.
func New(be backend.Backend, defaults config.WidgetConfig, timeout time.Duration, opts ...Option) *Host {
	h := &Host{
		be:       be,
		defaults: defaults,
		timeout:  timeout,
		log:      slog.Default(),
		now:      time.Now,
		settle:   5 * time.Second,
		mounts:   make(map[string]*mount),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Mount создаёт документ, монтирует в него виджет и ждёт первой загрузки.
func (h *Host) Mount(ctx context.Context, req MountRequest) (string, error) {
	const op = "host/Mount"

	lg := logctx.From(ctx).With("op", op, "object_id", req.ObjectID)

	if req.ObjectID == "" {
		return "", fmt.Errorf("%s: %w: objectId is required", op, ErrInvalidArgument)
	}

	if req.Token != "" && h.tokens == nil {
		return "", fmt.Errorf("%s: %w: viewer tokens are disabled", op, ErrInvalidArgument)
	}

	session, err := auth.SessionFromToken(ctx, h.tokens, req.Token)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	}

	doc, err := dom.New(page, dom.WithLogger(h.log))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	opts := h.options(req, session)
	mgr := widget.NewManager(doc, h.log)

	inst, err := mgr.Init(opts)
	if err != nil {
		doc.Close()
		if errors.Is(err, widget.ErrInvalidOptions) {
			return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	m := &mount{
		key:      inst.Key(),
		objectID: req.ObjectID,
		doc:      doc,
		mgr:      mgr,
		inst:     inst,
		session:  session,
	}

	h.mu.Lock()
	h.mounts[m.key] = m
	h.mu.Unlock()

	if err := h.wait(ctx, m); err != nil {
		lg.Warn("mount_settle_failed", slog.String("key", m.key), slog.String("err", err.Error()))
	}

	lg.Info("widget_mounted", slog.String("key", m.key), slog.Bool("logged_in", session.IsLoggedIn()))
	return m.key, nil
}

// options собирает widget.Options из запроса и значений по умолчанию.
func (h *Host) options(req MountRequest, session *auth.Session) widget.Options {
	opts := widget.Options{
		Container: containerSelector,
		ObjectID:  req.ObjectID,
		Backend:   h.be,
		PageSize:  h.defaults.PageSize,
		Theme:     widget.Theme(h.defaults.Theme),
		Locale:    h.defaults.Locale,
		CSSPrefix: h.defaults.CSSPrefix,
		IsManager: req.IsManager,
		Auth:      session,
		Timeout:   h.timeout,
		Logger:    h.log,
		Clock:     h.now,
	}

	if req.PageSize > 0 {
		opts.PageSize = req.PageSize
	}

	if req.Theme != "" {
		opts.Theme = widget.Theme(req.Theme)
	}

	if req.Locale != "" {
		opts.Locale = req.Locale
	}

	for _, f := range req.Formation {
		opts.Formation = append(opts.Formation, widget.Formation(f))
	}

	if len(h.defaults.Stickers) > 0 {
		opts.Sticker = &widget.StickerConfig{Enabled: true, Groups: h.defaults.Stickers}
	}

	return opts
}

// Dispatch доставляет событие и возвращает HTML контейнера после затихания цикла.
func (h *Host) Dispatch(ctx context.Context, key string, ev Event) (string, error) {
	const op = "host/Dispatch"

	m, err := h.get(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if ev.Type != EventOutside && ev.Selector == "" {
		return "", fmt.Errorf("%s: %w: selector is required", op, ErrInvalidArgument)
	}

	m.events.Lock()
	defer m.events.Unlock()

	switch ev.Type {
	case EventClick:
		err = m.doc.Click(ev.Selector)
	case EventInput:
		err = m.doc.Input(ev.Selector, ev.Value)
	case EventOutside:
		err = m.doc.Click(outsideSelector)
	default:
		return "", fmt.Errorf("%s: %w: unknown event type %q", op, ErrInvalidArgument, ev.Type)
	}

	if err != nil {
		if errors.Is(err, dom.ErrNoTarget) {
			return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
		}
		if errors.Is(err, dom.ErrClosed) {
			return "", fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := h.wait(ctx, m); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Debug("widget_event", slog.String("op", op), slog.String("key", key), slog.String("type", ev.Type))
	return h.html(m)
}

// Render возвращает текущий HTML контейнера.
func (h *Host) Render(ctx context.Context, key string) (string, error) {
	const op = "host/Render"

	m, err := h.get(key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := h.wait(ctx, m); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	out, err := h.html(m)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// State возвращает снимок состояния монтирования.
func (h *Host) State(_ context.Context, key string) (*MountState, error) {
	const op = "host/State"

	m, err := h.get(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := m.inst.State()
	out := &MountState{
		Key:           m.key,
		ObjectID:      m.objectID,
		LoggedIn:      m.session.IsLoggedIn(),
		LoginRequests: m.session.LoginRequests(),
		Widget:        st,
	}

	if st.Err != nil {
		out.Error = st.Err.Error()
	}

	return out, nil
}

// Unmount уничтожает виджет и закрывает документ.
func (h *Host) Unmount(ctx context.Context, key string) error {
	const op = "host/Unmount"

	h.mu.Lock()
	m, ok := h.mounts[key]
	delete(h.mounts, key)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	h.close(m)
	logctx.From(ctx).Info("widget_unmounted", slog.String("op", op), slog.String("key", key))
	return nil
}

// Len: число живых монтирований.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.mounts)
}

// Close уничтожает все монтирования.
func (h *Host) Close() {
	h.mu.Lock()
	all := make([]*mount, 0, len(h.mounts))
	for _, m := range h.mounts {
		all = append(all, m)
	}
	clear(h.mounts)
	h.mu.Unlock()

	for _, m := range all {
		h.close(m)
	}
}

func (h *Host) close(m *mount) {
	m.mgr.DestroyAll()
	m.doc.Close()
}

func (h *Host) get(key string) (*mount, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.mounts[key]
	if !ok {
		return nil, ErrNotFound
	}

	return m, nil
}

// wait ждёт затихания цикла, но не дольше settle.
func (h *Host) wait(ctx context.Context, m *mount) error {
	ctx, cancel := context.WithTimeout(ctx, h.settle)
	defer cancel()

	return m.inst.Settle(ctx)
}

func (h *Host) html(m *mount) (string, error) {
	out, err := m.doc.HTML(containerSelector)
	if errors.Is(err, dom.ErrClosed) {
		return "", ErrNotFound
	}

	return out, err
}
