package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/dom"
	"github.com/MochaChoco/my-site/internal/events"
	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/internal/render"
)

// Instance: один смонтированный виджет.
type Instance struct {
	key  string
	opts Options
	doc  *dom.Document
	be   backend.Backend
	bus  *events.Bus
	r    *render.Renderer
	msgs render.Messages
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	snap      atomic.Pointer[State]
	destroyed atomic.Bool

	onDestroyMu sync.Mutex
	onDestroy   func()

	// Поля ниже: только с цикла документа.
	root         *goquery.Selection
	st           State
	loadSeq      uint64
	listGen      uint64
	replyPending map[string]bool
	ready        bool
	cleanups     []func()
}

// newInstance монтирует виджет в root и запускает первую загрузку. Только с цикла.
func newInstance(key string, root *goquery.Selection, opts Options, doc *dom.Document) (*Instance, error) {
	const op = "widget/newInstance"

	lg := opts.Logger.With(slog.String("widget", key), slog.String("object_id", opts.ObjectID))
	msgs := opts.messages()

	r, err := render.New(opts.CSSPrefix, msgs, render.WithClock(opts.Clock), render.WithLogger(lg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	in := &Instance{
		key:          key,
		opts:         opts,
		doc:          doc,
		be:           opts.Backend,
		bus:          events.New(lg),
		r:            r,
		msgs:         msgs,
		log:          lg,
		ctx:          ctx,
		cancel:       cancel,
		root:         root,
		st:           newState(),
		replyPending: make(map[string]bool),
	}
	in.publish()

	in.renderContainer()
	if err := in.setupDelegation(); err != nil {
		in.runCleanups()
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Debug("widget_mounted")
	in.load(nil)

	return in, nil
}

// Key: маркер контейнера (значение data-cb-id).
func (in *Instance) Key() string { return in.key }

// On подписывает h на событие экземпляра; возвращает функцию отписки.
func (in *Instance) On(ev events.Event, h events.Handler) func() {
	return in.bus.On(ev, h)
}

// State: снимок состояния. Безопасен из любой горутины.
func (in *Instance) State() State {
	return in.snap.Load().Clone()
}

// Refresh ставит перезагрузку текущей страницы и сразу возвращается.
func (in *Instance) Refresh() {
	_ = in.doc.Post(func() {
		if in.destroyed.Load() {
			return
		}
		in.load(nil)
	})
}

// Settle ждёт, пока цикл документа не опустеет.
func (in *Instance) Settle(ctx context.Context) error {
	return in.doc.Settle(ctx)
}

// Destroyed сообщает, уничтожен ли экземпляр.
func (in *Instance) Destroyed() bool { return in.destroyed.Load() }

// Destroy отменяет незавершённые запросы, снимает подписчиков и обработчики
// и очищает контейнер. Повторный вызов: no-op. Безопасен из любой горутины.
func (in *Instance) Destroy() {
	if !in.shutdown() {
		return
	}

	_ = in.doc.Post(in.teardown)
}

// destroyNow: Destroy с немедленной очисткой DOM. Только с цикла.
func (in *Instance) destroyNow() {
	if !in.shutdown() {
		return
	}

	in.teardown()
}

func (in *Instance) shutdown() bool {
	if !in.destroyed.CompareAndSwap(false, true) {
		return false
	}

	in.cancel()
	in.bus.RemoveAll()

	in.onDestroyMu.Lock()
	fn := in.onDestroy
	in.onDestroy = nil
	in.onDestroyMu.Unlock()

	if fn != nil {
		fn()
	}

	in.log.Debug("widget_destroyed")
	return true
}

func (in *Instance) setOnDestroy(fn func()) {
	in.onDestroyMu.Lock()
	in.onDestroy = fn
	in.onDestroyMu.Unlock()
}

func (in *Instance) teardown() {
	in.runCleanups()
	in.root.Empty()
}

func (in *Instance) runCleanups() {
	for _, fn := range in.cleanups {
		fn()
	}
	in.cleanups = nil
}

// setState меняет состояние, публикует снимок и рассылает state:change.
func (in *Instance) setState(fn func(s *State)) {
	fn(&in.st)
	snap := in.publish()
	in.bus.Emit(events.StateChange, snap)
}

func (in *Instance) publish() State {
	snap := in.st.Clone()
	in.snap.Store(&snap)

	return snap.Clone()
}

// async выполняет work вне цикла с дедлайном обращения к бэкенду.
// Продолжение, которое вернула work, применяется на цикле, если экземпляр жив.
func (in *Instance) async(work func(ctx context.Context) func()) {
	ctx := in.ctx
	if ui := in.userInfo(); ui != nil {
		ctx = backend.WithViewer(ctx, ui.ID)
	}

	in.doc.Go(func() func() {
		callCtx, cancel := context.WithTimeout(ctx, in.opts.Timeout)
		defer cancel()

		cont := work(callCtx)
		return func() {
			if in.destroyed.Load() || cont == nil {
				return
			}
			cont()
		}
	})
}

// handleError фиксирует сбой: лог, состояние, событие, колбэк.
// listRegion: показать шаблон ошибки вместо списка (только для загрузки списка).
func (in *Instance) handleError(err error, listRegion bool) {
	in.log.Error("widget_error", slog.String("error", err.Error()))

	in.setState(func(s *State) {
		s.Err = err
		s.IsLoading = false
	})

	if listRegion {
		in.region("list-wrapper").SetHtml(in.r.Error(in.msgs.LoadError))
	}

	in.bus.Emit(events.Error, err)
	if in.opts.OnError != nil {
		in.opts.OnError(err)
	}
}

func (in *Instance) markReady() {
	if in.ready {
		return
	}
	in.ready = true

	in.bus.Emit(events.Ready, nil)
	if in.opts.OnReady != nil {
		in.opts.OnReady()
	}
}

func (in *Instance) loggedIn() bool {
	return in.opts.Auth == nil || in.opts.Auth.IsLoggedIn()
}

// requireLogin: действие требует входа: хук Auth и событие login:required.
func (in *Instance) requireLogin() {
	if lr, ok := in.opts.Auth.(LoginRequirer); ok {
		lr.OnLoginRequired()
	}

	in.bus.Emit(events.LoginRequired, nil)
}

func (in *Instance) userInfo() *models.UserInfo {
	if in.opts.Auth == nil {
		return nil
	}

	return in.opts.Auth.UserInfo()
}
