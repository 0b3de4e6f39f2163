// Package events: минимальная типизированная шина pub/sub для виджета.
// Сбой одного подписчика (panic) не мешает доставке остальным.
package events

import (
	"log/slog"
	"sort"
	"sync"
)

// Event: имя темы.
type Event string

// Темы жизненного цикла виджета.
const (
	Ready          Event = "ready"
	Error          Event = "error"
	CommentsLoaded Event = "comments:loaded"
	CommentAdd     Event = "comment:add"
	CommentUpdate  Event = "comment:update"
	CommentDelete  Event = "comment:delete"
	ReplyAdd       Event = "reply:add"
	ReplyToggle    Event = "reply:toggle"
	PageChange     Event = "page:change"
	StateChange    Event = "state:change"
	CommentLike    Event = "comment:like"
	LoginRequired  Event = "login:required"
)

// Handler получает полезную нагрузку события.
type Handler func(payload any)

type subscription struct {
	id uint64
	h  Handler
}

// Bus: реестр подписчиков по темам. Безопасен для конкурентного использования.
type Bus struct {
	mu     sync.Mutex
	subs   map[Event][]subscription
	nextID uint64
	log    *slog.Logger
}

// New создаёт шину; nil-логгер заменяется на slog.Default().
func New(l *slog.Logger) *Bus {
	if l == nil {
		l = slog.Default()
	}

	return &Bus{
		subs: make(map[Event][]subscription),
		log:  l,
	}
}

// On подписывает h на ev и возвращает функцию отписки (повторный вызов: no-op).
func (b *Bus) On(ev Event, h Handler) func() {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[ev] = append(b.subs[ev], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(ev, id) })
	}
}

// Once подписывает h на одно срабатывание ev.
func (b *Bus) Once(ev Event, h Handler) func() {
	if h == nil {
		return func() {}
	}

	var (
		fired sync.Once
		off   func()
		ready = make(chan struct{})
	)

	off = b.On(ev, func(payload any) {
		fired.Do(func() {
			<-ready
			off()
			h(payload)
		})
	})
	close(ready)

	return off
}

// Off снимает все обработчики темы ev.
func (b *Bus) Off(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, ev)
}

// RemoveAll снимает все обработчики всех тем.
func (b *Bus) RemoveAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = make(map[Event][]subscription)
}

// Topics возвращает отсортированный список тем, у которых есть подписчики.
func (b *Bus) Topics() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, len(b.subs))
	for ev := range b.subs {
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ListenerCount возвращает число подписчиков темы.
func (b *Bus) ListenerCount(ev Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs[ev])
}

// Emit доставляет payload всем подписчикам ev в порядке подписки.
// Обработчики вызываются вне блокировки: им разрешено подписываться/отписываться.
func (b *Bus) Emit(ev Event, payload any) {
	b.mu.Lock()
	snapshot := append([]subscription(nil), b.subs[ev]...)
	b.mu.Unlock()

	for _, s := range snapshot {
		b.dispatch(ev, s.h, payload)
	}
}

// dispatch изолирует вызов одного обработчика.
func (b *Bus) dispatch(ev Event, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("event_handler_panic",
				slog.String("event", string(ev)),
				slog.Any("panic", rec),
			)
		}
	}()

	h(payload)
}

func (b *Bus) remove(ev Event, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[ev]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}

	if len(list) == 0 {
		delete(b.subs, ev)
		return
	}

	b.subs[ev] = list
}
