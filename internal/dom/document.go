// Package dom: серверный DOM виджета: HTML-документ (goquery поверх x/net/html),
// принадлежащий одной горутине-циклу событий.
//
// Правила:
//   - любое чтение/изменение дерева и состояния виджета выполняется на цикле
//     (обработчики событий, функции Do/Post, продолжения Go);
//   - блокирующая работа (вызовы бэкенда) выполняется через Go: work крутится
//     в отдельной горутине, а возвращённое продолжение ставится обратно в очередь цикла;
//   - Settle ждёт, пока очередь пуста, цикл простаивает и нет незавершённых Go.
package dom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// ErrClosed: документ закрыт, задачи больше не принимаются.
	ErrClosed = errors.New("dom: document closed")
	// ErrNoTarget: селектор события ничего не нашёл.
	ErrNoTarget = errors.New("dom: event target not found")
)

// Confirmer: блокирующий диалог подтверждения (аналог window.confirm).
type Confirmer func(message string) bool

// Option настраивает Document.
type Option func(*Document)

// WithLogger задаёт логгер цикла.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.log = l
		}
	}
}

// WithConfirmer задаёт диалог подтверждения; по умолчанию всё подтверждается.
func WithConfirmer(c Confirmer) Option {
	return func(d *Document) {
		if c != nil {
			d.confirm = c
		}
	}
}

// WithScrollHandler задаёт реакцию на ScrollIntoView (по умолчанию: только запись).
func WithScrollHandler(fn func(sel *goquery.Selection)) Option {
	return func(d *Document) {
		d.onScroll = fn
	}
}

// Document: HTML-документ с циклом событий.
type Document struct {
	doc *goquery.Document
	log *slog.Logger

	mu       sync.Mutex
	queue    []func()
	running  bool
	inflight int
	waiters  []chan struct{}
	closed   bool
	confirm  Confirmer
	wake     chan struct{}
	done     chan struct{}

	// Поля ниже доступны только с цикла.
	delegates []*delegation
	listeners []*listener
	onScroll  func(sel *goquery.Selection)
	scrolled  *html.Node
	focused   *html.Node
}

// New разбирает page и запускает цикл событий.
func New(page string, opts ...Option) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}

	d := &Document{
		doc:     gq,
		log:     slog.Default(),
		confirm: func(string) bool { return true },
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	go d.run()
	return d, nil
}

// run: цикл событий: по одной задаче за раз, в порядке постановки.
func (d *Document) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.notifyIdleLocked()
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}

		if len(d.queue) == 0 {
			// closed и очередь пуста.
			d.releaseWaitersLocked()
			d.mu.Unlock()
			return
		}

		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.running = true
		d.mu.Unlock()

		d.exec(fn)

		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}
}

// exec выполняет задачу цикла; panic логируется и не останавливает цикл.
func (d *Document) exec(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("dom_task_panic", slog.Any("reason", rec))
		}
	}()

	fn()
}

func (d *Document) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Document) idleLocked() bool {
	return len(d.queue) == 0 && !d.running && d.inflight == 0
}

func (d *Document) notifyIdleLocked() {
	if d.idleLocked() {
		d.releaseWaitersLocked()
	}
}

func (d *Document) releaseWaitersLocked() {
	for _, w := range d.waiters {
		close(w)
	}
	d.waiters = nil
}

// Post ставит fn в очередь цикла и сразу возвращается. Безопасен из любой горутины.
func (d *Document) Post(fn func()) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	d.signal()
	return nil
}

// Do выполняет fn на цикле и ждёт завершения.
// Нельзя вызывать с самого цикла (из обработчиков): это взаимоблокировка.
func (d *Document) Do(fn func()) error {
	done := make(chan struct{})
	if err := d.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	<-done
	return nil
}

// Go запускает блокирующую work в отдельной горутине.
// Возвращённое work продолжение (может быть nil) выполняется на цикле.
// Пока work не завершилась, Settle не считает документ простаивающим.
func (d *Document) Go(work func() func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.inflight++
	d.mu.Unlock()

	go func() {
		var cont func()
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					d.log.Error("dom_async_panic", slog.Any("reason", rec))
				}
			}()
			cont = work()
		}()

		d.mu.Lock()
		d.inflight--
		if cont != nil && !d.closed {
			d.queue = append(d.queue, cont)
		}
		d.mu.Unlock()

		d.signal()
	}()
}

// Settle ждёт, пока цикл не станет простаивать: очередь пуста, задача не выполняется,
// незавершённых Go нет. Нельзя вызывать с цикла.
func (d *Document) Settle(ctx context.Context) error {
	d.mu.Lock()
	if d.closed || d.idleLocked() {
		d.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	d.waiters = append(d.waiters, ch)
	d.mu.Unlock()

	// Цикл мог уже спать на пустой очереди, ожидая только Go: разбудим,
	// чтобы проверка простоя прошла ещё раз.
	d.signal()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close останавливает цикл после выполнения уже поставленных задач.
// Продолжения незавершённых Go отбрасываются.
func (d *Document) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.signal()
	<-d.done
}

// SetConfirmer заменяет диалог подтверждения. nil возвращает поведение по умолчанию.
func (d *Document) SetConfirmer(c Confirmer) {
	if c == nil {
		c = func(string) bool { return true }
	}

	d.mu.Lock()
	d.confirm = c
	d.mu.Unlock()
}

// Confirm спрашивает подтверждение (только с цикла).
func (d *Document) Confirm(message string) bool {
	d.mu.Lock()
	c := d.confirm
	d.mu.Unlock()

	return c(message)
}

// Root возвращает весь документ (только с цикла).
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Find ищет по всему документу (только с цикла).
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// ScrollIntoView фиксирует прокрутку к элементу (только с цикла).
func (d *Document) ScrollIntoView(sel *goquery.Selection) {
	if sel.Length() == 0 {
		return
	}

	d.scrolled = sel.Get(0)
	if d.onScroll != nil {
		d.onScroll(sel)
	}
}

// Focus переводит фокус на элемент (только с цикла).
func (d *Document) Focus(sel *goquery.Selection) {
	if sel.Length() == 0 {
		return
	}

	d.focused = sel.Get(0)
}

// IsFocused сообщает, в фокусе ли первый элемент выборки (только с цикла).
func (d *Document) IsFocused(sel *goquery.Selection) bool {
	return sel.Length() > 0 && d.focused == sel.Get(0)
}

// IsScrolledTo сообщает, был ли элемент последней целью ScrollIntoView (только с цикла).
func (d *Document) IsScrolledTo(sel *goquery.Selection) bool {
	return sel.Length() > 0 && d.scrolled == sel.Get(0)
}

// HTML возвращает внешний HTML первого совпадения selector. Безопасен из любой горутины.
func (d *Document) HTML(selector string) (string, error) {
	var (
		out string
		err error
	)

	if doErr := d.Do(func() {
		sel := d.doc.Find(selector).First()
		if sel.Length() == 0 {
			err = fmt.Errorf("%w: %s", ErrNoTarget, selector)
			return
		}
		out, err = goquery.OuterHtml(sel)
	}); doErr != nil {
		return "", doErr
	}

	return out, err
}

// Query выполняет fn над документом на цикле и ждёт. Безопасен из любой горутины.
func (d *Document) Query(fn func(root *goquery.Selection)) error {
	return d.Do(func() { fn(d.doc.Selection) })
}
