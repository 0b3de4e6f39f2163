package dom

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// EventType: тип DOM-события.
type EventType string

const (
	Click EventType = "click"
	Input EventType = "input"
)

// Event: событие, доставляемое обработчикам на цикле.
type Event struct {
	Type   EventType
	Target *goquery.Selection

	stopped bool
}

// StopPropagation прекращает доставку события оставшимся обработчикам.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// DelegateHandler получает событие и ближайший к цели элемент, подходящий под селектор.
type DelegateHandler func(ev *Event, matched *goquery.Selection)

type delegation struct {
	root    *html.Node
	match   cascadia.Matcher
	typ     EventType
	handler DelegateHandler
	removed bool
}

type listener struct {
	typ     EventType
	handler func(ev *Event)
	removed bool
}

// Delegate вешает делегированный обработчик на root: срабатывает для событий,
// цель которых лежит внутри root и имеет предка (или сама) под selector.
// Возвращает функцию снятия. Только с цикла.
func (d *Document) Delegate(root *goquery.Selection, selector string, typ EventType, h DelegateHandler) (func(), error) {
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: delegate root", ErrNoTarget)
	}

	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: compile %q: %w", selector, err)
	}

	dl := &delegation{root: root.Get(0), match: m, typ: typ, handler: h}
	d.delegates = append(d.delegates, dl)

	return func() {
		dl.removed = true
		d.compact()
	}, nil
}

// Listen вешает обработчик уровня документа. Такие обработчики срабатывают
// после делегированных. Только с цикла.
func (d *Document) Listen(typ EventType, h func(ev *Event)) func() {
	l := &listener{typ: typ, handler: h}
	d.listeners = append(d.listeners, l)

	return func() {
		l.removed = true
		d.compact()
	}
}

// compact выкидывает снятые обработчики.
func (d *Document) compact() {
	dels := d.delegates[:0]
	for _, dl := range d.delegates {
		if !dl.removed {
			dels = append(dels, dl)
		}
	}
	for i := len(dels); i < len(d.delegates); i++ {
		d.delegates[i] = nil
	}
	d.delegates = dels

	ls := d.listeners[:0]
	for _, l := range d.listeners {
		if !l.removed {
			ls = append(ls, l)
		}
	}
	for i := len(ls); i < len(d.listeners); i++ {
		d.listeners[i] = nil
	}
	d.listeners = ls
}

// ListenerCount: число активных обработчиков (делегированных и документных). Только с цикла.
func (d *Document) ListenerCount() int {
	return len(d.delegates) + len(d.listeners)
}

// Dispatch доставляет событие с целью target. Только с цикла.
// Клик по элементу внутри disabled-кнопки не доставляется, как в браузере.
func (d *Document) Dispatch(typ EventType, target *goquery.Selection) {
	if target.Length() == 0 {
		return
	}

	node := target.Get(0)
	if typ == Click && insideDisabled(node) {
		return
	}

	ev := &Event{Type: typ, Target: target.First()}

	// Снимок: обработчики могут снимать/вешать других во время доставки.
	dels := append([]*delegation(nil), d.delegates...)
	for _, dl := range dels {
		if ev.stopped {
			return
		}
		if dl.removed || dl.typ != typ || !contains(dl.root, node) {
			continue
		}

		matched := closest(node, dl.root, dl.match)
		if matched == nil {
			continue
		}

		d.safeCall(func() { dl.handler(ev, d.wrap(matched)) })
	}

	ls := append([]*listener(nil), d.listeners...)
	for _, l := range ls {
		if ev.stopped {
			return
		}
		if l.removed || l.typ != typ {
			continue
		}

		d.safeCall(func() { l.handler(ev) })
	}
}

func (d *Document) safeCall(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("dom_handler_panic", slog.Any("reason", rec))
		}
	}()

	fn()
}

func (d *Document) wrap(n *html.Node) *goquery.Selection {
	return d.doc.FindNodes(n)
}

// Click имитирует клик по первому элементу под selector и ждёт доставки.
// Безопасен из любой горутины.
func (d *Document) Click(selector string) error {
	var err error

	if doErr := d.Do(func() {
		sel := d.doc.Find(selector).First()
		if sel.Length() == 0 {
			err = fmt.Errorf("%w: %s", ErrNoTarget, selector)
			return
		}
		d.Dispatch(Click, sel)
	}); doErr != nil {
		return doErr
	}

	return err
}

// Input вписывает value в поле под selector и доставляет событие input.
// Безопасен из любой горутины.
func (d *Document) Input(selector, value string) error {
	var err error

	if doErr := d.Do(func() {
		sel := d.doc.Find(selector).First()
		if sel.Length() == 0 {
			err = fmt.Errorf("%w: %s", ErrNoTarget, selector)
			return
		}
		SetValue(sel, value)
		d.Dispatch(Input, sel)
	}); doErr != nil {
		return doErr
	}

	return err
}

func contains(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}

	return false
}

// closest ищет ближайшего к n предка (включая n) под m, не выходя за root.
func closest(n, root *html.Node, m cascadia.Matcher) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && m.Match(cur) {
			return cur
		}
		if cur == root {
			break
		}
	}

	return nil
}

func insideDisabled(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if strings.EqualFold(cur.Data, "button") || strings.EqualFold(cur.Data, "textarea") || strings.EqualFold(cur.Data, "input") {
			for _, a := range cur.Attr {
				if a.Key == "disabled" {
					return true
				}
			}
		}
	}

	return false
}
