package widget

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/MochaChoco/my-site/internal/dom"
)

// Manager: реестр экземпляров одного документа: не больше одного на контейнер.
//
// Методы Manager блокируются на цикле документа, поэтому их нельзя вызывать
// из колбэков и обработчиков событий виджета.
type Manager struct {
	doc *dom.Document
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewManager создаёт реестр поверх doc.
func NewManager(doc *dom.Document, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		doc:       doc,
		log:       log,
		now:       time.Now,
		instances: make(map[string]*Instance),
	}
}

// Init монтирует виджет в контейнер. Прежний экземпляр того же контейнера уничтожается.
func (m *Manager) Init(opts Options) (*Instance, error) {
	const op = "widget/Manager/Init"

	if opts.Logger == nil {
		opts.Logger = m.log
	}

	n, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	var (
		inst    *Instance
		initErr error
	)

	if err := m.doc.Do(func() {
		root := m.doc.Find(n.Container).First()
		if root.Length() == 0 {
			initErr = fmt.Errorf("%s: %w: %s", op, ErrContainerNotFound, n.Container)
			return
		}

		key := m.containerKey(root)
		if old := m.take(key); old != nil {
			old.destroyNow()
		}

		inst, initErr = newInstance(key, root, n, m.doc)
		if initErr != nil {
			return
		}

		m.mu.Lock()
		m.instances[key] = inst
		m.mu.Unlock()

		inst.setOnDestroy(func() { m.forget(key, inst) })
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if initErr != nil {
		return nil, initErr
	}

	m.log.Info("widget_initialized", slog.String("op", op), slog.String("key", inst.Key()), slog.String("object_id", n.ObjectID))
	return inst, nil
}

// Destroy уничтожает экземпляр контейнера; без экземпляра: no-op.
func (m *Manager) Destroy(container string) {
	_ = m.doc.Do(func() {
		if inst := m.take(m.lookupKey(container)); inst != nil {
			inst.destroyNow()
		}
	})
}

// DestroyAll уничтожает все экземпляры.
func (m *Manager) DestroyAll() {
	m.mu.Lock()
	all := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		all = append(all, inst)
	}
	clear(m.instances)
	m.mu.Unlock()

	if err := m.doc.Do(func() {
		for _, inst := range all {
			inst.destroyNow()
		}
	}); err != nil {
		// Документ закрыт: DOM уже не нужен, отменяем запросы и подписки.
		for _, inst := range all {
			inst.shutdown()
		}
	}
}

// Instance возвращает экземпляр контейнера, если он есть.
func (m *Manager) Instance(container string) (*Instance, bool) {
	var key string
	if err := m.doc.Do(func() { key = m.lookupKey(container) }); err != nil || key == "" {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[key]
	return inst, ok
}

// ByKey ищет экземпляр по маркеру без обращения к документу.
func (m *Manager) ByKey(key string) (*Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.instances[key]
	return inst, ok
}

// Len: число живых экземпляров.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.instances)
}

// containerKey читает маркер контейнера, при отсутствии: создаёт. Только с цикла.
func (m *Manager) containerKey(root *goquery.Selection) string {
	if key, ok := root.Attr(markerAttr); ok && key != "" {
		return key
	}

	key := fmt.Sprintf("%s%d-%s", markerKeyPrefix, m.now().UnixMilli(), uuid.NewString()[:8])
	root.SetAttr(markerAttr, key)

	return key
}

// lookupKey: маркер контейнера без создания нового. Только с цикла.
func (m *Manager) lookupKey(container string) string {
	key, _ := m.doc.Find(container).First().Attr(markerAttr)
	return key
}

func (m *Manager) take(key string) *Instance {
	if key == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inst := m.instances[key]
	delete(m.instances, key)

	return inst
}

// forget убирает inst из реестра, если ключ всё ещё за ним.
func (m *Manager) forget(key string, inst *Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.instances[key] == inst {
		delete(m.instances, key)
	}
}
