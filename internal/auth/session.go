package auth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/pkg/log"
)

// Session: текущий зритель виджета. Реализует widget.Authenticator
// и widget.LoginRequirer. Безопасна для конкурентного использования.
type Session struct {
	user     atomic.Pointer[models.UserInfo]
	required atomic.Int64

	mu      sync.Mutex
	onLogin func()
}

// NewSession создаёт сессию; nil: анонимный зритель.
func NewSession(u *models.UserInfo) *Session {
	s := &Session{}
	if u != nil {
		cp := *u
		s.user.Store(&cp)
	}

	return s
}

// SessionFromToken разбирает токен и открывает сессию. Пустой токен: анонимная сессия.
func SessionFromToken(ctx context.Context, m *Manager, token string) (*Session, error) {
	if token == "" {
		return NewSession(nil), nil
	}

	u, err := m.Parse(token)
	if err != nil {
		log.From(ctx).Warn("viewer_token_rejected",
			slog.String("token", Redacted()),
			slog.String("err", err.Error()),
		)
		return nil, err
	}

	return NewSession(u), nil
}

// IsLoggedIn сообщает, известен ли зритель.
func (s *Session) IsLoggedIn() bool { return s.user.Load() != nil }

// UserInfo возвращает копию сведений о зрителе или nil.
func (s *Session) UserInfo() *models.UserInfo {
	u := s.user.Load()
	if u == nil {
		return nil
	}

	cp := *u
	return &cp
}

// Login заменяет зрителя.
func (s *Session) Login(u models.UserInfo) { s.user.Store(&u) }

// Logout делает сессию анонимной.
func (s *Session) Logout() { s.user.Store(nil) }

// SetLoginHandler задаёт реакцию на действие, требующее входа.
func (s *Session) SetLoginHandler(fn func()) {
	s.mu.Lock()
	s.onLogin = fn
	s.mu.Unlock()
}

// OnLoginRequired учитывает запрос входа и вызывает обработчик, если он задан.
func (s *Session) OnLoginRequired() {
	s.required.Add(1)

	s.mu.Lock()
	fn := s.onLogin
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// LoginRequests: сколько раз виджет запросил вход.
func (s *Session) LoginRequests() int64 { return s.required.Load() }
