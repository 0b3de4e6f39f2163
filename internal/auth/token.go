// Package auth: коллаборатор аутентификации виджета: JWT зрителя и сессия поверх него.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MochaChoco/my-site/internal/models"
	"github.com/MochaChoco/my-site/pkg/log"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrEmptySecret  = errors.New("empty jwt secret")
)

const (
	// DefaultTTL: срок жизни токена зрителя по умолчанию.
	DefaultTTL = 24 * time.Hour
	// DefaultIssuer: значение iss.
	DefaultIssuer = "commentbox"

	leeway = 5 * time.Second
)

type viewerClaims struct {
	Nickname   string `json:"nick"`
	ProfileURL string `json:"pic,omitempty"`
	jwt.RegisteredClaims
}

// Option настраивает Manager.
type Option func(*Manager)

// WithTTL задаёт срок жизни выпускаемых токенов.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer задаёт iss.
func WithIssuer(iss string) Option {
	return func(m *Manager) {
		if iss != "" {
			m.issuer = iss
		}
	}
}

// WithClock подменяет часы (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager выпускает и проверяет HS256-токены зрителя.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewManager создаёт менеджер токенов; пустой секрет: ошибка.
func NewManager(secret string, opts ...Option) (*Manager, error) {
	const op = "auth/token/NewManager"

	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	m := &Manager{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    DefaultTTL,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Issue подписывает токен для пользователя u.
func (m *Manager) Issue(ctx context.Context, u models.UserInfo) (string, error) {
	const op = "auth/token/Issue"

	if strings.TrimSpace(u.ID) == "" {
		return "", fmt.Errorf("%s: empty user id: %w", op, ErrInvalidToken)
	}

	now := m.now()
	claims := viewerClaims{
		Nickname:   u.Nickname,
		ProfileURL: u.ProfileURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		log.From(ctx).Error("viewer_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse проверяет подпись, iss и срок жизни и возвращает пользователя из токена.
func (m *Manager) Parse(tokenStr string) (*models.UserInfo, error) {
	const op = "auth/token/Parse"

	token, err := jwt.ParseWithClaims(tokenStr, &viewerClaims{},
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*viewerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &models.UserInfo{
		ID:         claims.Subject,
		Nickname:   claims.Nickname,
		ProfileURL: claims.ProfileURL,
	}, nil
}

// Redacted: безопасное представление токена для логов.
func Redacted() string { return "[REDACTED_TOKEN]" }
