package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/MochaChoco/my-site/internal/models"
)

const testSecret = "unit-test-secret"

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()

	m, err := NewManager(testSecret, opts...)
	require.NoError(t, err)

	return m
}

func TestNewManager_EmptySecret(t *testing.T) {
	_, err := NewManager("  ")
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssueParse_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	u := models.UserInfo{ID: "u1", Nickname: "민수", ProfileURL: "https://img/u1.png"}
	tok, err := m.Issue(context.Background(), u)
	require.NoError(t, err)

	got, err := m.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, u, *got)
}

func TestIssue_EmptyID(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Issue(context.Background(), models.UserInfo{Nickname: "x"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Rejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, WithClock(func() time.Time { return now }), WithTTL(time.Hour))

	t.Run("expired", func(t *testing.T) {
		past := newTestManager(t, WithClock(func() time.Time { return now.Add(-2 * time.Hour) }), WithTTL(time.Hour))
		tok, err := past.Issue(context.Background(), models.UserInfo{ID: "u1"})
		require.NoError(t, err)

		_, err = m.Parse(tok)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewManager("other-secret", WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		tok, err := other.Issue(context.Background(), models.UserInfo{ID: "u1"})
		require.NoError(t, err)

		_, err = m.Parse(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := newTestManager(t, WithIssuer("someone-else"), WithClock(func() time.Time { return now }))
		tok, err := other.Issue(context.Background(), models.UserInfo{ID: "u1"})
		require.NoError(t, err)

		_, err = m.Parse(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong alg", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub": "u1",
			"iss": DefaultIssuer,
			"exp": now.Add(time.Hour).Unix(),
			"iat": now.Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = m.Parse(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no subject", func(t *testing.T) {
		claims := jwt.MapClaims{
			"iss": DefaultIssuer,
			"exp": now.Add(time.Hour).Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = m.Parse(tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestSession(t *testing.T) {
	s := NewSession(nil)
	require.False(t, s.IsLoggedIn())
	require.Nil(t, s.UserInfo())

	var hook atomic.Int32
	s.SetLoginHandler(func() { hook.Add(1) })
	s.OnLoginRequired()
	s.OnLoginRequired()
	require.EqualValues(t, 2, s.LoginRequests())
	require.EqualValues(t, 2, hook.Load())

	s.Login(models.UserInfo{ID: "u1", Nickname: "n"})
	require.True(t, s.IsLoggedIn())

	ui := s.UserInfo()
	ui.Nickname = "mutated"
	require.Equal(t, "n", s.UserInfo().Nickname)

	s.Logout()
	require.False(t, s.IsLoggedIn())
}

func TestSessionFromToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	s, err := SessionFromToken(ctx, m, "")
	require.NoError(t, err)
	require.False(t, s.IsLoggedIn())

	tok, err := m.Issue(ctx, models.UserInfo{ID: "u7", Nickname: "seven"})
	require.NoError(t, err)

	s, err = SessionFromToken(ctx, m, tok)
	require.NoError(t, err)
	require.Equal(t, "u7", s.UserInfo().ID)

	_, err = SessionFromToken(ctx, m, tok+"x")
	require.ErrorIs(t, err, ErrInvalidToken)
}
