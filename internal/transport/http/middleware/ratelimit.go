package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MochaChoco/my-site/internal/transport/http/apierrors"
	logctx "github.com/MochaChoco/my-site/pkg/log"
)

const (
	limiterIdle  = 10 * time.Minute
	limiterSweep = 1024
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter: token bucket на каждый IP клиента.
type ipLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

func newIPLimiter(rpm, burst int) *ipLimiter {
	return &ipLimiter{
		rps:      rate.Limit(float64(rpm) / 60),
		burst:    burst,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Простаивающие IP выбрасываем, когда карта разрослась.
	if len(l.visitors) >= limiterSweep {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(l.visitors, k)
			}
		}
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// RateLimit ограничивает частоту запросов с одного IP: rpm в минуту, всплеск burst.
// rpm <= 0 делает мидлвар no-op.
func RateLimit(rpm, burst int) Middleware {
	return func(next http.Handler) http.Handler {
		if rpm <= 0 {
			return next
		}

		if burst <= 0 {
			burst = 1
		}
		l := newIPLimiter(rpm, burst)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.allow(ip) {
				logctx.From(r.Context()).Warn("rate_limited", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(rpm)))
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter: секунды до следующего токена, не меньше одной.
func retryAfter(rpm int) int {
	sec := 60 / rpm
	if sec < 1 {
		return 1
	}
	return sec
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
