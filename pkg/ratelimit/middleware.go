package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sentra-id/sentra/pkg/config"
)

// Guard holds one limiter per endpoint class. A zero threshold (or the
// global toggle being off) disables that class.
type Guard struct {
	login         *Limiter
	register      *Limiter
	passwordReset *Limiter
}

func NewGuard(cfg config.RateLimitConfig) *Guard {
	if !cfg.Enabled {
		return &Guard{}
	}
	g := &Guard{}
	if cfg.LoginPerMin > 0 {
		g.login = PerMinute(cfg.LoginPerMin)
	}
	if cfg.RegisterPerMin > 0 {
		g.register = PerMinute(cfg.RegisterPerMin)
	}
	if cfg.PasswordResetPerMin > 0 {
		g.passwordReset = PerMinute(cfg.PasswordResetPerMin)
	}
	return g
}

// Login throttles the login endpoint class per client IP.
func (g *Guard) Login(next http.Handler) http.Handler {
	return limit(g.login, "login", next)
}

// Register throttles the registration endpoint class per client IP.
func (g *Guard) Register(next http.Handler) http.Handler {
	return limit(g.register, "register", next)
}

// PasswordReset throttles the password reset endpoint class per client IP.
func (g *Guard) PasswordReset(next http.Handler) http.Handler {
	return limit(g.passwordReset, "password_reset", next)
}

func limit(l *Limiter, class string, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.Allow(ip) {
			slog.Warn("rate limit exceeded", "class", class, "ip", ip, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"RATE_LIMIT_EXCEEDED","message":"too many requests, try again later"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers proxy headers, falling back to the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
