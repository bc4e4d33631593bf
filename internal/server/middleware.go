package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	visitorKey
)

const (
	visitorCookie  = "visitor_id"
	visitorMaxAge  = 365 * 24 * 60 * 60
	limiterIdleTTL = 10 * time.Minute
	limiterSweepAt = 1024
)

func userFrom(ctx context.Context) identity.Claims {
	c, _ := ctx.Value(userKey).(identity.Claims)
	return c
}

func visitorFrom(ctx context.Context) string {
	v, _ := ctx.Value(visitorKey).(string)
	return v
}

// accessLog writes one slog line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// visitor issues or confirms the anonymous visitor cookie.
func (s *Server) visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var candidate string
		if c, err := r.Cookie(visitorCookie); err == nil {
			candidate = c.Value
		}
		id, err := s.state.VisitorID(r.Context(), candidate)
		if err != nil {
			slog.Warn("Visitor state unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if id != candidate {
			http.SetCookie(w, &http.Cookie{
				Name:     visitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   visitorMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey, id)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate attaches the caller's claims when a bearer token is present.
// Requests without one continue anonymously.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, models.ErrNotConfigured) {
				writeError(w, r, err)
				return
			}
			writeProblem(w, r, http.StatusUnauthorized, "Sessão inválida ou expirada. Entre novamente.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, claims)))
	})
}

// requireUser rejects anonymous callers.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r.Context()).Subject == "" {
			writeProblem(w, r, http.StatusUnauthorized, "Entre com sua conta para continuar.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter throttles write requests per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitorLimiter
	now      func() time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &ipLimiter{
		limit:    limit,
		burst:    max(1, perMinute/6),
		visitors: make(map[string]*visitorLimiter),
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.visitors) >= limiterSweepAt {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.visitors, key)
			}
		}
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitorLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeProblem(w, r, http.StatusTooManyRequests, "Muitas requisições. Aguarde um pouco e tente de novo.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
