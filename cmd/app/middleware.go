package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sushihentaime/quill/internal/authz"
	"golang.org/x/time/rate"
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			ip     = r.RemoteAddr
			method = r.Method
			proto  = r.Proto
			uri    = r.URL.RequestURI()
		)

		app.logger.Info("request from", slog.String("method", method), slog.String("uri", uri), slog.String("remote_addr", ip), slog.String("proto", proto), slog.String("request_id", middleware.GetReqID(r.Context())))

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the session cookie to an actor. A missing, expired or unknown session
// continues as the anonymous actor and the stale cookie is dropped.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Cookie")

		token := app.readSessionCookie(r)
		if token == "" {
			next.ServeHTTP(w, app.createSessionContext(r, &requestSession{actor: authz.Anonymous}))
			return
		}

		actor, user, err := app.userService.CurrentActor(r.Context(), token)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		if user == nil {
			app.clearSessionCookie(w)
			token = ""
		}

		next.ServeHTTP(w, app.createSessionContext(r, &requestSession{actor: actor, user: user, token: token}))
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. A zero rate disables limiting.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int

	done      chan struct{}
	closeOnce sync.Once
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	l := &ipLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		done:     make(chan struct{}),
	}

	go l.cleanup(time.Minute, 3*time.Minute)

	return l
}

func (l *ipLimiter) allow(ip string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

// cleanup drops visitors idle for longer than idle until Close is called.
func (l *ipLimiter) cleanup(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}

		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > idle {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (l *ipLimiter) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() { close(l.done) })
}

// realIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP when the server runs behind a
// trusted proxy. Otherwise the headers are ignored and RemoteAddr stays the socket peer.
func (app *application) realIP(next http.Handler) http.Handler {
	if app.config.TrustProxy {
		return middleware.RealIP(next)
	}
	return next
}

// rateLimit guards the credential and contact form posts. Buckets are keyed on RemoteAddr, which
// carries a forwarded address only when realIP trusts the proxy.
func (app *application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !app.limiter.allow(ip) {
			app.rateLimitExceededResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
