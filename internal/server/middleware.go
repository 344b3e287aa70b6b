package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware echoes a client supplied X-Request-ID or assigns a new
// UUID, and logs each request at debug level.
func (s *SearchServer) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		s.logger.WithRequestID(id).DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// RateLimitMiddleware rejects clients exceeding the configured rate with 429.
func (s *SearchServer) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminMiddleware checks the Bearer token against the configured bcrypt hash.
func (s *SearchServer) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminTokenHash == "" {
			writeError(w, http.StatusNotFound, "admin endpoints are disabled")
			return
		}

		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="emojisearch"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized: Missing token")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.opts.AdminTokenHash), []byte(token)); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="emojisearch"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// idleLimiterTTL is how long an unused client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	clients   map[string]*clientEntry
	lastSweep time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		clients:   make(map[string]*clientEntry),
		lastSweep: time.Now(),
	}
}

func (cl *clientLimiter) allow(key string) bool {
	now := time.Now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if now.Sub(cl.lastSweep) > idleLimiterTTL {
		for k, e := range cl.clients {
			if now.Sub(e.lastSeen) > idleLimiterTTL {
				delete(cl.clients, k)
			}
		}
		cl.lastSweep = now
	}

	e, ok := cl.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
