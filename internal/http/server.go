// Package http exposes the JSON API: auth, income/expense recording, and
// the five summary views.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/finance"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Options tunes the transport middleware.
type Options struct {
	CORSOrigins            []string
	RateLimitPerMinute     int
	RegisterLimitPerMinute int
	LoginLimitPerMinute    int
}

type Server struct {
	http.Server

	auth   *auth.Service
	tx     *services.TransactionService
	store  *storage.Repository
	engine *finance.Engine

	corsOrigins map[string]bool

	// Separate limiters: write endpoints get a global budget, the auth
	// endpoints much tighter ones.
	globalLimiter   *rateLimiter
	registerLimiter *rateLimiter
	loginLimiter    *rateLimiter

	// now is the request clock; summaries take "today" from here so tests
	// can pin the date.
	now func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, authSvc *auth.Service, tx *services.TransactionService, store *storage.Repository, engine *finance.Engine, opts Options) *Server {
	mux := http.NewServeMux()

	origins := make(map[string]bool, len(opts.CORSOrigins))
	for _, o := range opts.CORSOrigins {
		origins[o] = true
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:            authSvc,
		tx:              tx,
		store:           store,
		engine:          engine,
		corsOrigins:     origins,
		globalLimiter:   newRateLimiter(opts.RateLimitPerMinute),
		registerLimiter: newRateLimiter(opts.RegisterLimitPerMinute),
		loginLimiter:    newRateLimiter(opts.LoginLimitPerMinute),
		now:             time.Now,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/auth/register", s.withCommon(s.limited(s.registerLimiter, s.handleRegister)))
	mux.HandleFunc("/auth/login", s.withCommon(s.limited(s.loginLimiter, s.handleLogin)))
	mux.HandleFunc("/auth/logout", s.withCommon(s.handleLogout))

	mux.HandleFunc("/income", s.withCommon(s.withAuth(s.handleIncome)))
	mux.HandleFunc("/expense", s.withCommon(s.withAuth(s.handleExpense)))

	mux.HandleFunc("/summary/daily", s.withCommon(s.withAuth(s.handleDailySummary)))
	mux.HandleFunc("/summary/monthly", s.withCommon(s.withAuth(s.handleMonthlySummary)))
	mux.HandleFunc("/summary/insights", s.withCommon(s.withAuth(s.handleInsights)))
	mux.HandleFunc("/summary/streaks", s.withCommon(s.withAuth(s.handleStreaks)))
	mux.HandleFunc("/summary/savings-trend", s.withCommon(s.withAuth(s.handleSavingsTrend)))

	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup
// goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.globalLimiter.stop()
		s.registerLimiter.stop()
		s.loginLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withCommon adds request IDs, request logging, security headers, CORS,
// and the global rate limit.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", ip,
			"user_agent", r.Header.Get("User-Agent"))

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if origin := r.Header.Get("Origin"); origin != "" && s.corsOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !s.globalLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", ip, "url", r.URL.Path)
			TooManyRequestsError("Too many requests. Please try again later.").Write(w)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ip)
	}
}

// limited applies an endpoint-specific rate limit on top of the global one.
func (s *Server) limited(rl *rateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !rl.allow(clientIP(r)) {
			slog.WarnContext(r.Context(), "Endpoint rate limit exceeded",
				"client_ip", clientIP(r), "url", r.URL.Path)
			TooManyRequestsError("Too many attempts. Please try again later.").Write(w)
			return
		}
		next(w, r)
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// withAuth resolves the bearer token to a user id or rejects with 401.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			UnauthorizedError("Could not validate credentials").Write(w)
			return
		}
		next(w, r, userID)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory per-IP rate limiter with a fixed one-minute window.
type rateLimiter struct {
	mu           sync.Mutex
	limit        int
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter(limit int) *rateLimiter {
	rl := &rateLimiter{
		limit:       limit,
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[ip]

	if !exists {
		rl.clients[ip] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// Reset the window after a minute of quiet.
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now

	return client.requests <= rl.limit
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
