package api

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SashaDiz/autoved-sub000/internal/catalog"
	"github.com/SashaDiz/autoved-sub000/internal/config"
	"github.com/SashaDiz/autoved-sub000/internal/extract"
	"github.com/SashaDiz/autoved-sub000/internal/ingest"
	"github.com/SashaDiz/autoved-sub000/internal/metrics"
	"github.com/SashaDiz/autoved-sub000/internal/ratelimit"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
)

// SecretHeader carries the webhook secret Telegram echoes back on every update.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const defaultRequestTimeout = 60 * time.Second

// Processor runs one inbound message through ingestion.
type Processor interface {
	Process(ctx context.Context, msg telegram.Message, token string) (ingest.Result, error)
}

// Parser reports what the extraction rules make of free text.
type Parser interface {
	Diagnose(text string) extract.Report
}

// CatalogReader lists persisted catalog entries.
type CatalogReader interface {
	List(ctx context.Context) ([]catalog.CatalogEntry, error)
}

// Notifier sends a plain-text message to a chat.
type Notifier interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}

// ReadyCheck reports whether a downstream dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Dependencies groups the collaborators behind the HTTP handlers. Nil members disable the
// routes that need them.
type Dependencies struct {
	Pipeline    Processor
	Parser      Parser
	Catalog     CatalogReader
	Notifier    Notifier
	ReadyChecks map[string]ReadyCheck
	// UploadsDir is served under storage.local.public_base_url when set.
	UploadsDir string
}

// Server wires HTTP handlers to the ingestion pipeline and catalog.
type Server struct {
	router chi.Router
	deps   Dependencies
	cfg    config.Config
	logger *zap.Logger
	leads  *ratelimit.Limiter
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Dependencies, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("api"),
		leads:  ratelimit.New(ratelimit.Config{RPS: cfg.Server.LeadsRPS, Burst: cfg.Server.LeadsBurst}),
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/telegram", func(r chi.Router) {
			r.With(secretMiddleware(cfg.Telegram.WebhookSecret)).Post("/webhook", s.webhook)
			r.Get("/test", s.parseText)
		})
		r.With(s.throttleMiddleware(s.leads)).Post("/leads", s.submitLead)
		r.Get("/cars", s.listCars)
	})

	if deps.UploadsDir != "" {
		prefix := strings.TrimRight(cfg.Storage.Local.PublicBaseURL, "/")
		if strings.HasPrefix(prefix, "/") {
			fs := http.StripPrefix(prefix, http.FileServer(http.Dir(deps.UploadsDir)))
			r.Handle(prefix+"/*", fs)
		}
	}

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, check := range s.deps.ReadyChecks {
		if err := check(r.Context()); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", zap.Any("failures", failures))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestID(r.Context())),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// secretMiddleware rejects requests whose secret header does not match expected. An empty
// expected secret disables the check.
func secretMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				metrics.ObserveIngest(string(ingest.OutcomeUnauthorized), ingest.ReasonBadSecret)
				writeJSON(w, http.StatusUnauthorized, webhookResponse{Success: false, Status: string(ingest.OutcomeUnauthorized)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// throttleMiddleware answers 429 once a client address exhausts its bucket.
func (s *Server) throttleMiddleware(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddr(r)
			if !l.Allow(addr) {
				s.logger.Info("request throttled", zap.String("client", addr), zap.String("path", r.URL.Path))
				metrics.ObserveLead("throttled")
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr prefers the first X-Forwarded-For hop set by the fronting proxy.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
