package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"demoapi/internal/ratelimit"
	"demoapi/internal/util"
	"demoapi/services/demo/internal/app"
)

const (
	statusCreated      = "Record had been created successfully!"
	statusCreateFailed = "Failed to create a record!"
	msgNotFound        = "Records not found!"
	msgFetchFailed     = "Failed to fetch records!"

	defaultMaxBodyBytes = 1 << 20
	rateWindow          = time.Minute
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	RedisAddr                string
	RedisPassword            string
	TrustedProxyCIDRs        []string
	CreateRateLimitPerMinute int
	MaxBodyBytes             int64
}

// Server exposes HTTP endpoints for the demo record API.
type Server struct {
	app           *app.App
	mux           *http.ServeMux
	createLimiter *ratelimit.FixedWindowLimiter
	trusted       *util.TrustedProxies
	maxBodyBytes  int64
}

// New constructs the server with routes configured. The create limiter is
// only enabled when CreateRateLimitPerMinute is positive.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, err
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{
		app:          cfg.App,
		mux:          http.NewServeMux(),
		trusted:      trusted,
		maxBodyBytes: maxBodyBytes,
	}
	if cfg.CreateRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "demo:ratelimit:create", cfg.CreateRateLimitPerMinute, rateWindow)
		if err != nil {
			return nil, err
		}
		s.createLimiter = limiter
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("demo", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

// Close releases the rate limiter connection, if any.
func (s *Server) Close() error {
	return s.createLimiter.Close()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/demo", s.handleDemo)
	// action-style aliases
	s.mux.HandleFunc("/api/demo/create", s.only(http.MethodPost, s.handleCreate))
	s.mux.HandleFunc("/api/demo/fetch", s.only(http.MethodGet, s.handleList))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ping(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("health check failed", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "record store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreate(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodDelete:
		writeText(w, http.StatusOK, s.app.DeleteRecord(r.Context()))
	case http.MethodPut:
		writeText(w, http.StatusOK, s.app.UpdateRecord(r.Context()))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) only(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, r, method)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r) {
		return
	}
	logger := util.LoggerFromContext(r.Context())
	raw, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodyBytes+1))
	if err != nil {
		logger.Warn("read create body", "err", err)
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: statusCreateFailed})
		return
	}
	if int64(len(raw)) > s.maxBodyBytes {
		logger.Warn("create body too large", "limit", s.maxBodyBytes)
		writeJSON(w, http.StatusRequestEntityTooLarge, statusResponse{Status: statusCreateFailed})
		return
	}
	rec, err := s.app.CreateRecord(r.Context(), raw)
	if err != nil {
		status := createErrorStatus(err)
		logger.Log(r.Context(), levelFor(status), "create record failed", "err", err, "status", status)
		writeJSON(w, status, statusResponse{Status: statusCreateFailed})
		return
	}
	logger.Debug("record created", "id", rec.ID)
	writeJSON(w, http.StatusOK, statusResponse{Status: statusCreated})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.app.ListRecords(r.Context())
	if err != nil {
		logger := util.LoggerFromContext(r.Context())
		if errors.Is(err, app.ErrNotFound) {
			writeText(w, http.StatusNotFound, msgNotFound)
			return
		}
		logger.Error("list records failed", "err", err)
		writeText(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request) bool {
	if s.createLimiter == nil {
		return true
	}
	key := util.ClientIP(r, s.trusted)
	decision := s.createLimiter.Allow(r.Context(), key)
	if decision.Allowed {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
	writeError(w, r, http.StatusTooManyRequests, "too many create requests")
	return false
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func createErrorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func levelFor(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status),
		RequestID: util.RequestIDFromRequest(r),
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "DEMO_RATE_LIMITED"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusServiceUnavailable:
		return "DEMO_STORE_UNAVAILABLE"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
