// Package trace tags every request with an ID and logs its start and end.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"rendita/internal/log"
)

// ContextKey type for context keys
type ContextKey string

// RequestIDKey is the context key for request ID
const RequestIDKey ContextKey = "request_id"

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
	requests  int64
	lastMs    int64
}

// NewMiddleware creates a trace middleware logging through logger.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    logger.WithComponent(log.ComponentHTTP),
	}
}

// Middleware stores the request ID and a request-scoped logger in the context.
// An incoming X-Request-ID is kept when it looks sane.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		logger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, log.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		sl := log.NewStructuredLogger(logger)
		sl.LogHTTPStart(ctx, r, clientIP)

		atomic.AddInt64(&m.requests, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		durationMs := time.Since(start).Milliseconds()
		atomic.StoreInt64(&m.lastMs, durationMs)
		sl.LogHTTPEnd(ctx, r, rw.statusCode, durationMs, clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests    int64
	LastResponseTime int64 // milliseconds
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&m.requests),
		LastResponseTime: atomic.LoadInt64(&m.lastMs),
	}
}
