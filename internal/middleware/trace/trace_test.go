package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rendita/internal/log"
)

func TestMiddlewareTagsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: log.NewHandler(&buf, "info", "json")})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.1" })

	var seenID string
	var seenLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/summary", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("request id = %q", seenID)
	}
	if rr.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seenID)
	}
	if seenLogger == nil || seenLogger.Component() != log.ComponentHTTP {
		t.Fatalf("request logger not stored in context")
	}

	out := buf.String()
	for _, want := range []string{`"HTTP request started"`, `"HTTP request completed"`, `"status_code":418`, `"client_ip":"203.0.113.1"`, seenID} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("requests = %d", got)
	}
}

func TestIncomingRequestID(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Handler: log.NewHandler(&bytes.Buffer{}, "error", "text")}), nil)
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		incoming string
		keep     bool
	}{
		{"abc-123_X", true},
		{"has space", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get(HeaderRequestID); (got == tt.incoming) != tt.keep {
			t.Errorf("incoming %q -> %q, keep=%v", tt.incoming, got, tt.keep)
		}
	}
}
