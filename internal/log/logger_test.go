package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONHandlerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentPortfolio, Handler: NewHandler(&buf, "debug", "json")})

	logger.InfoContext(context.Background(), "Portfolio saved", FieldRevision, int64(3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentPortfolio {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldRevision] != float64(3) {
		t.Errorf("revision = %v", rec[FieldRevision])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "test", Handler: NewHandler(&buf, "warn", "text")})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: NewHandler(&buf, "info", "text")})

	var got *Logger
	h := ComponentMiddleware(ComponentPortfolio)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), LoggerContextKey, logger))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Component() != ComponentPortfolio {
		t.Fatalf("component logger not found in context: %+v", got)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger outside a request")
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "info", "text")}).
		With(FieldRequestID, "req-1").
		WithComponent(ComponentWorker)

	logger.Info("mirrored")

	out := buf.String()
	if strings.Count(out, FieldComponent+"=") != 1 || !strings.Contains(out, FieldComponent+"="+ComponentWorker) {
		t.Fatalf("want exactly one worker component: %q", out)
	}
	if !strings.Contains(out, "req-1") {
		t.Fatalf("attributes lost: %q", out)
	}
}

func TestStructuredLoggerRecords(t *testing.T) {
	tests := []struct {
		name          string
		log           func(*StructuredLogger, *http.Request)
		wantLevel     string
		wantComponent string
	}{
		{
			name: "error uses the given component",
			log: func(sl *StructuredLogger, r *http.Request) {
				sl.LogError(r.Context(), "save failed", errors.New("disk full"), ComponentStorage, OpSave, NewFields())
			},
			wantLevel:     "ERROR",
			wantComponent: ComponentStorage,
		},
		{
			name: "server error response",
			log: func(sl *StructuredLogger, r *http.Request) {
				sl.LogHTTPEnd(r.Context(), r, http.StatusInternalServerError, 12, "10.0.0.1")
			},
			wantLevel:     "ERROR",
			wantComponent: ComponentHTTP,
		},
		{
			name: "client error response",
			log: func(sl *StructuredLogger, r *http.Request) {
				sl.LogHTTPEnd(r.Context(), r, http.StatusNotFound, 1, "10.0.0.1")
			},
			wantLevel:     "WARN",
			wantComponent: ComponentHTTP,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sl := NewStructuredLogger(New(Config{Component: ComponentPortfolio, Handler: NewHandler(&buf, "debug", "json")}))
			tt.log(sl, httptest.NewRequest(http.MethodPost, "/accounts", nil))

			var rec map[string]any
			if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
				t.Fatalf("output is not a single json record: %v (%s)", err, buf.String())
			}
			if rec["level"] != tt.wantLevel || rec[FieldComponent] != tt.wantComponent {
				t.Fatalf("level=%v component=%v, want %s/%s", rec["level"], rec[FieldComponent], tt.wantLevel, tt.wantComponent)
			}
		})
	}
}
