package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/yuin/goldmark"

	"rendita/internal/log"
	"rendita/internal/middleware/ratelimit"
	"rendita/internal/middleware/security"
	"rendita/internal/middleware/trace"
	"rendita/internal/services"
	"rendita/internal/store"
	appweb "rendita/web"
)

// Dependencies are the collaborators the server talks to.
type Dependencies struct {
	Portfolio *services.PortfolioService
	Analysis  *services.AnalysisService
	// Pinger is checked by /readyz. Optional.
	Pinger store.Pinger
	// TemplatesFS and StaticFS default to the embedded web assets.
	TemplatesFS fs.FS
	StaticFS    fs.FS
}

type Server struct {
	http.Server
	templates *template.Template
	portfolio *services.PortfolioService
	analysis  *services.AnalysisService
	pinger    store.Pinger
	logger    *log.Logger
	markdown  goldmark.Markdown

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	startedAt        time.Time
	metrics          appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if deps.TemplatesFS == nil {
		deps.TemplatesFS = appweb.TemplatesFS
	}
	if deps.StaticFS == nil {
		deps.StaticFS = appweb.StaticFS
	}

	s := &Server{
		portfolio:        deps.Portfolio,
		analysis:         deps.Analysis,
		pinger:           deps.Pinger,
		logger:           logger.WithComponent(log.ComponentHTTP),
		markdown:         goldmark.New(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: security.NewDetector(),
		startedAt:        time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(deps.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(deps.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Pages and partials
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/summary", s.handleSummary)
	mux.HandleFunc("GET /ui/projection", s.handleProjection)
	mux.HandleFunc("GET /ui/accounts", s.handleAccounts)
	mux.HandleFunc("GET /ui/incomes", s.handleIncomes)

	// Mutations
	mux.HandleFunc("POST /accounts", s.handleAddAccount)
	mux.HandleFunc("POST /accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /accounts/{id}", s.handleRemoveAccount)
	mux.HandleFunc("POST /salary", s.handleSetSalary)
	mux.HandleFunc("POST /incomes", s.handleAddIncome)
	mux.HandleFunc("POST /incomes/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /incomes/{id}", s.handleRemoveIncome)
	mux.HandleFunc("POST /analysis", s.handleAnalysis)

	// JSON API
	mux.HandleFunc("GET /api/portfolio", s.handleAPIPortfolio)
	mux.HandleFunc("GET /api/projection", s.handleAPIProjection)
	mux.HandleFunc("POST /api/analysis", s.handleAPIAnalysis)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * services.DefaultAnalysisTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// middleware wraps the mux: tracing outermost, then security headers, then rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(next)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	detect := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method, log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		headers.ServeHTTP(w, r)
	})
	return s.traceMiddleware.Middleware(log.ComponentMiddleware(log.ComponentHTTP)(detect))
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerErrorNotification("Too many changes, wait a minute.").
		BodyHTML(`<div class="error">Rate limit exceeded. Please try again later.</div>`).
		Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
