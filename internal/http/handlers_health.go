package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// appMetrics counts domain events for /metrics.
type appMetrics struct {
	mutations         int64
	mutationFailures  int64
	analyses          int64
	analysisFallbacks int64
	analysisCacheHits int64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	if s.analysis != nil {
		checks["analysis_cache"] = map[string]interface{}{
			"entries": s.analysis.Cache().Size(),
			"status":  "ok",
		}
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewHTMXResponse().
		Status(httpStatus).
		BodyJSON(map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	cacheEntries := 0
	if s.analysis != nil {
		cacheEntries = s.analysis.Cache().Size()
	}

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	gauge("http_last_response_time_ms", "Duration of the last HTTP request", traceMetrics.LastResponseTime)
	counter("portfolio_mutations_total", "Portfolio edits saved", atomic.LoadInt64(&s.metrics.mutations))
	counter("portfolio_mutation_failures_total", "Portfolio edits rejected or not saved", atomic.LoadInt64(&s.metrics.mutationFailures))
	counter("analysis_requests_total", "Analysis requests served", atomic.LoadInt64(&s.metrics.analyses))
	counter("analysis_fallbacks_total", "Analysis requests answered with the fallback text", atomic.LoadInt64(&s.metrics.analysisFallbacks))
	counter("analysis_cache_hits_total", "Analysis requests answered from cache", atomic.LoadInt64(&s.metrics.analysisCacheHits))
	gauge("analysis_cache_entries", "Cached analysis answers", int64(cacheEntries))
	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	gauge("rate_limit_active_clients", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	counter("security_suspicious_requests_total", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	gauge("uptime_seconds", "Seconds since the server started", int64(time.Since(s.startedAt).Seconds()))
}
