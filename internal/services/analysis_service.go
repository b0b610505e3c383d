package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"

	"rendita/internal/analysis"
	"rendita/internal/cache"
	"rendita/internal/core"
	"rendita/internal/log"
)

const (
	// DefaultAnalysisTimeout bounds a single model call.
	DefaultAnalysisTimeout = 45 * time.Second
	analysisCacheSize      = 32
)

// AnalysisResult is what the UI and the API show for an analysis request.
type AnalysisResult struct {
	Text        string    `json:"text"`
	Fallback    bool      `json:"fallback"`
	Cached      bool      `json:"cached"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// AnalysisService asks the analyzer about the current portfolio. Identical
// prompts share one in-flight call and successful answers are cached.
type AnalysisService struct {
	portfolio *PortfolioService
	analyzer  analysis.Analyzer
	logger    *log.Logger
	group     singleflight.Group
	cache     *cache.LRUCache[AnalysisResult]
	timeout   time.Duration
	now       func() time.Time
}

// NewAnalysisService creates the service. A nil analyzer behaves like analysis.Disabled.
func NewAnalysisService(portfolio *PortfolioService, analyzer analysis.Analyzer, cacheTTL time.Duration, logger *log.Logger) *AnalysisService {
	if analyzer == nil {
		analyzer = analysis.Disabled{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AnalysisService{
		portfolio: portfolio,
		analyzer:  analyzer,
		logger:    logger.WithComponent(log.ComponentAnalysis),
		cache:     cache.NewLRUCache[AnalysisResult](analysisCacheSize, cacheTTL),
		timeout:   DefaultAnalysisTimeout,
		now:       time.Now,
	}
}

// Cache exposes the result cache so it can be registered with a cache.Manager.
func (s *AnalysisService) Cache() *cache.LRUCache[AnalysisResult] {
	return s.cache
}

// Analyze builds a prompt from the stored portfolio and returns the model's answer.
// It never fails: any error turns into the fallback text.
func (s *AnalysisService) Analyze(ctx context.Context) AnalysisResult {
	state := s.portfolio.State(ctx)
	prompt := analysis.BuildPrompt(state, core.Summarize(state.Accounts), s.portfolio.Today(), s.portfolio.Currency())
	return s.AnalyzePrompt(ctx, prompt)
}

// AnalyzePrompt runs prompt through the analyzer with de-duplication and caching.
func (s *AnalysisService) AnalyzePrompt(ctx context.Context, prompt string) AnalysisResult {
	key := promptKey(prompt)
	if res, ok := s.cache.Get(key); ok {
		res.Cached = true
		return res
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		// Detached from the caller: every waiter shares this call.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		start := s.now()
		text, err := s.analyzer.Analyze(callCtx, prompt)
		if err != nil {
			return nil, err
		}
		res := AnalysisResult{Text: text, GeneratedAt: s.now().UTC()}
		s.cache.Set(key, res)
		s.logger.InfoContext(ctx, "Portfolio analysis generated",
			log.FieldOperation, log.OpAnalyze, log.FieldDuration, s.now().Sub(start).Milliseconds())
		return res, nil
	})

	select {
	case <-ctx.Done():
		return s.fallback(ctx, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return s.fallback(ctx, r.Err)
		}
		return r.Val.(AnalysisResult)
	}
}

func (s *AnalysisService) fallback(ctx context.Context, err error) AnalysisResult {
	s.logger.WarnContext(ctx, "Portfolio analysis unavailable, using fallback",
		log.FieldOperation, log.OpAnalyze, log.FieldError, err)
	return AnalysisResult{
		Text:        analysis.FallbackText,
		Fallback:    true,
		GeneratedAt: s.now().UTC(),
	}
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
