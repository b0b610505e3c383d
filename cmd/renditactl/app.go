package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"rendita/internal/cli"
	"rendita/internal/config"
	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/services"
)

// session is an opened portfolio. close releases the backend.
type session struct {
	portfolio *services.PortfolioService
	analysis  *services.AnalysisService
	close     func()
}

type app struct {
	out   io.Writer
	raw   bool
	width int
	open  func(ctx context.Context) (*session, error)
}

func newApp(out io.Writer) *app {
	a := &app{out: out, width: 100}
	a.open = a.openFromEnv
	return a
}

// openFromEnv wires the backend and analyzer the same way the server does.
// Logs go to stderr so they never mix with the report.
func (a *app) openFromEnv(ctx context.Context) (*session, error) {
	cli.LoadEnvFile()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := log.New(log.Config{
		Component: "renditactl",
		Handler:   log.NewHandler(os.Stderr, level, os.Getenv("LOG_FORMAT")),
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	portfolio := services.NewPortfolioService(result.Backend, nil, logger, services.PortfolioOptions{
		Currency:       cfg.Currency,
		DefaultHorizon: cfg.DefaultHorizon,
		Backend:        cfg.DataBackend,
	})
	return &session{
		portfolio: portfolio,
		analysis:  services.NewAnalysisService(portfolio, cli.NewAnalyzer(ctx, logger, cfg), 0, logger),
		close: func() {
			if err := result.Close(); err != nil {
				logger.Warn("Failed to close backend", log.FieldError, err)
			}
		},
	}, nil
}

// printMarkdown writes md styled for the terminal, or as-is with -raw.
func (a *app) printMarkdown(md string) error {
	if a.raw {
		_, err := io.WriteString(a.out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(a.width))
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(a.out, out)
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// completion describes the command line for shell completion.
// Install it with COMP_INSTALL=1 renditactl.
func completion() *complete.Command {
	horizons := make(predict.Set, 0, len(core.Horizons))
	for _, h := range core.Horizons {
		horizons = append(horizons, fmt.Sprint(h))
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"summary": {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
			"project": {Flags: map[string]complete.Predictor{
				"horizon": horizons,
				"capital": predict.Nothing,
				"every":   predict.Set{"7", "15", "30"},
				"json":    predict.Nothing,
			}},
			"analyze":  {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
			"horizons": {},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
		Flags: map[string]complete.Predictor{
			"raw":   predict.Nothing,
			"width": predict.Something,
		},
	}
}
