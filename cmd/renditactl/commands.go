package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"rendita/internal/core"
	"rendita/internal/render"
)

type summaryCmd struct {
	app  *app
	json bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show capital, yield and the account list" }
func (*summaryCmd) Usage() string {
	return `renditactl summary [-json]

  Prints the portfolio totals, the accounts and the planned extra incomes.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print JSON instead of markdown")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(s *session) error {
		state := s.portfolio.State(ctx)
		summary := core.Summarize(state.Accounts)
		if c.json {
			return c.app.printJSON(struct {
				Currency string                `json:"currency"`
				State    core.PortfolioState   `json:"state"`
				Summary  core.PortfolioSummary `json:"summary"`
			}{s.portfolio.Currency(), state, summary})
		}
		return c.app.printMarkdown(render.Markdown(render.Report{
			StartDate: s.portfolio.Today(),
			Currency:  s.portfolio.Currency(),
			State:     state,
			Summary:   summary,
		}, render.Options{SkipProjection: true}))
	})
}

type projectCmd struct {
	app     *app
	horizon int
	capital bool
	every   int
	json    bool
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "project capital day by day" }
func (*projectCmd) Usage() string {
	return `renditactl project [-horizon days] [-capital] [-every n] [-json]

  Prints the daily ledger from tomorrow over the horizon. Horizons not on the
  menu (see "renditactl horizons") fall back to the configured default.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.horizon, "horizon", 0, "projection length in days (default from DEFAULT_HORIZON)")
	f.BoolVar(&c.capital, "capital", false, "ignore salary and extra incomes")
	f.IntVar(&c.every, "every", 0, "print only every n-th day plus event days")
	f.BoolVar(&c.json, "json", false, "print JSON instead of markdown")
}

func (c *projectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.every < 0 {
		fmt.Fprintln(os.Stderr, "Error: -every must not be negative")
		return subcommands.ExitUsageError
	}
	return c.app.run(ctx, func(s *session) error {
		horizon := c.horizon
		if !core.IsHorizon(horizon) {
			if horizon != 0 {
				fmt.Fprintf(os.Stderr, "Horizon %d is not on the menu, using %d days\n", horizon, s.portfolio.DefaultHorizon())
			}
			horizon = s.portfolio.DefaultHorizon()
		}
		d := s.portfolio.Dashboard(ctx, horizon, c.capital)
		if c.json {
			return c.app.printJSON(struct {
				Currency    string               `json:"currency"`
				StartDate   core.Date            `json:"startDate"`
				Horizon     int                  `json:"horizon"`
				CapitalOnly bool                 `json:"capitalOnly"`
				Days        []core.ProjectionDay `json:"days"`
			}{d.Currency, d.StartDate, d.Horizon, d.CapitalOnly, d.Projection})
		}
		title := "Projection"
		if d.CapitalOnly {
			title = "Projection (capital only)"
		}
		return c.app.printMarkdown(render.Markdown(render.Report{
			Title:      title,
			StartDate:  d.StartDate,
			Currency:   d.Currency,
			State:      d.State,
			Summary:    d.Summary,
			Horizon:    d.Horizon,
			Projection: d.Projection,
		}, render.Options{SkipAccounts: true, Every: c.every}))
	})
}

type analyzeCmd struct {
	app  *app
	json bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "ask the AI model for a short portfolio review" }
func (*analyzeCmd) Usage() string {
	return `renditactl analyze [-json]

  Sends the portfolio summary to the configured model (GEMINI_API_KEY) and
  prints its answer. Without a key the fallback message is printed.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print JSON instead of markdown")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(s *session) error {
		res := s.analysis.Analyze(ctx)
		if c.json {
			return c.app.printJSON(res)
		}
		state := s.portfolio.State(ctx)
		return c.app.printMarkdown(render.Markdown(render.Report{
			Title:     "Portfolio review",
			StartDate: s.portfolio.Today(),
			Currency:  s.portfolio.Currency(),
			State:     state,
			Summary:   core.Summarize(state.Accounts),
			Analysis:  res.Text,
		}, render.Options{SkipAccounts: true, SkipProjection: true}))
	})
}

type horizonsCmd struct {
	app *app
}

func (*horizonsCmd) Name() string     { return "horizons" }
func (*horizonsCmd) Synopsis() string { return "list the projection horizons" }
func (*horizonsCmd) Usage() string {
	return `renditactl horizons

  Lists the horizons accepted by "project" and the web UI.
`
}

func (*horizonsCmd) SetFlags(*flag.FlagSet) {}

func (c *horizonsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(s *session) error {
		return c.app.printMarkdown("# Horizons\n\n" + render.Horizons(s.portfolio.DefaultHorizon()))
	})
}

// run opens a session, runs fn and maps failures to exit codes.
func (a *app) run(ctx context.Context, fn func(*session) error) subcommands.ExitStatus {
	s, err := a.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer s.close()
	if err := fn(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
