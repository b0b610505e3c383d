// Package render turns portfolio figures into markdown for terminals and reports.
package render

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"rendita/internal/core"
)

//go:embed templates/*.md
var templates embed.FS

// Report is the data behind a markdown report. Empty sections are omitted.
type Report struct {
	Title      string
	StartDate  core.Date
	Currency   string
	State      core.PortfolioState
	Summary    core.PortfolioSummary
	Horizon    int
	Projection []core.ProjectionDay
	Analysis   string
}

// Options selects which sections a report renders.
type Options struct {
	SkipAccounts   bool
	SkipProjection bool
	// Every prints only every n-th projection row, plus the last one. Zero or one prints all.
	Every int
}

// Markdown renders the full report.
func Markdown(r Report, opts Options) string {
	partials := map[string]string{
		"summary":    "summary.md",
		"accounts":   "accounts.md",
		"incomes":    "incomes.md",
		"projection": "projection.md",
		"analysis":   "analysis.md",
	}
	if opts.SkipAccounts {
		partials["accounts"] = ""
		partials["incomes"] = ""
	}
	if opts.SkipProjection {
		partials["projection"] = ""
	}
	if opts.Every > 1 {
		r.Projection = sample(r.Projection, opts.Every)
	}
	if r.Title == "" {
		r.Title = "Portfolio"
	}
	return renderTemplate("report", "report.md", partials, r)
}

// Horizons renders the horizon menu.
func Horizons(defaultHorizon int) string {
	var b strings.Builder
	b.WriteString("| Horizon | Days |\n|:--|--:|\n")
	for _, h := range core.Horizons {
		label := HorizonLabel(h)
		if h == defaultHorizon {
			label += " (default)"
		}
		fmt.Fprintf(&b, "| %s | %d |\n", label, h)
	}
	return b.String()
}

// HorizonLabel names a horizon in words, e.g. "3 months".
func HorizonLabel(days int) string {
	switch days {
	case 7:
		return "1 week"
	case 15:
		return "2 weeks"
	case 30:
		return "1 month"
	case 90:
		return "3 months"
	case 180:
		return "6 months"
	case 365:
		return "1 year"
	}
	return fmt.Sprintf("%d days", days)
}

func sample(days []core.ProjectionDay, every int) []core.ProjectionDay {
	out := make([]core.ProjectionDay, 0, len(days)/every+1)
	for i, d := range days {
		if (i+1)%every == 0 || i == len(days)-1 || len(d.Events) > 0 {
			out = append(out, d)
		}
	}
	return out
}

func funcs(currency string) template.FuncMap {
	return template.FuncMap{
		"money":   func(v float64) string { return core.FormatAmount(v, currency) },
		"percent": core.FormatPercent,
		"events": func(events []string) string {
			if len(events) == 0 {
				return ""
			}
			return strings.Join(events, "; ")
		},
		"cell": func(s string) string {
			s = strings.TrimSpace(s)
			if s == "" {
				return "-"
			}
			return strings.ReplaceAll(s, "|", `\|`)
		},
		"label":   func(e core.ExtraIncome) string { return e.Label() },
		"horizon": HorizonLabel,
	}
}

// renderTemplate renders a main template that depends on several partials.
// An empty partial file name renders nothing.
func renderTemplate(templateName, mainFile string, partials map[string]string, r Report) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs(r.Currency)).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, "templates/"+file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, r); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
