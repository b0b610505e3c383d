package http

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"rendita/internal/core"
	"rendita/internal/log"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func (s *Server) templateFuncs() template.FuncMap {
	currency := core.DefaultCurrency
	if s.portfolio != nil {
		currency = s.portfolio.Currency()
	}
	return template.FuncMap{
		"money":   func(v float64) string { return core.FormatAmount(v, currency) },
		"percent": core.FormatPercent,
		"input":   func(v float64) string { return formatInput(v) },
		"signed": func(v float64) string {
			if v > 0 {
				return "positive"
			}
			if v < 0 {
				return "negative"
			}
			return "zero"
		},
		"label": func(e core.ExtraIncome) string { return e.Label() },
		"share": func(amount, total float64) string {
			if total == 0 {
				return core.FormatPercent(0)
			}
			return core.FormatPercent(amount / total * 100)
		},
	}
}

// render executes a named template into a buffer so a failure never leaves a half-written body.
func (s *Server) render(r *http.Request, name string, data any) ([]byte, bool) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentTemplate)
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		return nil, false
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldOperation, log.OpRender, log.FieldError, err)
		return nil, false
	}
	return buf.Bytes(), true
}

// writeHTML renders a template as a full 200 response.
func (s *Server) writeHTML(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, ok := s.render(r, name, data)
	if !ok {
		InternalServerError("Rendering failed").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(string(body)).Write(w)
}
