package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/render"
	"rendita/internal/services"
)

type horizonOption struct {
	Days     int
	Label    string
	Selected bool
}

type analysisView struct {
	HTML        template.HTML
	Fallback    bool
	Cached      bool
	GeneratedAt time.Time
}

// dashboardView is the data every page template and partial receives.
type dashboardView struct {
	services.Dashboard
	Horizons []horizonOption
	Analysis *analysisView
}

func (s *Server) dashboard(r *http.Request) dashboardView {
	q := r.URL.Query()
	d := s.portfolio.Dashboard(r.Context(), ParseHorizon(q, s.portfolio.DefaultHorizon()), ParseCapitalOnly(q))

	options := make([]horizonOption, 0, len(core.Horizons))
	for _, h := range core.Horizons {
		options = append(options, horizonOption{Days: h, Label: render.HorizonLabel(h), Selected: h == d.Horizon})
	}
	return dashboardView{Dashboard: d, Horizons: options}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, "index.html", s.dashboard(r))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, "summary", s.dashboard(r))
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	view := s.dashboard(r)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Projection computed",
		log.FieldOperation, log.OpProject, log.FieldHorizon, view.Horizon,
		"capital_only", view.CapitalOnly)
	s.writeHTML(w, r, "projection", view)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, "accounts", s.dashboard(r))
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, r, "incomes", s.dashboard(r))
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.portfolio.AddAccount(r.Context())
	if err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpCreate)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Account added",
		log.FieldOperation, log.OpCreate, log.FieldAccountID, account.ID)
	s.mutationOK(w, r, "accounts")
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	field, value, ok := s.fieldValue(w, r)
	if !ok {
		return
	}
	if _, err := s.portfolio.UpdateAccount(r.Context(), id, field, value); err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpUpdate, log.FieldAccountID, id, log.FieldField, field)
		return
	}
	s.mutationOK(w, r, "accounts")
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.portfolio.RemoveAccount(r.Context(), id); err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpDelete, log.FieldAccountID, id)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Account removed",
		log.FieldOperation, log.OpDelete, log.FieldAccountID, id)
	s.mutationOK(w, r, "accounts")
}

func (s *Server) handleSetSalary(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	if _, err := s.portfolio.SetSalary(r.Context(), parser.Get("value")); err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpUpdate, log.FieldField, "salary")
		return
	}
	s.mutationOK(w, r, "salary")
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	income, err := s.portfolio.AddExtraIncome(r.Context())
	if err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpCreate)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Extra income added",
		log.FieldOperation, log.OpCreate, log.FieldIncomeID, income.ID)
	s.mutationOK(w, r, "incomes")
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	field, value, ok := s.fieldValue(w, r)
	if !ok {
		return
	}
	if _, err := s.portfolio.UpdateExtraIncome(r.Context(), id, field, value); err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpUpdate, log.FieldIncomeID, id, log.FieldField, field)
		return
	}
	s.mutationOK(w, r, "incomes")
}

func (s *Server) handleRemoveIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.portfolio.RemoveExtraIncome(r.Context(), id); err != nil {
		s.mutationError(w, r, err, log.FieldOperation, log.OpDelete, log.FieldIncomeID, id)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Extra income removed",
		log.FieldOperation, log.OpDelete, log.FieldIncomeID, id)
	s.mutationOK(w, r, "incomes")
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	res := s.runAnalysis(r)
	view := s.dashboard(r)
	view.Analysis = &analysisView{
		HTML:        s.markdownHTML(r, res.Text),
		Fallback:    res.Fallback,
		Cached:      res.Cached,
		GeneratedAt: res.GeneratedAt,
	}
	body, ok := s.render(r, "analysis", view)
	if !ok {
		InternalServerError("Rendering failed").Write(w)
		return
	}
	resp := NewHTMXResponse().BodyHTML(string(body))
	if res.Fallback {
		resp.TriggerNotification(NotificationWarning, "Analysis is not available right now.", 4000)
	}
	resp.Write(w)
}

func (s *Server) runAnalysis(r *http.Request) services.AnalysisResult {
	res := s.analysis.Analyze(r.Context())
	atomic.AddInt64(&s.metrics.analyses, 1)
	if res.Fallback {
		atomic.AddInt64(&s.metrics.analysisFallbacks, 1)
	}
	if res.Cached {
		atomic.AddInt64(&s.metrics.analysisCacheHits, 1)
	}
	return res
}

// markdownHTML converts model output to HTML. Raw HTML in the input is
// dropped by goldmark's default renderer.
func (s *Server) markdownHTML(r *http.Request, text string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Markdown conversion failed",
			log.FieldOperation, log.OpRender, log.FieldError, err)
		return template.HTML("<p>" + template.HTMLEscapeString(text) + "</p>")
	}
	return template.HTML(buf.String())
}

// fieldValue reads the field/value pair every inline edit sends.
func (s *Server) fieldValue(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid request body",
			log.FieldOperation, log.OpParse, log.FieldError, err)
		BadRequestError("Invalid request body").Write(w)
		return "", "", false
	}
	field := parser.Get("field")
	if field == "" {
		UnprocessableEntityError("Missing field").
			TriggerErrorNotification("Missing field").
			Write(w)
		return "", "", false
	}
	return field, parser.Get("value"), true
}

// mutationOK re-renders the edited partial from fresh state and tells the
// rest of the page to refresh.
func (s *Server) mutationOK(w http.ResponseWriter, r *http.Request, partial string) {
	atomic.AddInt64(&s.metrics.mutations, 1)
	view := s.dashboard(r)
	body, ok := s.render(r, partial, view)
	if !ok {
		InternalServerError("Rendering failed").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerPortfolioChanged(view.State.Revision).
		BodyHTML(string(body)).
		Write(w)
}

func (s *Server) mutationError(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	atomic.AddInt64(&s.metrics.mutationFailures, 1)
	logger := log.FromContext(r.Context())
	args := append(attrs, log.FieldError, err)

	switch {
	case errors.Is(err, services.ErrNotFound):
		logger.InfoContext(r.Context(), "Mutation on unknown record", args...)
		NotFoundError("Record not found").
			TriggerErrorNotification("That entry no longer exists.").
			Write(w)
	case errors.Is(err, services.ErrUnknownField), errors.Is(err, services.ErrInvalidValue):
		logger.InfoContext(r.Context(), "Mutation rejected", args...)
		UnprocessableEntityError(err.Error()).
			TriggerErrorNotification(err.Error()).
			Write(w)
	default:
		logger.ErrorContext(r.Context(), "Mutation failed", args...)
		InternalServerError("Saving failed").
			TriggerErrorNotification("Saving failed, please retry.").
			Write(w)
	}
}
