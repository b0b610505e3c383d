package http

import (
	"net/http"

	"rendita/internal/core"
)

type portfolioResponse struct {
	Currency string                `json:"currency"`
	State    core.PortfolioState   `json:"state"`
	Summary  core.PortfolioSummary `json:"summary"`
}

type projectionResponse struct {
	Currency    string               `json:"currency"`
	StartDate   core.Date            `json:"startDate"`
	Horizon     int                  `json:"horizon"`
	CapitalOnly bool                 `json:"capitalOnly"`
	Days        []core.ProjectionDay `json:"days"`
}

func (s *Server) handleAPIPortfolio(w http.ResponseWriter, r *http.Request) {
	state := s.portfolio.State(r.Context())
	NewHTMXResponse().BodyJSON(portfolioResponse{
		Currency: s.portfolio.Currency(),
		State:    state,
		Summary:  core.Summarize(state.Accounts),
	}).Write(w)
}

func (s *Server) handleAPIProjection(w http.ResponseWriter, r *http.Request) {
	d := s.dashboard(r)
	NewHTMXResponse().BodyJSON(projectionResponse{
		Currency:    d.Currency,
		StartDate:   d.StartDate,
		Horizon:     d.Horizon,
		CapitalOnly: d.CapitalOnly,
		Days:        d.Projection,
	}).Write(w)
}

func (s *Server) handleAPIAnalysis(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(s.runAnalysis(r)).Write(w)
}
