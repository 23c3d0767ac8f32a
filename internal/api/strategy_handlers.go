package api

import (
	"net/http"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/indicator"
	"backtest-lab/internal/strategy"
)

// handleValidateStrategy reports every field error of a strategy definition.
func (s *Server) handleValidateStrategy(w http.ResponseWriter, r *http.Request) {
	var def domain.StrategyDef
	if err := decodeJSON(r, w, &def); err != nil {
		s.writeError(w, err)
		return
	}

	errs := strategy.Validate(def, s.registry)
	if errs == nil {
		errs = []strategy.FieldError{}
	}
	writeJSON(w, http.StatusOK, ValidationResponse{Valid: len(errs) == 0, Errors: errs})
}

// handleListIndicators returns the indicator catalogue.
func (s *Server) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]indicator.Info{
		"indicators": s.registry.Catalog(),
	})
}

// handleStrategySummary aggregates every stored run of a strategy.
func (s *Server) handleStrategySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
