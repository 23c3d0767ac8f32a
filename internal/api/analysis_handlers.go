package api

import (
	"fmt"
	"math"
	"net/http"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/metrics"
	"backtest-lab/internal/reporting"
)

// AnalysisRequest is the body of the analysis endpoints.
type AnalysisRequest struct {
	Positions      []*domain.Position `json:"positions"`
	InitialCapital *float64           `json:"initial_capital,omitempty"`
	// Threshold is the drawdown percent below which points are reported.
	Threshold *float64 `json:"threshold,omitempty"`
}

// EquityCurveResponse is the reply of POST /api/analysis/equity-curve.
type EquityCurveResponse struct {
	Curve       []domain.EquityCurvePoint `json:"curve"`
	MaxDrawdown float64                   `json:"max_drawdown"`
}

// DrawdownPeriodsResponse is the reply of POST /api/analysis/drawdown-periods.
type DrawdownPeriodsResponse struct {
	DrawdownPeriods []domain.EquityCurvePoint `json:"drawdown_periods"`
	Count           int                       `json:"count"`
}

func (s *Server) decodeAnalysis(w http.ResponseWriter, r *http.Request) ([]domain.EquityCurvePoint, *AnalysisRequest, error) {
	var req AnalysisRequest
	if err := decodeJSON(r, w, &req); err != nil {
		return nil, nil, err
	}
	capital := s.defaults.InitialCapital
	if req.InitialCapital != nil {
		capital = *req.InitialCapital
	}
	if !(capital > 0) || math.IsInf(capital, 0) {
		return nil, nil, fmt.Errorf("%w: initial_capital must be positive", domain.ErrValidation)
	}
	for i, p := range req.Positions {
		if p == nil {
			return nil, nil, fmt.Errorf("%w: positions[%d] is null", domain.ErrValidation, i)
		}
	}
	return metrics.EquityCurve(req.Positions, capital), &req, nil
}

// handleEquityCurve rebuilds the equity curve of a position list.
func (s *Server) handleEquityCurve(w http.ResponseWriter, r *http.Request) {
	curve, _, err := s.decodeAnalysis(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EquityCurveResponse{Curve: curve, MaxDrawdown: metrics.MaxDrawdown(curve)})
}

// handleDrawdownPeriods lists the equity points below the drawdown threshold.
func (s *Server) handleDrawdownPeriods(w http.ResponseWriter, r *http.Request) {
	curve, req, err := s.decodeAnalysis(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	threshold := reporting.DefaultDrawdownThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	periods := metrics.SignificantDrawdowns(curve, threshold)
	writeJSON(w, http.StatusOK, DrawdownPeriodsResponse{DrawdownPeriods: periods, Count: len(periods)})
}
