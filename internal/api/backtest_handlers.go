package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/simulation"
	"backtest-lab/internal/strategy"
)

// BacktestRequest is the body of POST /api/backtest/run and the first
// message of the stream endpoint. Omitted rates fall back to server defaults.
type BacktestRequest struct {
	Symbol         string             `json:"symbol"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	Strategy       domain.StrategyDef `json:"strategy"`
	InitialCapital *float64           `json:"initial_capital,omitempty"`
	CommissionRate *float64           `json:"commission_rate,omitempty"`
	SlippageRate   *float64           `json:"slippage_rate,omitempty"`
}

// ValidationResponse is the reply of POST /api/strategy/validate.
type ValidationResponse struct {
	Valid  bool                  `json:"valid"`
	Errors []strategy.FieldError `json:"errors"`
}

// StreamMessage is one websocket message sent while a backtest runs.
type StreamMessage struct {
	Type   string              `json:"type"` // progress | result | error
	Stage  simulation.Stage    `json:"stage,omitempty"`
	Run    *domain.BacktestRun `json:"run,omitempty"`
	Detail string              `json:"detail,omitempty"`
}

// Stream message types.
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// toRunRequest validates req and resolves defaults.
// A strategy with field errors fails with the joined ErrValidation and the
// individual errors for the response body.
func (s *Server) toRunRequest(req BacktestRequest) (simulation.Request, []strategy.FieldError, error) {
	if req.Symbol == "" {
		return simulation.Request{}, nil, fmt.Errorf("%w: symbol is required", errBadRequest)
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return simulation.Request{}, nil, err
	}
	end, err := parseEndDate("end_date", req.EndDate)
	if err != nil {
		return simulation.Request{}, nil, err
	}

	if errs := strategy.Validate(req.Strategy, s.registry); len(errs) > 0 {
		return simulation.Request{}, errs, fmt.Errorf("strategy validation failed: %w", strategy.ValidationError(errs))
	}

	out := simulation.Request{
		Symbol:         req.Symbol,
		StartDate:      start,
		EndDate:        end,
		Strategy:       req.Strategy,
		InitialCapital: s.defaults.InitialCapital,
		CommissionRate: s.defaults.CommissionRate,
		SlippageRate:   s.defaults.SlippageRate,
	}
	if req.InitialCapital != nil {
		out.InitialCapital = *req.InitialCapital
	}
	if req.CommissionRate != nil {
		out.CommissionRate = *req.CommissionRate
	}
	if req.SlippageRate != nil {
		out.SlippageRate = *req.SlippageRate
	}
	return out, nil, nil
}

// handleRunBacktest runs a backtest synchronously and returns the stored run.
func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var body BacktestRequest
	if err := decodeJSON(r, w, &body); err != nil {
		s.writeError(w, err)
		return
	}

	req, fieldErrs, err := s.toRunRequest(body)
	if err != nil {
		if len(fieldErrs) > 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error(), Errors: fieldErrs})
			return
		}
		s.writeError(w, err)
		return
	}

	run, err := s.runner.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleGetBacktest returns a stored run by ID.
func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("backtest %s: %w", r.PathValue("id"), err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleStreamBacktest upgrades to a websocket, reads one BacktestRequest,
// then sends a progress message per pipeline stage followed by a result or
// error message, and closes normally.
func (s *Server) handleStreamBacktest(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	s.metrics.StreamConnections.Inc()
	defer s.metrics.StreamConnections.Dec()

	send := func(msg StreamMessage) error {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(msg)
	}
	// finish sends the terminal message and a normal-closure frame.
	finish := func(msg StreamMessage) {
		if err := send(msg); err != nil {
			s.logger.Printf("websocket send: %v", err)
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var body BacktestRequest
	if err := readStreamRequest(conn, &body); err != nil {
		finish(StreamMessage{Type: MessageError, Detail: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	req, _, err := s.toRunRequest(body)
	if err != nil {
		finish(StreamMessage{Type: MessageError, Detail: err.Error()})
		return
	}

	run, err := s.runner.RunWithProgress(r.Context(), req, func(stage simulation.Stage) {
		if stage == simulation.StageComplete {
			return
		}
		if err := send(StreamMessage{Type: MessageProgress, Stage: stage}); err != nil {
			s.logger.Printf("websocket send: %v", err)
		}
	})
	if err != nil {
		finish(StreamMessage{Type: MessageError, Detail: err.Error()})
		return
	}

	finish(StreamMessage{Type: MessageResult, Stage: simulation.StageComplete, Run: run})
}

// readStreamRequest decodes the first frame like decodeJSON decodes HTTP
// bodies: one JSON value, unknown fields rejected.
func readStreamRequest(conn *websocket.Conn, v any) error {
	conn.SetReadLimit(maxBodyBytes)
	_, rd, err := conn.NextReader()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
