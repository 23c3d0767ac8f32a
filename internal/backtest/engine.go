// Package backtest simulates position execution over a signal stream.
package backtest

import (
	"fmt"
	"math"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
)

// State is the position state of an engine.
type State string

// Engine states.
const (
	StateFlat State = "flat"
	StateLong State = "long"
)

// Results holds the outcome of one simulation.
type Results struct {
	StrategyID     string
	InitialCapital float64
	FinalCapital   float64
	BarCount       int
	Positions      []*domain.Position
}

// Engine is the Flat/Long execution state machine. It holds at most one
// open position and owns its capital; an Engine must not be shared between
// simulations.
type Engine struct {
	strategyID string
	costs      CostModel

	capital   float64
	open      *domain.Position
	positions []*domain.Position
	opened    int

	barCount int
	lastBar  domain.Bar
	finished bool
	results  *Results
}

// NewEngine creates an engine starting Flat with initialCapital.
func NewEngine(strategyID string, initialCapital float64, costs CostModel) *Engine {
	return &Engine{
		strategyID: strategyID,
		costs:      costs,
		capital:    initialCapital,
		positions:  make([]*domain.Position, 0),
		results: &Results{
			StrategyID:     strategyID,
			InitialCapital: initialCapital,
		},
	}
}

// State returns the current state.
func (e *Engine) State() State {
	if e.open != nil {
		return StateLong
	}
	return StateFlat
}

// Capital returns the current capital.
func (e *Engine) Capital() float64 {
	return e.capital
}

// OnBar processes one bar and its signal. Bars must arrive in increasing
// timestamp order.
func (e *Engine) OnBar(bar domain.Bar, signal domain.Signal) error {
	if e.finished {
		return fmt.Errorf("on bar %s: engine already finished", bar.Timestamp.Format(time.RFC3339))
	}
	e.barCount++
	e.lastBar = bar

	switch {
	case signal == domain.SignalBuy && e.open == nil:
		return e.enter(bar)
	case signal == domain.SignalSell && e.open != nil:
		return e.exit(bar, domain.ExitReasonSignal)
	default:
		return nil
	}
}

// Finish force-closes an open position at the last bar and freezes the
// results. Calling Finish on an engine that saw no bars is a no-op.
func (e *Engine) Finish() (*Results, error) {
	if e.finished {
		return e.results, nil
	}
	if e.open != nil {
		if err := e.exit(e.lastBar, domain.ExitReasonEndOfData); err != nil {
			return nil, err
		}
	}
	e.finished = true
	e.results.FinalCapital = e.capital
	e.results.BarCount = e.barCount
	e.results.Positions = e.positions
	return e.results, nil
}

func (e *Engine) enter(bar domain.Bar) error {
	price := bar.Close
	if err := checkPrice("entry", price, bar.Timestamp); err != nil {
		return err
	}

	size := math.Floor(e.capital / price)
	if size <= 0 {
		// insufficient capital: stay flat
		return nil
	}

	entryPrice := e.costs.AdjustEntryPrice(price, domain.SideLong)
	if err := checkPrice("entry", entryPrice, bar.Timestamp); err != nil {
		return err
	}
	commission := e.costs.Commission(size, entryPrice)

	e.open = &domain.Position{
		ID:              idhash.ComputePositionID(e.strategyID, bar.Timestamp.UnixMilli(), e.opened),
		Timestamp:       bar.Timestamp,
		Type:            domain.SideLong,
		EntryPrice:      entryPrice,
		Quantity:        size,
		EntryCommission: commission,
	}
	e.opened++
	e.capital -= entryPrice*size + commission
	return nil
}

func (e *Engine) exit(bar domain.Bar, reason string) error {
	pos := e.open
	price := bar.Close
	if err := checkPrice("exit", price, bar.Timestamp); err != nil {
		return err
	}

	exitPrice := e.costs.AdjustExitPrice(price, pos.Type)
	if err := checkPrice("exit", exitPrice, bar.Timestamp); err != nil {
		return err
	}
	commission := e.costs.Commission(pos.Quantity, exitPrice)
	pnl := (exitPrice-pos.EntryPrice)*pos.Quantity - pos.EntryCommission - commission

	if err := pos.Close(bar.Timestamp, exitPrice, commission, pnl, reason); err != nil {
		return err
	}
	e.capital += exitPrice*pos.Quantity - commission
	e.positions = append(e.positions, pos)
	e.open = nil
	return nil
}

func checkPrice(leg string, price float64, at time.Time) error {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: %s price %v at %s", domain.ErrDomain, leg, price, at.Format(time.RFC3339))
	}
	return nil
}
