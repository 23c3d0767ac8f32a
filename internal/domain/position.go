package domain

import (
	"fmt"
	"time"
)

// Side is the direction of a position.
type Side string

// Position sides.
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Exit reason codes.
const (
	ExitReasonSignal    = "SIGNAL"
	ExitReasonEndOfData = "END_OF_DATA"
)

// Position is one trade. ExitPrice and PnL are set exactly once, together,
// when the position is closed.
type Position struct {
	ID              string     `json:"id"`
	Timestamp       time.Time  `json:"timestamp"` // entry time
	Type            Side       `json:"type"`
	EntryPrice      float64    `json:"entry_price"` // after slippage
	Quantity        float64    `json:"quantity"`
	EntryCommission float64    `json:"entry_commission"`
	ExitTime        *time.Time `json:"exit_time,omitempty"`
	ExitPrice       *float64   `json:"exit_price"` // after slippage
	ExitCommission  float64    `json:"exit_commission"`
	ExitReason      string     `json:"exit_reason,omitempty"`
	// PnL is net of both EntryCommission and ExitCommission.
	PnL *float64 `json:"pnl"`
}

// IsClosed reports whether the position has been closed.
func (p *Position) IsClosed() bool {
	return p.ExitPrice != nil
}

// Close records the exit of the position.
// Returns ErrPositionClosed if it was already closed.
func (p *Position) Close(at time.Time, exitPrice, commission, pnl float64, reason string) error {
	if p.IsClosed() {
		return fmt.Errorf("close position %s: %w", p.ID, ErrPositionClosed)
	}
	p.ExitTime = &at
	p.ExitPrice = &exitPrice
	p.ExitCommission = commission
	p.PnL = &pnl
	p.ExitReason = reason
	return nil
}

// RealizedPnL returns the realized pnl or 0 for an open position.
func (p *Position) RealizedPnL() float64 {
	if p.PnL == nil {
		return 0
	}
	return *p.PnL
}
