package backtest

import "backtest-lab/internal/domain"

// CostModel computes commission and slippage. Both rates are fractions of
// notional and must be non-negative. Slippage always works against the
// trader.
type CostModel struct {
	CommissionRate float64
	SlippageRate   float64
}

// DefaultCostModel returns 0.1% commission and 0.1% slippage.
func DefaultCostModel() CostModel {
	return CostModel{CommissionRate: 0.001, SlippageRate: 0.001}
}

// Commission returns qty*price*commission rate.
func (c CostModel) Commission(qty, price float64) float64 {
	return qty * price * c.CommissionRate
}

// Slippage returns the slippage cost of a trade of qty at price.
func (c CostModel) Slippage(qty, price float64) float64 {
	return qty * price * c.SlippageRate
}

// AdjustEntryPrice returns the execution price of an entry.
// Long entries pay more, short entries receive less.
func (c CostModel) AdjustEntryPrice(price float64, side domain.Side) float64 {
	if side == domain.SideShort {
		return price * (1 - c.SlippageRate)
	}
	return price * (1 + c.SlippageRate)
}

// AdjustExitPrice returns the execution price of an exit.
// Long exits receive less, short exits pay more.
func (c CostModel) AdjustExitPrice(price float64, side domain.Side) float64 {
	if side == domain.SideShort {
		return price * (1 + c.SlippageRate)
	}
	return price * (1 - c.SlippageRate)
}
