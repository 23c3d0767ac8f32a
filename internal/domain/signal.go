package domain

// Signal is the per-bar classification emitted by the signal engine.
type Signal int8

// Signal values. The numeric encoding matches the conventional
// 1 (buy), 0 (hold), -1 (sell).
const (
	SignalSell Signal = -1
	SignalHold Signal = 0
	SignalBuy  Signal = 1
)

// String returns the signal label.
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}
