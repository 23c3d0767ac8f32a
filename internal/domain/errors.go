package domain

import "errors"

// Core error taxonomy. Every failure raised by the indicator, strategy,
// backtest and metrics packages wraps exactly one of these.
var (
	// ErrConfiguration marks an unknown indicator type, operator or parameter.
	ErrConfiguration = errors.New("configuration error")

	// ErrReference marks a condition operand naming an undeclared column.
	ErrReference = errors.New("reference error")

	// ErrInsufficientData marks an empty series or one shorter than a required warm-up.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDomain marks a non-positive or non-finite price reaching position sizing.
	ErrDomain = errors.New("domain error")

	// ErrValidation marks a structurally malformed strategy definition.
	ErrValidation = errors.New("validation error")
)

// ErrPositionClosed is returned when closing a position twice.
var ErrPositionClosed = errors.New("position already closed")

// IsClientError reports whether err is caused by the caller's input rather
// than by a computation failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrReference) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientData)
}

// ErrorKind returns a short label for the taxonomy member wrapped by err.
// Returns "internal" when err wraps none of them.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrReference):
		return "reference"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDomain):
		return "domain"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
