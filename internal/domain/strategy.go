package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// IndicatorType identifies an indicator kind.
type IndicatorType string

// Built-in indicator kinds.
const (
	IndicatorSMA        IndicatorType = "sma"
	IndicatorEMA        IndicatorType = "ema"
	IndicatorMACD       IndicatorType = "macd"
	IndicatorRSI        IndicatorType = "rsi"
	IndicatorStochastic IndicatorType = "stochastic"
	IndicatorROC        IndicatorType = "roc"
	IndicatorBollinger  IndicatorType = "bollinger"
	IndicatorATR        IndicatorType = "atr"
	IndicatorOBV        IndicatorType = "obv"
	IndicatorVWAP       IndicatorType = "vwap"
)

// BuiltinIndicators lists the built-in kinds in catalogue order.
var BuiltinIndicators = []IndicatorType{
	IndicatorSMA,
	IndicatorEMA,
	IndicatorMACD,
	IndicatorRSI,
	IndicatorStochastic,
	IndicatorROC,
	IndicatorBollinger,
	IndicatorATR,
	IndicatorOBV,
	IndicatorVWAP,
}

// IndicatorSpec declares one indicator of a strategy.
type IndicatorSpec struct {
	ID         string         `json:"id" validate:"required"`
	Name       string         `json:"name" validate:"required"`
	Type       IndicatorType  `json:"type" validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Operator is a condition comparison operator.
type Operator string

// Supported operators.
const (
	OperatorGT  Operator = "gt"
	OperatorGTE Operator = "gte"
	OperatorLT  Operator = "lt"
	OperatorLTE Operator = "lte"
	OperatorEQ  Operator = "eq"
)

// Operand is the right-hand side of a condition: either a numeric literal
// or a reference to another column. Encoded in JSON as a number or a string.
type Operand struct {
	Number *float64
	Ref    string
}

// Literal returns a numeric operand.
func Literal(v float64) Operand {
	return Operand{Number: &v}
}

// Ref returns a column-reference operand.
func Ref(name string) Operand {
	return Operand{Ref: name}
}

// IsRef reports whether the operand references a column.
func (o Operand) IsRef() bool {
	return o.Number == nil && o.Ref != ""
}

// IsZero reports whether the operand is unset.
func (o Operand) IsZero() bool {
	return o.Number == nil && o.Ref == ""
}

// String renders the operand for messages.
func (o Operand) String() string {
	if o.Number != nil {
		return strconv.FormatFloat(*o.Number, 'g', -1, 64)
	}
	return o.Ref
}

// MarshalJSON encodes the operand as a number or a string.
func (o Operand) MarshalJSON() ([]byte, error) {
	if o.Number != nil {
		return json.Marshal(*o.Number)
	}
	return json.Marshal(o.Ref)
}

// UnmarshalJSON accepts a JSON number or string.
func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = Operand{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Operand{Ref: s}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("operand must be a number or a string: %w", err)
	}
	*o = Operand{Number: &f}
	return nil
}

// ConditionSpec is one rule: Indicator <Operator> Value.
type ConditionSpec struct {
	ID        string   `json:"id" validate:"required"`
	Indicator string   `json:"indicator" validate:"required"`
	Operator  Operator `json:"operator" validate:"required"`
	Value     Operand  `json:"value"`
}

// StrategyDef is an immutable strategy definition.
// Indicators and conditions keep their declaration order.
type StrategyDef struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Indicators  []IndicatorSpec `json:"indicators" validate:"required,min=1,dive"`
	Conditions  []ConditionSpec `json:"conditions" validate:"required,min=1,dive"`
}

// ColumnName returns the table column of a multi-output sub-series.
func ColumnName(indicatorName, subKey string) string {
	if subKey == "" {
		return indicatorName
	}
	return indicatorName + "_" + subKey
}
