package strategy

import (
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/indicator"
)

// Table is a bar series with the compiled indicator columns attached.
// Base bar columns are always present. A Table is read-only once built.
type Table struct {
	bars    []domain.Bar
	columns map[string]indicator.Series
	order   []string
	groups  map[string][]string
}

func newTable(bars []domain.Bar) *Table {
	t := &Table{
		bars:    bars,
		columns: make(map[string]indicator.Series, len(domain.BaseColumns)),
		groups:  make(map[string][]string),
	}
	for _, name := range domain.BaseColumns {
		t.columns[name] = indicator.Column(bars, name)
	}
	return t
}

// attach adds the output of one indicator under its declared name.
// Multi-output sub-series are attached as "<name>_<key>".
func (t *Table) attach(name string, out indicator.Output) error {
	multi := out.IsMulti()
	cols := make([]string, 0, len(out))
	for _, line := range out {
		col := name
		if multi {
			col = domain.ColumnName(name, line.Key)
		}
		if _, exists := t.columns[col]; exists {
			return fmt.Errorf("%w: column %q declared more than once", domain.ErrValidation, col)
		}
		t.columns[col] = line.Values
		t.order = append(t.order, col)
		cols = append(cols, col)
	}
	t.groups[name] = cols
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.bars)
}

// Bars returns the underlying bars.
func (t *Table) Bars() []domain.Bar {
	return t.bars
}

// Columns returns the indicator columns in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// IndicatorColumns returns the columns produced by the named indicator.
func (t *Table) IndicatorColumns(name string) []string {
	return t.groups[name]
}

// Has reports whether the table carries a column or indicator with this name.
func (t *Table) Has(name string) bool {
	if _, ok := t.columns[name]; ok {
		return true
	}
	_, ok := t.groups[name]
	return ok
}

// Series returns the named column.
func (t *Table) Series(name string) (indicator.Series, bool) {
	s, ok := t.columns[name]
	return s, ok
}

// Value returns the value of column name at row i.
// The second result is false when the column is absent or the value undefined.
func (t *Table) Value(name string, i int) (float64, bool) {
	s, ok := t.columns[name]
	if !ok || !s.Defined(i) {
		return 0, false
	}
	return s[i], true
}

// Resolve returns the value of an operand at row i: a literal resolves to
// itself and a reference to the named column's value at the same row.
// Returns ErrReference when the referenced column is absent.
func (t *Table) Resolve(op domain.Operand, i int) (float64, bool, error) {
	if op.Number != nil {
		return *op.Number, true, nil
	}
	if op.Ref == "" {
		return 0, false, fmt.Errorf("%w: empty operand", domain.ErrValidation)
	}
	s, ok := t.columns[op.Ref]
	if !ok {
		return 0, false, fmt.Errorf("%w: %q is not a known column", domain.ErrReference, op.Ref)
	}
	return s[i], s.Defined(i), nil
}

// WarmUp returns the number of leading rows where at least one indicator
// column is undefined.
func (t *Table) WarmUp() int {
	warm := 0
	for _, col := range t.order {
		if n := t.columns[col].CountUndefinedPrefix(); n > warm {
			warm = n
		}
	}
	return warm
}
