package indicator

// Line is one named sub-series of an indicator output.
// Single-output indicators use an empty Key.
type Line struct {
	Key    string
	Values Series
}

// Output is the ordered result of one indicator computation.
type Output []Line

// Single wraps a single series as an Output.
func Single(s Series) Output {
	return Output{{Values: s}}
}

// IsMulti reports whether the output carries named sub-series.
func (o Output) IsMulti() bool {
	return len(o) > 1 || len(o) == 1 && o[0].Key != ""
}

// Get returns the sub-series with the given key.
func (o Output) Get(key string) (Series, bool) {
	for _, l := range o {
		if l.Key == key {
			return l.Values, true
		}
	}
	return nil, false
}
