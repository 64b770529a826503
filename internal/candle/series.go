// Package candle defines the validated OHLCV series every analyzer consumes.
package candle

// Series is an array-backed OHLCV snapshot. It is built once per analysis
// cycle and never mutated afterwards; analyzers treat it as read-only.
type Series struct {
	Symbol   string
	Interval string

	Timestamps []int64 // millisecond epoch, strictly increasing
	Opens      []float64
	Highs      []float64
	Lows       []float64
	Closes     []float64
	Volumes    []float64

	// Valid is false when normalization rejected the raw rows. Analyzers
	// must check it before touching the arrays.
	Valid bool
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Closes)
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s *Series) LastClose() float64 {
	if s.Len() == 0 {
		return 0
	}
	return s.Closes[len(s.Closes)-1]
}

// Usable reports whether the series passed validation and carries at least
// min bars. Every analyzer gates on this before computing anything.
func (s *Series) Usable(min int) bool {
	return s != nil && s.Valid && s.Len() >= min
}
