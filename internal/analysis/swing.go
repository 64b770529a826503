// Package analysis holds the pure per-series analyzers. Every analyzer takes
// an immutable candle.Series snapshot and returns value objects; none of them
// keep state between calls or touch I/O.
package analysis

// SwingHighs returns the indices of local maxima over a symmetric window.
// Index i qualifies when values[i] is greater than or equal to every one of
// the window neighbors on both sides, so flat plateaus produce several
// adjacent swing points. Wave measurement, order-block detection, and
// support/resistance clustering all share this one definition.
func SwingHighs(values []float64, window int) []int {
	return swingPoints(values, window, func(v, neighbor float64) bool {
		return v >= neighbor
	})
}

// SwingLows is the trough counterpart of SwingHighs: values[i] must be less
// than or equal to every window neighbor on both sides.
func SwingLows(values []float64, window int) []int {
	return swingPoints(values, window, func(v, neighbor float64) bool {
		return v <= neighbor
	})
}

func swingPoints(values []float64, window int, qualifies func(v, neighbor float64) bool) []int {
	if window <= 0 || len(values) < 2*window+1 {
		return nil
	}

	var points []int
	for i := window; i < len(values)-window; i++ {
		ok := true
		for j := 1; j <= window; j++ {
			if !qualifies(values[i], values[i-j]) || !qualifies(values[i], values[i+j]) {
				ok = false
				break
			}
		}
		if ok {
			points = append(points, i)
		}
	}
	return points
}
