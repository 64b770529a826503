package analysis

// EMA computes a recursive exponential moving average with alpha=2/(period+1).
// The seed is the first positive price so a leading zero cannot poison the
// whole curve. The result has the same length as prices.
func EMA(prices []float64, period int) []float64 {
	if len(prices) == 0 {
		return nil
	}
	out := make([]float64, len(prices))
	if period <= 0 || len(prices) < period {
		for i := range out {
			out[i] = prices[0]
		}
		return out
	}

	alpha := 2.0 / float64(period+1)
	seed := prices[0]
	for _, p := range prices {
		if p > 0 {
			seed = p
			break
		}
	}
	out[0] = seed
	for i := 1; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
