package candle

import (
	"math"
	"strconv"

	"github.com/rs/zerolog"
)

// Normalizer validates raw kline rows into a Series. It never panics: the
// first failing check marks the series invalid, logs the reason, and returns.
type Normalizer struct {
	minCandles int
	logger     zerolog.Logger
}

func NewNormalizer(minCandles int, logger zerolog.Logger) *Normalizer {
	if minCandles <= 0 {
		minCandles = 50
	}
	return &Normalizer{minCandles: minCandles, logger: logger}
}

// Normalize converts raw rows of [timestamp, open, high, low, close, volume,
// ...] into a Series. Rows must be oldest first. The returned series always
// carries the symbol and interval so callers can log rejected input.
func (n *Normalizer) Normalize(symbol, interval string, rows [][]string) *Series {
	s := &Series{Symbol: symbol, Interval: interval}

	if len(rows) < n.minCandles {
		n.reject(s, "too few candles", len(rows))
		return s
	}

	s.Timestamps = make([]int64, 0, len(rows))
	s.Opens = make([]float64, 0, len(rows))
	s.Highs = make([]float64, 0, len(rows))
	s.Lows = make([]float64, 0, len(rows))
	s.Closes = make([]float64, 0, len(rows))
	s.Volumes = make([]float64, 0, len(rows))

	for i, row := range rows {
		if len(row) < 6 {
			n.reject(s, "row has fewer than 6 fields", i)
			return s
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			n.reject(s, "unparseable timestamp", i)
			return s
		}
		vals := make([]float64, 5)
		for j := 0; j < 5; j++ {
			v, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				n.reject(s, "unparseable numeric field", i)
				return s
			}
			vals[j] = v
		}
		s.Timestamps = append(s.Timestamps, ts)
		s.Opens = append(s.Opens, vals[0])
		s.Highs = append(s.Highs, vals[1])
		s.Lows = append(s.Lows, vals[2])
		s.Closes = append(s.Closes, vals[3])
		s.Volumes = append(s.Volumes, vals[4])
	}

	if reason, idx := validate(s); reason != "" {
		n.reject(s, reason, idx)
		return s
	}

	s.Valid = true
	return s
}

// validate runs the structural checks in a fixed order and reports the first
// failure with the offending index.
func validate(s *Series) (string, int) {
	n := len(s.Timestamps)
	if len(s.Opens) != n || len(s.Highs) != n || len(s.Lows) != n ||
		len(s.Closes) != n || len(s.Volumes) != n {
		return "array lengths differ", -1
	}

	for i := 0; i < n; i++ {
		for _, v := range [5]float64{s.Opens[i], s.Highs[i], s.Lows[i], s.Closes[i], s.Volumes[i]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "non-finite value", i
			}
		}
	}
	for i := 0; i < n; i++ {
		if s.Opens[i] <= 0 || s.Highs[i] <= 0 || s.Lows[i] <= 0 || s.Closes[i] <= 0 {
			return "non-positive price", i
		}
	}
	for i := 0; i < n; i++ {
		if s.Highs[i] < math.Max(s.Opens[i], s.Closes[i]) || s.Lows[i] > math.Min(s.Opens[i], s.Closes[i]) {
			return "inconsistent OHLC bar", i
		}
	}
	for i := 0; i < n; i++ {
		if s.Volumes[i] < 0 {
			return "negative volume", i
		}
	}
	for i := 1; i < n; i++ {
		if s.Timestamps[i] <= s.Timestamps[i-1] {
			return "timestamps not strictly increasing", i
		}
	}
	return "", -1
}

func (n *Normalizer) reject(s *Series, reason string, idx int) {
	n.logger.Warn().
		Str("symbol", s.Symbol).
		Str("interval", s.Interval).
		Str("reason", reason).
		Int("index", idx).
		Msg("Rejected candle data")
}
