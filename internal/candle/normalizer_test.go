package candle

import (
	"strconv"
	"testing"

	"github.com/rs/zerolog"
)

func makeRows(count int) [][]string {
	rows := make([][]string, 0, count)
	for i := 0; i < count; i++ {
		ts := int64(1700000000000 + i*60000)
		price := 100.0 + float64(i)
		rows = append(rows, []string{
			strconv.FormatInt(ts, 10),
			strconv.FormatFloat(price, 'f', -1, 64),
			strconv.FormatFloat(price+1, 'f', -1, 64),
			strconv.FormatFloat(price-1, 'f', -1, 64),
			strconv.FormatFloat(price+0.5, 'f', -1, 64),
			"1000",
		})
	}
	return rows
}

func TestNormalizeValidRows(t *testing.T) {
	n := NewNormalizer(10, zerolog.Nop())

	s := n.Normalize("BTCUSDT", "15", makeRows(20))

	if !s.Valid {
		t.Fatal("expected valid series")
	}
	if s.Len() != 20 {
		t.Errorf("expected 20 candles, got %d", s.Len())
	}
	if s.Symbol != "BTCUSDT" || s.Interval != "15" {
		t.Errorf("symbol/interval not carried: %s %s", s.Symbol, s.Interval)
	}
	if s.LastClose() != 119.5 {
		t.Errorf("expected last close 119.5, got %v", s.LastClose())
	}
}

func TestNormalizeTooFewCandles(t *testing.T) {
	n := NewNormalizer(50, zerolog.Nop())

	s := n.Normalize("BTCUSDT", "15", makeRows(10))

	if s.Valid {
		t.Fatal("expected invalid series for short input")
	}
	if s.Usable(1) {
		t.Error("invalid series must not be usable")
	}
}

func TestNormalizeRejectsBadRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rows [][]string)
	}{
		{
			name:   "unparseable price",
			mutate: func(rows [][]string) { rows[3][4] = "not-a-number" },
		},
		{
			name:   "non-finite value",
			mutate: func(rows [][]string) { rows[5][5] = "NaN" },
		},
		{
			name:   "non-positive price",
			mutate: func(rows [][]string) { rows[7][3] = "0" },
		},
		{
			name: "high below close",
			mutate: func(rows [][]string) {
				rows[4][2] = "1"
			},
		},
		{
			name:   "negative volume",
			mutate: func(rows [][]string) { rows[2][5] = "-5" },
		},
		{
			name: "duplicate timestamp",
			mutate: func(rows [][]string) {
				rows[6][0] = rows[5][0]
			},
		},
		{
			name:   "short row",
			mutate: func(rows [][]string) { rows[8] = rows[8][:4] },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(10, zerolog.Nop())
			rows := makeRows(20)
			tt.mutate(rows)

			s := n.Normalize("ETHUSDT", "60", rows)

			if s.Valid {
				t.Errorf("expected invalid series for %s", tt.name)
			}
		})
	}
}

func TestNormalizeLowAboveOpenRejected(t *testing.T) {
	n := NewNormalizer(5, zerolog.Nop())
	rows := makeRows(10)
	// low above the open violates bar consistency
	rows[3][3] = "500"
	rows[3][2] = "600"

	s := n.Normalize("SOLUSDT", "240", rows)

	if s.Valid {
		t.Error("expected invalid series when low exceeds open")
	}
}
