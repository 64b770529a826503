package analysis

import (
	"reflect"
	"testing"
)

func TestSwingHighsFindsPeak(t *testing.T) {
	values := []float64{1, 2, 5, 2, 1, 3, 7, 3, 2}

	got := SwingHighs(values, 2)

	want := []int{2, 6}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected peaks %v, got %v", want, got)
	}
}

func TestSwingLowsFindsTrough(t *testing.T) {
	values := []float64{5, 3, 1, 3, 5, 4, 2, 4, 5}

	got := SwingLows(values, 2)

	want := []int{2, 6}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected troughs %v, got %v", want, got)
	}
}

func TestSwingTiesQualify(t *testing.T) {
	// flat plateau: every plateau index wins against its neighbors
	values := []float64{1, 2, 4, 4, 4, 2, 1}

	got := SwingHighs(values, 2)

	want := []int{2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected plateau peaks %v, got %v", want, got)
	}
}

func TestSwingShortSeries(t *testing.T) {
	if got := SwingHighs([]float64{1, 2, 1}, 2); got != nil {
		t.Errorf("expected nil for short series, got %v", got)
	}
	if got := SwingLows(nil, 2); got != nil {
		t.Errorf("expected nil for empty series, got %v", got)
	}
}
