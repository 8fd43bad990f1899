package market

import "testing"

func TestDetectRegime_DegenerateInputIsRange(t *testing.T) {
	if got := DetectRegime(nil); got != RegimeRange {
		t.Fatalf("nil closes: got %s want %s", got, RegimeRange)
	}
	if got := DetectRegime([]float64{100}); got != RegimeRange {
		t.Fatalf("single close: got %s want %s", got, RegimeRange)
	}
}

func TestDetectRegime_TrendUp(t *testing.T) {
	closes := []float64{100, 100.5, 101, 101.4, 102, 102.6, 103}
	if got := DetectRegime(closes); got != RegimeTrendUp {
		t.Fatalf("got %s want %s", got, RegimeTrendUp)
	}
}

func TestDetectRegime_TrendDown(t *testing.T) {
	closes := []float64{103, 102.6, 102, 101.4, 101, 100.5, 100}
	if got := DetectRegime(closes); got != RegimeTrendDown {
		t.Fatalf("got %s want %s", got, RegimeTrendDown)
	}
}

func TestDetectRegime_Range(t *testing.T) {
	closes := []float64{100, 100.2, 99.9, 100.1, 100, 100.15, 100.05}
	if got := DetectRegime(closes); got != RegimeRange {
		t.Fatalf("got %s want %s", got, RegimeRange)
	}
}

func TestDetectRegime_Volatile(t *testing.T) {
	closes := []float64{100, 104, 99, 105, 98, 103, 100}
	if got := DetectRegime(closes); got != RegimeVolatile {
		t.Fatalf("got %s want %s", got, RegimeVolatile)
	}
}

func TestDetectRegime_Deterministic(t *testing.T) {
	closes := []float64{100, 101, 99.5, 102, 101.2}
	first := DetectRegime(closes)
	for i := 0; i < 10; i++ {
		if got := DetectRegime(closes); got != first {
			t.Fatalf("run %d: got %s want %s", i, got, first)
		}
	}
}
