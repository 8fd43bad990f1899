package market

import "math"

// Market regimes classified from close prices alone.
const (
	RegimeTrendUp   = "TREND_UP"
	RegimeTrendDown = "TREND_DOWN"
	RegimeRange     = "RANGE"
	RegimeVolatile  = "VOLATILE"
)

const (
	// Per-bar return volatility above this is a volatile regime.
	volatileStdevThreshold = 0.02
	// Net move over the window above this is a trend.
	trendNetThreshold = 0.015
)

// DetectRegime classifies a close-price series. Deterministic; degenerate
// input (fewer than 2 points) returns RANGE as the conservative default.
func DetectRegime(closes []float64) string {
	if len(closes) < 2 {
		return RegimeRange
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) == 0 {
		return RegimeRange
	}

	if stdev(returns) > volatileStdevThreshold {
		return RegimeVolatile
	}

	first := closes[0]
	last := closes[len(closes)-1]
	if first == 0 {
		return RegimeRange
	}
	net := (last - first) / first
	switch {
	case net > trendNetThreshold:
		return RegimeTrendUp
	case net < -trendNetThreshold:
		return RegimeTrendDown
	default:
		return RegimeRange
	}
}

func stdev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
