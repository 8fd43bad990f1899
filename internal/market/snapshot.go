package market

import "time"

// Direction of a signal or hypothesis.
const (
	DirectionLong    = "LONG"
	DirectionShort   = "SHORT"
	DirectionNeutral = "NEUTRAL"
)

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Snapshot is an already-assembled view of a market at one instant.
// It is read-only for the duration of a pipeline run; no component may
// mutate it.
type Snapshot struct {
	Pair      string    `json:"pair"`
	Timeframe string    `json:"timeframe"`
	Candles   []Candle  `json:"candles"`
	Funding   float64   `json:"funding_rate"`
	OpenInt   float64   `json:"open_interest"`
	TakenAt   time.Time `json:"taken_at"`
}

// Closes returns the close-price series, oldest first.
func (s *Snapshot) Closes() []float64 {
	out := make([]float64, 0, len(s.Candles))
	for _, c := range s.Candles {
		out = append(out, c.Close)
	}
	return out
}

// LastPrice returns the most recent close, or 0 for an empty snapshot.
func (s *Snapshot) LastPrice() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Signal is the atomic output of one analytical agent.
type Signal struct {
	AgentID    string  `json:"agent_id"`
	Direction  string  `json:"direction"`
	Confidence int     `json:"confidence"`
	Thesis     string  `json:"thesis"`
	BullScore  float64 `json:"bull_score"`
	BearScore  float64 `json:"bear_score"`
}
