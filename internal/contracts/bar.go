package contracts

import "time"

// Bar is one daily OHLCV observation of an instrument or sector basket.
// Bars of one series are ordered strictly by Date with no duplicates.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SeriesKind distinguishes individual instruments from synthetic sector baskets
type SeriesKind string

const (
	SeriesInstrument SeriesKind = "instrument"
	SeriesSector     SeriesKind = "sector"
)

// Series is the unit of work for the pipeline: one id, one ordered bar sequence
type Series struct {
	Kind SeriesKind `json:"kind"`
	ID   string     `json:"id"`
	Bars []Bar      `json:"bars"`
}

// DateKey normalizes a timestamp to the trading-date key used by lookups
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
