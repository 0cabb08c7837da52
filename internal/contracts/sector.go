package contracts

import "time"

// SectorMember is one weighted constituent of a sector basket
type SectorMember struct {
	Code   string  `json:"code"`
	Weight float64 `json:"weight"`
}

// SectorBasket is a named, weighted synthetic instrument ("spider").
// Weights sum to 1; per date they are renormalized over members with data.
type SectorBasket struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Members []SectorMember `json:"members"`
}

// WeightSum returns the sum of member weights
func (b *SectorBasket) WeightSum() float64 {
	total := 0.0
	for _, m := range b.Members {
		total += m.Weight
	}
	return total
}

// Codes returns member codes in basket order
func (b *SectorBasket) Codes() []string {
	codes := make([]string, len(b.Members))
	for i, m := range b.Members {
		codes[i] = m.Code
	}
	return codes
}

// SectorBar is a synthetic bar plus its coverage bookkeeping
type SectorBar struct {
	Bar
	Coverage    float64 `json:"weight_coverage"` // sum of present member weights (0, 1]
	MembersUsed int     `json:"members_used"`
	LowCoverage bool    `json:"low_coverage"`
}

// SectorSeries is the output of the sector aggregator
type SectorSeries struct {
	SectorID     string      `json:"sector_id"`
	Bars         []SectorBar `json:"bars"`
	MembersTotal int         `json:"members_total"`
	SkippedDates []time.Time `json:"skipped_dates,omitempty"` // zero coverage
}

// PlainBars returns the OHLCV bars for the indicator engine
func (s *SectorSeries) PlainBars() []Bar {
	bars := make([]Bar, len(s.Bars))
	for i, b := range s.Bars {
		bars[i] = b.Bar
	}
	return bars
}
