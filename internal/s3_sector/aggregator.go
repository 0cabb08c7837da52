package s3_sector

import (
	"sort"
	"time"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/s0_data"
	"github.com/wonny/stagegate/internal/stageconfig"
)

// Aggregate builds the synthetic bar series of a sector basket.
// ⭐ SSOT: S3 섹터 합성은 여기서만 (순수 함수)
//
// 날짜별로 데이터가 있는 종목만 사용하고 가중치를 재정규화:
//
//	OHLC   = Σ wᵢ·xᵢ / coverage
//	Volume = Σ wᵢ·volumeᵢ (재정규화 없음)
//
// 종가 0 이하 바는 거래정지로 간주해 결측 처리.
func Aggregate(basket *contracts.SectorBasket, memberBars map[string][]contracts.Bar, cfg *stageconfig.Config) (*contracts.SectorSeries, error) {
	if err := s0_data.ValidateBasket(basket, cfg.Sector.WeightTolerance); err != nil {
		return nil, err
	}

	// 구성 종목별 날짜 인덱스
	byDate := make(map[string]map[string]contracts.Bar, len(basket.Members))
	dates := make(map[string]time.Time)
	for _, m := range basket.Members {
		bars, ok := memberBars[m.Code]
		if !ok || len(bars) == 0 {
			continue
		}
		if err := s0_data.ValidateSeries(contracts.SeriesInstrument, m.Code, bars); err != nil {
			return nil, err
		}

		idx := make(map[string]contracts.Bar, len(bars))
		for _, b := range bars {
			key := contracts.DateKey(b.Date)
			idx[key] = b
			if _, seen := dates[key]; !seen {
				dates[key] = b.Date
			}
		}
		byDate[m.Code] = idx
	}

	keys := make([]string, 0, len(dates))
	for k := range dates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := &contracts.SectorSeries{
		SectorID:     basket.ID,
		MembersTotal: len(basket.Members),
		Bars:         make([]contracts.SectorBar, 0, len(keys)),
	}

	for _, key := range keys {
		var open, high, low, close, volume, coverage float64
		used := 0

		for _, m := range basket.Members {
			b, ok := byDate[m.Code][key]
			if !ok || b.Close <= 0 {
				continue
			}
			open += m.Weight * b.Open
			high += m.Weight * b.High
			low += m.Weight * b.Low
			close += m.Weight * b.Close
			volume += m.Weight * b.Volume
			coverage += m.Weight
			used++
		}

		if coverage <= 0 {
			series.SkippedDates = append(series.SkippedDates, dates[key])
			continue
		}

		series.Bars = append(series.Bars, contracts.SectorBar{
			Bar: contracts.Bar{
				Date:   dates[key],
				Open:   open / coverage,
				High:   high / coverage,
				Low:    low / coverage,
				Close:  close / coverage,
				Volume: volume,
			},
			Coverage:    coverage,
			MembersUsed: used,
			LowCoverage: coverage < cfg.Sector.MinCoverage,
		})
	}

	return series, nil
}

// Renormalize returns the weights used on a date with the given present members.
// 결과 합계는 present가 비어있지 않으면 1
func Renormalize(members []contracts.SectorMember, present map[string]bool) map[string]float64 {
	coverage := 0.0
	for _, m := range members {
		if present[m.Code] {
			coverage += m.Weight
		}
	}

	out := make(map[string]float64)
	if coverage <= 0 {
		return out
	}
	for _, m := range members {
		if present[m.Code] {
			out[m.Code] = m.Weight / coverage
		}
	}
	return out
}

// CoverageStats summarizes per-date coverage of a sector series
type CoverageStats struct {
	Dates       int     `json:"dates"`
	Skipped     int     `json:"skipped"`
	LowCoverage int     `json:"low_coverage"`
	Median      float64 `json:"median"`
	Min         float64 `json:"min"`
}

// Coverage computes coverage statistics (로그/메트릭용)
func Coverage(series *contracts.SectorSeries) CoverageStats {
	stats := CoverageStats{
		Dates:   len(series.Bars),
		Skipped: len(series.SkippedDates),
	}
	if len(series.Bars) == 0 {
		return stats
	}

	values := make([]float64, len(series.Bars))
	for i, b := range series.Bars {
		values[i] = b.Coverage
		if b.LowCoverage {
			stats.LowCoverage++
		}
	}
	sort.Float64s(values)

	stats.Min = values[0]
	mid := len(values) / 2
	if len(values)%2 == 1 {
		stats.Median = values[mid]
	} else {
		stats.Median = (values[mid-1] + values[mid]) / 2
	}
	return stats
}
