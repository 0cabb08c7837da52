package s0_data

import (
	"fmt"
	"math"

	"github.com/wonny/stagegate/internal/contracts"
)

// ValidateSeries checks that bars are usable as indicator input.
// ⭐ SSOT: S0 → S1 입력 검증 (실패 시 시리즈 전체 거부)
func ValidateSeries(kind contracts.SeriesKind, seriesID string, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return &contracts.SeriesError{Kind: kind, SeriesID: seriesID, Index: -1, Err: contracts.ErrEmptySeries}
	}

	for i, b := range bars {
		fail := func(err error) error {
			return &contracts.SeriesError{Kind: kind, SeriesID: seriesID, Index: i, Date: b.Date, Err: err}
		}

		if i > 0 {
			prev := bars[i-1].Date
			if contracts.DateKey(b.Date) == contracts.DateKey(prev) {
				return fail(contracts.ErrDuplicateDate)
			}
			if !b.Date.After(prev) {
				return fail(contracts.ErrNonMonotonicDates)
			}
		}

		for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fail(contracts.ErrNonFiniteValue)
			}
			if v < 0 {
				return fail(contracts.ErrNegativeValue)
			}
		}

		if b.High < b.Low {
			return fail(contracts.ErrInvertedRange)
		}
	}

	return nil
}

// ValidateBasket checks member weights: each > 0, unique codes, sum == 1 within tolerance
func ValidateBasket(basket *contracts.SectorBasket, tolerance float64) error {
	fail := func(err error) error {
		return &contracts.SeriesError{Kind: contracts.SeriesSector, SeriesID: basket.ID, Index: -1, Err: err}
	}

	if len(basket.Members) == 0 {
		return fail(contracts.ErrEmptySeries)
	}

	seen := make(map[string]bool, len(basket.Members))
	for _, m := range basket.Members {
		if seen[m.Code] {
			return fail(fmt.Errorf("%w: %s", contracts.ErrDuplicateMember, m.Code))
		}
		seen[m.Code] = true

		if !(m.Weight > 0) || math.IsInf(m.Weight, 0) {
			return fail(fmt.Errorf("%w: %s=%v", contracts.ErrInvalidWeight, m.Code, m.Weight))
		}
	}

	if sum := basket.WeightSum(); math.Abs(sum-1.0) > tolerance {
		return fail(fmt.Errorf("%w: got %.6f", contracts.ErrWeightsSum, sum))
	}

	return nil
}
