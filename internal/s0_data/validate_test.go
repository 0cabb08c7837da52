package s0_data

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/internal/contracts"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func goodBars(n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{Date: day(i), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000}
	}
	return bars
}

func TestValidateSeries(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]contracts.Bar) []contracts.Bar
		wantErr error
		index   int
	}{
		{"valid", func(b []contracts.Bar) []contracts.Bar { return b }, nil, 0},
		{"empty", func(b []contracts.Bar) []contracts.Bar { return nil }, contracts.ErrEmptySeries, -1},
		{"duplicate date", func(b []contracts.Bar) []contracts.Bar {
			b[3].Date = b[2].Date.Add(2 * time.Hour)
			return b
		}, contracts.ErrDuplicateDate, 3},
		{"non monotonic", func(b []contracts.Bar) []contracts.Bar {
			b[4].Date = day(-5)
			return b
		}, contracts.ErrNonMonotonicDates, 4},
		{"negative close", func(b []contracts.Bar) []contracts.Bar {
			b[1].Close = -1
			return b
		}, contracts.ErrNegativeValue, 1},
		{"negative volume", func(b []contracts.Bar) []contracts.Bar {
			b[2].Volume = -10
			return b
		}, contracts.ErrNegativeValue, 2},
		{"nan open", func(b []contracts.Bar) []contracts.Bar {
			b[0].Open = math.NaN()
			return b
		}, contracts.ErrNonFiniteValue, 0},
		{"inverted range", func(b []contracts.Bar) []contracts.Bar {
			b[5].High = 8
			return b
		}, contracts.ErrInvertedRange, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := tt.mutate(goodBars(10))
			err := ValidateSeries(contracts.SeriesInstrument, "005930", bars)

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))

			var serr *contracts.SeriesError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.index, serr.Index)
			assert.Equal(t, "005930", serr.SeriesID)
		})
	}
}

func TestValidateBasket(t *testing.T) {
	tests := []struct {
		name    string
		members []contracts.SectorMember
		wantErr error
	}{
		{"valid", []contracts.SectorMember{{Code: "A", Weight: 0.6}, {Code: "B", Weight: 0.4}}, nil},
		{"empty", nil, contracts.ErrEmptySeries},
		{"sum below 1", []contracts.SectorMember{{Code: "A", Weight: 0.6}, {Code: "B", Weight: 0.3}}, contracts.ErrWeightsSum},
		{"zero weight", []contracts.SectorMember{{Code: "A", Weight: 1.0}, {Code: "B", Weight: 0}}, contracts.ErrInvalidWeight},
		{"duplicate", []contracts.SectorMember{{Code: "A", Weight: 0.5}, {Code: "A", Weight: 0.5}}, contracts.ErrDuplicateMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			basket := &contracts.SectorBasket{ID: "semis", Members: tt.members}
			err := ValidateBasket(basket, 1e-6)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
