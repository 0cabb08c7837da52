package s2_stages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/s1_indicators"
	"github.com/wonny/stagegate/internal/stageconfig"
)

var baseDate = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

// seriesBuilder accumulates synthetic closes; high/low are ±0.5% of close
type seriesBuilder struct {
	closes  []float64
	volumes []float64
	price   float64
}

func newSeries(start float64) *seriesBuilder {
	return &seriesBuilder{price: start}
}

// drift appends n bars compounding ret per bar
func (b *seriesBuilder) drift(n int, ret, volume float64) *seriesBuilder {
	for i := 0; i < n; i++ {
		b.price *= 1 + ret
		b.closes = append(b.closes, b.price)
		b.volumes = append(b.volumes, volume)
	}
	return b
}

func (b *seriesBuilder) flat(n int, volume float64) *seriesBuilder {
	return b.drift(n, 0, volume)
}

func (b *seriesBuilder) bars() []contracts.Bar {
	bars := make([]contracts.Bar, len(b.closes))
	for i, c := range b.closes {
		bars[i] = contracts.Bar{
			Date:   baseDate.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: b.volumes[i],
		}
	}
	return bars
}

// uptrend: 250 bars rising 0.02%/day, always above the 200-day mean
func uptrend() *seriesBuilder {
	return newSeries(100).drift(250, 0.0002, 1_000_000)
}

// dislocation: uptrend for 248 bars, then a 3-day ~7% decline ending at index 250
func dislocation() *seriesBuilder {
	return newSeries(100).
		drift(248, 0.0002, 1_000_000).
		drift(3, -0.024, 1_000_000)
}

// fullCycle: dislocation, slow bleed, base, breakout with volume surge, recovery
func fullCycle() *seriesBuilder {
	return dislocation().
		drift(20, -0.003, 1_000_000).
		flat(30, 1_000_000).
		drift(1, 0.03, 2_000_000).
		drift(25, 0.004, 1_300_000).
		flat(8, 800_000)
}

// suppressedBreakout: slow decline without dislocation, base, then breakout with surge
func suppressedBreakout() *seriesBuilder {
	return newSeries(100).
		drift(260, -0.001, 1_000_000).
		flat(25, 1_000_000).
		drift(1, 0.03, 2_000_000)
}

func classifyBars(t *testing.T, bars []contracts.Bar, cfg *stageconfig.Config) ([]contracts.IndicatorSnapshot, []contracts.StageRecord) {
	t.Helper()
	snaps, err := s1_indicators.Compute(bars, cfg)
	require.NoError(t, err)
	records, err := Classify(snaps, cfg)
	require.NoError(t, err)
	require.Len(t, records, len(bars))
	return snaps, records
}

// neutral is a warmed-up snapshot below the long mean that classifies as Stage 3
func neutral(day int, mod func(*contracts.IndicatorSnapshot)) contracts.IndicatorSnapshot {
	s := contracts.IndicatorSnapshot{
		Bar: contracts.Bar{
			Date: baseDate.AddDate(0, 0, day),
			Open: 90, High: 91, Low: 89, Close: 90, Volume: 1000,
		},
		WarmedUp:        true,
		EMAFast:         90,
		EMAMid:          90,
		EMASlow:         90,
		EMALong:         100,
		ChannelHigh:     95,
		ChannelLow:      85,
		ChannelMid:      90,
		BandMid:         90,
		BandUpper:       94,
		BandLower:       86,
		BandWidth:       0.09,
		BandWidthChange: 0.001,
		VolumeAvg:       1000,
		RelVolume:       1,
		HasMomentum:     true,
		RSI:             50,
	}
	if mod != nil {
		mod(&s)
	}
	return s
}
