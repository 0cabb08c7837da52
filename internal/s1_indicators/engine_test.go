package s1_indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
)

// trendBars builds a synthetic series compounding dailyRet per bar
func trendBars(n int, start, dailyRet float64) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	price := start
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		// 주기적 변동으로 밴드 폭 확보
		wiggle := 1 + 0.004*math.Sin(float64(i)*0.7)
		c := price * wiggle
		bars[i] = contracts.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   c * 0.998,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000 + float64(i%5)*10_000,
		}
		price *= 1 + dailyRet
	}
	return bars
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

func sameSnapshot(a, b contracts.IndicatorSnapshot) bool {
	fa := []float64{a.EMAFast, a.EMAMid, a.EMASlow, a.EMALong, a.ChannelHigh, a.ChannelLow, a.ChannelMid,
		a.BandMid, a.BandUpper, a.BandLower, a.BandWidth, a.BandWidthChange, a.VolumeAvg, a.RelVolume,
		a.MACD, a.MACDSignal, a.MACDHist, a.RSI, a.FastSlope, a.MidSlope, a.SlowSlope, a.FastAccel, a.ReturnN}
	fb := []float64{b.EMAFast, b.EMAMid, b.EMASlow, b.EMALong, b.ChannelHigh, b.ChannelLow, b.ChannelMid,
		b.BandMid, b.BandUpper, b.BandLower, b.BandWidth, b.BandWidthChange, b.VolumeAvg, b.RelVolume,
		b.MACD, b.MACDSignal, b.MACDHist, b.RSI, b.FastSlope, b.MidSlope, b.SlowSlope, b.FastAccel, b.ReturnN}
	for i := range fa {
		if !sameFloat(fa[i], fb[i]) {
			return false
		}
	}
	return a.Bar == b.Bar && a.WarmedUp == b.WarmedUp && a.VolumeSurge == b.VolumeSurge &&
		a.NewChannelHigh == b.NewChannelHigh && a.NewChannelLow == b.NewChannelLow && a.HasMomentum == b.HasMomentum
}

func TestComputeWarmup(t *testing.T) {
	cfg := stageconfig.Default()
	bars := trendBars(260, 100, 0.0005)

	snaps, err := Compute(bars, cfg)
	require.NoError(t, err)
	require.Len(t, snaps, len(bars))

	warmup := cfg.WarmupBars()
	for i, s := range snaps {
		assert.Equal(t, bars[i].Date, s.Date)
		if i < warmup-1 {
			assert.False(t, s.WarmedUp, "index %d", i)
			assert.True(t, math.IsNaN(s.EMALong))
			assert.True(t, math.IsNaN(s.ChannelHigh))
			assert.False(t, s.VolumeSurge)
			continue
		}
		assert.True(t, s.WarmedUp, "index %d", i)
		assert.False(t, math.IsNaN(s.EMALong))
		assert.False(t, math.IsNaN(s.FastAccel))
		assert.False(t, math.IsNaN(s.BandWidthChange))
		assert.False(t, math.IsNaN(s.RSI))
		assert.False(t, math.IsNaN(s.ReturnN))
	}
}

func TestComputeShortSeriesNeverWarms(t *testing.T) {
	snaps, err := Compute(trendBars(50, 100, 0.001), stageconfig.Default())
	require.NoError(t, err)
	for _, s := range snaps {
		assert.False(t, s.WarmedUp)
	}
}

func TestComputeNoLookahead(t *testing.T) {
	cfg := stageconfig.Default()
	bars := trendBars(280, 50, -0.0007)

	full, err := Compute(bars, cfg)
	require.NoError(t, err)

	for _, k := range []int{1, 100, 221, 222, 250, 279} {
		part, err := Compute(bars[:k], cfg)
		require.NoError(t, err)
		require.Len(t, part, k)
		for i := range part {
			require.True(t, sameSnapshot(full[i], part[i]), "truncated at %d, index %d", k, i)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	cfg := stageconfig.Default()
	bars := trendBars(240, 80, 0.0003)

	a, err := Compute(bars, cfg)
	require.NoError(t, err)
	b, err := Compute(bars, cfg)
	require.NoError(t, err)
	for i := range a {
		assert.True(t, sameSnapshot(a[i], b[i]))
	}
}

func TestComputeChannelExcludesCurrent(t *testing.T) {
	cfg := stageconfig.Default()
	bars := trendBars(230, 100, 0)

	// 마지막 바에서 직전 20일 고점 돌파
	last := len(bars) - 1
	bars[last].Close = bars[last-1].High * 1.05
	bars[last].High = bars[last].Close * 1.01
	bars[last].Low = bars[last].Close * 0.99

	snaps, err := Compute(bars, cfg)
	require.NoError(t, err)

	s := snaps[last]
	require.True(t, s.WarmedUp)
	assert.Greater(t, s.Close, s.ChannelHigh)
	assert.True(t, s.NewChannelHigh)
	assert.False(t, s.NewChannelLow)
	assert.InDelta(t, (s.ChannelHigh+s.ChannelLow)/2, s.ChannelMid, 1e-12)
}

func TestComputeBandAndVolume(t *testing.T) {
	cfg := stageconfig.Default()
	bars := trendBars(230, 100, 0.0002)
	last := len(bars) - 1
	bars[last].Volume = 5_000_000

	snaps, err := Compute(bars, cfg)
	require.NoError(t, err)

	s := snaps[last]
	assert.Greater(t, s.BandUpper, s.BandMid)
	assert.Less(t, s.BandLower, s.BandMid)
	assert.InDelta(t, (s.BandUpper-s.BandLower)/s.BandMid, s.BandWidth, 1e-12)
	assert.InDelta(t, s.BandWidth-snaps[last-1].BandWidth, s.BandWidthChange, 1e-12)

	// SMA10 includes the current bar
	sum := 0.0
	for _, b := range bars[last-9:] {
		sum += b.Volume
	}
	assert.InDelta(t, sum/10, s.VolumeAvg, 1e-6)
	assert.True(t, s.VolumeSurge)
	assert.InDelta(t, 5_000_000/s.VolumeAvg, s.RelVolume, 1e-12)
	assert.False(t, snaps[last-1].VolumeSurge)
}

func TestComputeMomentumDisabled(t *testing.T) {
	cfg := stageconfig.Default()
	cfg.Indicators.Momentum.Enabled = false

	snaps, err := Compute(trendBars(230, 100, 0.001), cfg)
	require.NoError(t, err)

	s := snaps[len(snaps)-1]
	require.True(t, s.WarmedUp)
	assert.False(t, s.HasMomentum)
	assert.True(t, math.IsNaN(s.MACD))
	assert.True(t, math.IsNaN(s.RSI))
}

func TestComputeMomentumRising(t *testing.T) {
	snaps, err := Compute(trendBars(260, 100, 0.003), stageconfig.Default())
	require.NoError(t, err)

	s := snaps[len(snaps)-1]
	assert.True(t, s.HasMomentum)
	assert.Greater(t, s.MACD, 0.0)
	assert.Greater(t, s.RSI, 50.0)
	assert.Greater(t, s.FastSlope, 0.0)
	assert.Greater(t, s.EMAFast, s.EMALong)
}

func TestComputeRejectsMalformed(t *testing.T) {
	bars := trendBars(30, 100, 0)
	bars[10].Date = bars[9].Date

	_, err := ComputeSeries(contracts.Series{Kind: contracts.SeriesInstrument, ID: "000660", Bars: bars}, stageconfig.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrDuplicateDate))
	assert.Contains(t, err.Error(), "000660")
}
