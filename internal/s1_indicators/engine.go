package s1_indicators

import (
	"math"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/s0_data"
	"github.com/wonny/stagegate/internal/stageconfig"
)

// Compute derives one IndicatorSnapshot per bar.
// ⭐ SSOT: S1 지표 계산은 여기서만 (I/O 없음, 로깅 없음)
// 입력이 잘못되면 *contracts.SeriesError 반환, 부분 결과 없음
func Compute(bars []contracts.Bar, cfg *stageconfig.Config) ([]contracts.IndicatorSnapshot, error) {
	return ComputeSeries(contracts.Series{Bars: bars}, cfg)
}

// ComputeSeries is Compute with the series identity attached to validation errors
func ComputeSeries(series contracts.Series, cfg *stageconfig.Config) ([]contracts.IndicatorSnapshot, error) {
	if err := s0_data.ValidateSeries(series.Kind, series.ID, series.Bars); err != nil {
		return nil, err
	}

	bars := series.Bars
	n := len(bars)
	ind := cfg.Indicators

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	// 1. 이동평균
	emaFast := ema(closes, ind.EMA.Fast)
	emaMid := ema(closes, ind.EMA.Mid)
	emaSlow := ema(closes, ind.EMA.Slow)
	emaLong := ema(closes, ind.EMA.Long)

	fastSlope := pctChange(emaFast, 1)
	midSlope := pctChange(emaMid, 1)
	slowSlope := pctChange(emaSlow, 1)
	fastAccel := diff(fastSlope)

	// 2. Donchian 채널
	chHigh := rollingExtreme(highs, ind.Channel.Window, ind.Channel.ExcludeCurrent, true)
	chLow := rollingExtreme(lows, ind.Channel.Window, ind.Channel.ExcludeCurrent, false)

	// 3. 볼린저 밴드 (ddof=0)
	bandMid, bandStd := meanStd(closes, ind.Band.Window)
	bandWidth := nanSlice(n)
	for i := range bandWidth {
		if math.IsNaN(bandMid[i]) {
			continue
		}
		if bandMid[i] == 0 {
			bandWidth[i] = 0
			continue
		}
		bandWidth[i] = 2 * ind.Band.K * bandStd[i] / bandMid[i]
	}
	bandWidthChange := diff(bandWidth)

	// 4. 거래량 기준선 (당일 포함)
	volAvg := sma(volumes, ind.Volume.Window)

	// 5. 모멘텀 (확인용)
	var macdLine, macdSignal, rsi []float64
	if ind.Momentum.Enabled {
		macdLine = make([]float64, n)
		emaA := ema(closes, ind.Momentum.MACDFast)
		emaB := ema(closes, ind.Momentum.MACDSlow)
		for i := range macdLine {
			macdLine[i] = emaA[i] - emaB[i]
		}
		macdSignal = ema(macdLine, ind.Momentum.MACDSignal)
		rsi = rsiWilder(closes, ind.Momentum.RSIPeriod)
	}

	returnN := pctChange(closes, cfg.Classifier.Dislocation.DeclineDays)

	warmup := cfg.WarmupBars()
	snapshots := make([]contracts.IndicatorSnapshot, n)
	for i, b := range bars {
		if i+1 < warmup {
			snapshots[i] = undefinedSnapshot(b)
			continue
		}

		s := contracts.IndicatorSnapshot{
			Bar:      b,
			WarmedUp: true,

			EMAFast: emaFast[i],
			EMAMid:  emaMid[i],
			EMASlow: emaSlow[i],
			EMALong: emaLong[i],

			ChannelHigh: chHigh[i],
			ChannelLow:  chLow[i],
			ChannelMid:  (chHigh[i] + chLow[i]) / 2,

			BandMid:         bandMid[i],
			BandUpper:       bandMid[i] + ind.Band.K*bandStd[i],
			BandLower:       bandMid[i] - ind.Band.K*bandStd[i],
			BandWidth:       bandWidth[i],
			BandWidthChange: bandWidthChange[i],

			VolumeAvg: volAvg[i],
			RelVolume: math.NaN(),

			MACD:       math.NaN(),
			MACDSignal: math.NaN(),
			MACDHist:   math.NaN(),
			RSI:        math.NaN(),

			FastSlope: fastSlope[i],
			MidSlope:  midSlope[i],
			SlowSlope: slowSlope[i],
			FastAccel: fastAccel[i],

			ReturnN: returnN[i],
		}

		if volAvg[i] > 0 {
			s.RelVolume = b.Volume / volAvg[i]
			s.VolumeSurge = b.Volume > volAvg[i]*ind.Volume.SurgeMultiplier
		}

		// 당일 제외 채널이면 엄격히 돌파/이탈, 당일 포함이면 극값 일치
		if ind.Channel.ExcludeCurrent {
			s.NewChannelHigh = b.High > chHigh[i]
			s.NewChannelLow = b.Low < chLow[i]
		} else {
			s.NewChannelHigh = b.High >= chHigh[i]
			s.NewChannelLow = b.Low <= chLow[i]
		}

		if ind.Momentum.Enabled {
			s.HasMomentum = true
			s.MACD = macdLine[i]
			s.MACDSignal = macdSignal[i]
			s.MACDHist = macdLine[i] - macdSignal[i]
			s.RSI = rsi[i]
		}

		snapshots[i] = s
	}

	return snapshots, nil
}

// undefinedSnapshot is the pre-warmup snapshot: OHLCV only, every derived value NaN
func undefinedSnapshot(b contracts.Bar) contracts.IndicatorSnapshot {
	nan := math.NaN()
	return contracts.IndicatorSnapshot{
		Bar:             b,
		EMAFast:         nan,
		EMAMid:          nan,
		EMASlow:         nan,
		EMALong:         nan,
		ChannelHigh:     nan,
		ChannelLow:      nan,
		ChannelMid:      nan,
		BandMid:         nan,
		BandUpper:       nan,
		BandLower:       nan,
		BandWidth:       nan,
		BandWidthChange: nan,
		VolumeAvg:       nan,
		RelVolume:       nan,
		MACD:            nan,
		MACDSignal:      nan,
		MACDHist:        nan,
		RSI:             nan,
		FastSlope:       nan,
		MidSlope:        nan,
		SlowSlope:       nan,
		FastAccel:       nan,
		ReturnN:         nan,
	}
}
