package s2_stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
)

func dislocatedState(cfg *stageconfig.Config) ClassifierState {
	s := NewState(cfg.Classifier.Dislocation.WindowDays)
	s.EverDislocated = true
	s.PrevStage = contracts.StageDowntrend
	return s
}

func breakoutDay(day int) contracts.IndicatorSnapshot {
	return neutral(day, func(s *contracts.IndicatorSnapshot) {
		s.Close, s.High = 96, 96.5
		s.EMAFast, s.EMAMid = 92, 91
		s.Volume, s.VolumeSurge = 2000, true
		s.FastSlope = 0.01
	})
}

func confirmDay(day int) contracts.IndicatorSnapshot {
	return neutral(day, func(s *contracts.IndicatorSnapshot) {
		s.Close, s.High = 97, 97.5
		s.ChannelHigh = 97.2
		s.EMAFast, s.EMAMid, s.EMASlow = 93, 92, 91
		s.FastSlope, s.MidSlope, s.SlowSlope = 0.01, 0.005, 0.001
		s.Volume = 1200
		s.MACDHist = 0.2
	})
}

func TestStepInsufficientHistory(t *testing.T) {
	cfg := stageconfig.Default()
	state := NewState(cfg.Classifier.Dislocation.WindowDays)

	snap := neutral(0, func(s *contracts.IndicatorSnapshot) { s.WarmedUp = false })
	rec, next := Step(state, snap, cfg)

	assert.Equal(t, contracts.StageNotEligible, rec.Stage)
	assert.True(t, rec.InsufficientHistory)
	assert.Equal(t, []contracts.ReasonCode{contracts.ReasonInsufficientHistory}, rec.ReasonCodes)
	assert.Empty(t, next.WindowDays())
	assert.Equal(t, contracts.Stage(0), next.PrevStage)
}

func TestStepZeroStateIsUsable(t *testing.T) {
	rec, next := Step(ClassifierState{}, neutral(0, nil), stageconfig.Default())
	assert.Equal(t, contracts.StageDowntrend, rec.Stage)
	assert.Len(t, next.WindowDays(), 1)
}

func TestStepLongMeanGate(t *testing.T) {
	cfg := stageconfig.Default()
	state := NewState(cfg.Classifier.Dislocation.WindowDays)

	above := neutral(0, func(s *contracts.IndicatorSnapshot) { s.Close = 101 })
	rec, state := Step(state, above, cfg)
	assert.Equal(t, contracts.StageNotEligible, rec.Stage)
	assert.False(t, rec.InsufficientHistory)

	// 평균과 같으면 Stage 1 유지
	at := neutral(1, func(s *contracts.IndicatorSnapshot) { s.Close = 100 })
	rec, state = Step(state, at, cfg)
	assert.Equal(t, contracts.StageNotEligible, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonHeldAtLongMean))

	below := neutral(2, nil)
	rec, state = Step(state, below, cfg)
	assert.Equal(t, contracts.StageDowntrend, rec.Stage)

	// 하회 후 평균과 같아도 Stage 1 복귀 안 함
	rec, _ = Step(state, neutral(3, func(s *contracts.IndicatorSnapshot) { s.Close = 100 }), cfg)
	assert.NotEqual(t, contracts.StageNotEligible, rec.Stage)
}

func TestStepDislocationMarkersOnDifferentDays(t *testing.T) {
	cfg := stageconfig.Default()
	state := NewState(cfg.Classifier.Dislocation.WindowDays)

	days := []contracts.IndicatorSnapshot{
		neutral(0, func(s *contracts.IndicatorSnapshot) { s.ReturnN = -0.06 }),
		neutral(1, func(s *contracts.IndicatorSnapshot) { s.Close = 85.5 }),
		neutral(2, func(s *contracts.IndicatorSnapshot) { s.FastSlope, s.FastAccel = -0.004, -0.002 }),
	}

	var rec contracts.StageRecord
	for i, d := range days[:2] {
		rec, state = Step(state, d, cfg)
		assert.NotEqual(t, contracts.StageSharpDowntrend, rec.Stage, "day %d", i)
		assert.False(t, rec.EverDislocated)
	}

	rec, state = Step(state, days[2], cfg)
	assert.Equal(t, contracts.StageSharpDowntrend, rec.Stage)
	assert.True(t, rec.EverDislocated)
	assert.True(t, rec.HasReason(contracts.ReasonDislocationFirst))
	assert.False(t, rec.HasReason(contracts.ReasonVolumeSurge))

	// 윈도우가 비워질 때까지 Stage 2 유지, 이후 하위 스테이지로 이동하지만 플래그는 유지
	for d := 3; d < 3+cfg.Classifier.Dislocation.WindowDays; d++ {
		rec, state = Step(state, neutral(d, nil), cfg)
	}
	assert.NotEqual(t, contracts.StageSharpDowntrend, rec.Stage)
	assert.True(t, rec.EverDislocated)
}

func TestStepSlowAccelerationIsNotDislocation(t *testing.T) {
	cfg := stageconfig.Default()
	state := NewState(cfg.Classifier.Dislocation.WindowDays)

	snap := neutral(0, func(s *contracts.IndicatorSnapshot) {
		s.ReturnN = -0.08
		s.Close = 84
		s.FastSlope, s.FastAccel = -0.004, -0.0005 // below slope_accel_rate
	})
	rec, _ := Step(state, snap, cfg)
	assert.NotEqual(t, contracts.StageSharpDowntrend, rec.Stage)
}

func TestStepBreakoutCycle(t *testing.T) {
	cfg := stageconfig.Default()
	state := dislocatedState(cfg)

	rec, state := Step(state, breakoutDay(0), cfg)
	require.Equal(t, contracts.StageBreakout, rec.Stage)
	assert.Equal(t, 95.0, state.BreakoutLevel)
	assert.Equal(t, 96.0, state.CycleHigh)

	rec, state = Step(state, confirmDay(1), cfg)
	require.Equal(t, contracts.StageBreakoutConfirmed, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonBreakoutLevelHeld))
	assert.True(t, rec.HasReason(contracts.ReasonMeanStackAscending))
	assert.Equal(t, 97.0, state.CycleHigh)

	// 거래량 둔화 → 7 유지 불가, 추세는 건설적 → 8
	inZone := neutral(2, func(s *contracts.IndicatorSnapshot) {
		s.Close, s.High = 96.8, 97.6
		s.ChannelHigh = 97.5
		s.EMAFast, s.EMAMid, s.EMASlow = 94, 93, 92
		s.FastSlope, s.MidSlope, s.SlowSlope = 0.004, 0.003, 0.001
		s.Volume = 900
	})
	rec, state = Step(state, inZone, cfg)
	require.Equal(t, contracts.StageInZone, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonConstructiveTrend))

	// 단기 평균 평탄화 + 거래량 감소 + 신고가 없음 → 9
	fading := neutral(3, func(s *contracts.IndicatorSnapshot) {
		s.Close, s.High = 96.5, 97
		s.ChannelHigh = 97.6
		s.EMAFast, s.EMAMid, s.EMASlow = 94.2, 93.3, 92.2
		s.FastSlope = 0.0001
		s.Volume = 800
	})
	rec, state = Step(state, fading, cfg)
	require.Equal(t, contracts.StageInZoneFading, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonFastMeanFlattening))
	assert.True(t, rec.HasReason(contracts.ReasonVolumeWeakening))
	assert.True(t, rec.HasReason(contracts.ReasonNoNewHigh))

	// 신저가 → 사이클 종료, 잔여 스테이지
	broken := neutral(4, func(s *contracts.IndicatorSnapshot) {
		s.Close, s.Low = 84, 83
		s.NewChannelLow = true
		s.FastSlope = -0.01
	})
	rec, state = Step(state, broken, cfg)
	assert.Equal(t, contracts.StageDowntrend, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonCycleBroken))
	assert.Zero(t, state.BreakoutLevel)
	assert.Zero(t, state.CycleHigh)
	assert.True(t, rec.EverDislocated)
}

func TestStepFailedBreakout(t *testing.T) {
	cfg := stageconfig.Default()
	rec, state := Step(dislocatedState(cfg), breakoutDay(0), cfg)
	require.Equal(t, contracts.StageBreakout, rec.Stage)

	// 돌파 레벨 하회
	back := neutral(1, func(s *contracts.IndicatorSnapshot) {
		s.Close = 94
		s.EMAFast, s.EMAMid = 92.5, 91.2
	})
	rec, _ = Step(state, back, cfg)
	assert.False(t, rec.Stage.InCycle())
	assert.True(t, rec.HasReason(contracts.ReasonCycleBroken))
}

func TestStepBreakoutRenewed(t *testing.T) {
	cfg := stageconfig.Default()
	_, state := Step(dislocatedState(cfg), breakoutDay(0), cfg)

	again := neutral(1, func(s *contracts.IndicatorSnapshot) {
		s.Close, s.High = 98, 98.5
		s.ChannelHigh = 96.5
		s.EMAFast, s.EMAMid, s.EMASlow = 93, 92, 95 // 스택 미완성
		s.Volume, s.VolumeSurge = 2500, true
	})
	rec, state := Step(state, again, cfg)
	assert.Equal(t, contracts.StageBreakout, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonBreakoutRenewed))
	assert.Equal(t, 95.0, state.BreakoutLevel)
}

func TestStepRiskOverridesProgression(t *testing.T) {
	cfg := stageconfig.Default()
	_, state := Step(dislocatedState(cfg), breakoutDay(0), cfg)
	_, state = Step(state, confirmDay(1), cfg)

	// 7 조건과 9 조건이 동시에 성립하면 9
	both := confirmDay(2)
	both.Close = 96.9
	both.FastSlope = 0.0004
	both.Volume = 1100
	both.VolumeAvg = 1000
	both.BandWidthChange = -0.002

	rec, _ := Step(state, both, cfg)
	assert.Equal(t, contracts.StageInZoneFading, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonBandContracting))
}

func TestStepRequireMomentum(t *testing.T) {
	cfg := stageconfig.Default()
	cfg.Classifier.Breakout.RequireMomentum = true
	_, state := Step(dislocatedState(cfg), breakoutDay(0), cfg)

	weak := confirmDay(1)
	weak.MACDHist = -0.1
	rec, _ := Step(state, weak, cfg)
	assert.NotEqual(t, contracts.StageBreakoutConfirmed, rec.Stage)

	rec, _ = Step(state, confirmDay(1), cfg)
	assert.Equal(t, contracts.StageBreakoutConfirmed, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonMomentumConfirmed))
}

func TestStepSuppressedBreakout(t *testing.T) {
	cfg := stageconfig.Default()
	state := NewState(cfg.Classifier.Dislocation.WindowDays)

	rec, next := Step(state, breakoutDay(0), cfg)
	assert.Equal(t, contracts.StageLowerZone, rec.Stage)
	assert.True(t, rec.HasReason(contracts.ReasonBreakoutSuppressed))
	assert.False(t, rec.EverDislocated)
	assert.Zero(t, next.BreakoutLevel)
}

func TestStepInZoneFromLowerZone(t *testing.T) {
	constructive := confirmDay(1)
	constructive.Close = 94 // 채널 고점 아래, 돌파 없음
	constructive.ChannelHigh = 95

	tests := []struct {
		name    string
		require bool
		dislo   bool
		want    contracts.Stage
	}{
		{"breakout required", true, true, contracts.StageLowerZone},
		{"direct entry", false, true, contracts.StageInZone},
		{"direct entry without dislocation", false, false, contracts.StageLowerZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := stageconfig.Default()
			cfg.Classifier.Breakout.RequireBreakoutBeforeInZone = tt.require

			state := NewState(cfg.Classifier.Dislocation.WindowDays)
			state.EverDislocated = tt.dislo
			state.PrevStage = contracts.StageLowerZone

			rec, _ := Step(state, constructive, cfg)
			assert.Equal(t, tt.want, rec.Stage)
			if tt.want == contracts.StageInZone {
				assert.True(t, rec.HasReason(contracts.ReasonEnteredFromLowerZone))
			}
		})
	}
}

func TestStepResidualStages(t *testing.T) {
	cfg := stageconfig.Default()

	tests := []struct {
		name string
		mod  func(*contracts.IndicatorSnapshot)
		want contracts.Stage
	}{
		{"downtrend", nil, contracts.StageDowntrend},
		{"below zone", func(s *contracts.IndicatorSnapshot) { s.BandWidthChange = -0.001 }, contracts.StageBelowZone},
		{"below zone blocked by new low", func(s *contracts.IndicatorSnapshot) {
			s.BandWidthChange = -0.001
			s.NewChannelLow = true
		}, contracts.StageDowntrend},
		{"lower zone", func(s *contracts.IndicatorSnapshot) {
			s.Close = 92
			s.EMAFast, s.EMAMid = 91, 90.5
		}, contracts.StageLowerZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState(cfg.Classifier.Dislocation.WindowDays)
			rec, _ := Step(state, neutral(0, tt.mod), cfg)
			assert.Equal(t, tt.want, rec.Stage)
			assert.True(t, rec.HasReason(contracts.ReasonBelowLongMean))
		})
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	cfg := stageconfig.Default()
	state := NewState(cfg.Classifier.Dislocation.WindowDays)
	_, next := Step(state, neutral(0, func(s *contracts.IndicatorSnapshot) { s.ReturnN = -0.06 }), cfg)

	assert.Empty(t, state.WindowDays())
	require.Len(t, next.WindowDays(), 1)
	assert.True(t, next.WindowDays()[0].SharpDecline)
}
