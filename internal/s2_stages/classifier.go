package s2_stages

import (
	"fmt"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
)

// Classify folds Step over snapshots in date order.
// ⭐ SSOT: S2 스테이지 분류는 여기서만 (순수 함수, I/O/로깅 없음)
// 같은 입력 + 같은 설정 → 같은 출력
func Classify(snapshots []contracts.IndicatorSnapshot, cfg *stageconfig.Config) ([]contracts.StageRecord, error) {
	for i := 1; i < len(snapshots); i++ {
		if !snapshots[i].Date.After(snapshots[i-1].Date) {
			return nil, &contracts.SeriesError{
				Index: i,
				Date:  snapshots[i].Date,
				Err:   contracts.ErrNonMonotonicDates,
			}
		}
	}

	records := make([]contracts.StageRecord, len(snapshots))
	state := NewState(cfg.Classifier.Dislocation.WindowDays)
	for i, snap := range snapshots {
		records[i], state = Step(state, snap, cfg)
	}
	return records, nil
}

// Step classifies one day and returns the record plus the next state.
// 평가 순서: Stage 1 → Stage 2 → 사이클(9 → 7 → 6 → 8) → 신규 돌파 → 잔여(5 → 4 → 3)
func Step(state ClassifierState, snap contracts.IndicatorSnapshot, cfg *stageconfig.Config) (contracts.StageRecord, ClassifierState) {
	if len(state.window) == 0 {
		fresh := NewState(cfg.Classifier.Dislocation.WindowDays)
		fresh.EverDislocated = state.EverDislocated
		fresh.PrevStage = state.PrevStage
		fresh.BreakoutLevel = state.BreakoutLevel
		fresh.CycleHigh = state.CycleHigh
		state = fresh
	}

	// 워밍업 미완료: 윈도우에 넣지 않음
	if !snap.WarmedUp {
		return contracts.StageRecord{
			Date:                snap.Date,
			Stage:               contracts.StageNotEligible,
			ReasonCodes:         []contracts.ReasonCode{contracts.ReasonInsufficientHistory},
			EverDislocated:      state.EverDislocated,
			InsufficientHistory: true,
		}, state
	}

	next := state.push(markersFor(snap, cfg))
	stage, reasons, next := evaluate(state, next, snap, cfg)
	next.PrevStage = stage

	return contracts.StageRecord{
		Date:           snap.Date,
		Stage:          stage,
		ReasonCodes:    reasons,
		EverDislocated: next.EverDislocated,
	}, next
}

// evaluate applies the precedence rules. prev is the state before today,
// next already carries today's markers.
func evaluate(prev, next ClassifierState, snap contracts.IndicatorSnapshot, cfg *stageconfig.Config) (contracts.Stage, []contracts.ReasonCode, ClassifierState) {
	var reasons []contracts.ReasonCode
	wasInCycle := prev.PrevStage.InCycle()

	// 1. Not Eligible: 장기 평균 위 (같으면 직전 Stage 1 유지)
	if snap.Close > snap.EMALong {
		reasons = append(reasons, contracts.ReasonAboveLongMean)
		if wasInCycle {
			reasons = append(reasons, contracts.ReasonCycleBroken)
		}
		return contracts.StageNotEligible, reasons, next.resetCycle()
	}
	if snap.Close == snap.EMALong && (prev.PrevStage == 0 || prev.PrevStage == contracts.StageNotEligible) {
		return contracts.StageNotEligible, append(reasons, contracts.ReasonHeldAtLongMean), next.resetCycle()
	}

	// 2. Sharp Downtrend: 윈도우 내 필수 마커 모두 관측
	window := next.windowSummary()
	if window.dislocated() {
		reasons = append(reasons,
			contracts.ReasonBelowLongMean,
			contracts.ReasonSharpDecline,
			contracts.ReasonCloseBelowBand,
			contracts.ReasonFastSlopeAccelDown,
		)
		if window.VolumeSurge {
			reasons = append(reasons, contracts.ReasonVolumeSurge)
		}
		if window.NewChannelLow {
			reasons = append(reasons, contracts.ReasonNewChannelLow)
		}
		if !next.EverDislocated {
			reasons = append(reasons, contracts.ReasonDislocationFirst)
		}
		if wasInCycle {
			reasons = append(reasons, contracts.ReasonCycleBroken)
		}
		next.EverDislocated = true
		return contracts.StageSharpDowntrend, reasons, next.resetCycle()
	}

	c := conditionsFor(prev, snap, cfg)

	// 3. 사이클 진행 (직전 스테이지 조건부)
	if wasInCycle {
		if stage, cycleReasons, ok := evaluateCycle(prev.PrevStage, c, cfg); ok {
			next.CycleHigh = maxFloat(next.CycleHigh, snap.Close)
			return stage, cycleReasons, next
		}
		reasons = append(reasons, contracts.ReasonCycleBroken)
		next = next.resetCycle()
	}

	// 4. 신규 돌파 (Stage 6은 과거 Stage 2 이력 필수)
	if c.breakout {
		if next.EverDislocated {
			next.BreakoutLevel = snap.ChannelHigh
			next.CycleHigh = snap.Close
			return contracts.StageBreakout, append(reasons,
				contracts.ReasonChannelBreakout,
				contracts.ReasonFastAboveMid,
				contracts.ReasonVolumeSurge,
			), next
		}
		reasons = append(reasons, contracts.ReasonChannelBreakout, contracts.ReasonBreakoutSuppressed)
	}

	// 5. 돌파 없이 Lower Zone → In-Zone (require_breakout_before_inzone=false)
	if !cfg.Classifier.Breakout.RequireBreakoutBeforeInZone &&
		prev.PrevStage == contracts.StageLowerZone &&
		next.EverDislocated && c.constructive && c.stackAscending {
		next.CycleHigh = snap.Close
		return contracts.StageInZone, append(reasons,
			contracts.ReasonEnteredFromLowerZone,
			contracts.ReasonConstructiveTrend,
			contracts.ReasonMeanStackAscending,
		), next
	}

	// 6. 잔여: 5 → 4 → 3
	stage, residual := residualStage(snap)
	return stage, append(residual, reasons...), next
}

// evaluateCycle handles the 6→7→8→9 progression. ok=false means the cycle broke.
// 위험 조건(9)이 상승 진행(7/8)보다 우선
func evaluateCycle(prevStage contracts.Stage, c conditions, cfg *stageconfig.Config) (contracts.Stage, []contracts.ReasonCode, bool) {
	switch {
	case c.newChannelLow:
		// 신저가 = 회귀 사이클 종료
		return 0, nil, false

	case prevStage >= contracts.StageBreakoutConfirmed && c.fading:
		return contracts.StageInZoneFading, append([]contracts.ReasonCode{contracts.ReasonFastMeanFlattening}, c.fadingReasons...), true

	case (prevStage == contracts.StageBreakout || prevStage == contracts.StageBreakoutConfirmed) &&
		c.holdsBreakout && c.stackAscending && c.slopesPositive && c.volumeElevated && c.momentumOK:
		reasons := []contracts.ReasonCode{
			contracts.ReasonBreakoutLevelHeld,
			contracts.ReasonMeanStackAscending,
			contracts.ReasonSlopesPositive,
			contracts.ReasonVolumeElevated,
		}
		if cfg.Classifier.Breakout.RequireMomentum {
			reasons = append(reasons, contracts.ReasonMomentumConfirmed)
		}
		return contracts.StageBreakoutConfirmed, reasons, true

	case prevStage == contracts.StageBreakout && c.holdsBreakout && c.breakout:
		return contracts.StageBreakout, []contracts.ReasonCode{
			contracts.ReasonBreakoutRenewed,
			contracts.ReasonBreakoutLevelHeld,
		}, true

	case prevStage == contracts.StageBreakout && !c.holdsBreakout:
		// 돌파 직후 레벨 하회 = 실패한 돌파
		return 0, nil, false

	case c.constructive:
		return contracts.StageInZone, []contracts.ReasonCode{contracts.ReasonConstructiveTrend}, true
	}

	return 0, nil, false
}

// residualStage classifies the downtrend family
func residualStage(snap contracts.IndicatorSnapshot) (contracts.Stage, []contracts.ReasonCode) {
	upperHalf := snap.Close > snap.ChannelMid
	if upperHalf && snap.Close > snap.EMAFast && snap.EMAFast > snap.EMAMid {
		return contracts.StageLowerZone, []contracts.ReasonCode{
			contracts.ReasonBelowLongMean,
			contracts.ReasonUpperChannelHalf,
			contracts.ReasonCloseAboveFast,
			contracts.ReasonFastAboveMid,
		}
	}

	if !snap.NewChannelLow && snap.BandWidthChange < 0 && !snap.VolumeSurge {
		return contracts.StageBelowZone, []contracts.ReasonCode{
			contracts.ReasonBelowLongMean,
			contracts.ReasonNoNewChannelLow,
			contracts.ReasonBandContracting,
			contracts.ReasonSellingNormalizing,
		}
	}

	return contracts.StageDowntrend, []contracts.ReasonCode{
		contracts.ReasonBelowLongMean,
		contracts.ReasonDowntrend,
	}
}

// Summary counts records per stage (로그/메트릭용)
func Summary(records []contracts.StageRecord) map[contracts.Stage]int {
	counts := make(map[contracts.Stage]int, 9)
	for _, r := range records {
		counts[r.Stage]++
	}
	return counts
}

// Latest returns the last record, or an error for an empty sequence
func Latest(records []contracts.StageRecord) (contracts.StageRecord, error) {
	if len(records) == 0 {
		return contracts.StageRecord{}, fmt.Errorf("no stage records")
	}
	return records[len(records)-1], nil
}

func maxFloat(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}
