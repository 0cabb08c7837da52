package contracts

import (
	"fmt"
	"time"
)

// Stage is the daily market stage of an instrument or sector basket (1–9).
// ⭐ SSOT: 스테이지 번호/이름은 여기서만 정의
type Stage int

const (
	StageNotEligible       Stage = 1
	StageSharpDowntrend    Stage = 2
	StageDowntrend         Stage = 3
	StageBelowZone         Stage = 4
	StageLowerZone         Stage = 5
	StageBreakout          Stage = 6
	StageBreakoutConfirmed Stage = 7
	StageInZone            Stage = 8
	StageInZoneFading      Stage = 9
)

var stageNames = map[Stage]string{
	StageNotEligible:       "Not Eligible",
	StageSharpDowntrend:    "Sharp Downtrend",
	StageDowntrend:         "Downtrend",
	StageBelowZone:         "Below Zone",
	StageLowerZone:         "Lower Zone",
	StageBreakout:          "Breakout",
	StageBreakoutConfirmed: "Breakout Confirmed",
	StageInZone:            "In-Zone",
	StageInZoneFading:      "In-Zone (Fading)",
}

// String returns the display name
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// IsValid reports whether s is one of the nine stages
func (s Stage) IsValid() bool {
	return s >= StageNotEligible && s <= StageInZoneFading
}

// IsEntry reports whether s is an entry stage (6, 7).
// Entry stages require a prior dislocation.
func (s Stage) IsEntry() bool {
	return s == StageBreakout || s == StageBreakoutConfirmed
}

// InCycle reports whether s belongs to the post-breakout reversion cycle (6–9)
func (s Stage) InCycle() bool {
	return s >= StageBreakout && s <= StageInZoneFading
}

// AllStages returns all stages in order
func AllStages() []Stage {
	return []Stage{
		StageNotEligible,
		StageSharpDowntrend,
		StageDowntrend,
		StageBelowZone,
		StageLowerZone,
		StageBreakout,
		StageBreakoutConfirmed,
		StageInZone,
		StageInZoneFading,
	}
}

// ReasonCode is a structured tag explaining a stage assignment
type ReasonCode string

const (
	// eligibility
	ReasonInsufficientHistory ReasonCode = "insufficient_history"
	ReasonAboveLongMean       ReasonCode = "above_long_mean"
	ReasonHeldAtLongMean      ReasonCode = "held_at_long_mean"
	ReasonBelowLongMean       ReasonCode = "below_long_mean"

	// dislocation window (stage 2)
	ReasonSharpDecline       ReasonCode = "sharp_decline"
	ReasonCloseBelowBand     ReasonCode = "close_below_lower_band"
	ReasonFastSlopeAccelDown ReasonCode = "fast_slope_accelerating_down"
	ReasonVolumeSurge        ReasonCode = "volume_surge"
	ReasonNewChannelLow      ReasonCode = "new_channel_low"
	ReasonDislocationFirst   ReasonCode = "dislocation_first_detected"

	// downtrend family (3–5)
	ReasonDowntrend          ReasonCode = "downtrend"
	ReasonNoNewChannelLow    ReasonCode = "no_new_channel_low"
	ReasonBandContracting    ReasonCode = "band_contracting"
	ReasonSellingNormalizing ReasonCode = "selling_pressure_normalizing"
	ReasonUpperChannelHalf   ReasonCode = "upper_channel_half"
	ReasonCloseAboveFast     ReasonCode = "close_above_fast_mean"
	ReasonFastAboveMid       ReasonCode = "fast_above_mid_mean"

	// breakout family (6–9)
	ReasonChannelBreakout      ReasonCode = "channel_breakout"
	ReasonBreakoutSuppressed   ReasonCode = "breakout_suppressed_no_dislocation"
	ReasonBreakoutRenewed      ReasonCode = "breakout_renewed"
	ReasonBreakoutLevelHeld    ReasonCode = "breakout_level_held"
	ReasonMeanStackAscending   ReasonCode = "mean_stack_ascending"
	ReasonSlopesPositive       ReasonCode = "slopes_positive"
	ReasonVolumeElevated       ReasonCode = "volume_elevated"
	ReasonMomentumConfirmed    ReasonCode = "momentum_confirmed"
	ReasonConstructiveTrend    ReasonCode = "constructive_trend"
	ReasonEnteredFromLowerZone ReasonCode = "entered_from_lower_zone"
	ReasonFastMeanFlattening   ReasonCode = "fast_mean_flattening"
	ReasonMomentumWeakening    ReasonCode = "momentum_weakening"
	ReasonBandRejection        ReasonCode = "band_rejection"
	ReasonNoNewHigh            ReasonCode = "no_new_high"
	ReasonVolumeWeakening      ReasonCode = "volume_weakening"
	ReasonCycleBroken          ReasonCode = "cycle_broken"
)

// StageRecord is the immutable classification of one series on one date
type StageRecord struct {
	Date                time.Time    `json:"date"`
	Stage               Stage        `json:"stage"`
	ReasonCodes         []ReasonCode `json:"reason_codes"`
	EverDislocated      bool         `json:"ever_dislocated"`
	InsufficientHistory bool         `json:"insufficient_history"`
}

// HasReason reports whether code is among the record's reason codes
func (r *StageRecord) HasReason(code ReasonCode) bool {
	for _, c := range r.ReasonCodes {
		if c == code {
			return true
		}
	}
	return false
}
