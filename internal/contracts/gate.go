package contracts

import "time"

// Permission is the macro decision of the sector gate
type Permission string

const (
	PermissionAllow  Permission = "allow"
	PermissionReduce Permission = "reduce"
	PermissionBlock  Permission = "block"
)

// IsValid reports whether p is a known permission
func (p Permission) IsValid() bool {
	return p == PermissionAllow || p == PermissionReduce || p == PermissionBlock
}

// GateReason explains a gate decision (audit용)
type GateReason string

const (
	GateReasonDisabled            GateReason = "gate_disabled"
	GateReasonMissingStage        GateReason = "missing_sector_stage"
	GateReasonUnknownInstrument   GateReason = "unknown_instrument"
	GateReasonInsufficientHistory GateReason = "insufficient_history"
	GateReasonNotEnoughAllowDays  GateReason = "not_enough_consecutive_allow_days"
	GateReasonAllowed             GateReason = "stage_allowed"
	GateReasonReduced             GateReason = "stage_reduced"
	GateReasonBlocked             GateReason = "stage_blocked"
)

// GateDecision is the structured result of a gate query
type GateDecision struct {
	SectorID       string     `json:"sector_id"`
	Date           time.Time  `json:"date"`
	Allowed        bool       `json:"allowed"`
	Permission     Permission `json:"permission"`
	RiskMultiplier float64    `json:"risk_multiplier"`
	Stage          Stage      `json:"stage,omitempty"`
	StageName      string     `json:"stage_name,omitempty"`
	Reason         GateReason `json:"reason"`
}
