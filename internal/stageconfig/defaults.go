package stageconfig

import "github.com/wonny/stagegate/internal/contracts"

// Default returns the canonical configuration (config/stages.yaml와 동일해야 함)
func Default() *Config {
	return &Config{
		Meta: Meta{
			ConfigID:    "stage_engine",
			Version:     "1.0.0",
			Description: "9-stage mean reversion cycle classifier",
		},
		Indicators: Indicators{
			EMA:     EMASpans{Fast: 10, Mid: 20, Slow: 50, Long: 200},
			Channel: Channel{Window: 20, ExcludeCurrent: true},
			Band:    Band{Window: 20, K: 2.0},
			Volume:  Volume{Window: 10, SurgeMultiplier: 1.15},
			Momentum: Momentum{
				Enabled:    true,
				MACDFast:   12,
				MACDSlow:   26,
				MACDSignal: 9,
				RSIPeriod:  14,
			},
		},
		Classifier: Classifier{
			Dislocation: Dislocation{
				WindowDays:     7,
				DeclinePct:     0.05,
				DeclineDays:    3,
				SlopeAccelRate: 0.001,
			},
			Breakout: Breakout{
				RequireBreakoutBeforeInZone: true,
				ConfirmVolumeRatio:          1.0,
				RequireMomentum:             false,
			},
			Fading: Fading{
				FlatSlope:        0.0005,
				MinConfirmations: 1,
				RSIWeak:          50,
			},
		},
		Sector: Sector{
			MinCoverage:     0.10,
			WeightTolerance: 1e-6,
		},
		Gate: Gate{
			Enabled:                   true,
			OnMissing:                 "block",
			MinConsecutiveDaysInAllow: 0,
			Stages: []GateRule{
				{Stage: 1, Permission: contracts.PermissionBlock, RiskMultiplier: 0},
				{Stage: 2, Permission: contracts.PermissionBlock, RiskMultiplier: 0},
				{Stage: 3, Permission: contracts.PermissionBlock, RiskMultiplier: 0},
				{Stage: 4, Permission: contracts.PermissionBlock, RiskMultiplier: 0},
				{Stage: 5, Permission: contracts.PermissionReduce, RiskMultiplier: 0.5},
				{Stage: 6, Permission: contracts.PermissionAllow, RiskMultiplier: 1.0},
				{Stage: 7, Permission: contracts.PermissionAllow, RiskMultiplier: 1.0},
				{Stage: 8, Permission: contracts.PermissionAllow, RiskMultiplier: 1.0},
				{Stage: 9, Permission: contracts.PermissionReduce, RiskMultiplier: 0.5},
			},
		},
	}
}
