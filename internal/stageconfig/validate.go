package stageconfig

import (
	"fmt"

	"github.com/wonny/stagegate/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}
	if cfg.Meta.Version == "" {
		return ValidationError{"meta.version", "required"}
	}

	// === Indicators ===
	ema := cfg.Indicators.EMA
	if err := validatePositive([]namedInt{
		{"indicators.ema.fast", ema.Fast},
		{"indicators.ema.mid", ema.Mid},
		{"indicators.ema.slow", ema.Slow},
		{"indicators.ema.long", ema.Long},
	}); err != nil {
		return err
	}
	if !(ema.Fast < ema.Mid && ema.Mid < ema.Slow && ema.Slow < ema.Long) {
		return ValidationError{"indicators.ema", fmt.Sprintf("spans must satisfy fast < mid < slow < long, got %d/%d/%d/%d", ema.Fast, ema.Mid, ema.Slow, ema.Long)}
	}

	if cfg.Indicators.Channel.Window <= 0 {
		return ValidationError{"indicators.channel.window", "must be > 0"}
	}
	if cfg.Indicators.Band.Window < 2 {
		return ValidationError{"indicators.band.window", "must be >= 2"}
	}
	if cfg.Indicators.Band.K <= 0 {
		return ValidationError{"indicators.band.k", "must be > 0"}
	}
	if cfg.Indicators.Volume.Window <= 0 {
		return ValidationError{"indicators.volume.window", "must be > 0"}
	}
	if cfg.Indicators.Volume.SurgeMultiplier <= 0 {
		return ValidationError{"indicators.volume.surge_multiplier", "must be > 0"}
	}

	mom := cfg.Indicators.Momentum
	if mom.Enabled {
		if err := validatePositive([]namedInt{
			{"indicators.momentum.macd_fast", mom.MACDFast},
			{"indicators.momentum.macd_slow", mom.MACDSlow},
			{"indicators.momentum.macd_signal", mom.MACDSignal},
			{"indicators.momentum.rsi_period", mom.RSIPeriod},
		}); err != nil {
			return err
		}
		if mom.MACDFast >= mom.MACDSlow {
			return ValidationError{"indicators.momentum", "macd_fast must be < macd_slow"}
		}
	}

	// === Classifier ===
	d := cfg.Classifier.Dislocation
	if d.WindowDays <= 0 {
		return ValidationError{"classifier.dislocation.window_days", "must be > 0"}
	}
	if d.DeclineDays <= 0 {
		return ValidationError{"classifier.dislocation.decline_days", "must be > 0"}
	}
	if d.DeclinePct <= 0 || d.DeclinePct >= 1 {
		return ValidationError{"classifier.dislocation.decline_pct", "must be in (0, 1)"}
	}
	// 0이면 모든 하락 가속이 통과해 임계값이 무의미
	if d.SlopeAccelRate <= 0 {
		return ValidationError{"classifier.dislocation.slope_accel_rate", "must be > 0"}
	}

	b := cfg.Classifier.Breakout
	if b.ConfirmVolumeRatio <= 0 {
		return ValidationError{"classifier.breakout.confirm_volume_ratio", "must be > 0"}
	}
	// 모멘텀 미계산 상태에서 모멘텀 확인 요구 불가
	if b.RequireMomentum && !mom.Enabled {
		return ValidationError{"classifier.breakout.require_momentum", "requires indicators.momentum.enabled"}
	}

	f := cfg.Classifier.Fading
	if f.MinConfirmations < 1 || f.MinConfirmations > 4 {
		return ValidationError{"classifier.fading.min_confirmations", "must be in [1, 4]"}
	}
	if f.FlatSlope <= 0 {
		return ValidationError{"classifier.fading.flat_slope", "must be > 0"}
	}
	if mom.Enabled && (f.RSIWeak <= 0 || f.RSIWeak >= 100) {
		return ValidationError{"classifier.fading.rsi_weak", "must be in (0, 100)"}
	}

	// === Sector ===
	if err := validatePctRange(cfg.Sector.MinCoverage, "sector.min_coverage"); err != nil {
		return err
	}
	if cfg.Sector.MinCoverage == 0 {
		return ValidationError{"sector.min_coverage", "must be > 0"}
	}
	if cfg.Sector.WeightTolerance <= 0 || cfg.Sector.WeightTolerance > 0.01 {
		return ValidationError{"sector.weight_tolerance", "must be in (0, 0.01]"}
	}

	// === Gate ===
	return validateGate(cfg.Gate)
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 당일 포함 채널은 돌파가 직전 고점을 엄격히 넘는지 판단 불가
	if !cfg.Indicators.Channel.ExcludeCurrent {
		warnings = append(warnings, Warning{
			Code:    "CHANNEL_INCLUDES_CURRENT",
			Message: "channel.exclude_current=false: close can never exceed a channel that contains its own high",
		})
	}

	d := cfg.Classifier.Dislocation
	if d.WindowDays < d.DeclineDays {
		warnings = append(warnings, Warning{
			Code:    "SHORT_DISLOCATION_WINDOW",
			Message: fmt.Sprintf("window_days=%d < decline_days=%d", d.WindowDays, d.DeclineDays),
		})
	}

	if !cfg.Gate.Enabled {
		warnings = append(warnings, Warning{
			Code:    "GATE_DISABLED",
			Message: "sector gate disabled: every instrument is allowed with multiplier 1.0",
		})
	}

	if r, ok := cfg.Gate.Rule(contracts.StageBreakoutConfirmed); ok && r.RiskMultiplier > 1.5 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_ENTRY_BOOST",
			Message: fmt.Sprintf("stage 7 risk multiplier %.2f > 1.5", r.RiskMultiplier),
		})
	}

	if cfg.Gate.OnMissing == "allow" {
		warnings = append(warnings, Warning{
			Code:    "ALLOW_ON_MISSING",
			Message: "gate.on_missing=allow: instruments pass when the sector stage is unknown",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateGate(g Gate) error {
	if g.OnMissing != "block" && g.OnMissing != "allow" {
		return ValidationError{"gate.on_missing", "must be block or allow"}
	}
	if g.MinConsecutiveDaysInAllow < 0 {
		return ValidationError{"gate.min_consecutive_days_in_allow", "must be >= 0"}
	}

	seen := make(map[int]bool, len(g.Stages))
	for i, r := range g.Stages {
		field := fmt.Sprintf("gate.stages[%d]", i)
		if !contracts.Stage(r.Stage).IsValid() {
			return ValidationError{field + ".stage", fmt.Sprintf("unknown stage %d", r.Stage)}
		}
		if seen[r.Stage] {
			return ValidationError{field + ".stage", fmt.Sprintf("duplicate stage %d", r.Stage)}
		}
		seen[r.Stage] = true

		if !r.Permission.IsValid() {
			return ValidationError{field + ".permission", "must be allow, reduce or block"}
		}
		if r.RiskMultiplier < 0 {
			return ValidationError{field + ".risk_multiplier", "must be >= 0"}
		}
		if r.Permission == contracts.PermissionBlock && r.RiskMultiplier != 0 {
			return ValidationError{field + ".risk_multiplier", "must be 0 for block"}
		}
		if r.Permission != contracts.PermissionBlock && r.RiskMultiplier == 0 {
			return ValidationError{field + ".risk_multiplier", "must be > 0 for allow/reduce"}
		}
	}

	// 9개 스테이지 모두 명시 (암묵적 기본값 없음)
	for _, s := range contracts.AllStages() {
		if !seen[int(s)] {
			return ValidationError{"gate.stages", fmt.Sprintf("missing rule for stage %d", s)}
		}
	}

	// Not Eligible / Sharp Downtrend는 항상 차단
	for _, s := range []contracts.Stage{contracts.StageNotEligible, contracts.StageSharpDowntrend} {
		if r, _ := g.Rule(s); r.Permission != contracts.PermissionBlock {
			return ValidationError{"gate.stages", fmt.Sprintf("stage %d must be block", s)}
		}
	}

	return nil
}

type namedInt struct {
	field string
	value int
}

func validatePositive(values []namedInt) error {
	for _, v := range values {
		if v.value <= 0 {
			return ValidationError{v.field, "must be > 0"}
		}
	}
	return nil
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
