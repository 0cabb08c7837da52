package stageconfig

import (
	"time"

	"github.com/wonny/stagegate/internal/contracts"
)

// Config는 스테이지 분류 엔진의 전체 설정
// ⭐ SSOT: 분류/게이트 임계값은 이 구조체에서만 읽음
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Indicators Indicators `yaml:"indicators" json:"indicators"`
	Classifier Classifier `yaml:"classifier" json:"classifier"`
	Sector     Sector     `yaml:"sector" json:"sector"`
	Gate       Gate       `yaml:"gate" json:"gate"`
}

// Meta 메타 정보
type Meta struct {
	ConfigID    string `yaml:"config_id" json:"config_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Indicators S1: 지표 계산 파라미터
type Indicators struct {
	EMA      EMASpans `yaml:"ema" json:"ema"`
	Channel  Channel  `yaml:"channel" json:"channel"`
	Band     Band     `yaml:"band" json:"band"`
	Volume   Volume   `yaml:"volume" json:"volume"`
	Momentum Momentum `yaml:"momentum" json:"momentum"`
}

// EMASpans fast < mid < slow < long
type EMASpans struct {
	Fast int `yaml:"fast" json:"fast"`
	Mid  int `yaml:"mid" json:"mid"`
	Slow int `yaml:"slow" json:"slow"`
	Long int `yaml:"long" json:"long"` // 장기 평균 (Stage 1 기준선)
}

// Channel Donchian 채널
type Channel struct {
	Window         int  `yaml:"window" json:"window"`
	ExcludeCurrent bool `yaml:"exclude_current" json:"exclude_current"` // true: 당일 고저 제외한 직전 N일
}

// Band 볼린저 밴드
type Band struct {
	Window int     `yaml:"window" json:"window"`
	K      float64 `yaml:"k" json:"k"`
}

// Volume 거래량 기준선
type Volume struct {
	Window          int     `yaml:"window" json:"window"`
	SurgeMultiplier float64 `yaml:"surge_multiplier" json:"surge_multiplier"`
}

// Momentum MACD/RSI (확인용, 트리거 아님)
type Momentum struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	MACDFast   int  `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow   int  `yaml:"macd_slow" json:"macd_slow"`
	MACDSignal int  `yaml:"macd_signal" json:"macd_signal"`
	RSIPeriod  int  `yaml:"rsi_period" json:"rsi_period"`
}

// Classifier S2: 스테이지 판정 파라미터
type Classifier struct {
	Dislocation Dislocation `yaml:"dislocation" json:"dislocation"`
	Breakout    Breakout    `yaml:"breakout" json:"breakout"`
	Fading      Fading      `yaml:"fading" json:"fading"`
}

// Dislocation Stage 2 윈도우 패턴
type Dislocation struct {
	WindowDays     int     `yaml:"window_days" json:"window_days"`
	DeclinePct     float64 `yaml:"decline_pct" json:"decline_pct"`   // 0.05 = 5%
	DeclineDays    int     `yaml:"decline_days" json:"decline_days"` // N일 수익률 기간
	SlopeAccelRate float64 `yaml:"slope_accel_rate" json:"slope_accel_rate"`
}

// Breakout Stage 6/7/8 조건
type Breakout struct {
	RequireBreakoutBeforeInZone bool    `yaml:"require_breakout_before_inzone" json:"require_breakout_before_inzone"`
	ConfirmVolumeRatio          float64 `yaml:"confirm_volume_ratio" json:"confirm_volume_ratio"`
	RequireMomentum             bool    `yaml:"require_momentum" json:"require_momentum"`
}

// Fading Stage 9 조건
type Fading struct {
	FlatSlope        float64 `yaml:"flat_slope" json:"flat_slope"`
	MinConfirmations int     `yaml:"min_confirmations" json:"min_confirmations"`
	RSIWeak          float64 `yaml:"rsi_weak" json:"rsi_weak"`
}

// Sector S3: 섹터 합성 바스켓
type Sector struct {
	MinCoverage     float64 `yaml:"min_coverage" json:"min_coverage"`
	WeightTolerance float64 `yaml:"weight_tolerance" json:"weight_tolerance"`
}

// Gate S4: 섹터 → 종목 허용 게이트
type Gate struct {
	Enabled                   bool       `yaml:"enabled" json:"enabled"`
	OnMissing                 string     `yaml:"on_missing" json:"on_missing"` // block | allow
	MinConsecutiveDaysInAllow int        `yaml:"min_consecutive_days_in_allow" json:"min_consecutive_days_in_allow"`
	Stages                    []GateRule `yaml:"stages" json:"stages"`
}

// GateRule 스테이지별 허용/축소/차단 + 리스크 배수
type GateRule struct {
	Stage          int                  `yaml:"stage" json:"stage"`
	Permission     contracts.Permission `yaml:"permission" json:"permission"`
	RiskMultiplier float64              `yaml:"risk_multiplier" json:"risk_multiplier"`
}

// Rule returns the rule for a stage
func (g Gate) Rule(stage contracts.Stage) (GateRule, bool) {
	for _, r := range g.Stages {
		if r.Stage == int(stage) {
			return r, true
		}
	}
	return GateRule{}, false
}

// WarmupBars returns the number of bars needed before every indicator is defined.
// 장기 EMA/모멘텀 안정화 구간 + 채널/밴드/거래량 룩백
func (c *Config) WarmupBars() int {
	ind := c.Indicators

	trend := ind.EMA.Long
	if ind.Momentum.Enabled {
		trend = maxInt(trend, ind.Momentum.MACDSlow+ind.Momentum.MACDSignal)
		trend = maxInt(trend, ind.Momentum.RSIPeriod+1)
	}

	channel := ind.Channel.Window
	if ind.Channel.ExcludeCurrent {
		channel++
	}
	lookback := maxInt(channel, ind.Band.Window, ind.Volume.Window, c.Classifier.Dislocation.DeclineDays+1)

	return trend + lookback
}

// RunSnapshot 분류 실행 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash    string    `json:"config_hash"`
	ConfigVersion string    `json:"config_version"`
	ConfigYAML    string    `json:"config_yaml"`
	GitCommit     string    `json:"git_commit"`
	CreatedAt     time.Time `json:"created_at"`
}

func maxInt(v int, rest ...int) int {
	for _, r := range rest {
		if r > v {
			v = r
		}
	}
	return v
}
