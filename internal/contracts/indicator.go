package contracts

// IndicatorSnapshot holds every derived value for one bar.
// Values depend only on bars at or before Date. Before warm-up completes
// every float field is NaN, every flag is false and WarmedUp is false.
type IndicatorSnapshot struct {
	Bar

	// Moving averages
	EMAFast float64 `json:"ema_fast"`
	EMAMid  float64 `json:"ema_mid"`
	EMASlow float64 `json:"ema_slow"`
	EMALong float64 `json:"ema_long"`

	// Donchian channel
	ChannelHigh    float64 `json:"channel_high"`
	ChannelLow     float64 `json:"channel_low"`
	ChannelMid     float64 `json:"channel_mid"`
	NewChannelHigh bool    `json:"new_channel_high"`
	NewChannelLow  bool    `json:"new_channel_low"`

	// Bollinger band
	BandMid         float64 `json:"band_mid"`
	BandUpper       float64 `json:"band_upper"`
	BandLower       float64 `json:"band_lower"`
	BandWidth       float64 `json:"band_width"`
	BandWidthChange float64 `json:"band_width_change"`

	// Volume
	VolumeAvg   float64 `json:"volume_avg"`
	RelVolume   float64 `json:"rel_volume"`
	VolumeSurge bool    `json:"volume_surge"`

	// Momentum (confirmation only)
	HasMomentum bool    `json:"has_momentum"`
	MACD        float64 `json:"macd"`
	MACDSignal  float64 `json:"macd_signal"`
	MACDHist    float64 `json:"macd_hist"`
	RSI         float64 `json:"rsi"`

	// Slopes: one-bar percentage change of each average
	FastSlope float64 `json:"fast_slope"`
	MidSlope  float64 `json:"mid_slope"`
	SlowSlope float64 `json:"slow_slope"`
	FastAccel float64 `json:"fast_accel"`

	ReturnN float64 `json:"return_n"`

	WarmedUp bool `json:"warmed_up"`
}
