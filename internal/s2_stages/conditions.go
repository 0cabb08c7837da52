package s2_stages

import (
	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
)

// markersFor evaluates today's dislocation markers
func markersFor(snap contracts.IndicatorSnapshot, cfg *stageconfig.Config) DayMarkers {
	d := cfg.Classifier.Dislocation
	return DayMarkers{
		BelowLong:     snap.Close < snap.EMALong,
		SharpDecline:  snap.ReturnN < -d.DeclinePct,
		BelowBand:     snap.Close < snap.BandLower,
		SlopeAccel:    snap.FastSlope < 0 && snap.FastAccel < 0 && -snap.FastAccel >= d.SlopeAccelRate,
		VolumeSurge:   snap.VolumeSurge,
		NewChannelLow: snap.NewChannelLow,
	}
}

// conditions are today's breakout/cycle predicates
type conditions struct {
	breakout       bool
	newChannelLow  bool
	holdsBreakout  bool
	stackAscending bool
	slopesPositive bool
	volumeElevated bool
	momentumOK     bool
	constructive   bool
	fading         bool
	fadingReasons  []contracts.ReasonCode
}

func conditionsFor(state ClassifierState, snap contracts.IndicatorSnapshot, cfg *stageconfig.Config) conditions {
	b := cfg.Classifier.Breakout
	f := cfg.Classifier.Fading

	c := conditions{
		breakout:       snap.Close > snap.ChannelHigh && snap.EMAFast > snap.EMAMid && snap.VolumeSurge,
		newChannelLow:  snap.NewChannelLow,
		holdsBreakout:  state.BreakoutLevel > 0 && snap.Close > state.BreakoutLevel,
		stackAscending: snap.EMAFast > snap.EMAMid && snap.EMAMid > snap.EMASlow,
		slopesPositive: snap.FastSlope > 0 && snap.MidSlope > 0 && snap.SlowSlope > 0,
		volumeElevated: snap.Volume >= snap.VolumeAvg*b.ConfirmVolumeRatio,
		momentumOK:     !b.RequireMomentum || (snap.HasMomentum && snap.MACDHist > 0),
	}

	// 모멘텀 감속은 허용, 반전(히스토그램 음수 + RSI 약세)은 불가
	momentumReversed := snap.HasMomentum && snap.MACDHist < 0 && snap.RSI < f.RSIWeak
	c.constructive = snap.Close > snap.EMAMid && snap.EMAFast > snap.EMAMid && !snap.NewChannelLow && !momentumReversed

	if snap.FastSlope <= f.FlatSlope {
		if snap.HasMomentum && (snap.MACDHist < 0 || snap.RSI < f.RSIWeak) {
			c.fadingReasons = append(c.fadingReasons, contracts.ReasonMomentumWeakening)
		}
		if snap.BandWidthChange < 0 {
			c.fadingReasons = append(c.fadingReasons, contracts.ReasonBandContracting)
		} else if snap.High >= snap.BandUpper && snap.Close < snap.BandUpper {
			c.fadingReasons = append(c.fadingReasons, contracts.ReasonBandRejection)
		}
		if state.CycleHigh > 0 && snap.Close < state.CycleHigh {
			c.fadingReasons = append(c.fadingReasons, contracts.ReasonNoNewHigh)
		}
		if snap.Volume < snap.VolumeAvg {
			c.fadingReasons = append(c.fadingReasons, contracts.ReasonVolumeWeakening)
		}
		c.fading = len(c.fadingReasons) >= f.MinConfirmations
	}

	return c
}
