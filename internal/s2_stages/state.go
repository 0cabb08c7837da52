package s2_stages

import "github.com/wonny/stagegate/internal/contracts"

// DayMarkers are the dislocation markers observed on one warmed-up day
type DayMarkers struct {
	BelowLong     bool
	SharpDecline  bool
	BelowBand     bool
	SlopeAccel    bool
	VolumeSurge   bool
	NewChannelLow bool
}

// ClassifierState is the per-series memory threaded through the fold.
// Step never mutates its input state; it returns the next one.
type ClassifierState struct {
	// EverDislocated never reverts to false once set
	EverDislocated bool

	// window: 최근 window_days 유효일 마커 (insufficient history 날은 제외)
	window []DayMarkers
	next   int
	filled int

	PrevStage     contracts.Stage // 0 before the first warmed-up day
	BreakoutLevel float64         // channel high broken on the Stage 6 entry, 0 outside the cycle
	CycleHigh     float64         // highest close since the cycle started
}

// NewState returns the empty state for a window of size windowDays
func NewState(windowDays int) ClassifierState {
	return ClassifierState{window: make([]DayMarkers, windowDays)}
}

// push returns a copy of the state with m appended to the window ring
func (s ClassifierState) push(m DayMarkers) ClassifierState {
	w := make([]DayMarkers, len(s.window))
	copy(w, s.window)
	w[s.next] = m

	s.window = w
	s.next = (s.next + 1) % len(w)
	if s.filled < len(w) {
		s.filled++
	}
	return s
}

// WindowDays returns the markers currently in the window, oldest first
func (s ClassifierState) WindowDays() []DayMarkers {
	out := make([]DayMarkers, 0, s.filled)
	start := (s.next - s.filled + len(s.window)) % len(s.window)
	for i := 0; i < s.filled; i++ {
		out = append(out, s.window[(start+i)%len(s.window)])
	}
	return out
}

// windowSummary ORs every marker over the window
func (s ClassifierState) windowSummary() DayMarkers {
	var sum DayMarkers
	for _, m := range s.WindowDays() {
		sum.BelowLong = sum.BelowLong || m.BelowLong
		sum.SharpDecline = sum.SharpDecline || m.SharpDecline
		sum.BelowBand = sum.BelowBand || m.BelowBand
		sum.SlopeAccel = sum.SlopeAccel || m.SlopeAccel
		sum.VolumeSurge = sum.VolumeSurge || m.VolumeSurge
		sum.NewChannelLow = sum.NewChannelLow || m.NewChannelLow
	}
	return sum
}

// dislocated reports whether every required marker occurred within the window
func (m DayMarkers) dislocated() bool {
	return m.BelowLong && m.SharpDecline && m.BelowBand && m.SlopeAccel
}

// resetCycle clears the breakout/in-zone bookkeeping
func (s ClassifierState) resetCycle() ClassifierState {
	s.BreakoutLevel = 0
	s.CycleHigh = 0
	return s
}
