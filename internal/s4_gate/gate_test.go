package s4_gate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
	"github.com/wonny/stagegate/pkg/logger"
)

func day(n int) time.Time {
	return time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// records builds a sector sequence from stages; 0 means insufficient history
func records(stages ...int) []contracts.StageRecord {
	out := make([]contracts.StageRecord, len(stages))
	for i, s := range stages {
		if s == 0 {
			out[i] = contracts.StageRecord{
				Date:                day(i),
				Stage:               contracts.StageNotEligible,
				InsufficientHistory: true,
				ReasonCodes:         []contracts.ReasonCode{contracts.ReasonInsufficientHistory},
			}
			continue
		}
		out[i] = contracts.StageRecord{Date: day(i), Stage: contracts.Stage(s)}
	}
	return out
}

func newGate(mutate func(*stageconfig.Config)) *Gate {
	cfg := stageconfig.Default()
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, logger.Nop())
}

func TestDecideDefaultTable(t *testing.T) {
	g := newGate(nil)
	g.Load("SEMI", records(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))

	tests := []struct {
		day        int
		allowed    bool
		permission contracts.Permission
		multiplier float64
		reason     contracts.GateReason
	}{
		{0, false, contracts.PermissionBlock, 0, contracts.GateReasonInsufficientHistory},
		{1, false, contracts.PermissionBlock, 0, contracts.GateReasonBlocked},
		{2, false, contracts.PermissionBlock, 0, contracts.GateReasonBlocked},
		{3, false, contracts.PermissionBlock, 0, contracts.GateReasonBlocked},
		{4, false, contracts.PermissionBlock, 0, contracts.GateReasonBlocked},
		{5, true, contracts.PermissionReduce, 0.5, contracts.GateReasonReduced},
		{6, true, contracts.PermissionAllow, 1.0, contracts.GateReasonAllowed},
		{7, true, contracts.PermissionAllow, 1.0, contracts.GateReasonAllowed},
		{8, true, contracts.PermissionAllow, 1.0, contracts.GateReasonAllowed},
		{9, true, contracts.PermissionReduce, 0.5, contracts.GateReasonReduced},
	}

	for _, tt := range tests {
		d := g.Decide("SEMI", day(tt.day))
		assert.Equal(t, tt.allowed, d.Allowed, "day %d", tt.day)
		assert.Equal(t, tt.permission, d.Permission, "day %d", tt.day)
		assert.InDelta(t, tt.multiplier, d.RiskMultiplier, 1e-12, "day %d", tt.day)
		assert.Equal(t, tt.reason, d.Reason, "day %d", tt.day)
		assert.Equal(t, "SEMI", d.SectorID)

		assert.Equal(t, tt.allowed, g.IsAllowed("SEMI", day(tt.day)))
		assert.InDelta(t, tt.multiplier, g.RiskMultiplier("SEMI", day(tt.day)), 1e-12)
	}

	d := g.Decide("SEMI", day(8))
	assert.Equal(t, contracts.StageInZone, d.Stage)
	assert.Equal(t, "In-Zone", d.StageName)
}

func TestDecideMissing(t *testing.T) {
	t.Run("block on missing", func(t *testing.T) {
		g := newGate(nil)
		g.Load("SEMI", records(6))

		for _, d := range []contracts.GateDecision{
			g.Decide("UNKNOWN", day(0)),
			g.Decide("SEMI", day(5)),
		} {
			assert.False(t, d.Allowed)
			assert.Equal(t, contracts.PermissionBlock, d.Permission)
			assert.Zero(t, d.RiskMultiplier)
			assert.Equal(t, contracts.GateReasonMissingStage, d.Reason)
		}
	})

	t.Run("allow on missing", func(t *testing.T) {
		g := newGate(func(c *stageconfig.Config) { c.Gate.OnMissing = "allow" })

		d := g.Decide("UNKNOWN", day(0))
		assert.True(t, d.Allowed)
		assert.Equal(t, contracts.PermissionAllow, d.Permission)
		assert.Equal(t, 1.0, d.RiskMultiplier)
		assert.Equal(t, contracts.GateReasonMissingStage, d.Reason)
	})
}

func TestDecideDisabled(t *testing.T) {
	g := newGate(func(c *stageconfig.Config) { c.Gate.Enabled = false })
	g.Load("SEMI", records(2))

	d := g.Decide("SEMI", day(0))
	assert.True(t, d.Allowed)
	assert.Equal(t, 1.0, d.RiskMultiplier)
	assert.Equal(t, contracts.GateReasonDisabled, d.Reason)

	d = g.DecideForInstrument("005930", day(0))
	assert.True(t, d.Allowed)
	assert.Equal(t, contracts.GateReasonDisabled, d.Reason)
}

func TestDecideMinConsecutiveDays(t *testing.T) {
	g := newGate(func(c *stageconfig.Config) { c.Gate.MinConsecutiveDaysInAllow = 3 })
	// 5, 6 허용 → 3 차단 → 6, 8, 8, 9
	g.Load("SEMI", records(5, 6, 3, 6, 8, 8, 9))

	tests := []struct {
		day     int
		allowed bool
		reason  contracts.GateReason
	}{
		{0, false, contracts.GateReasonNotEnoughAllowDays},
		{1, false, contracts.GateReasonNotEnoughAllowDays},
		{2, false, contracts.GateReasonBlocked},
		{3, false, contracts.GateReasonNotEnoughAllowDays},
		{4, false, contracts.GateReasonNotEnoughAllowDays},
		{5, true, contracts.GateReasonAllowed},
		{6, true, contracts.GateReasonReduced},
	}

	for _, tt := range tests {
		d := g.Decide("SEMI", day(tt.day))
		assert.Equal(t, tt.allowed, d.Allowed, "day %d", tt.day)
		assert.Equal(t, tt.reason, d.Reason, "day %d", tt.day)
	}
}

func TestMinConsecutiveDaysUsesSectorTradingDates(t *testing.T) {
	g := newGate(func(c *stageconfig.Config) { c.Gate.MinConsecutiveDaysInAllow = 2 })

	// 주말을 건너뛴 거래일: 금요일 다음 월요일도 연속으로 집계
	friday := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	monday := friday.AddDate(0, 0, 3)
	g.Load("SEMI", []contracts.StageRecord{
		{Date: friday, Stage: contracts.StageInZone},
		{Date: monday, Stage: contracts.StageInZone},
	})

	assert.False(t, g.IsAllowed("SEMI", friday))
	assert.True(t, g.IsAllowed("SEMI", monday))
}

func TestLoadSortsAndReplaces(t *testing.T) {
	g := newGate(nil)

	recs := records(1, 6, 8)
	recs[0], recs[2] = recs[2], recs[0]
	g.Load("SEMI", recs)
	assert.Equal(t, contracts.StageInZone, g.Decide("SEMI", day(2)).Stage)
	assert.Equal(t, contracts.StageNotEligible, g.Decide("SEMI", day(0)).Stage)

	// 재실행 시 시퀀스 전체 교체
	g.Load("SEMI", records(3))
	assert.Equal(t, contracts.StageDowntrend, g.Decide("SEMI", day(0)).Stage)
	assert.Equal(t, contracts.GateReasonMissingStage, g.Decide("SEMI", day(2)).Reason)

	assert.Equal(t, []string{"SEMI"}, g.Sectors())
}

func TestDecideForInstrument(t *testing.T) {
	g := newGate(nil)
	g.Load("SEMI", records(8))
	g.Load("BIO", records(2))

	g.SetMembership([]contracts.SectorBasket{
		{ID: "SEMI", Members: []contracts.SectorMember{{Code: "005930", Weight: 0.6}, {Code: "000660", Weight: 0.4}}},
		{ID: "BIO", Members: []contracts.SectorMember{{Code: "207940", Weight: 0.7}, {Code: "000660", Weight: 0.3}}},
	})

	sector, ok := g.SectorOf("000660")
	require.True(t, ok)
	assert.Equal(t, "SEMI", sector, "heaviest membership wins")

	d := g.DecideForInstrument("005930", day(0))
	assert.True(t, d.Allowed)
	assert.Equal(t, "SEMI", d.SectorID)

	d = g.DecideForInstrument("207940", day(0))
	assert.False(t, d.Allowed)
	assert.Equal(t, "BIO", d.SectorID)
	assert.Equal(t, contracts.GateReasonBlocked, d.Reason)

	d = g.DecideForInstrument("999999", day(0))
	assert.False(t, d.Allowed)
	assert.Empty(t, d.SectorID)
	assert.Equal(t, contracts.GateReasonUnknownInstrument, d.Reason)
}

func TestSetMembershipTieBreak(t *testing.T) {
	g := newGate(nil)
	g.SetMembership([]contracts.SectorBasket{
		{ID: "ZETA", Members: []contracts.SectorMember{{Code: "X", Weight: 0.5}}},
		{ID: "ALPHA", Members: []contracts.SectorMember{{Code: "X", Weight: 0.5}}},
	})

	sector, ok := g.SectorOf("X")
	require.True(t, ok)
	assert.Equal(t, "ALPHA", sector)
}

func TestDecideAll(t *testing.T) {
	g := newGate(nil)
	g.Load("SEMI", records(6))
	g.Load("BIO", records(4))
	g.Load("AUTO", records(9))

	decisions := g.DecideAll(day(0))
	require.Len(t, decisions, 3)
	assert.Equal(t, "AUTO", decisions[0].SectorID)
	assert.Equal(t, "BIO", decisions[1].SectorID)
	assert.Equal(t, "SEMI", decisions[2].SectorID)
	assert.True(t, decisions[0].Allowed)
	assert.False(t, decisions[1].Allowed)
	assert.True(t, decisions[2].Allowed)
}

func TestGateConcurrentAccess(t *testing.T) {
	g := newGate(nil)
	g.Load("SEMI", records(6, 7, 8))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if w%4 == 0 {
					g.Load("SEMI", records(6, 7, 8))
					continue
				}
				assert.True(t, g.IsAllowed("SEMI", day(i%3)))
			}
		}(w)
	}
	wg.Wait()
}
