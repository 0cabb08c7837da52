package s4_gate

import (
	"sort"
	"sync"
	"time"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
	"github.com/wonny/stagegate/pkg/logger"
)

// Gate answers "may instruments of this sector be entered on this date?"
// ⭐ SSOT: 섹터 스테이지 → 허용/축소/차단 판단은 여기서만
// 읽기 위주 저장소 (RWMutex). Load는 섹터 시퀀스를 통째로 교체.
type Gate struct {
	mu      sync.RWMutex
	cfg     stageconfig.Gate
	sectors map[string]*sectorTrack
	members map[string]membership // instrument code → sector
	logger  *logger.Logger
}

// sectorTrack is one sector's stage sequence with a date index
type sectorTrack struct {
	records []contracts.StageRecord
	byDate  map[string]int
	// allowRun[i]: 날짜 i에서 끝나는 연속 허용(allow/reduce) 거래일 수
	allowRun []int
}

type membership struct {
	sectorID string
	weight   float64
}

// New creates an empty gate
func New(cfg *stageconfig.Config, log *logger.Logger) *Gate {
	return &Gate{
		cfg:     cfg.Gate,
		sectors: make(map[string]*sectorTrack),
		members: make(map[string]membership),
		logger:  log.Component("s4_gate"),
	}
}

// Load replaces the stage sequence of a sector
func (g *Gate) Load(sectorID string, records []contracts.StageRecord) {
	sorted := make([]contracts.StageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	track := &sectorTrack{
		records:  sorted,
		byDate:   make(map[string]int, len(sorted)),
		allowRun: make([]int, len(sorted)),
	}
	for i, r := range sorted {
		track.byDate[contracts.DateKey(r.Date)] = i

		if g.permissionOf(r) == contracts.PermissionBlock {
			continue
		}
		track.allowRun[i] = 1
		if i > 0 {
			track.allowRun[i] += track.allowRun[i-1]
		}
	}

	g.mu.Lock()
	g.sectors[sectorID] = track
	g.mu.Unlock()

	g.logger.WithFields(map[string]interface{}{
		"sector_id": sectorID,
		"records":   len(sorted),
	}).Debug("Loaded sector stages")
}

// SetMembership rebuilds the instrument → sector index.
// 여러 바스켓에 속한 종목은 가중치가 가장 큰 섹터에 매핑 (동률이면 ID 사전순)
func (g *Gate) SetMembership(baskets []contracts.SectorBasket) {
	members := make(map[string]membership)
	for _, b := range baskets {
		for _, m := range b.Members {
			cur, ok := members[m.Code]
			if !ok || m.Weight > cur.weight || (m.Weight == cur.weight && b.ID < cur.sectorID) {
				members[m.Code] = membership{sectorID: b.ID, weight: m.Weight}
			}
		}
	}

	g.mu.Lock()
	g.members = members
	g.mu.Unlock()

	g.logger.WithFields(map[string]interface{}{
		"baskets":     len(baskets),
		"instruments": len(members),
	}).Info("Sector membership updated")
}

// SectorOf returns the sector an instrument is mapped to
func (g *Gate) SectorOf(code string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m, ok := g.members[code]
	return m.sectorID, ok
}

// Sectors returns loaded sector IDs in order
func (g *Gate) Sectors() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.sectors))
	for id := range g.sectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsAllowed reports whether entries in the sector are permitted on date
func (g *Gate) IsAllowed(sectorID string, date time.Time) bool {
	return g.Decide(sectorID, date).Allowed
}

// RiskMultiplier returns the position-size multiplier (0 when blocked)
func (g *Gate) RiskMultiplier(sectorID string, date time.Time) float64 {
	return g.Decide(sectorID, date).RiskMultiplier
}

// Decide returns the full audit decision for a sector on a date
func (g *Gate) Decide(sectorID string, date time.Time) contracts.GateDecision {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.decide(sectorID, date)
}

// DecideForInstrument resolves the instrument's sector and decides on it
func (g *Gate) DecideForInstrument(code string, date time.Time) contracts.GateDecision {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m, ok := g.members[code]
	if !ok {
		if !g.cfg.Enabled {
			return g.disabled("", date)
		}
		d := g.missing("", date)
		d.Reason = contracts.GateReasonUnknownInstrument
		return d
	}
	return g.decide(m.sectorID, date)
}

// DecideAll returns decisions for every loaded sector, ordered by sector ID
func (g *Gate) DecideAll(date time.Time) []contracts.GateDecision {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.sectors))
	for id := range g.sectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	decisions := make([]contracts.GateDecision, 0, len(ids))
	for _, id := range ids {
		decisions = append(decisions, g.decide(id, date))
	}
	return decisions
}

// decide must be called with the read lock held
func (g *Gate) decide(sectorID string, date time.Time) contracts.GateDecision {
	if !g.cfg.Enabled {
		return g.disabled(sectorID, date)
	}

	track, ok := g.sectors[sectorID]
	if !ok {
		return g.missing(sectorID, date)
	}
	i, ok := track.byDate[contracts.DateKey(date)]
	if !ok {
		return g.missing(sectorID, date)
	}

	rec := track.records[i]
	d := contracts.GateDecision{
		SectorID:  sectorID,
		Date:      rec.Date,
		Stage:     rec.Stage,
		StageName: rec.Stage.String(),
	}

	// 워밍업 구간은 스테이지 1로 기록되지만 항상 차단
	if rec.InsufficientHistory {
		d.Permission = contracts.PermissionBlock
		d.Reason = contracts.GateReasonInsufficientHistory
		return d
	}

	rule, ok := g.cfg.Rule(rec.Stage)
	if !ok || rule.Permission == contracts.PermissionBlock {
		d.Permission = contracts.PermissionBlock
		d.Reason = contracts.GateReasonBlocked
		return d
	}

	if need := g.cfg.MinConsecutiveDaysInAllow; need > 1 && track.allowRun[i] < need {
		d.Permission = contracts.PermissionBlock
		d.Reason = contracts.GateReasonNotEnoughAllowDays
		return d
	}

	d.Allowed = true
	d.Permission = rule.Permission
	d.RiskMultiplier = rule.RiskMultiplier
	d.Reason = contracts.GateReasonAllowed
	if rule.Permission == contracts.PermissionReduce {
		d.Reason = contracts.GateReasonReduced
	}
	return d
}

// permissionOf maps a record to its configured permission, ignoring run length
func (g *Gate) permissionOf(r contracts.StageRecord) contracts.Permission {
	if r.InsufficientHistory {
		return contracts.PermissionBlock
	}
	rule, ok := g.cfg.Rule(r.Stage)
	if !ok {
		return contracts.PermissionBlock
	}
	return rule.Permission
}

func (g *Gate) disabled(sectorID string, date time.Time) contracts.GateDecision {
	return contracts.GateDecision{
		SectorID:       sectorID,
		Date:           date,
		Allowed:        true,
		Permission:     contracts.PermissionAllow,
		RiskMultiplier: 1.0,
		Reason:         contracts.GateReasonDisabled,
	}
}

func (g *Gate) missing(sectorID string, date time.Time) contracts.GateDecision {
	d := contracts.GateDecision{
		SectorID:   sectorID,
		Date:       date,
		Permission: contracts.PermissionBlock,
		Reason:     contracts.GateReasonMissingStage,
	}
	if g.cfg.OnMissing == "allow" {
		d.Allowed = true
		d.Permission = contracts.PermissionAllow
		d.RiskMultiplier = 1.0
	}
	return d
}
