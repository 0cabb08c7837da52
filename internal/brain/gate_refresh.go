package brain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/stagegate/pkg/logger"
)

// RunVersionReader reports the id of the newest stored run (analytics.stage_runs)
type RunVersionReader interface {
	LatestRunID(ctx context.Context) (int64, error)
}

// GateRefresher keeps an in-memory gate in step with runs stored by other processes.
// 스케줄러가 별도 프로세스에서 재분류하면 API 서버는 stage_runs ID 변경으로 감지해 재적재
type GateRefresher struct {
	orch     *Orchestrator
	runs     RunVersionReader
	lookback int // 달력일, 0 이하면 전체

	mu     sync.Mutex
	seen   int64
	loaded bool

	logger *logger.Logger
}

// NewGateRefresher creates a refresher loading lookbackDays of sector stages
func NewGateRefresher(orch *Orchestrator, runs RunVersionReader, lookbackDays int, log *logger.Logger) *GateRefresher {
	return &GateRefresher{
		orch:     orch,
		runs:     runs,
		lookback: lookbackDays,
		logger:   log.Component("gate_refresh"),
	}
}

// Refresh reloads the gate when a newer run was stored since the last load.
// 첫 호출은 항상 적재; 재적재 후 gate: 캐시를 비워 이전 판정이 남지 않게 함
func (r *GateRefresher) Refresh(ctx context.Context, today time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest, err := r.runs.LatestRunID(ctx)
	if err != nil {
		return false, err
	}
	if r.loaded && latest == r.seen {
		return false, nil
	}

	if err := r.orch.LoadGate(ctx, HistoryStart(today, r.lookback), today); err != nil {
		return false, fmt.Errorf("reload gate for run %d: %w", latest, err)
	}
	r.orch.invalidateCache(ctx, "gate:")

	r.logger.WithFields(map[string]interface{}{
		"run_id":   latest,
		"previous": r.seen,
		"sectors":  len(r.orch.gate.Sectors()),
	}).Info("Gate reloaded")

	r.seen = latest
	r.loaded = true
	return true, nil
}

// RunID returns the run id the gate was last loaded for
func (r *GateRefresher) RunID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen
}
