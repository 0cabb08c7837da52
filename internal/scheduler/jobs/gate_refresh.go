package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stagegate/internal/scheduler"
	"github.com/wonny/stagegate/pkg/logger"
)

// GateRefresher reloads the gate when a newer run is stored (brain.GateRefresher)
type GateRefresher interface {
	Refresh(ctx context.Context, today time.Time) (bool, error)
	RunID() int64
}

// GateRefreshJob polls stored runs from inside the API process
type GateRefreshJob struct {
	refresher GateRefresher
	schedule  string
	loc       *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// NewGateRefreshJob creates a new gate refresh job
func NewGateRefreshJob(refresher GateRefresher, schedule string, log *logger.Logger) *GateRefreshJob {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.Local
	}

	return &GateRefreshJob{
		refresher: refresher,
		schedule:  schedule,
		loc:       loc,
		now:       time.Now,
		logger:    log.Component("gate_refresh_job"),
	}
}

// Name returns the job name
func (j *GateRefreshJob) Name() string {
	return "gate_refresh"
}

// Schedule returns the cron schedule (GATE_REFRESH_SCHEDULE, 기본 매분)
func (j *GateRefreshJob) Schedule() string {
	return j.schedule
}

// Run reloads the gate if the scheduler stored a new run
func (j *GateRefreshJob) Run(ctx context.Context) error {
	today := tradingDate(j.now(), j.loc)

	reloaded, err := j.refresher.Refresh(ctx, today)
	if err != nil {
		return fmt.Errorf("refresh gate: %w", err)
	}

	detail := "unchanged"
	if reloaded {
		detail = fmt.Sprintf("reloaded run %d", j.refresher.RunID())
		j.logger.WithField("as_of", today.Format("2006-01-02")).Debug("Gate refreshed")
	}
	scheduler.ReportSummary(ctx, scheduler.RunSummary{
		AsOf:   today.Format("2006-01-02"),
		Detail: detail,
	})
	return nil
}
