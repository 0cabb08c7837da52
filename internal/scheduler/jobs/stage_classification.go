package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stagegate/internal/brain"
	"github.com/wonny/stagegate/internal/scheduler"
	"github.com/wonny/stagegate/pkg/logger"
)

// StageRunner runs a classification pass (brain.Orchestrator)
type StageRunner interface {
	Run(ctx context.Context, rc brain.RunConfig) (*brain.RunResult, error)
}

// StageClassificationJob reclassifies every instrument and sector after the close
// ⭐ SSOT: 일별 스테이지 재분류 스케줄은 이 Job에서만
type StageClassificationJob struct {
	runner      StageRunner
	schedule    string
	workers     int
	historyDays int
	gitSHA      string
	loc         *time.Location
	now         func() time.Time
	logger      *logger.Logger
}

// NewStageClassificationJob creates a new stage classification job
func NewStageClassificationJob(runner StageRunner, schedule string, workers, historyDays int, gitSHA string, log *logger.Logger) *StageClassificationJob {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.Local
	}

	return &StageClassificationJob{
		runner:      runner,
		schedule:    schedule,
		workers:     workers,
		historyDays: historyDays,
		gitSHA:      gitSHA,
		loc:         loc,
		now:         time.Now,
		logger:      log.Component("stage_job"),
	}
}

// Name returns the job name
func (j *StageClassificationJob) Name() string {
	return "stage_classification"
}

// Schedule returns the cron schedule (PIPELINE_SCHEDULE, 기본 평일 18:30 KST)
func (j *StageClassificationJob) Schedule() string {
	return j.schedule
}

// Run executes the classification for today's trading date
func (j *StageClassificationJob) Run(ctx context.Context) error {
	asOf := tradingDate(j.now(), j.loc)

	j.logger.WithField("as_of", asOf.Format("2006-01-02")).Info("Starting scheduled stage classification")

	result, err := j.runner.Run(ctx, brain.RunConfig{
		AsOf:        asOf,
		HistoryDays: j.historyDays,
		Workers:     j.workers,
		GitSHA:      j.gitSHA,
		Instruments: true,
		Sectors:     true,
	})
	if err != nil {
		return fmt.Errorf("stage run: %w", err)
	}

	scheduler.ReportSummary(ctx, scheduler.RunSummary{
		AsOf:       asOf.Format("2006-01-02"),
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		ConfigHash: result.ConfigHash,
	})

	// 전 시리즈 실패는 저장소 장애로 보고 재시도
	if result.Succeeded == 0 && result.Failed > 0 {
		return fmt.Errorf("all %d series failed", result.Failed)
	}

	j.logger.WithFields(map[string]interface{}{
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"config_hash": result.ConfigHash,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Stage classification completed")

	return nil
}

// tradingDate returns the local calendar date of t as a UTC midnight (DB DATE 기준)
func tradingDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
