package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stagegate/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // 처음 N번 실패
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond))
}

func TestAddAndRemoveJob(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "stage_classification", schedule: "0 30 18 * * 1-5"}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate name")
	assert.Equal(t, []string{"stage_classification"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("stage_classification"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("stage_classification"))
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob(&countingJob{name: "bad", schedule: "not a cron"})
	assert.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRunJobRetries(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), job.calls.Load())

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
}

func TestRunJobGivesUp(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)
	assert.Equal(t, int32(3), job.calls.Load(), "1 attempt + 2 retries")

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Zero(t, stats.SuccessRate)
	require.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	_, err := s.RunJob("missing")
	assert.Error(t, err)

	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestNextRunAndStop(t *testing.T) {
	s := New(logger.Nop(), WithLocation(time.UTC))
	require.NoError(t, s.AddJob(&countingJob{name: "daily", schedule: "0 0 0 * * *"}))

	s.Start()
	next, err := s.NextRun("daily")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 0, next.Hour())

	s.Stop()
}

func TestNextRunBeforeStart(t *testing.T) {
	s := New(logger.Nop(), WithLocation(time.UTC))
	require.NoError(t, s.AddJob(&countingJob{name: "daily", schedule: "0 30 18 * * *"}))

	next, err := s.NextRun("daily")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 18, next.Hour())
	assert.Equal(t, 30, next.Minute())

	stats := s.GetJobStats()["daily"]
	require.NotNil(t, stats.NextRun)
	assert.Equal(t, next, *stats.NextRun)
}

func TestJobHistoryBounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
}

type reportingJob struct {
	countingJob
	summaries []RunSummary // 호출 순서대로 보고
}

func (j *reportingJob) Run(ctx context.Context) error {
	n := int(j.calls.Load())
	if n < len(j.summaries) {
		ReportSummary(ctx, j.summaries[n])
	}
	return j.countingJob.Run(ctx)
}

func TestRunJobRecordsSummary(t *testing.T) {
	s := newTestScheduler()
	job := &reportingJob{
		countingJob: countingJob{name: "stage_classification", schedule: "@daily", failures: 1},
		summaries: []RunSummary{
			{AsOf: "2024-03-04", Failed: 12},
			{AsOf: "2024-03-04", Succeeded: 10, Failed: 2, ConfigHash: "abc"},
		},
	}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("stage_classification")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 10, result.Summary.Succeeded, "last attempt wins")
	assert.Equal(t, 2, result.Summary.Failed)
	assert.True(t, result.Degraded())

	stats := s.GetJobStats()["stage_classification"]
	assert.Equal(t, 10, stats.SeriesSucceeded)
	assert.Equal(t, 2, stats.SeriesFailed)
	assert.Equal(t, 1, stats.DegradedCount)
	require.NotNil(t, stats.LastSummary)
	assert.Equal(t, "abc", stats.LastSummary.ConfigHash)
}

func TestRunJobWithoutSummary(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "plain", schedule: "@daily"}))

	result, err := s.RunJob("plain")
	require.NoError(t, err)
	assert.Nil(t, result.Summary)
	assert.False(t, result.Degraded())
	assert.Equal(t, 1, result.Attempts)
}

func TestReportSummaryOutsideScheduler(t *testing.T) {
	assert.NotPanics(t, func() {
		ReportSummary(context.Background(), RunSummary{Succeeded: 1})
	})
}

func TestJobHistorySummaries(t *testing.T) {
	h := &JobHistory{}
	assert.Nil(t, h.LastSummary())

	h.AddResult(JobResult{Success: true, Summary: &RunSummary{Succeeded: 5}})
	h.AddResult(JobResult{Success: true, Summary: &RunSummary{Succeeded: 4, Failed: 1}})
	h.AddResult(JobResult{Success: false, Error: "db down"})

	ok, failed := h.SeriesTotals()
	assert.Equal(t, 9, ok)
	assert.Equal(t, 1, failed)
	assert.Len(t, h.GetDegradedResults(), 1)
	assert.Len(t, h.GetFailedResults(), 1)
	require.NotNil(t, h.LastSummary())
	assert.Equal(t, 4, h.LastSummary().Succeeded)
	assert.Empty(t, h.GetLatestResults(0))
}
