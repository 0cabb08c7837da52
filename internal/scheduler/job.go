package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes the job; 실패 시 WithRetry 설정만큼 재시도
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression (with seconds)
	// Examples: "0 30 18 * * 1-5" (평일 18:30), "0 * * * * *" (매분)
	Schedule() string
}

// RunSummary is what a job reports about the work it did.
// 분류 작업은 시리즈 성공/실패 수, 게이트 갱신은 Detail로 결과를 남김
type RunSummary struct {
	AsOf       string `json:"as_of,omitempty"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	ConfigHash string `json:"config_hash,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type summaryKey struct{}

// summarySlot collects the summary of one scheduled execution (재시도 포함 마지막 보고가 유효)
type summarySlot struct {
	mu      sync.Mutex
	summary *RunSummary
}

func (s *summarySlot) set(sum RunSummary) {
	s.mu.Lock()
	s.summary = &sum
	s.mu.Unlock()
}

func (s *summarySlot) get() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// ReportSummary attaches a summary to the running job's result.
// 스케줄러 밖(직접 Run 호출)에서는 무시됨
func ReportSummary(ctx context.Context, sum RunSummary) {
	if slot, ok := ctx.Value(summaryKey{}).(*summarySlot); ok {
		slot.set(sum)
	}
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Summary   *RunSummary   `json:"summary,omitempty"`
}

// Degraded reports a run that finished but left some series unclassified
func (r JobResult) Degraded() bool {
	return r.Success && r.Summary != nil && r.Summary.Failed > 0
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory keeps the latest results of one job (오래된 것부터 삭제)
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// GetLatestResults returns the latest N results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns results that failed after all retries
func (h *JobHistory) GetFailedResults() []JobResult {
	return h.filter(func(r JobResult) bool { return !r.Success })
}

// GetDegradedResults returns successful results with failed series
func (h *JobHistory) GetDegradedResults() []JobResult {
	return h.filter(JobResult.Degraded)
}

func (h *JobHistory) filter(keep func(JobResult) bool) []JobResult {
	out := make([]JobResult, 0)
	for _, r := range h.Results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// GetSuccessRate returns the share of successful results (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	failed := len(h.GetFailedResults())
	return float64(len(h.Results)-failed) / float64(len(h.Results))
}

// SeriesTotals sums succeeded/failed series over the kept results
func (h *JobHistory) SeriesTotals() (succeeded, failed int) {
	for _, r := range h.Results {
		if r.Summary == nil {
			continue
		}
		succeeded += r.Summary.Succeeded
		failed += r.Summary.Failed
	}
	return succeeded, failed
}

// LastSummary returns the most recent reported summary, nil if none
func (h *JobHistory) LastSummary() *RunSummary {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Summary != nil {
			return h.Results[i].Summary
		}
	}
	return nil
}
