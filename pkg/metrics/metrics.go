package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes pipeline and API metrics to Prometheus.
// nil Recorder는 모든 호출을 무시 (METRICS_ENABLED=false)
type Recorder struct {
	stageAssignments *prometheus.CounterVec
	latestStage      *prometheus.GaugeVec
	seriesErrors     *prometheus.CounterVec
	sectorCoverage   *prometheus.GaugeVec
	lowCoverageDays  *prometheus.CounterVec
	gateDecisions    *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a recorder registered on reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		stageAssignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagegate_stage_assignments_total",
				Help: "Daily stage records produced, by series kind and stage",
			},
			[]string{"kind", "stage"},
		),
		latestStage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stagegate_sector_latest_stage",
				Help: "Stage of the most recent classified date per sector",
			},
			[]string{"sector"},
		),
		seriesErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagegate_series_errors_total",
				Help: "Series rejected or failed during a run",
			},
			[]string{"kind", "reason"},
		),
		sectorCoverage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stagegate_sector_coverage_median",
				Help: "Median per-date weight coverage of a sector basket",
			},
			[]string{"sector"},
		),
		lowCoverageDays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagegate_sector_low_coverage_days_total",
				Help: "Sector dates aggregated below the minimum coverage",
			},
			[]string{"sector"},
		),
		gateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagegate_gate_decisions_total",
				Help: "Gate decisions served, by permission and reason",
			},
			[]string{"permission", "reason"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stagegate_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagegate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stagegate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route", "method"},
		),
	}
}

// RecordStage counts one stage record
func (r *Recorder) RecordStage(kind string, stage int) {
	if r == nil {
		return
	}
	r.stageAssignments.WithLabelValues(kind, strconv.Itoa(stage)).Inc()
}

// RecordStageCounts adds a per-stage summary of one series
func (r *Recorder) RecordStageCounts(kind string, counts map[int]int) {
	if r == nil {
		return
	}
	for stage, n := range counts {
		r.stageAssignments.WithLabelValues(kind, strconv.Itoa(stage)).Add(float64(n))
	}
}

// SetSectorStage records the latest stage of a sector
func (r *Recorder) SetSectorStage(sector string, stage int) {
	if r == nil {
		return
	}
	r.latestStage.WithLabelValues(sector).Set(float64(stage))
}

// RecordSeriesError counts a rejected or failed series
func (r *Recorder) RecordSeriesError(kind, reason string) {
	if r == nil {
		return
	}
	r.seriesErrors.WithLabelValues(kind, reason).Inc()
}

// RecordSectorCoverage records coverage statistics of one aggregation
func (r *Recorder) RecordSectorCoverage(sector string, median float64, lowDays int) {
	if r == nil {
		return
	}
	r.sectorCoverage.WithLabelValues(sector).Set(median)
	if lowDays > 0 {
		r.lowCoverageDays.WithLabelValues(sector).Add(float64(lowDays))
	}
}

// RecordGateDecision counts one gate decision
func (r *Recorder) RecordGateDecision(permission, reason string) {
	if r == nil {
		return
	}
	r.gateDecisions.WithLabelValues(permission, reason).Inc()
}

// ObserveRun records the duration of a pipeline operation
func (r *Recorder) ObserveRun(op string, seconds float64) {
	if r == nil {
		return
	}
	r.runDuration.WithLabelValues(op).Observe(seconds)
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(seconds)
}
