package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/s1_indicators"
	"github.com/wonny/stagegate/internal/s2_stages"
	"github.com/wonny/stagegate/internal/s3_sector"
	"github.com/wonny/stagegate/internal/s4_gate"
	"github.com/wonny/stagegate/internal/stageconfig"
	"github.com/wonny/stagegate/pkg/logger"
	"github.com/wonny/stagegate/pkg/metrics"
	"github.com/wonny/stagegate/pkg/redis"
)

// RunRepository stores run snapshots (재현성 감사용)
type RunRepository interface {
	SaveRun(ctx context.Context, snap *stageconfig.RunSnapshot, succeeded, failed int) error
}

// Orchestrator coordinates the stage pipeline
// S0(로드/검증) → S1(지표) → S2(스테이지) → S3(섹터 합성) → S4(게이트 적재)
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	bars    contracts.BarRepository
	baskets contracts.BasketRepository
	stages  contracts.StageRepository
	runs    RunRepository // optional

	gate    *s4_gate.Gate
	cache   *redis.Cache // optional
	metrics *metrics.Recorder

	cfg        *stageconfig.Config
	configYAML []byte
	configHash string

	logger *logger.Logger
}

// Deps groups the collaborators of an Orchestrator
type Deps struct {
	Bars    contracts.BarRepository
	Baskets contracts.BasketRepository
	Stages  contracts.StageRepository
	Runs    RunRepository
	Gate    *s4_gate.Gate
	Cache   *redis.Cache
	Metrics *metrics.Recorder
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	AsOf        time.Time // 마지막 분류 날짜 (포함)
	HistoryDays int       // AsOf 이전 로드할 달력일 수, 0 이하면 첫 바부터 전체
	Workers     int
	GitSHA      string
	Codes       []string // 비어있으면 전체 종목
	Instruments bool     // 종목 분류 실행
	Sectors     bool     // 섹터 합성/분류 실행
	DryRun      bool     // 저장 생략
}

// SeriesResult is the outcome of one series
type SeriesResult struct {
	Kind    contracts.SeriesKind    `json:"kind"`
	ID      string                  `json:"id"`
	Records int                     `json:"records"`
	Latest  *contracts.StageRecord  `json:"latest,omitempty"`
	Counts  map[contracts.Stage]int `json:"counts,omitempty"`
	Err     error                   `json:"-"`
	Error   string                  `json:"error,omitempty"`

	stages []contracts.StageRecord
	bars   []contracts.Bar
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	ConfigHash  string         `json:"config_hash"`
	AsOf        time.Time      `json:"as_of"`
	Instruments []SeriesResult `json:"instruments"`
	Sectors     []SeriesResult `json:"sectors"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Duration    time.Duration  `json:"duration"`
}

// NewOrchestrator creates a new orchestrator.
// configYAML은 실행 스냅샷에 그대로 저장됨 (nil 허용)
func NewOrchestrator(deps Deps, cfg *stageconfig.Config, configYAML []byte, log *logger.Logger) (*Orchestrator, error) {
	if deps.Bars == nil || deps.Stages == nil || deps.Gate == nil {
		return nil, errors.New("orchestrator requires bar, stage repositories and a gate")
	}

	hash, err := stageconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}

	return &Orchestrator{
		bars:       deps.Bars,
		baskets:    deps.Baskets,
		stages:     deps.Stages,
		runs:       deps.Runs,
		gate:       deps.Gate,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		cfg:        cfg,
		configYAML: configYAML,
		configHash: hash,
		logger:     log.Component("brain"),
	}, nil
}

// HistoryStart returns the first date to load for a run; zero time means full history.
// 상태(EverDislocated, EMA)는 시리즈 첫 바부터 누적되므로 기본은 전체 이력
func HistoryStart(asOf time.Time, historyDays int) time.Time {
	if historyDays <= 0 {
		return time.Time{}
	}
	return asOf.AddDate(0, 0, -historyDays)
}

func historyLabel(from time.Time) string {
	if from.IsZero() {
		return "full"
	}
	return contracts.DateKey(from)
}

// ConfigHash returns the hash of the active stage config
func (o *Orchestrator) ConfigHash() string {
	return o.configHash
}

// Run classifies every requested series and reloads the gate
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	start := time.Now()
	from := HistoryStart(rc.AsOf, rc.HistoryDays)

	result := &RunResult{
		ConfigHash: o.configHash,
		AsOf:       rc.AsOf,
	}

	o.logger.WithFields(map[string]interface{}{
		"as_of":       contracts.DateKey(rc.AsOf),
		"from":        historyLabel(from),
		"workers":     rc.Workers,
		"config_hash": o.configHash,
		"instruments": rc.Instruments,
		"sectors":     rc.Sectors,
		"dry_run":     rc.DryRun,
	}).Info("Starting stage run")

	var memberBars map[string][]contracts.Bar

	if rc.Instruments {
		codes := rc.Codes
		if len(codes) == 0 {
			var err error
			codes, err = o.bars.ListCodes(ctx)
			if err != nil {
				return result, fmt.Errorf("list codes: %w", err)
			}
		}

		result.Instruments = o.runInstruments(ctx, codes, from, rc)
		memberBars = make(map[string][]contracts.Bar, len(result.Instruments))
		for i := range result.Instruments {
			r := &result.Instruments[i]
			if r.bars != nil {
				memberBars[r.ID] = r.bars
			}
			r.bars = nil
		}
	}

	if rc.Sectors {
		if o.baskets == nil {
			return result, errors.New("sector run requires a basket repository")
		}
		baskets, err := o.baskets.ListBaskets(ctx)
		if err != nil {
			return result, fmt.Errorf("list baskets: %w", err)
		}
		o.gate.SetMembership(baskets)

		result.Sectors = o.runSectors(ctx, baskets, memberBars, from, rc)
	}

	for _, r := range append(append([]SeriesResult{}, result.Instruments...), result.Sectors...) {
		if r.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	result.Duration = time.Since(start)

	if !rc.DryRun {
		o.afterRun(ctx, rc, result)
	}

	o.metrics.ObserveRun("stage_run", result.Duration.Seconds())
	o.logger.WithFields(map[string]interface{}{
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"instruments": len(result.Instruments),
		"sectors":     len(result.Sectors),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Stage run completed")

	return result, nil
}

// runInstruments classifies instruments in parallel
func (o *Orchestrator) runInstruments(ctx context.Context, codes []string, from time.Time, rc RunConfig) []SeriesResult {
	jobs := make([]job, len(codes))
	for i, code := range codes {
		jobs[i] = job{
			kind: contracts.SeriesInstrument,
			id:   code,
			run: func(ctx context.Context, workerID int) SeriesResult {
				return o.classifyInstrument(ctx, workerID, code, from, rc)
			},
		}
	}

	start := time.Now()
	results := runPool(ctx, rc.Workers, jobs)
	o.metrics.ObserveRun("classify_instruments", time.Since(start).Seconds())
	return results
}

func (o *Orchestrator) classifyInstrument(ctx context.Context, workerID int, code string, from time.Time, rc RunConfig) SeriesResult {
	log := o.logger.WithSeries(string(contracts.SeriesInstrument), code).WithField("worker", workerID)

	bars, err := o.bars.GetRange(ctx, code, from, rc.AsOf)
	if err != nil {
		return o.fail(log, contracts.StepData, contracts.SeriesInstrument, code, fmt.Errorf("load bars: %w", err))
	}

	res := o.classify(ctx, log, contracts.Series{Kind: contracts.SeriesInstrument, ID: code, Bars: bars}, rc.DryRun)
	if res.Err == nil {
		res.bars = bars
	}
	return res
}

// runSectors aggregates and classifies sector baskets in parallel, then loads the gate
func (o *Orchestrator) runSectors(ctx context.Context, baskets []contracts.SectorBasket, memberBars map[string][]contracts.Bar, from time.Time, rc RunConfig) []SeriesResult {
	jobs := make([]job, len(baskets))
	for i := range baskets {
		basket := baskets[i]
		jobs[i] = job{
			kind: contracts.SeriesSector,
			id:   basket.ID,
			run: func(ctx context.Context, workerID int) SeriesResult {
				return o.classifySector(ctx, workerID, &basket, memberBars, from, rc)
			},
		}
	}

	start := time.Now()
	results := runPool(ctx, rc.Workers, jobs)
	o.metrics.ObserveRun("classify_sectors", time.Since(start).Seconds())

	for i := range results {
		r := &results[i]
		if r.Err == nil {
			o.gate.Load(r.ID, r.stages)
			if r.Latest != nil {
				o.metrics.SetSectorStage(r.ID, int(r.Latest.Stage))
			}
		}
		r.stages = nil
	}
	return results
}

func (o *Orchestrator) classifySector(ctx context.Context, workerID int, basket *contracts.SectorBasket, memberBars map[string][]contracts.Bar, from time.Time, rc RunConfig) SeriesResult {
	log := o.logger.WithSeries(string(contracts.SeriesSector), basket.ID).WithField("worker", workerID)

	bars := make(map[string][]contracts.Bar, len(basket.Members))
	for _, m := range basket.Members {
		if b, ok := memberBars[m.Code]; ok {
			bars[m.Code] = b
			continue
		}
		// 종목 단계를 건너뛴 경우 직접 로드
		b, err := o.bars.GetRange(ctx, m.Code, from, rc.AsOf)
		if err != nil {
			return o.fail(log, contracts.StepData, contracts.SeriesSector, basket.ID, fmt.Errorf("load member %s: %w", m.Code, err))
		}
		bars[m.Code] = b
	}

	series, err := s3_sector.Aggregate(basket, bars, o.cfg)
	if err != nil {
		return o.fail(log, contracts.StepSector, contracts.SeriesSector, basket.ID, err)
	}

	stats := s3_sector.Coverage(series)
	o.metrics.RecordSectorCoverage(basket.ID, stats.Median, stats.LowCoverage)
	if stats.LowCoverage > 0 || stats.Skipped > 0 {
		log.WithFields(map[string]interface{}{
			"low_coverage_days": stats.LowCoverage,
			"skipped_days":      stats.Skipped,
			"coverage_min":      stats.Min,
			"coverage_median":   stats.Median,
		}).Warn("Sector coverage below threshold")
	}

	return o.classify(ctx, log, contracts.Series{Kind: contracts.SeriesSector, ID: basket.ID, Bars: series.PlainBars()}, rc.DryRun)
}

// classify runs S1 → S2 for one series and replaces its stored sequence
func (o *Orchestrator) classify(ctx context.Context, log *logger.Logger, series contracts.Series, dryRun bool) SeriesResult {
	records, err := ClassifySeries(series, o.cfg)
	if err != nil {
		return o.fail(log, contracts.StepStages, series.Kind, series.ID, err)
	}

	if !dryRun {
		if err := o.stages.ReplaceSeries(ctx, series.Kind, series.ID, o.configHash, records); err != nil {
			return o.fail(log, contracts.StepData, series.Kind, series.ID, fmt.Errorf("save stages: %w", err))
		}
	}

	counts := s2_stages.Summary(records)
	byStage := make(map[int]int, len(counts))
	for s, n := range counts {
		byStage[int(s)] = n
	}
	o.metrics.RecordStageCounts(string(series.Kind), byStage)

	latest := records[len(records)-1]
	log.WithFields(map[string]interface{}{
		"records":      len(records),
		"latest_date":  contracts.DateKey(latest.Date),
		"latest_stage": int(latest.Stage),
		"dislocated":   latest.EverDislocated,
	}).Debug("Series classified")

	return SeriesResult{
		Kind:    series.Kind,
		ID:      series.ID,
		Records: len(records),
		Latest:  &latest,
		Counts:  counts,
		stages:  records,
	}
}

// fail records a per-series failure; 입력 오류는 어느 단계에서 나든 S0으로 분류
func (o *Orchestrator) fail(log *logger.Logger, step contracts.PipelineStep, kind contracts.SeriesKind, id string, err error) SeriesResult {
	reason := "error"
	var serr *contracts.SeriesError
	if errors.As(err, &serr) {
		reason = "malformed_input"
		step = contracts.StepData
	}
	o.metrics.RecordSeriesError(string(kind), reason)
	log.WithError(err).WithFields(map[string]interface{}{
		"step":        step.ShortName(),
		"step_detail": step.Description(),
	}).Error("Series failed")

	return SeriesResult{Kind: kind, ID: id, Err: err, Error: err.Error()}
}

// afterRun stores the run snapshot and drops cached answers of the previous run
func (o *Orchestrator) afterRun(ctx context.Context, rc RunConfig, result *RunResult) {
	if o.runs != nil {
		snap, err := stageconfig.NewRunSnapshot(o.cfg, o.configYAML, rc.GitSHA)
		if err == nil {
			err = o.runs.SaveRun(ctx, snap, result.Succeeded, result.Failed)
		}
		if err != nil {
			o.logger.WithError(err).Warn("Failed to save run snapshot")
		}
	}

	o.invalidateCache(ctx, "gate:", "stage:")
}

// invalidateCache drops cached answers under the given key prefixes
func (o *Orchestrator) invalidateCache(ctx context.Context, prefixes ...string) {
	if o.cache == nil {
		return
	}
	for _, prefix := range prefixes {
		n, err := o.cache.Invalidate(ctx, prefix)
		if err != nil {
			o.logger.WithError(err).Warn("Failed to invalidate cache")
			continue
		}
		if n > 0 {
			o.logger.WithFields(map[string]interface{}{
				"prefix": prefix,
				"keys":   n,
			}).Debug("Cache invalidated")
		}
	}
}

// LoadGate fills the gate from stored sector stages without recomputing.
// API 서버에서는 GateRefresher를 통해 호출
func (o *Orchestrator) LoadGate(ctx context.Context, from, to time.Time) error {
	if o.baskets == nil {
		return errors.New("gate load requires a basket repository")
	}
	baskets, err := o.baskets.ListBaskets(ctx)
	if err != nil {
		return fmt.Errorf("list baskets: %w", err)
	}
	o.gate.SetMembership(baskets)

	loaded := 0
	for _, b := range baskets {
		records, err := o.stages.GetSeries(ctx, contracts.SeriesSector, b.ID, from, to)
		if err != nil {
			return fmt.Errorf("load sector %s: %w", b.ID, err)
		}
		if len(records) == 0 {
			continue
		}
		o.gate.Load(b.ID, records)
		loaded++
	}

	o.logger.WithFields(map[string]interface{}{
		"baskets": len(baskets),
		"loaded":  loaded,
	}).Info("Gate loaded from stored stages")
	return nil
}

// ClassifySeries runs the indicator engine and the classifier on one series.
// ⭐ SSOT: S1 → S2 연결은 여기서만 (순수 함수)
func ClassifySeries(series contracts.Series, cfg *stageconfig.Config) ([]contracts.StageRecord, error) {
	snaps, err := s1_indicators.ComputeSeries(series, cfg)
	if err != nil {
		return nil, err
	}

	records, err := s2_stages.Classify(snaps, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", series.Kind, series.ID, err)
	}
	return records, nil
}
