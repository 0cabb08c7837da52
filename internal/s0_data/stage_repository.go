package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/stageconfig"
)

// StageRepository implements contracts.StageRepository
// ⭐ SSOT: 스테이지 결과 저장은 여기서만 (시리즈 단위 전체 교체, 부분 수정 없음)
type StageRepository struct {
	pool *pgxpool.Pool
}

// NewStageRepository creates a new stage repository
func NewStageRepository(pool *pgxpool.Pool) *StageRepository {
	return &StageRepository{pool: pool}
}

var stageColumns = []string{
	"series_kind", "series_id", "trade_date", "stage",
	"reason_codes", "ever_dislocated", "insufficient_history", "config_hash",
}

// ReplaceSeries deletes and rewrites the whole sequence of one series in a transaction
func (r *StageRepository) ReplaceSeries(ctx context.Context, kind contracts.SeriesKind, seriesID, configHash string, records []contracts.StageRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM analytics.stage_records
		WHERE series_kind = $1 AND series_id = $2`,
		string(kind), seriesID)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, seriesID, err)
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		reasons := make([]string, len(rec.ReasonCodes))
		for j, c := range rec.ReasonCodes {
			reasons[j] = string(c)
		}
		rows[i] = []interface{}{
			string(kind), seriesID, rec.Date, int16(rec.Stage),
			reasons, rec.EverDislocated, rec.InsufficientHistory, configHash,
		}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"analytics", "stage_records"},
		stageColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy %s %s: %w", kind, seriesID, err)
	}
	if int(copied) != len(records) {
		return fmt.Errorf("copy %s %s: wrote %d of %d rows", kind, seriesID, copied, len(records))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetSeries retrieves stage records for a series within date range
func (r *StageRepository) GetSeries(ctx context.Context, kind contracts.SeriesKind, seriesID string, from, to time.Time) ([]contracts.StageRecord, error) {
	query := `
		SELECT trade_date, stage, reason_codes, ever_dislocated, insufficient_history
		FROM analytics.stage_records
		WHERE series_kind = $1 AND series_id = $2 AND trade_date BETWEEN $3 AND $4
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, string(kind), seriesID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query stages for %s: %w", seriesID, err)
	}
	defer rows.Close()

	var records []contracts.StageRecord
	for rows.Next() {
		var rec contracts.StageRecord
		var stage int16
		var reasons []string
		if err := rows.Scan(&rec.Date, &stage, &reasons, &rec.EverDislocated, &rec.InsufficientHistory); err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		rec.Stage = contracts.Stage(stage)
		rec.ReasonCodes = make([]contracts.ReasonCode, len(reasons))
		for i, c := range reasons {
			rec.ReasonCodes[i] = contracts.ReasonCode(c)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetLatest returns the most recent record of every series of a kind (API 조회용)
func (r *StageRepository) GetLatest(ctx context.Context, kind contracts.SeriesKind) (map[string]contracts.StageRecord, error) {
	query := `
		SELECT DISTINCT ON (series_id)
			series_id, trade_date, stage, reason_codes, ever_dislocated, insufficient_history
		FROM analytics.stage_records
		WHERE series_kind = $1
		ORDER BY series_id, trade_date DESC
	`

	rows, err := r.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query latest stages: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]contracts.StageRecord)
	for rows.Next() {
		var id string
		var rec contracts.StageRecord
		var stage int16
		var reasons []string
		if err := rows.Scan(&id, &rec.Date, &stage, &reasons, &rec.EverDislocated, &rec.InsufficientHistory); err != nil {
			return nil, fmt.Errorf("scan latest stage: %w", err)
		}
		rec.Stage = contracts.Stage(stage)
		rec.ReasonCodes = make([]contracts.ReasonCode, len(reasons))
		for i, c := range reasons {
			rec.ReasonCodes[i] = contracts.ReasonCode(c)
		}
		latest[id] = rec
	}
	return latest, rows.Err()
}

// SaveRun stores the config snapshot and outcome counts of one classification run
func (r *StageRepository) SaveRun(ctx context.Context, snap *stageconfig.RunSnapshot, succeeded, failed int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics.stage_runs
			(config_hash, config_version, config_yaml, git_commit, series_succeeded, series_failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.ConfigHash, snap.ConfigVersion, snap.ConfigYAML, snap.GitCommit, succeeded, failed, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("save run snapshot: %w", err)
	}
	return nil
}

// LatestRunID returns the id of the newest stored run, 0 when none.
// API 서버가 다른 프로세스의 재분류를 감지하는 버전 값
func (r *StageRepository) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM analytics.stage_runs`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("latest run id: %w", err)
	}
	return id, nil
}
