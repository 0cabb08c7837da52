package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stagegate/internal/contracts"
)

// BarRepository implements contracts.BarRepository
// ⭐ SSOT: 일봉 데이터 조회는 여기서만 (수집은 외부 시스템 책임)
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a new bar repository
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// ListCodes returns every instrument code with at least one bar
func (r *BarRepository) ListCodes(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT stock_code
		FROM data.daily_prices
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GetRange retrieves bars for a code within date range, ascending.
// 정렬만 보장하며 중복/역순 검증은 ValidateSeries 담당
func (r *BarRepository) GetRange(ctx context.Context, code string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT trade_date, open_price::float8, high_price::float8, low_price::float8, close_price::float8, volume::float8
		FROM data.daily_prices
		WHERE stock_code = $1
		  AND ($2::date IS NULL OR trade_date >= $2::date)
		  AND trade_date <= $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, lowerBound(from), to)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", code, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar for %s: %w", code, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetRangeMany retrieves bars for several codes (섹터 구성 종목용)
func (r *BarRepository) GetRangeMany(ctx context.Context, codes []string, from, to time.Time) (map[string][]contracts.Bar, error) {
	query := `
		SELECT stock_code, trade_date, open_price::float8, high_price::float8, low_price::float8, close_price::float8, volume::float8
		FROM data.daily_prices
		WHERE stock_code = ANY($1)
		  AND ($2::date IS NULL OR trade_date >= $2::date)
		  AND trade_date <= $3
		ORDER BY stock_code, trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, codes, lowerBound(from), to)
	if err != nil {
		return nil, fmt.Errorf("query member bars: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]contracts.Bar, len(codes))
	for rows.Next() {
		var code string
		var b contracts.Bar
		if err := rows.Scan(&code, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan member bar: %w", err)
		}
		result[code] = append(result[code], b)
	}
	return result, rows.Err()
}

// lowerBound maps a zero from-date to NULL (첫 바부터 전체 조회)
func lowerBound(from time.Time) interface{} {
	if from.IsZero() {
		return nil
	}
	return from
}
