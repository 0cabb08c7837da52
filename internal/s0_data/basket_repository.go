package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stagegate/internal/contracts"
)

// BasketRepository implements contracts.BasketRepository
type BasketRepository struct {
	pool *pgxpool.Pool
}

// NewBasketRepository creates a new basket repository
func NewBasketRepository(pool *pgxpool.Pool) *BasketRepository {
	return &BasketRepository{pool: pool}
}

// ListBaskets returns every sector basket with its members
func (r *BasketRepository) ListBaskets(ctx context.Context) ([]contracts.SectorBasket, error) {
	query := `
		SELECT b.sector_id, b.name, m.stock_code, m.weight
		FROM data.sector_baskets b
		JOIN data.sector_members m ON m.sector_id = b.sector_id
		ORDER BY b.sector_id, m.weight DESC, m.stock_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query baskets: %w", err)
	}
	defer rows.Close()

	var baskets []contracts.SectorBasket
	for rows.Next() {
		var id, name string
		var m contracts.SectorMember
		if err := rows.Scan(&id, &name, &m.Code, &m.Weight); err != nil {
			return nil, fmt.Errorf("scan basket member: %w", err)
		}

		if n := len(baskets); n == 0 || baskets[n-1].ID != id {
			baskets = append(baskets, contracts.SectorBasket{ID: id, Name: name})
		}
		last := &baskets[len(baskets)-1]
		last.Members = append(last.Members, m)
	}
	return baskets, rows.Err()
}

// SaveBasket replaces a basket definition (멤버 전체 교체)
func (r *BasketRepository) SaveBasket(ctx context.Context, basket *contracts.SectorBasket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO data.sector_baskets (sector_id, name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (sector_id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = NOW()`,
		basket.ID, basket.Name)
	batch.Queue(`DELETE FROM data.sector_members WHERE sector_id = $1`, basket.ID)
	for _, m := range basket.Members {
		batch.Queue(`
			INSERT INTO data.sector_members (sector_id, stock_code, weight)
			VALUES ($1, $2, $3)`,
			basket.ID, m.Code, m.Weight)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("save basket %s: %w", basket.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
