package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만
// 코어(S1~S4)는 I/O를 하지 않으며, 저장소는 오케스트레이터만 사용

// BarRepository loads daily bars
type BarRepository interface {
	ListCodes(ctx context.Context) ([]string, error)
	GetRange(ctx context.Context, code string, from, to time.Time) ([]Bar, error)
}

// BasketRepository loads sector baskets and their weights
type BasketRepository interface {
	ListBaskets(ctx context.Context) ([]SectorBasket, error)
}

// StageRepository persists stage sequences.
// ReplaceSeries swaps the whole sequence of a series atomically; records are never patched.
type StageRepository interface {
	ReplaceSeries(ctx context.Context, kind SeriesKind, seriesID, configHash string, records []StageRecord) error
	GetSeries(ctx context.Context, kind SeriesKind, seriesID string, from, to time.Time) ([]StageRecord, error)
}
