package interfaces

import (
	"context"
	"errors"

	domain "cryptodump/internal/domain/entity/markets"
)

type MarketsRepository interface {
	UpsertMarkets(ctx context.Context, markets []domain.Market) error
	GetMarket(ctx context.Context, exchange, symbol string) (*domain.Market, error)
	// ListMarkets returns markets ordered by rank; an empty exchange matches all.
	ListMarkets(ctx context.Context, exchange string, limit int) ([]domain.Market, error)
	Close()
}

// ErrNotFound is returned, possibly wrapped, when a requested row does not
// exist.
var ErrNotFound = errors.New("not found")
