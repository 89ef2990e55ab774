package interfaces

import (
	"context"
	"time"

	marketdata "cryptodump/internal/domain/entity/marketdata"
)

type MarketDataRepository interface {
	AddTrade(ctx context.Context, trade *marketdata.Trade) error
	AddTrades(ctx context.Context, trades []marketdata.Trade) error
	GetTradesBetween(ctx context.Context, exchange, market string, from, to time.Time) ([]marketdata.Trade, error)
	GetLastTrades(ctx context.Context, exchange, market string, limit int) ([]marketdata.Trade, error)

	AddRegroupedOrderbook(ctx context.Context, book *marketdata.RegroupedOrderbook) error
	AddRegroupedOrderbooks(ctx context.Context, books []marketdata.RegroupedOrderbook) error
	GetRegroupedOrderbooksBetween(ctx context.Context, exchange, market string, from, to time.Time) ([]marketdata.RegroupedOrderbook, error)
	GetLastRegroupedOrderbooks(ctx context.Context, exchange, market string, limit int) ([]marketdata.RegroupedOrderbook, error)

	AddFundingRates(ctx context.Context, rates []marketdata.FundingRate) error
	GetLastFundingRates(ctx context.Context, exchange, market string, limit int) ([]marketdata.FundingRate, error)

	Close()
}
