package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "cryptodump/internal/domain/entity/marketdata"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// Trades

var tradeColumns = []string{"trade_id", "exchange", "market", "side", "price", "size", "traded_at", "metadata"}

const insertTradeQuery = `
	INSERT INTO trades (trade_id, exchange, market, side, price, size, traded_at, metadata)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

func (r *Repository) AddTrade(ctx context.Context, trade *domain.Trade) error {
	if trade == nil {
		return errors.New("nil trade")
	}
	row, err := tradeRow(trade)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertTradeQuery, row...)
	return err
}

func (r *Repository) AddTrades(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(trades))
	for i := range trades {
		row, err := tradeRow(&trades[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"trades"}, tradeColumns, pgx.CopyFromRows(rows))
	return err
}

func tradeRow(trade *domain.Trade) ([]any, error) {
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	meta, err := marshalJSON(trade.Metadata)
	if err != nil {
		return nil, err
	}
	return []any{
		trade.ID,
		trade.Exchange,
		trade.Market,
		string(trade.Side),
		trade.Price,
		trade.Size,
		trade.TradedAt,
		meta,
	}, nil
}

func (r *Repository) GetTradesBetween(ctx context.Context, exchange, market string, from, to time.Time) ([]domain.Trade, error) {
	const query = `
		SELECT trade_id, exchange, market, side, price, size, traded_at, metadata
		FROM trades
		WHERE exchange=$1 AND market=$2 AND traded_at >= $3 AND traded_at <= $4
		ORDER BY traded_at ASC`
	rows, err := r.pool.Query(ctx, query, exchange, market, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTrade)
}

func (r *Repository) GetLastTrades(ctx context.Context, exchange, market string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	const query = `
		SELECT trade_id, exchange, market, side, price, size, traded_at, metadata
		FROM trades
		WHERE exchange=$1 AND market=$2
		ORDER BY traded_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, exchange, market, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTrade)
}

func scanTrade(row pgx.CollectableRow) (domain.Trade, error) {
	var metadataBytes []byte
	trade := domain.Trade{}
	err := row.Scan(
		&trade.ID,
		&trade.Exchange,
		&trade.Market,
		&trade.Side,
		&trade.Price,
		&trade.Size,
		&trade.TradedAt,
		&metadataBytes,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	meta, err := unmarshalMetadata(metadataBytes)
	if err != nil {
		return domain.Trade{}, err
	}
	trade.Metadata = meta
	return trade, nil
}

// Regrouped order books

var orderbookColumns = []string{
	"book_id",
	"exchange",
	"market",
	"snapshot_at",
	"depth",
	"bid_prices",
	"bid_sizes",
	"ask_prices",
	"ask_sizes",
}

const insertOrderbookQuery = `
	INSERT INTO regrouped_orderbooks (
		book_id, exchange, market, snapshot_at, depth,
		bid_prices, bid_sizes, ask_prices, ask_sizes
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

func (r *Repository) AddRegroupedOrderbook(ctx context.Context, book *domain.RegroupedOrderbook) error {
	if book == nil {
		return errors.New("nil regrouped order book")
	}
	_, err := r.pool.Exec(ctx, insertOrderbookQuery, orderbookRow(book)...)
	return err
}

func (r *Repository) AddRegroupedOrderbooks(ctx context.Context, books []domain.RegroupedOrderbook) error {
	if len(books) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(books))
	for i := range books {
		rows = append(rows, orderbookRow(&books[i]))
	}
	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"regrouped_orderbooks"}, orderbookColumns, pgx.CopyFromRows(rows))
	return err
}

// orderbookRow stores each side as two parallel float8[] columns.
func orderbookRow(book *domain.RegroupedOrderbook) []any {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	bidPrices, bidSizes := splitLevels(book.Bids)
	askPrices, askSizes := splitLevels(book.Asks)
	return []any{
		book.ID,
		book.Exchange,
		book.Market,
		book.Time,
		int32(book.Depth()),
		bidPrices,
		bidSizes,
		askPrices,
		askSizes,
	}
}

func (r *Repository) GetRegroupedOrderbooksBetween(ctx context.Context, exchange, market string, from, to time.Time) ([]domain.RegroupedOrderbook, error) {
	const query = `
		SELECT book_id, exchange, market, snapshot_at, bid_prices, bid_sizes, ask_prices, ask_sizes
		FROM regrouped_orderbooks
		WHERE exchange=$1
		  AND market=$2
		  AND snapshot_at >= $3
		  AND snapshot_at <= $4
		ORDER BY snapshot_at ASC`
	rows, err := r.pool.Query(ctx, query, exchange, market, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOrderbook)
}

func (r *Repository) GetLastRegroupedOrderbooks(ctx context.Context, exchange, market string, limit int) ([]domain.RegroupedOrderbook, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	const query = `
		SELECT book_id, exchange, market, snapshot_at, bid_prices, bid_sizes, ask_prices, ask_sizes
		FROM regrouped_orderbooks
		WHERE exchange=$1 AND market=$2
		ORDER BY snapshot_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, exchange, market, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOrderbook)
}

func scanOrderbook(row pgx.CollectableRow) (domain.RegroupedOrderbook, error) {
	var bidPrices, bidSizes, askPrices, askSizes []float64
	book := domain.RegroupedOrderbook{}
	err := row.Scan(
		&book.ID,
		&book.Exchange,
		&book.Market,
		&book.Time,
		&bidPrices,
		&bidSizes,
		&askPrices,
		&askSizes,
	)
	if err != nil {
		return domain.RegroupedOrderbook{}, err
	}
	if book.Bids, err = joinLevels(bidPrices, bidSizes); err != nil {
		return domain.RegroupedOrderbook{}, fmt.Errorf("book %s bids: %w", book.ID, err)
	}
	if book.Asks, err = joinLevels(askPrices, askSizes); err != nil {
		return domain.RegroupedOrderbook{}, fmt.Errorf("book %s asks: %w", book.ID, err)
	}
	return book, nil
}

// Funding

var fundingColumns = []string{"exchange", "market", "rate", "mark_price", "index_price", "next_funding_at", "observed_at"}

func (r *Repository) AddFundingRates(ctx context.Context, rates []domain.FundingRate) error {
	if len(rates) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"funding_rates"},
		fundingColumns,
		pgx.CopyFromSlice(len(rates), func(i int) ([]any, error) {
			rate := rates[i]
			return []any{
				rate.Exchange,
				rate.Market,
				rate.Rate,
				rate.MarkPrice,
				rate.IndexPrice,
				rate.NextFundingAt,
				rate.ObservedAt,
			}, nil
		}),
	)
	return err
}

func (r *Repository) GetLastFundingRates(ctx context.Context, exchange, market string, limit int) ([]domain.FundingRate, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	const query = `
		SELECT exchange, market, rate, mark_price, index_price, next_funding_at, observed_at
		FROM funding_rates
		WHERE exchange=$1 AND market=$2
		ORDER BY observed_at DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, exchange, market, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FundingRate, error) {
		var rate domain.FundingRate
		err := row.Scan(
			&rate.Exchange,
			&rate.Market,
			&rate.Rate,
			&rate.MarkPrice,
			&rate.IndexPrice,
			&rate.NextFundingAt,
			&rate.ObservedAt,
		)
		return rate, err
	})
}

// Helpers

func splitLevels(levels []domain.PriceSizePair) (prices, sizes []float64) {
	prices = make([]float64, len(levels))
	sizes = make([]float64, len(levels))
	for i, level := range levels {
		prices[i] = level.Price
		sizes[i] = level.Size
	}
	return prices, sizes
}

func joinLevels(prices, sizes []float64) ([]domain.PriceSizePair, error) {
	if len(prices) != len(sizes) {
		return nil, fmt.Errorf("%d prices for %d sizes", len(prices), len(sizes))
	}
	levels := make([]domain.PriceSizePair, len(prices))
	for i := range prices {
		levels[i] = domain.PriceSizePair{Price: prices[i], Size: sizes[i]}
	}
	return levels, nil
}

func marshalJSON(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalMetadata(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
