package markets

import (
	"context"
	"errors"
	"fmt"

	domain "cryptodump/internal/domain/entity/markets"
	interfaces "cryptodump/internal/domain/interfaces"

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

const (
	marketColumns = `uid, exchange, symbol, base_asset, quote_asset, status, quote_volume_24h, rank, updated_at`

	upsertMarketQuery = `
		INSERT INTO markets (` + marketColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (exchange, symbol) DO UPDATE
		SET base_asset=EXCLUDED.base_asset,
			quote_asset=EXCLUDED.quote_asset,
			status=EXCLUDED.status,
			quote_volume_24h=EXCLUDED.quote_volume_24h,
			rank=EXCLUDED.rank,
			updated_at=EXCLUDED.updated_at`

	// Markets that fell out of the ranking keep their row but lose their rank.
	resetRanksQuery = `UPDATE markets SET rank=0 WHERE exchange=$1`
)

// UpsertMarkets replaces the ranking of every exchange present in markets.
func (r *Repository) UpsertMarkets(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		seen := make(map[string]struct{})
		for _, m := range markets {
			if _, ok := seen[m.Exchange]; ok {
				continue
			}
			seen[m.Exchange] = struct{}{}
			batch.Queue(resetRanksQuery, m.Exchange)
		}
		for _, m := range markets {
			batch.Queue(upsertMarketQuery,
				m.UID,
				m.Exchange,
				m.Symbol,
				m.BaseAsset,
				m.QuoteAsset,
				string(m.Status),
				m.QuoteVolume24h,
				m.Rank,
				m.UpdatedAt,
			)
		}
		results := tx.SendBatch(ctx, batch)
		for range batch.Len() {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert markets: %w", err)
			}
		}
		return results.Close()
	})
}

func (r *Repository) GetMarket(ctx context.Context, exchange, symbol string) (*domain.Market, error) {
	const query = `SELECT ` + marketColumns + ` FROM markets WHERE exchange=$1 AND symbol=$2`
	rows, err := r.pool.Query(ctx, query, exchange, symbol)
	if err != nil {
		return nil, err
	}
	market, err := pgx.CollectExactlyOneRow(rows, scanMarket)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("market %s/%s: %w", exchange, symbol, interfaces.ErrNotFound)
		}
		return nil, err
	}
	return &market, nil
}

func (r *Repository) ListMarkets(ctx context.Context, exchange string, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	const query = `
		SELECT ` + marketColumns + `
		FROM markets
		WHERE ($1 = '' OR exchange=$1) AND rank > 0
		ORDER BY rank ASC, exchange ASC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, exchange, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMarket)
}

func scanMarket(row pgx.CollectableRow) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.UID,
		&m.Exchange,
		&m.Symbol,
		&m.BaseAsset,
		&m.QuoteAsset,
		&m.Status,
		&m.QuoteVolume24h,
		&m.Rank,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *Repository) withTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
