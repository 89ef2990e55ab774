package markets

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptodump/internal/algorithms/topk"
	domain "cryptodump/internal/domain/entity/markets"
	interfaces "cryptodump/internal/domain/interfaces"
)

var (
	ErrInvalidK     = errors.New("k must be positive")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Source lists what an exchange trades.
type Source interface {
	Name() string
	Tickers24h(ctx context.Context) ([]domain.Ticker, error)
	ExchangeInfo(ctx context.Context) ([]domain.SymbolInfo, error)
}

type Service struct {
	repo interfaces.MarketsRepository
	now  func() time.Time
}

func NewService(repo interfaces.MarketsRepository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// SelectTop returns the k tickers with the highest 24h quote volume, highest
// first. Equal volumes are ordered by symbol.
func SelectTop(tickers []domain.Ticker, k int) ([]domain.Ticker, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	board, err := topk.NewArray[domain.Ticker](k, compareTickers)
	if err != nil {
		return nil, err
	}
	for _, ticker := range tickers {
		board.Add(ticker)
	}
	return board.Descending(), nil
}

func compareTickers(a, b domain.Ticker) int {
	if c := cmp.Compare(a.QuoteVolume, b.QuoteVolume); c != 0 {
		return c
	}
	return cmp.Compare(b.Symbol, a.Symbol)
}

// Sync ranks the k most traded symbols of source quoted in quoteAsset (any
// quote when empty) that are currently trading, and upserts them.
func (s *Service) Sync(ctx context.Context, source Source, quoteAsset string, k int) ([]domain.Market, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	infos, err := source.ExchangeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	tickers, err := source.Tickers24h(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	quoteAsset = strings.ToUpper(strings.TrimSpace(quoteAsset))
	listed := make(map[string]domain.SymbolInfo, len(infos))
	for _, info := range infos {
		if info.Status != domain.StatusTrading {
			continue
		}
		if quoteAsset != "" && info.QuoteAsset != quoteAsset {
			continue
		}
		listed[info.Symbol] = info
	}

	candidates := make([]domain.Ticker, 0, len(listed))
	for _, ticker := range tickers {
		if _, ok := listed[ticker.Symbol]; ok {
			candidates = append(candidates, ticker)
		}
	}

	top, err := SelectTop(candidates, k)
	if err != nil {
		return nil, err
	}

	now := s.now()
	exchange := source.Name()
	result := make([]domain.Market, 0, len(top))
	for i, ticker := range top {
		info := listed[ticker.Symbol]
		result = append(result, domain.Market{
			UID:            domain.MarketUID(exchange, ticker.Symbol),
			Exchange:       exchange,
			Symbol:         ticker.Symbol,
			BaseAsset:      info.BaseAsset,
			QuoteAsset:     info.QuoteAsset,
			Status:         info.Status,
			QuoteVolume24h: ticker.QuoteVolume,
			Rank:           i + 1,
			UpdatedAt:      now,
		})
	}
	if err := s.repo.UpsertMarkets(ctx, result); err != nil {
		return nil, fmt.Errorf("upsert markets: %w", err)
	}
	return result, nil
}

func (s *Service) GetMarket(ctx context.Context, exchange, symbol string) (*domain.Market, error) {
	return s.repo.GetMarket(ctx, strings.ToLower(exchange), strings.ToUpper(symbol))
}

func (s *Service) ListMarkets(ctx context.Context, exchange string, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.ListMarkets(ctx, strings.ToLower(exchange), limit)
}

func (s *Service) Close() {
	s.repo.Close()
}
