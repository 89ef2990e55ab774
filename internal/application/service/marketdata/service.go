package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptodump/internal/algorithms/regroup"
	marketdata "cryptodump/internal/domain/entity/marketdata"
	interfaces "cryptodump/internal/domain/interfaces"
	"cryptodump/internal/infrastructure/metrics"

	"github.com/google/uuid"
)

var (
	ErrNilTrade      = errors.New("trade is nil")
	ErrNilOrderBook  = errors.New("order book is nil")
	ErrMissingMarket = errors.New("exchange and market are required")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrRegroup       = errors.New("regroup order book")
)

// Leaderboard receives the latest observations used for rankings.
type Leaderboard interface {
	ObserveFunding(rates ...marketdata.FundingRate)
	ObserveLiquidity(entries ...marketdata.MarketLiquidity)
}

type Service struct {
	repo      interfaces.MarketDataRepository
	regrouper *regroup.Algorithm
	board     Leaderboard
	now       func() time.Time
}

// NewService wires the repository with the regrouping algorithm. board may be
// nil when rankings are not served.
func NewService(repo interfaces.MarketDataRepository, regrouper *regroup.Algorithm, board Leaderboard) *Service {
	return &Service{
		repo:      repo,
		regrouper: regrouper,
		board:     board,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Order books

// Regroup compresses a raw snapshot into fixed-width buckets and records its
// resting notional on the leaderboard. Nothing is persisted.
func (s *Service) Regroup(book *marketdata.GroupedOrderbook) (*marketdata.RegroupedOrderbook, error) {
	if book == nil {
		return nil, ErrNilOrderBook
	}
	if err := checkMarket(book.Exchange, book.Market); err != nil {
		return nil, err
	}
	start := time.Now()
	regrouped, err := s.regrouper.Create(book)
	if err != nil {
		metrics.RegroupErrorsTotal.Inc()
		return nil, fmt.Errorf("%w %s/%s: %w", ErrRegroup, book.Exchange, book.Market, err)
	}
	metrics.RegroupLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.OrderbooksRegroupedTotal.WithLabelValues(book.Exchange).Inc()

	regrouped.ID = uuid.New()
	if regrouped.Time.IsZero() {
		regrouped.Time = s.now()
	}
	if s.board != nil {
		bid, ask := regrouped.Notional()
		s.board.ObserveLiquidity(marketdata.MarketLiquidity{
			Exchange:    regrouped.Exchange,
			Market:      regrouped.Market,
			BidNotional: bid,
			AskNotional: ask,
			ObservedAt:  regrouped.Time,
		})
	}
	return &regrouped, nil
}

// RegroupAndStore regroups book and persists the result.
func (s *Service) RegroupAndStore(ctx context.Context, book *marketdata.GroupedOrderbook) (*marketdata.RegroupedOrderbook, error) {
	regrouped, err := s.Regroup(book)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddRegroupedOrderbook(ctx, regrouped); err != nil {
		return nil, err
	}
	return regrouped, nil
}

func (s *Service) AddRegroupedOrderbook(ctx context.Context, book *marketdata.RegroupedOrderbook) error {
	if book == nil {
		return ErrNilOrderBook
	}
	return s.repo.AddRegroupedOrderbook(ctx, book)
}

func (s *Service) AddRegroupedOrderbooks(ctx context.Context, books []marketdata.RegroupedOrderbook) error {
	if len(books) == 0 {
		return nil
	}
	return s.repo.AddRegroupedOrderbooks(ctx, books)
}

func (s *Service) GetRegroupedOrderbooksBetween(ctx context.Context, exchange, market string, from, to time.Time) ([]marketdata.RegroupedOrderbook, error) {
	if err := checkMarket(exchange, market); err != nil {
		return nil, err
	}
	if from.After(to) {
		from, to = to, from
	}
	return s.repo.GetRegroupedOrderbooksBetween(ctx, exchange, market, from, to)
}

func (s *Service) GetLastRegroupedOrderbooks(ctx context.Context, exchange, market string, limit int) ([]marketdata.RegroupedOrderbook, error) {
	if err := checkMarket(exchange, market); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.GetLastRegroupedOrderbooks(ctx, exchange, market, limit)
}

// Trades

func (s *Service) AddTrade(ctx context.Context, trade *marketdata.Trade) error {
	if trade == nil {
		return ErrNilTrade
	}
	if err := checkMarket(trade.Exchange, trade.Market); err != nil {
		return err
	}
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	return s.repo.AddTrade(ctx, trade)
}

func (s *Service) AddTrades(ctx context.Context, trades []marketdata.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	for i := range trades {
		if trades[i].ID == uuid.Nil {
			trades[i].ID = uuid.New()
		}
	}
	return s.repo.AddTrades(ctx, trades)
}

func (s *Service) GetTradesBetween(ctx context.Context, exchange, market string, from, to time.Time) ([]marketdata.Trade, error) {
	if err := checkMarket(exchange, market); err != nil {
		return nil, err
	}
	if from.After(to) {
		from, to = to, from
	}
	return s.repo.GetTradesBetween(ctx, exchange, market, from, to)
}

func (s *Service) GetLastTrades(ctx context.Context, exchange, market string, limit int) ([]marketdata.Trade, error) {
	if err := checkMarket(exchange, market); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.GetLastTrades(ctx, exchange, market, limit)
}

// Funding

// AddFundingRates persists rates and feeds the funding leaderboard.
func (s *Service) AddFundingRates(ctx context.Context, rates []marketdata.FundingRate) error {
	if len(rates) == 0 {
		return nil
	}
	if s.board != nil {
		s.board.ObserveFunding(rates...)
	}
	return s.repo.AddFundingRates(ctx, rates)
}

func (s *Service) GetLastFundingRates(ctx context.Context, exchange, market string, limit int) ([]marketdata.FundingRate, error) {
	if err := checkMarket(exchange, market); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.GetLastFundingRates(ctx, exchange, market, limit)
}

func (s *Service) Close() {
	s.repo.Close()
}

func checkMarket(exchange, market string) error {
	if strings.TrimSpace(exchange) == "" || strings.TrimSpace(market) == "" {
		return ErrMissingMarket
	}
	return nil
}
