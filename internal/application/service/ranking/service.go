package ranking

import (
	"cmp"
	"errors"
	"math"
	"sync"

	"cryptodump/internal/algorithms/topk"
	marketdata "cryptodump/internal/domain/entity/marketdata"
)

var ErrInvalidK = errors.New("k must be positive")

type marketKey struct {
	exchange string
	market   string
}

// Service keeps the latest funding rate and liquidity per market and ranks
// them on demand. A fresh Top-K is built for each query, so reads never
// block on a shared store.
type Service struct {
	mu        sync.RWMutex
	funding   map[marketKey]marketdata.FundingRate
	liquidity map[marketKey]marketdata.MarketLiquidity
}

func NewService() *Service {
	return &Service{
		funding:   make(map[marketKey]marketdata.FundingRate),
		liquidity: make(map[marketKey]marketdata.MarketLiquidity),
	}
}

// ObserveFunding records rates, ignoring observations older than the one
// already held for the same market.
func (s *Service) ObserveFunding(rates ...marketdata.FundingRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rate := range rates {
		key := marketKey{rate.Exchange, rate.Market}
		if prev, ok := s.funding[key]; ok && rate.ObservedAt.Before(prev.ObservedAt) {
			continue
		}
		s.funding[key] = rate
	}
}

func (s *Service) ObserveLiquidity(entries ...marketdata.MarketLiquidity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		key := marketKey{entry.Exchange, entry.Market}
		if prev, ok := s.liquidity[key]; ok && entry.ObservedAt.Before(prev.ObservedAt) {
			continue
		}
		s.liquidity[key] = entry
	}
}

// TopFunding returns up to k markets with the largest absolute funding rate,
// largest first.
func (s *Service) TopFunding(k int) ([]marketdata.FundingRate, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	board, err := topk.New[marketdata.FundingRate](k, compareFunding)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	for _, rate := range s.funding {
		board.Add(rate)
	}
	s.mu.RUnlock()
	return board.Descending(), nil
}

// TopLiquidity returns up to k markets with the most resting notional,
// largest first.
func (s *Service) TopLiquidity(k int) ([]marketdata.MarketLiquidity, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	board, err := topk.NewArray[marketdata.MarketLiquidity](k, compareLiquidity)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	for _, entry := range s.liquidity {
		board.Add(entry)
	}
	s.mu.RUnlock()
	return board.Descending(), nil
}

// Ties fall back to exchange and market so rankings do not depend on map
// iteration order.
func compareFunding(a, b marketdata.FundingRate) int {
	if c := cmp.Compare(math.Abs(a.Rate), math.Abs(b.Rate)); c != 0 {
		return c
	}
	return compareNames(a.Exchange, a.Market, b.Exchange, b.Market)
}

func compareLiquidity(a, b marketdata.MarketLiquidity) int {
	if c := cmp.Compare(a.Score(), b.Score()); c != 0 {
		return c
	}
	return compareNames(a.Exchange, a.Market, b.Exchange, b.Market)
}

// compareNames ranks alphabetically earlier names higher.
func compareNames(exchangeA, marketA, exchangeB, marketB string) int {
	if c := cmp.Compare(exchangeB, exchangeA); c != 0 {
		return c
	}
	return cmp.Compare(marketB, marketA)
}
