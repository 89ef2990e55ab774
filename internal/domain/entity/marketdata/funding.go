package marketdata

import "time"

// FundingRate is one perpetual-swap funding observation.
type FundingRate struct {
	Exchange      string    `json:"exchange"`
	Market        string    `json:"market"`
	Rate          float64   `json:"rate"`
	MarkPrice     float64   `json:"mark_price"`
	IndexPrice    float64   `json:"index_price"`
	NextFundingAt time.Time `json:"next_funding_at"`
	ObservedAt    time.Time `json:"observed_at"`
}

// MarketLiquidity summarizes the resting notional of a regrouped order book.
type MarketLiquidity struct {
	Exchange    string    `json:"exchange"`
	Market      string    `json:"market"`
	BidNotional float64   `json:"bid_notional"`
	AskNotional float64   `json:"ask_notional"`
	ObservedAt  time.Time `json:"observed_at"`
}

func (l MarketLiquidity) Score() float64 {
	return l.BidNotional + l.AskNotional
}
