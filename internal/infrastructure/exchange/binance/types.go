package binance

import (
	"fmt"
	"strings"
	"time"

	"cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/domain/entity/markets"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeName is the exchange label stored with every entity from this
// client.
const ExchangeName = "binance"

var tradeNamespace = uuid.MustParse("0d3f5a52-8c3b-4b8e-a1f4-7e2c9b6d5a10")

// APIError is an error response from the REST API.
type APIError struct {
	Status int    `json:"-"`
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: status %d code %d: %s", e.Status, e.Code, e.Msg)
}

type depthResponse struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

type tickerResponse struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

type premiumIndexResponse struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
	Time            int64  `json:"time"`
}

// aggTrade is the payload of the <symbol>@aggTrade stream.
type aggTrade struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	AggID     int64  `json:"a"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
	IsMaker   bool   `json:"m"`
}

type combinedMessage struct {
	Stream string   `json:"stream"`
	Data   aggTrade `json:"data"`
}

func parseNumber(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return d.InexactFloat64(), nil
}

func parseLevels(raw [][2]string) ([]marketdata.PriceSizePair, error) {
	levels := make([]marketdata.PriceSizePair, 0, len(raw))
	for _, level := range raw {
		price, err := parseNumber(level[0])
		if err != nil {
			return nil, err
		}
		size, err := parseNumber(level[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, marketdata.PriceSizePair{Price: price, Size: size})
	}
	return levels, nil
}

func (d depthResponse) toOrderbook(symbol string, at time.Time) (*marketdata.GroupedOrderbook, error) {
	bids, err := parseLevels(d.Bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(d.Asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	return &marketdata.GroupedOrderbook{
		Exchange: ExchangeName,
		Market:   symbol,
		Time:     at,
		Bids:     bids,
		Asks:     asks,
	}, nil
}

func (t tickerResponse) toTicker() (markets.Ticker, error) {
	last, err := parseNumber(t.LastPrice)
	if err != nil {
		return markets.Ticker{}, err
	}
	volume, err := parseNumber(t.QuoteVolume)
	if err != nil {
		return markets.Ticker{}, err
	}
	return markets.Ticker{Symbol: t.Symbol, LastPrice: last, QuoteVolume: volume}, nil
}

func (p premiumIndexResponse) toFundingRate() (marketdata.FundingRate, error) {
	rate, err := parseNumber(p.LastFundingRate)
	if err != nil {
		return marketdata.FundingRate{}, err
	}
	mark, err := parseNumber(p.MarkPrice)
	if err != nil {
		return marketdata.FundingRate{}, err
	}
	index, err := parseNumber(p.IndexPrice)
	if err != nil {
		return marketdata.FundingRate{}, err
	}
	return marketdata.FundingRate{
		Exchange:      ExchangeName,
		Market:        p.Symbol,
		Rate:          rate,
		MarkPrice:     mark,
		IndexPrice:    index,
		NextFundingAt: time.UnixMilli(p.NextFundingTime).UTC(),
		ObservedAt:    time.UnixMilli(p.Time).UTC(),
	}, nil
}

// toTrade maps an aggregated trade. The buyer being the maker means the taker
// sold. IDs derive from the aggregate trade id so replays deduplicate.
func (a aggTrade) toTrade() (*marketdata.Trade, error) {
	price, err := parseNumber(a.Price)
	if err != nil {
		return nil, err
	}
	size, err := parseNumber(a.Quantity)
	if err != nil {
		return nil, err
	}
	side := marketdata.TradeSideBuy
	if a.IsMaker {
		side = marketdata.TradeSideSell
	}
	key := fmt.Sprintf("%s:%s:%d", ExchangeName, a.Symbol, a.AggID)
	return &marketdata.Trade{
		ID:       uuid.NewSHA1(tradeNamespace, []byte(key)),
		Exchange: ExchangeName,
		Market:   a.Symbol,
		Side:     side,
		Price:    price,
		Size:     size,
		TradedAt: time.UnixMilli(a.TradeTime).UTC(),
		Metadata: map[string]any{"agg_id": a.AggID},
	}, nil
}
