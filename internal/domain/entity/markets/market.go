package markets

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusTrading Status = "TRADING"
	StatusHalted  Status = "HALT"
	StatusBreak   Status = "BREAK"
)

// marketNamespace seeds the stable market UIDs.
var marketNamespace = uuid.MustParse("6f1c2b7e-3d4a-4c55-9a61-0b8e2f4d7c19")

// Market corresponds to a row of the `markets` table.
type Market struct {
	UID            uuid.UUID `json:"uid"`
	Exchange       string    `json:"exchange"`
	Symbol         string    `json:"symbol"`
	BaseAsset      string    `json:"base_asset"`
	QuoteAsset     string    `json:"quote_asset"`
	Status         Status    `json:"status"`
	QuoteVolume24h float64   `json:"quote_volume_24h"`
	Rank           int       `json:"rank"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MarketUID derives the same UID for an exchange/symbol pair on every run.
func MarketUID(exchange, symbol string) uuid.UUID {
	key := strings.ToLower(exchange) + ":" + strings.ToUpper(symbol)
	return uuid.NewSHA1(marketNamespace, []byte(key))
}

// Ticker is a 24h rolling summary for one symbol.
type Ticker struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	QuoteVolume float64 `json:"quote_volume"`
}

// SymbolInfo describes a listed symbol as reported by the exchange.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	Status     Status `json:"status"`
}
