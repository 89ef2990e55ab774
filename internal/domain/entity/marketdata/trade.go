package marketdata

import (
	"time"

	"github.com/google/uuid"
)

// TradeSide represents BUY/SELL direction from the taker's point of view.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade models a single executed trade.
type Trade struct {
	ID       uuid.UUID      `json:"id"`
	Exchange string         `json:"exchange"`
	Market   string         `json:"market"`
	Side     TradeSide      `json:"side"`
	Price    float64        `json:"price"`
	Size     float64        `json:"size"`
	TradedAt time.Time      `json:"traded_at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
