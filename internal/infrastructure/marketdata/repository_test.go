package marketdata

import (
	"testing"

	domain "cryptodump/internal/domain/entity/marketdata"

	"github.com/google/uuid"
)

func TestSplitAndJoinLevels(t *testing.T) {
	levels := []domain.PriceSizePair{{Price: 1, Size: 2}, {Price: 3, Size: 4}}
	prices, sizes := splitLevels(levels)
	if len(prices) != 2 || prices[1] != 3 || sizes[0] != 2 {
		t.Fatalf("unexpected split %v %v", prices, sizes)
	}
	joined, err := joinLevels(prices, sizes)
	if err != nil {
		t.Fatal(err)
	}
	if joined[0] != levels[0] || joined[1] != levels[1] {
		t.Fatalf("unexpected join %v", joined)
	}
	if _, err := joinLevels([]float64{1}, nil); err == nil {
		t.Fatal("expected error for mismatched columns")
	}
}

func TestOrderbookRowAssignsID(t *testing.T) {
	book := &domain.RegroupedOrderbook{
		Exchange: "binance",
		Market:   "BTCUSDT",
		Bids:     make([]domain.PriceSizePair, 25),
		Asks:     make([]domain.PriceSizePair, 25),
	}
	row := orderbookRow(book)
	if book.ID == uuid.Nil {
		t.Fatal("expected generated ID")
	}
	if len(row) != len(orderbookColumns) {
		t.Fatalf("row has %d values for %d columns", len(row), len(orderbookColumns))
	}
	if depth := row[4].(int32); depth != 25 {
		t.Fatalf("expected depth 25, got %d", depth)
	}
}

func TestTradeRowEncodesMetadata(t *testing.T) {
	trade := &domain.Trade{Side: domain.TradeSideBuy, Metadata: map[string]any{"agg_id": 7}}
	row, err := tradeRow(trade)
	if err != nil {
		t.Fatal(err)
	}
	if len(row) != len(tradeColumns) {
		t.Fatalf("row has %d values for %d columns", len(row), len(tradeColumns))
	}
	meta, err := unmarshalMetadata(row[7].([]byte))
	if err != nil {
		t.Fatal(err)
	}
	if meta["agg_id"].(float64) != 7 {
		t.Fatalf("unexpected metadata %v", meta)
	}
}
