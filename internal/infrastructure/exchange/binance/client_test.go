package binance

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cryptodump/internal/config"
	"cryptodump/internal/domain/entity/markets"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewClient(config.BinanceConfig{
		SpotURL:           srv.URL,
		FuturesURL:        srv.URL,
		StreamURL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		RequestsPerSecond: 1000,
		MaxRetries:        3,
		RequestTimeout:    time.Second,
	}, logger)
	c.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestDepth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/depth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("expected upper-cased symbol, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("expected limit 100, got %q", got)
		}
		_, _ = io.WriteString(w, `{"lastUpdateId":1,"bids":[["64999.90","0.5"],["64999.10","1.25"]],"asks":[["65000.00","0.010"]]}`)
	}))

	book, err := c.Depth(context.Background(), "btcusdt", 100)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if book.Exchange != ExchangeName || book.Market != "BTCUSDT" {
		t.Fatalf("unexpected identity %s/%s", book.Exchange, book.Market)
	}
	if !book.Time.Equal(c.now()) {
		t.Fatalf("expected snapshot time from clock, got %v", book.Time)
	}
	if len(book.Bids) != 2 || book.Bids[1].Price != 64999.10 || book.Bids[1].Size != 1.25 {
		t.Fatalf("unexpected bids %+v", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Price != 65000 || book.Asks[0].Size != 0.01 {
		t.Fatalf("unexpected asks %+v", book.Asks)
	}
}

func TestDepthRejectsMalformedLevel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"bids":[["abc","1"]],"asks":[]}`)
	}))
	if _, err := c.Depth(context.Background(), "BTCUSDT", 5); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[{"symbol":"ETHUSDT","lastPrice":"3100.5","quoteVolume":"123456.7"}]`)
	}))

	tickers, err := c.Tickers24h(context.Background())
	if err != nil {
		t.Fatalf("tickers: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	want := markets.Ticker{Symbol: "ETHUSDT", LastPrice: 3100.5, QuoteVolume: 123456.7}
	if len(tickers) != 1 || tickers[0] != want {
		t.Fatalf("unexpected tickers %+v", tickers)
	}
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Tickers24h(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 APIError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))

	_, err := c.Depth(context.Background(), "NOPE", 5)
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if !IsNotRetryable(err) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != -1121 || apiErr.Msg != "Invalid symbol." {
		t.Fatalf("expected decoded API error, got %v", err)
	}
}

func TestTickersSkipsUnparsable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"symbol":"BAD","lastPrice":"x","quoteVolume":"1"},{"symbol":"BTCUSDT","lastPrice":"1","quoteVolume":"2"}]`)
	}))
	tickers, err := c.Tickers24h(context.Background())
	if err != nil {
		t.Fatalf("tickers: %v", err)
	}
	if len(tickers) != 1 || tickers[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected tickers %+v", tickers)
	}
}

func TestExchangeInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"symbols":[{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"}]}`)
	}))
	infos, err := c.ExchangeInfo(context.Background())
	if err != nil {
		t.Fatalf("exchange info: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(infos))
	}
	if infos[0].Status != markets.StatusTrading || infos[1].Status != markets.StatusBreak {
		t.Fatalf("unexpected statuses %+v", infos)
	}
}

func TestPremiumIndexSkipsDeliveryContracts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/premiumIndex" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[
			{"symbol":"BTCUSDT","markPrice":"65000.1","indexPrice":"64990.0","lastFundingRate":"0.00010000","nextFundingTime":1714564800000,"time":1714560000000},
			{"symbol":"BTCUSDT_240628","markPrice":"66000","indexPrice":"64990.0","lastFundingRate":"","nextFundingTime":0,"time":1714560000000}
		]`)
	}))

	rates, err := c.PremiumIndex(context.Background())
	if err != nil {
		t.Fatalf("premium index: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("expected 1 perpetual, got %+v", rates)
	}
	r := rates[0]
	if r.Market != "BTCUSDT" || r.Rate != 0.0001 || r.MarkPrice != 65000.1 {
		t.Fatalf("unexpected rate %+v", r)
	}
	if !r.NextFundingAt.Equal(time.UnixMilli(1714564800000)) {
		t.Fatalf("unexpected next funding %v", r.NextFundingAt)
	}
}

func TestRequestHonoursContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.PremiumIndex(ctx); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
