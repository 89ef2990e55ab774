package broker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"cryptodump/internal/config"
	domain "cryptodump/internal/domain/entity/marketdata"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeService struct {
	mu       sync.Mutex
	trades   []domain.Trade
	books    []domain.RegroupedOrderbook
	funding  []domain.FundingRate
	flushErr error
}

func (f *fakeService) AddTrades(_ context.Context, trades []domain.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, trades...)
	return f.flushErr
}

func (f *fakeService) AddRegroupedOrderbooks(_ context.Context, books []domain.RegroupedOrderbook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books = append(f.books, books...)
	return f.flushErr
}

func (f *fakeService) AddFundingRates(_ context.Context, rates []domain.FundingRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funding = append(f.funding, rates...)
	return f.flushErr
}

func (f *fakeService) Regroup(book *domain.GroupedOrderbook) (*domain.RegroupedOrderbook, error) {
	if book.Market == "" {
		return nil, errors.New("market required")
	}
	return &domain.RegroupedOrderbook{Exchange: book.Exchange, Market: book.Market, Time: book.Time}, nil
}

func (f *fakeService) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trades), len(f.books), len(f.funding)
}

func TestBatchWriterFlushesOnSize(t *testing.T) {
	svc := &fakeService{}
	w := NewBatchWriter(BatchConfig{Size: 2}, svc, quietLogger())
	w.Run(context.Background())

	if err := w.AddTrade(&domain.Trade{Market: "A"}); err != nil {
		t.Fatal(err)
	}
	if trades, _, _ := svc.counts(); trades != 0 {
		t.Fatalf("flushed too early: %d", trades)
	}
	if err := w.AddTrade(&domain.Trade{Market: "B"}); err != nil {
		t.Fatal(err)
	}
	if trades, _, _ := svc.counts(); trades != 2 {
		t.Fatalf("expected 2 flushed trades, got %d", trades)
	}
}

func TestBatchWriterFlushesOnTimeout(t *testing.T) {
	svc := &fakeService{}
	w := NewBatchWriter(BatchConfig{Size: 100, Timeout: 20 * time.Millisecond}, svc, quietLogger())
	w.Run(context.Background())

	if err := w.AddFunding(&domain.FundingRate{Market: "BTCUSDT"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, funding := svc.counts(); funding == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timeout flush did not happen")
}

func TestBatchWriterStopDrainsAndJoinsErrors(t *testing.T) {
	svc := &fakeService{flushErr: errors.New("db down")}
	w := NewBatchWriter(BatchConfig{Size: 100}, svc, quietLogger())
	w.Run(context.Background())
	_ = w.AddTrade(&domain.Trade{})
	_ = w.AddOrderBook(&domain.RegroupedOrderbook{})

	err := w.Stop(context.Background())
	if err == nil {
		t.Fatal("expected joined flush error")
	}
	if trades, books, _ := svc.counts(); trades != 1 || books != 1 {
		t.Fatalf("expected drained buffers, got %d trades %d books", trades, books)
	}
}

func TestBatchWriterRejectsBeforeRun(t *testing.T) {
	w := NewBatchWriter(BatchConfig{Size: 1}, &fakeService{}, quietLogger())
	if err := w.AddTrade(&domain.Trade{}); err == nil {
		t.Fatal("expected error before Run")
	}
	if err := w.AddTrade(nil); err == nil {
		t.Fatal("expected error for nil trade")
	}
}

func TestHandleDelivery(t *testing.T) {
	svc := &fakeService{}
	c, err := NewConsumer(config.RabbitMQConfig{URL: "amqp://test", BatchSize: 1}, svc, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	c.batcher.Run(context.Background())

	body, err := encodeMessage(BaseMessage{Orderbook: &domain.GroupedOrderbook{Exchange: "binance", Market: "BTCUSDT"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.handleDelivery(streamOrderBook, body); err != nil {
		t.Fatalf("handleDelivery: %v", err)
	}
	if _, books, _ := svc.counts(); books != 1 {
		t.Fatalf("expected regrouped book to be flushed, got %d", books)
	}

	if err := c.handleDelivery(streamTrade, []byte("{not json")); !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed, got %v", err)
	}
	if err := c.handleDelivery(streamTrade, body); !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed for mismatched payload, got %v", err)
	}
	bad, _ := encodeMessage(BaseMessage{Orderbook: &domain.GroupedOrderbook{}})
	if err := c.handleDelivery(streamOrderBook, bad); !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed for rejected book, got %v", err)
	}
}

type fakeChannel struct {
	declared  []string
	published map[string][][]byte
	closed    bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	if kind != "fanout" {
		return errors.New("unexpected exchange kind")
	}
	f.declared = append(f.declared, name)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	if f.published == nil {
		f.published = make(map[string][][]byte)
	}
	f.published[exchange] = append(f.published[exchange], msg.Body)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherRoutesByExchange(t *testing.T) {
	cfg := config.RabbitMQConfig{
		TradesExchange:     "t",
		OrderBooksExchange: "o",
		FundingExchange:    "f",
	}
	ch := &fakeChannel{}
	pub, err := newPublisher(ch, cfg, quietLogger().WithField("test", true))
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.declared) != 3 {
		t.Fatalf("expected 3 declared exchanges, got %v", ch.declared)
	}

	ctx := context.Background()
	if err := pub.PublishTrade(ctx, &domain.Trade{Market: "BTCUSDT", Side: domain.TradeSideSell}); err != nil {
		t.Fatal(err)
	}
	if err := pub.PublishFunding(ctx, &domain.FundingRate{Market: "BTCUSDT", Rate: 0.0001}); err != nil {
		t.Fatal(err)
	}
	if err := pub.PublishOrderbook(ctx, nil); err == nil {
		t.Fatal("expected error for empty message")
	}

	msg, err := decodeMessage(ch.published["t"][0])
	if err != nil || msg.Trade == nil || msg.Trade.Side != domain.TradeSideSell {
		t.Fatalf("unexpected trade message %+v, %v", msg, err)
	}
	if len(ch.published["f"]) != 1 || len(ch.published["o"]) != 0 {
		t.Fatalf("unexpected routing %v", ch.published)
	}

	pub.Close()
	if !ch.closed {
		t.Fatal("channel not closed")
	}
}

func TestNewPublisherRejectsEmptyExchange(t *testing.T) {
	if _, err := newPublisher(&fakeChannel{}, config.RabbitMQConfig{TradesExchange: "t"}, quietLogger().WithField("test", true)); err == nil {
		t.Fatal("expected error")
	}
}
