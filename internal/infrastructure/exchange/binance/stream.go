package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/infrastructure/metrics"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// TradeHandler receives every trade read from the stream. Returning an error
// stops StreamTrades.
type TradeHandler func(ctx context.Context, trade *marketdata.Trade) error

type handlerError struct{ err error }

func (e *handlerError) Error() string { return e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

// StreamTrades subscribes to the combined aggTrade stream of symbols and
// passes each trade to handle. It reconnects with exponential backoff until
// ctx is done or handle fails.
func (c *Client) StreamTrades(ctx context.Context, symbols []string, handle TradeHandler) error {
	if len(symbols) == 0 {
		return errors.New("no symbols to stream")
	}
	streamURL := c.tradeStreamURL(symbols)
	log := c.logger.WithField("stream", "aggTrade")
	b := c.newBackOff()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, _, err := c.dialer.DialContext(ctx, streamURL, nil)
		if err == nil {
			log.WithField("symbols", len(symbols)).Info("trade stream connected")
			b.Reset()
			err = c.readTrades(ctx, conn, handle)
			var hErr *handlerError
			if errors.As(err, &hErr) {
				return hErr.err
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		metrics.WSReconnectsTotal.WithLabelValues(ExchangeName).Inc()
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = 30 * time.Second
		}
		log.WithError(err).WithField("wait", wait).Warn("trade stream disconnected")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) tradeStreamURL(symbols []string) string {
	names := make([]string, len(symbols))
	for i, symbol := range symbols {
		names[i] = strings.ToLower(symbol) + "@aggTrade"
	}
	return fmt.Sprintf("%s/stream?streams=%s", c.streamURL, strings.Join(names, "/"))
}

func (c *Client) readTrades(ctx context.Context, conn *websocket.Conn, handle TradeHandler) error {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg combinedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("skip undecodable stream message")
			continue
		}
		if msg.Data.EventType != "aggTrade" {
			continue
		}
		trade, err := msg.Data.toTrade()
		if err != nil {
			c.logger.WithError(err).WithField("symbol", msg.Data.Symbol).Debug("skip trade")
			continue
		}
		if err := handle(ctx, trade); err != nil {
			return &handlerError{err: err}
		}
	}
}
