package binance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptodump/internal/config"
	"cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/domain/entity/markets"
	"cryptodump/internal/infrastructure/metrics"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 32 << 20

// Client talks to the Binance spot and USD-M futures APIs. REST calls share
// one rate limiter and are retried with exponential backoff on network
// errors, 429 and 5xx responses.
type Client struct {
	spotURL    string
	futuresURL string
	streamURL  string

	http       *http.Client
	dialer     *websocket.Dialer
	limiter    *rate.Limiter
	maxRetries uint
	newBackOff func() backoff.BackOff
	logger     *logrus.Entry
	now        func() time.Time
}

func NewClient(cfg config.BinanceConfig, logger *logrus.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	return &Client{
		spotURL:    strings.TrimRight(cfg.SpotURL, "/"),
		futuresURL: strings.TrimRight(cfg.FuturesURL, "/"),
		streamURL:  strings.TrimRight(cfg.StreamURL, "/"),
		http:       &http.Client{Timeout: cfg.RequestTimeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		maxRetries: uint(retries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger.WithField("component", "binance"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (c *Client) Name() string { return ExchangeName }

// Depth fetches a spot order book snapshot with up to limit levels per side.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) (*marketdata.GroupedOrderbook, error) {
	symbol = strings.ToUpper(symbol)
	query := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(limit)}}
	var resp depthResponse
	if err := c.getJSON(ctx, c.spotURL, "/api/v3/depth", query, &resp); err != nil {
		return nil, err
	}
	book, err := resp.toOrderbook(symbol, c.now())
	if err != nil {
		return nil, fmt.Errorf("depth %s: %w", symbol, err)
	}
	return book, nil
}

// Tickers24h returns the rolling 24h summary of every spot symbol.
func (c *Client) Tickers24h(ctx context.Context) ([]markets.Ticker, error) {
	var resp []tickerResponse
	if err := c.getJSON(ctx, c.spotURL, "/api/v3/ticker/24hr", nil, &resp); err != nil {
		return nil, err
	}
	tickers := make([]markets.Ticker, 0, len(resp))
	for _, raw := range resp {
		ticker, err := raw.toTicker()
		if err != nil {
			c.logger.WithError(err).WithField("symbol", raw.Symbol).Debug("skip ticker")
			continue
		}
		tickers = append(tickers, ticker)
	}
	return tickers, nil
}

func (c *Client) ExchangeInfo(ctx context.Context) ([]markets.SymbolInfo, error) {
	var resp exchangeInfoResponse
	if err := c.getJSON(ctx, c.spotURL, "/api/v3/exchangeInfo", nil, &resp); err != nil {
		return nil, err
	}
	infos := make([]markets.SymbolInfo, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		infos = append(infos, markets.SymbolInfo{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Status:     markets.Status(s.Status),
		})
	}
	return infos, nil
}

// PremiumIndex returns the current funding rate of every perpetual contract.
// Delivery contracts, which report no next funding time, are skipped.
func (c *Client) PremiumIndex(ctx context.Context) ([]marketdata.FundingRate, error) {
	var resp []premiumIndexResponse
	if err := c.getJSON(ctx, c.futuresURL, "/fapi/v1/premiumIndex", nil, &resp); err != nil {
		return nil, err
	}
	rates := make([]marketdata.FundingRate, 0, len(resp))
	for _, raw := range resp {
		if raw.NextFundingTime == 0 {
			continue
		}
		rate, err := raw.toFundingRate()
		if err != nil {
			c.logger.WithError(err).WithField("symbol", raw.Symbol).Debug("skip premium index")
			continue
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

func (c *Client) getJSON(ctx context.Context, base, path string, query url.Values, out any) error {
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	op := func() (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return struct{}{}, err
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{Status: resp.StatusCode}
			_ = json.Unmarshal(body, apiErr)
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
					return struct{}{}, backoff.RetryAfter(secs)
				}
				return struct{}{}, apiErr
			case resp.StatusCode >= http.StatusInternalServerError:
				return struct{}{}, apiErr
			default:
				return struct{}{}, backoff.Permanent(apiErr)
			}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WithError(err).WithField("path", path).WithField("wait", wait).Debug("retrying request")
		}),
	)
	if err != nil {
		metrics.ExchangeRequestErrorsTotal.WithLabelValues(ExchangeName, path).Inc()
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

// IsNotRetryable reports whether err is a client error the API will keep
// rejecting, such as an unknown symbol.
func IsNotRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
}
