// @title           Crypto Market Data API
// @version         1.0
// @description     Regrouped order books, trades, funding rates and market rankings collected from crypto exchanges

// @host      localhost:8080
// @BasePath  /api/v1

package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	appinterfaces "cryptodump/internal/application/interfaces"
	appmarketdata "cryptodump/internal/application/service/marketdata"
	appmarkets "cryptodump/internal/application/service/markets"
	"cryptodump/internal/application/service/ranking"
	domainmarketdata "cryptodump/internal/domain/entity/marketdata"
	"cryptodump/internal/domain/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	apiBasePath       = "/api/v1"
	defaultListLimit  = 100
	defaultRankingTop = 10
)

var (
	errMissingRange = errors.New("from/to query params required")
	errBadLimit     = errors.New("limit must be a positive integer")
	errBadK         = errors.New("k must be a positive integer")
)

type Handler struct {
	router     *gin.Engine
	marketdata *appmarketdata.Service
	markets    *appmarkets.Service
	rankings   *ranking.Service
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *logrus.Entry
}

var _ appinterfaces.HTTPHandler = (*Handler)(nil)

// NewHandler mounts the API. cache may be nil to disable response caching
// and metrics may be nil to leave /metrics unrouted.
func NewHandler(md *appmarketdata.Service, mk *appmarkets.Service, rankings *ranking.Service, cache *redis.Client, cacheTTL time.Duration, metrics http.Handler, logger *logrus.Logger) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:     router,
		marketdata: md,
		markets:    mk,
		rankings:   rankings,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.WithField("component", "http"),
	}
	h.registerRoutes(metrics)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes(metrics http.Handler) {
	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if metrics != nil {
		h.router.GET("/metrics", gin.WrapH(metrics))
	}

	api := h.router.Group(apiBasePath)
	if h.cache != nil {
		api.Use(h.cacheMiddleware())
	}

	md := api.Group("/marketdata")
	{
		orderbooks := md.Group("/orderbooks")
		{
			orderbooks.POST("/regroup", h.regroupOrderBook)
			orderbooks.POST("", h.addOrderBook)
			orderbooks.GET("", h.getOrderBooksRange)
			orderbooks.GET("/last", h.getOrderBooksLast)
		}

		trades := md.Group("/trades")
		{
			trades.POST("", h.addTrade)
			trades.POST("/batch", h.addTradesBatch)
			trades.GET("", h.getTradesRange)
			trades.GET("/last", h.getTradesLast)
		}

		md.GET("/funding/last", h.getFundingLast)
	}

	rankings := api.Group("/rankings")
	{
		rankings.GET("/funding", h.getFundingRanking)
		rankings.GET("/liquidity", h.getLiquidityRanking)
	}

	mk := api.Group("/markets")
	{
		mk.GET("", h.listMarkets)
		mk.GET("/:exchange/:symbol", h.getMarket)
	}
}

// Order books

// regroupOrderBook regroups a snapshot without storing it
// @Summary      Regroup order book
// @Description  Compress a raw order book snapshot into fixed-width log-spaced levels
// @Tags         orderbooks
// @Accept       json
// @Produce      json
// @Param        orderbook  body      domainmarketdata.GroupedOrderbook  true  "Raw snapshot"
// @Success      200        {object}  domainmarketdata.RegroupedOrderbook
// @Failure      400        {object}  map[string]string
// @Router       /marketdata/orderbooks/regroup [post]
func (h *Handler) regroupOrderBook(c *gin.Context) {
	var book domainmarketdata.GroupedOrderbook
	if err := c.ShouldBindJSON(&book); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	regrouped, err := h.marketdata.Regroup(&book)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, regrouped)
}

// addOrderBook regroups and stores a snapshot
// @Summary      Add order book
// @Description  Regroup a raw order book snapshot and persist the result
// @Tags         orderbooks
// @Accept       json
// @Produce      json
// @Param        orderbook  body      domainmarketdata.GroupedOrderbook  true  "Raw snapshot"
// @Success      201        {object}  domainmarketdata.RegroupedOrderbook
// @Failure      400        {object}  map[string]string
// @Failure      500        {object}  map[string]string
// @Router       /marketdata/orderbooks [post]
func (h *Handler) addOrderBook(c *gin.Context) {
	var book domainmarketdata.GroupedOrderbook
	if err := c.ShouldBindJSON(&book); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	regrouped, err := h.marketdata.RegroupAndStore(c.Request.Context(), &book)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, regrouped)
}

// getOrderBooksRange returns stored snapshots within a time range
// @Summary      Get order books range
// @Tags         orderbooks
// @Produce      json
// @Param        exchange  query     string  true  "Exchange"
// @Param        market    query     string  true  "Market symbol"
// @Param        from      query     string  true  "Start time (RFC3339)"
// @Param        to        query     string  true  "End time (RFC3339)"
// @Success      200       {array}   domainmarketdata.RegroupedOrderbook
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /marketdata/orderbooks [get]
func (h *Handler) getOrderBooksRange(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	books, err := h.marketdata.GetRegroupedOrderbooksBetween(c.Request.Context(), c.Query("exchange"), c.Query("market"), from, to)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// getOrderBooksLast returns the latest stored snapshots
// @Summary      Get last order books
// @Tags         orderbooks
// @Produce      json
// @Param        exchange  query     string  true   "Exchange"
// @Param        market    query     string  true   "Market symbol"
// @Param        limit     query     int     false  "Number of snapshots"  default(100)
// @Success      200       {array}   domainmarketdata.RegroupedOrderbook
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /marketdata/orderbooks/last [get]
func (h *Handler) getOrderBooksLast(c *gin.Context) {
	limit, err := parsePositiveQuery(c, "limit", defaultListLimit, errBadLimit)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	books, err := h.marketdata.GetLastRegroupedOrderbooks(c.Request.Context(), c.Query("exchange"), c.Query("market"), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// Trades

// addTrade stores a single trade
// @Summary      Add trade
// @Tags         trades
// @Accept       json
// @Param        trade  body      domainmarketdata.Trade  true  "Trade"
// @Success      201    "Created"
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /marketdata/trades [post]
func (h *Handler) addTrade(c *gin.Context) {
	var trade domainmarketdata.Trade
	if err := c.ShouldBindJSON(&trade); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.marketdata.AddTrade(c.Request.Context(), &trade); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// addTradesBatch stores several trades at once
// @Summary      Add trades batch
// @Tags         trades
// @Accept       json
// @Param        trades  body      []domainmarketdata.Trade  true  "Trades"
// @Success      201     "Created"
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /marketdata/trades/batch [post]
func (h *Handler) addTradesBatch(c *gin.Context) {
	var trades []domainmarketdata.Trade
	if err := c.ShouldBindJSON(&trades); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.marketdata.AddTrades(c.Request.Context(), trades); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// getTradesRange returns trades within a time range
// @Summary      Get trades range
// @Tags         trades
// @Produce      json
// @Param        exchange  query     string  true  "Exchange"
// @Param        market    query     string  true  "Market symbol"
// @Param        from      query     string  true  "Start time (RFC3339)"
// @Param        to        query     string  true  "End time (RFC3339)"
// @Success      200       {array}   domainmarketdata.Trade
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /marketdata/trades [get]
func (h *Handler) getTradesRange(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	trades, err := h.marketdata.GetTradesBetween(c.Request.Context(), c.Query("exchange"), c.Query("market"), from, to)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// getTradesLast returns the latest trades
// @Summary      Get last trades
// @Tags         trades
// @Produce      json
// @Param        exchange  query     string  true   "Exchange"
// @Param        market    query     string  true   "Market symbol"
// @Param        limit     query     int     false  "Number of trades"  default(100)
// @Success      200       {array}   domainmarketdata.Trade
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /marketdata/trades/last [get]
func (h *Handler) getTradesLast(c *gin.Context) {
	limit, err := parsePositiveQuery(c, "limit", defaultListLimit, errBadLimit)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	trades, err := h.marketdata.GetLastTrades(c.Request.Context(), c.Query("exchange"), c.Query("market"), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// Funding and rankings

// getFundingLast returns the latest funding observations of a market
// @Summary      Get last funding rates
// @Tags         funding
// @Produce      json
// @Param        exchange  query     string  true   "Exchange"
// @Param        market    query     string  true   "Market symbol"
// @Param        limit     query     int     false  "Number of observations"  default(100)
// @Success      200       {array}   domainmarketdata.FundingRate
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /marketdata/funding/last [get]
func (h *Handler) getFundingLast(c *gin.Context) {
	limit, err := parsePositiveQuery(c, "limit", defaultListLimit, errBadLimit)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	rates, err := h.marketdata.GetLastFundingRates(c.Request.Context(), c.Query("exchange"), c.Query("market"), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// getFundingRanking returns the k markets with the most extreme funding
// @Summary      Top funding rates
// @Description  Markets with the largest absolute funding rate, largest first
// @Tags         rankings
// @Produce      json
// @Param        k    query     int  false  "Number of markets"  default(10)
// @Success      200  {array}   domainmarketdata.FundingRate
// @Failure      400  {object}  map[string]string
// @Router       /rankings/funding [get]
func (h *Handler) getFundingRanking(c *gin.Context) {
	k, err := parsePositiveQuery(c, "k", defaultRankingTop, errBadK)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	top, err := h.rankings.TopFunding(k)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

// getLiquidityRanking returns the k deepest markets
// @Summary      Top liquidity
// @Description  Markets with the most resting notional near the touch, largest first
// @Tags         rankings
// @Produce      json
// @Param        k    query     int  false  "Number of markets"  default(10)
// @Success      200  {array}   domainmarketdata.MarketLiquidity
// @Failure      400  {object}  map[string]string
// @Router       /rankings/liquidity [get]
func (h *Handler) getLiquidityRanking(c *gin.Context) {
	k, err := parsePositiveQuery(c, "k", defaultRankingTop, errBadK)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	top, err := h.rankings.TopLiquidity(k)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

// Markets

// listMarkets returns tracked markets by rank
// @Summary      List tracked markets
// @Tags         markets
// @Produce      json
// @Param        exchange  query     string  false  "Exchange filter"
// @Param        limit     query     int     false  "Number of markets"  default(100)
// @Success      200       {array}   markets.Market
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /markets [get]
func (h *Handler) listMarkets(c *gin.Context) {
	limit, err := parsePositiveQuery(c, "limit", defaultListLimit, errBadLimit)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	list, err := h.markets.ListMarkets(c.Request.Context(), c.Query("exchange"), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// getMarket returns one tracked market
// @Summary      Get market
// @Tags         markets
// @Produce      json
// @Param        exchange  path      string  true  "Exchange"
// @Param        symbol    path      string  true  "Symbol"
// @Success      200       {object}  markets.Market
// @Failure      404       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /markets/{exchange}/{symbol} [get]
func (h *Handler) getMarket(c *gin.Context) {
	market, err := h.markets.GetMarket(c.Request.Context(), c.Param("exchange"), c.Param("symbol"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

// Helpers

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		writeError(c, http.StatusNotFound, err)
	case isValidation(err):
		writeError(c, http.StatusBadRequest, err)
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		writeError(c, http.StatusInternalServerError, err)
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		appmarketdata.ErrNilTrade,
		appmarketdata.ErrNilOrderBook,
		appmarketdata.ErrMissingMarket,
		appmarketdata.ErrInvalidLimit,
		appmarketdata.ErrRegroup,
		appmarkets.ErrInvalidLimit,
		ranking.ErrInvalidK,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// cacheMiddleware caches successful GET responses in Redis.
func (h *Handler) cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := h.cacheKey(c)
		ctx := c.Request.Context()

		if cached, err := h.cache.Get(ctx, key).Bytes(); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		} else if !errors.Is(err, redis.Nil) {
			h.logger.WithError(err).Debug("cache read failed")
		}

		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			status:         http.StatusOK,
			body:           &bytes.Buffer{},
		}
		c.Writer = recorder

		c.Next()

		if recorder.status >= 200 && recorder.status < 300 && recorder.body.Len() > 0 {
			if err := h.cache.Set(ctx, key, recorder.body.Bytes(), h.cacheTTL).Err(); err != nil {
				h.logger.WithError(err).Debug("cache write failed")
			}
		}
	}
}

type responseRecorder struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if len(data) > 0 {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (h *Handler) cacheKey(c *gin.Context) string {
	return fmt.Sprintf("cache:%s:%s?%s", c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery)
}

func parsePositiveQuery(c *gin.Context, key string, fallback int, invalid error) (int, error) {
	value := c.Query(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, invalid
	}
	return n, nil
}

func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errMissingRange
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}
