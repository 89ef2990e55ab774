// Package regroup compresses full-depth order books into a fixed number of
// price buckets per side.
//
// Bucket boundaries are spaced on a log scale of the level index, so levels
// near the touch keep their own bucket while the far book is merged. Books
// shallower than the bucket count are padded with extrapolated prices and
// zero size.
package regroup

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"cryptodump/internal/domain/entity/marketdata"
)

const (
	DefaultSize = 25
	// MaxDepth caps the number of levels per side fed into compression.
	MaxDepth = 32766

	singleLevelStep = 1.0005
)

var (
	ErrInvalidSize   = errors.New("bucket count must be positive")
	ErrUnsortedInput = errors.New("levels must be sorted ascending by price and size")
	ErrInvalidPrice  = errors.New("level price must be positive and finite")
	// ErrPriceRange is returned when padding a shallow side would leave the
	// representable price range or stop being strictly ascending.
	ErrPriceRange = errors.New("padded prices out of range")
)

// Algorithm is stateless apart from its configuration and may be shared
// between goroutines.
type Algorithm struct {
	size int
	base BaseLog
	pool *BufferPool
}

type Option func(*Algorithm)

// WithSize sets the number of buckets per side.
func WithSize(n int) Option {
	return func(a *Algorithm) { a.size = n }
}

func WithBaseLog(base BaseLog) Option {
	return func(a *Algorithm) { a.base = base }
}

func WithPool(pool *BufferPool) Option {
	return func(a *Algorithm) { a.pool = pool }
}

func New(opts ...Option) (*Algorithm, error) {
	a := &Algorithm{size: DefaultSize, base: Log2, pool: defaultPool}
	for _, opt := range opts {
		opt(a)
	}
	if a.size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, a.size)
	}
	if a.base == nil {
		a.base = Log2
	}
	if a.pool == nil {
		a.pool = defaultPool
	}
	return a, nil
}

// Size returns the number of buckets per side.
func (a *Algorithm) Size() int { return a.size }

// CompressBids buckets bid levels sorted ascending (the touch is the last
// element). The returned buffers hold Size() ascending prices and the summed
// size of each bucket; callers must Release both.
//
// When the book is deeper than Size() and spans more than one natural-log unit
// of price, the levels below the farthest boundary are dropped as an outlier
// tail.
func (a *Algorithm) CompressBids(pairs []marketdata.PriceSizePair) (prices, sizes *Buffer, err error) {
	if err := validate(pairs); err != nil {
		return nil, nil, err
	}
	n := a.size
	prices = a.pool.Get(n)
	sizes = a.pool.Get(n)
	p, s := prices.Values(), sizes.Values()

	switch len(pairs) {
	case 0:
		return prices, sizes, nil
	case 1:
		p[n-1] = pairs[0].Price
		s[n-1] = pairs[0].Size
		for i := n - 2; i >= 0; i-- {
			p[i] = p[i+1] / singleLevelStep
		}
		return checkPadding(prices, sizes)
	}

	obPrice, obSize := a.split(pairs)
	defer obPrice.Release()
	defer obSize.Release()
	levelPrice, levelSize := obPrice.Values(), obSize.Values()
	depth := len(levelPrice)

	drop := 0
	if depth > n && spansLogUnit(levelPrice) {
		drop = 1
	}
	idx := geomSpaceIndex(a.base, 1, depth-1, n+1+drop, true)
	boundary := 0
	if drop == 1 {
		boundary = idx[1]
	}
	pricesIndex := idx[1+drop:]
	fixGeomSpaceIndex(pricesIndex)

	if n > depth {
		padPrice, padSize := a.pad(levelPrice, levelSize, true)
		defer padPrice.Release()
		defer padSize.Release()
		levelPrice, levelSize = padPrice.Values(), padSize.Values()
	}

	next := boundary
	for i, end := range pricesIndex {
		p[i] = levelPrice[end]
		var sum float64
		for j := next; j <= end; j++ {
			sum += levelSize[j]
		}
		s[i] = sum
		next = max(next, end+1)
	}
	if n > depth {
		return checkPadding(prices, sizes)
	}
	return prices, sizes, nil
}

// CompressAsks buckets ask levels sorted ascending (the touch is the first
// element). The returned buffers hold Size() ascending prices and the summed
// size of each bucket; callers must Release both.
//
// Levels beyond the farthest boundary are folded into the outermost bucket, so
// no ask volume is lost.
func (a *Algorithm) CompressAsks(pairs []marketdata.PriceSizePair) (prices, sizes *Buffer, err error) {
	if err := validate(pairs); err != nil {
		return nil, nil, err
	}
	n := a.size
	prices = a.pool.Get(n)
	sizes = a.pool.Get(n)
	p, s := prices.Values(), sizes.Values()

	switch len(pairs) {
	case 0:
		return prices, sizes, nil
	case 1:
		p[0] = pairs[0].Price
		s[0] = pairs[0].Size
		for i := 1; i < n; i++ {
			p[i] = p[i-1] * singleLevelStep
		}
		return checkPadding(prices, sizes)
	}

	obPrice, obSize := a.split(pairs)
	defer obPrice.Release()
	defer obSize.Release()
	levelPrice, levelSize := obPrice.Values(), obSize.Values()
	depth := len(levelPrice)

	drop := 0
	if depth > n && spansLogUnit(levelPrice) {
		drop = 1
	}
	idx := geomSpaceIndex(a.base, 1, depth, n+drop, false)
	for i := range idx {
		idx[i]--
	}
	pricesIndex := idx[:n]
	fixGeomSpaceIndex(pricesIndex)

	if n > depth {
		padPrice, padSize := a.pad(levelPrice, levelSize, false)
		defer padPrice.Release()
		defer padSize.Release()
		levelPrice, levelSize = padPrice.Values(), padSize.Values()
	}

	next := len(levelPrice)
	for i := n - 1; i >= 0; i-- {
		start := pricesIndex[i]
		p[i] = levelPrice[start]
		var sum float64
		for j := start; j < next; j++ {
			sum += levelSize[j]
		}
		s[i] = sum
		next = min(next, start)
	}
	if n > depth {
		return checkPadding(prices, sizes)
	}
	return prices, sizes, nil
}

// Create regroups both sides of book. Input sides may be unsorted; levels with
// a non-finite price or size are ignored, zero-size levels at either edge and
// non-positive prices are trimmed, and each side is capped at MaxDepth levels
// closest to the touch.
func (a *Algorithm) Create(book *marketdata.GroupedOrderbook) (marketdata.RegroupedOrderbook, error) {
	out := marketdata.RegroupedOrderbook{
		Exchange: book.Exchange,
		Market:   book.Market,
		Time:     book.Time,
	}

	bids := prepare(book.Bids)
	if len(bids) > MaxDepth {
		bids = bids[len(bids)-MaxDepth:]
	}
	asks := prepare(book.Asks)
	if len(asks) > MaxDepth {
		asks = asks[:MaxDepth]
	}

	bidPrices, bidSizes, err := a.CompressBids(bids)
	if err != nil {
		return out, fmt.Errorf("compress bids: %w", err)
	}
	defer bidPrices.Release()
	defer bidSizes.Release()

	askPrices, askSizes, err := a.CompressAsks(asks)
	if err != nil {
		return out, fmt.Errorf("compress asks: %w", err)
	}
	defer askPrices.Release()
	defer askSizes.Release()

	out.Bids = zipPairs(bidPrices.Values(), bidSizes.Values())
	out.Asks = zipPairs(askPrices.Values(), askSizes.Values())
	return out, nil
}

func (a *Algorithm) split(pairs []marketdata.PriceSizePair) (prices, sizes *Buffer) {
	prices = a.pool.Get(len(pairs))
	sizes = a.pool.Get(len(pairs))
	p, s := prices.Values(), sizes.Values()
	for i, pair := range pairs {
		p[i] = pair.Price
		s[i] = pair.Size
	}
	return prices, sizes
}

// pad widens a shallow side to Size() levels. Real levels stay next to the
// touch: at the tail for bids (reverse), at the head for asks.
func (a *Algorithm) pad(levelPrice, levelSize []float64, reverse bool) (prices, sizes *Buffer) {
	n := a.size
	prices = a.pool.Get(n)
	sizes = a.pool.Get(n)
	fastRegression(levelPrice, reverse, prices.Values())
	if reverse {
		copy(sizes.Values()[n-len(levelSize):], levelSize)
	} else {
		copy(sizes.Values(), levelSize)
	}
	return prices, sizes
}

func spansLogUnit(levelPrice []float64) bool {
	start := levelPrice[0]
	end := levelPrice[len(levelPrice)-1]
	return math.Abs(math.Log(start)-math.Log(end)) > 1
}

func validate(pairs []marketdata.PriceSizePair) error {
	for i, pair := range pairs {
		if !isFinite(pair.Price) || pair.Price <= 0 {
			return fmt.Errorf("%w: %v at level %d", ErrInvalidPrice, pair.Price, i)
		}
		if math.IsNaN(pair.Size) {
			return fmt.Errorf("%w: NaN size at level %d", ErrUnsortedInput, i)
		}
		if i > 0 && pairs[i-1].Compare(pair) > 0 {
			return fmt.Errorf("%w: level %d", ErrUnsortedInput, i)
		}
	}
	return nil
}

func prepare(side []marketdata.PriceSizePair) []marketdata.PriceSizePair {
	levels := make([]marketdata.PriceSizePair, 0, len(side))
	for _, level := range side {
		if isFinite(level.Price) && isFinite(level.Size) {
			levels = append(levels, level)
		}
	}
	slices.SortFunc(levels, marketdata.PriceSizePair.Compare)
	levels = mergeEqualPrices(levels)

	for len(levels) > 0 && levels[len(levels)-1].Size == 0 {
		levels = levels[:len(levels)-1]
	}
	for len(levels) > 0 && (levels[0].Size == 0 || levels[0].Price <= 0) {
		levels = levels[1:]
	}
	return levels
}

// mergeEqualPrices folds adjacent levels quoted at the same price into one,
// summing their sizes. levels must be sorted by price.
func mergeEqualPrices(levels []marketdata.PriceSizePair) []marketdata.PriceSizePair {
	if len(levels) < 2 {
		return levels
	}
	out := levels[:1]
	for _, level := range levels[1:] {
		last := &out[len(out)-1]
		if level.Price == last.Price {
			last.Size += level.Size
			continue
		}
		out = append(out, level)
	}
	return out
}

// checkPadding releases both buffers and fails when synthesized prices are
// not positive, finite and strictly ascending.
func checkPadding(prices, sizes *Buffer) (*Buffer, *Buffer, error) {
	p := prices.Values()
	for i, v := range p {
		if !isFinite(v) || v <= 0 || (i > 0 && v <= p[i-1]) {
			prices.Release()
			sizes.Release()
			return nil, nil, fmt.Errorf("%w: %v at bucket %d", ErrPriceRange, v, i)
		}
	}
	return prices, sizes, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func zipPairs(prices, sizes []float64) []marketdata.PriceSizePair {
	res := make([]marketdata.PriceSizePair, len(prices))
	for i := range prices {
		res[i] = marketdata.PriceSizePair{Price: prices[i], Size: sizes[i]}
	}
	return res
}
