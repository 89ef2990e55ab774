package regroup

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"cryptodump/internal/domain/entity/marketdata"
)

func levels(prices, sizes []float64) []marketdata.PriceSizePair {
	res := make([]marketdata.PriceSizePair, len(prices))
	for i := range prices {
		res[i] = marketdata.PriceSizePair{Price: prices[i], Size: sizes[i]}
	}
	return res
}

func ones(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = 1
	}
	return res
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func assertFloats(t *testing.T, what string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d values, got %d (%v)", what, len(want), len(got), got)
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("%s: expected %v, got %v", what, want, got)
		}
	}
}

func newAlgorithm(t *testing.T, n int) *Algorithm {
	t.Helper()
	a, err := New(WithSize(n))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func compress(t *testing.T, a *Algorithm, bids bool, pairs []marketdata.PriceSizePair) ([]float64, []float64) {
	t.Helper()
	var prices, sizes *Buffer
	var err error
	if bids {
		prices, sizes, err = a.CompressBids(pairs)
	} else {
		prices, sizes, err = a.CompressAsks(pairs)
	}
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	defer prices.Release()
	defer sizes.Release()
	return slices.Clone(prices.Values()), slices.Clone(sizes.Values())
}

func TestNewRejectsInvalidSize(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := New(WithSize(n)); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("size %d: expected ErrInvalidSize, got %v", n, err)
		}
	}
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Size() != DefaultSize {
		t.Fatalf("expected default size %d, got %d", DefaultSize, a.Size())
	}
}

func TestGeomSpaceIndex(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		step       int
		reverse    bool
		want       []int
	}{
		{"forward", 1, 10, 4, false, []int{1, 2, 5, 10}},
		{"reverse", 1, 9, 5, true, []int{1, 5, 7, 8, 9}},
		{"single", 1, 7, 1, false, []int{1}},
		{"flat", 1, 1, 3, true, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geomSpaceIndex(Log2, tt.start, tt.end, tt.step, tt.reverse)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFixGeomSpaceIndex(t *testing.T) {
	tests := []struct {
		in, want []int
	}{
		{[]int{0, 0, 1, 1, 2}, []int{0, 1, 2, 3, 4}},
		{[]int{1, 1, 1, 1, 2}, []int{0, 1, 2, 3, 4}},
		{[]int{0, 2, 2, 7, 9}, []int{0, 1, 2, 7, 9}},
		{[]int{3, 5, 8}, []int{3, 5, 8}},
	}
	for _, tt := range tests {
		buf := slices.Clone(tt.in)
		fixGeomSpaceIndex(buf)
		if !slices.Equal(buf, tt.want) {
			t.Errorf("fix(%v): expected %v, got %v", tt.in, tt.want, buf)
		}
	}
}

func TestEmptyInputYieldsZeros(t *testing.T) {
	a := newAlgorithm(t, DefaultSize)
	for _, bids := range []bool{true, false} {
		prices, sizes := compress(t, a, bids, nil)
		zero := make([]float64, DefaultSize)
		assertFloats(t, "prices", prices, zero)
		assertFloats(t, "sizes", sizes, zero)
	}
}

func TestSingleLevel(t *testing.T) {
	a := newAlgorithm(t, 4)
	one := levels([]float64{100}, []float64{2})

	prices, sizes := compress(t, a, true, one)
	assertFloats(t, "bid prices", prices, []float64{
		100 / singleLevelStep / singleLevelStep / singleLevelStep,
		100 / singleLevelStep / singleLevelStep,
		100 / singleLevelStep,
		100,
	})
	assertFloats(t, "bid sizes", sizes, []float64{0, 0, 0, 2})

	prices, sizes = compress(t, a, false, one)
	assertFloats(t, "ask prices", prices, []float64{
		100,
		100 * singleLevelStep,
		100 * singleLevelStep * singleLevelStep,
		100 * singleLevelStep * singleLevelStep * singleLevelStep,
	})
	assertFloats(t, "ask sizes", sizes, []float64{2, 0, 0, 0})
}

func TestShallowAsksArePaddedAboveTheBook(t *testing.T) {
	a := newAlgorithm(t, 5)
	prices, sizes := compress(t, a, false, levels([]float64{10, 11, 12.1}, []float64{1, 2, 3}))

	acc := ((11.0/10 - 1) + (12.1/11 - 1)) / 2
	p3 := 12.1 * (1 + acc)
	assertFloats(t, "prices", prices, []float64{10, 11, 12.1, p3, p3 * (1 + acc)})
	assertFloats(t, "sizes", sizes, []float64{1, 2, 3, 0, 0})
}

func TestShallowBidsArePaddedBelowTheBook(t *testing.T) {
	a := newAlgorithm(t, 5)
	prices, sizes := compress(t, a, true, levels([]float64{8, 9, 10}, []float64{3, 2, 1}))

	acc := ((9.0/10 - 1) + (8.0/9 - 1)) / 2
	p1 := 8 * (1 + acc)
	assertFloats(t, "prices", prices, []float64{p1 * (1 + acc), p1, 8, 9, 10})
	assertFloats(t, "sizes", sizes, []float64{0, 0, 3, 2, 1})
}

func TestDeepAsksAreDenseAtTheTouch(t *testing.T) {
	a := newAlgorithm(t, 4)
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	gotPrices, gotSizes := compress(t, a, false, levels(prices, ones(10)))
	assertFloats(t, "prices", gotPrices, []float64{100, 101, 104, 109})
	assertFloats(t, "sizes", gotSizes, []float64{1, 3, 5, 1})
}

func TestDeepBidsAreDenseAtTheTouch(t *testing.T) {
	a := newAlgorithm(t, 4)
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	gotPrices, gotSizes := compress(t, a, true, levels(prices, ones(10)))
	assertFloats(t, "prices", gotPrices, []float64{105, 107, 108, 109})
	assertFloats(t, "sizes", gotSizes, []float64{6, 2, 1, 1})
}

func TestWideBidsDropOutlierTail(t *testing.T) {
	a := newAlgorithm(t, 2)
	prices, sizes := compress(t, a, true, levels(
		[]float64{1, 10, 20, 50, 100},
		[]float64{1, 2, 3, 4, 5},
	))
	assertFloats(t, "prices", prices, []float64{50, 100})
	assertFloats(t, "sizes", sizes, []float64{7, 5})
}

func TestWideAsksFoldTailIntoLastBucket(t *testing.T) {
	a := newAlgorithm(t, 2)
	prices, sizes := compress(t, a, false, levels(
		[]float64{100, 200, 300, 500, 1000},
		[]float64{1, 2, 3, 4, 5},
	))
	assertFloats(t, "prices", prices, []float64{100, 200})
	assertFloats(t, "sizes", sizes, []float64{1, 14})
}

func TestRejectsUnsortedInput(t *testing.T) {
	a := newAlgorithm(t, 3)
	bad := [][]marketdata.PriceSizePair{
		levels([]float64{2, 1}, []float64{1, 1}),
		levels([]float64{1, 1}, []float64{2, 1}),
		levels([]float64{1, 2}, []float64{1, math.NaN()}),
	}
	for _, pairs := range bad {
		if _, _, err := a.CompressBids(pairs); !errors.Is(err, ErrUnsortedInput) {
			t.Errorf("bids %v: expected ErrUnsortedInput, got %v", pairs, err)
		}
		if _, _, err := a.CompressAsks(pairs); !errors.Is(err, ErrUnsortedInput) {
			t.Errorf("asks %v: expected ErrUnsortedInput, got %v", pairs, err)
		}
	}
}

func TestRejectsInvalidPrices(t *testing.T) {
	a := newAlgorithm(t, 5)
	bad := [][]marketdata.PriceSizePair{
		levels([]float64{0, 10}, []float64{1, 1}),
		levels([]float64{-3, 10}, []float64{1, 1}),
		levels([]float64{1, math.Inf(1)}, []float64{1, 1}),
		levels([]float64{math.NaN(), 1}, []float64{1, 1}),
	}
	for _, pairs := range bad {
		if _, _, err := a.CompressBids(pairs); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("bids %v: expected ErrInvalidPrice, got %v", pairs, err)
		}
		if _, _, err := a.CompressAsks(pairs); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("asks %v: expected ErrInvalidPrice, got %v", pairs, err)
		}
	}
}

func TestPaddingOutOfRangeIsRejected(t *testing.T) {
	a := newAlgorithm(t, 5)
	wide := levels([]float64{1e-200, 1e200}, []float64{1, 2})
	if _, _, err := a.CompressAsks(wide); !errors.Is(err, ErrPriceRange) {
		t.Errorf("asks: expected ErrPriceRange, got %v", err)
	}
	if _, _, err := a.CompressBids(wide); !errors.Is(err, ErrPriceRange) {
		t.Errorf("bids: expected ErrPriceRange, got %v", err)
	}

	top := levels([]float64{math.MaxFloat64}, []float64{1})
	if _, _, err := a.CompressAsks(top); !errors.Is(err, ErrPriceRange) {
		t.Errorf("single ask: expected ErrPriceRange, got %v", err)
	}

	_, err := a.Create(&marketdata.GroupedOrderbook{Market: "BTCUSDT", Asks: wide})
	if !errors.Is(err, ErrPriceRange) {
		t.Fatalf("Create: expected ErrPriceRange, got %v", err)
	}
}

func randomSide(rng *rand.Rand, depth int, spread float64) []marketdata.PriceSizePair {
	res := make([]marketdata.PriceSizePair, depth)
	price := 100.0
	for i := range res {
		price += spread * (0.1 + rng.Float64())
		res[i] = marketdata.PriceSizePair{Price: price, Size: 0.01 + rng.Float64()*5}
	}
	return res
}

func total(values []float64) float64 {
	var acc float64
	for _, v := range values {
		acc += v
	}
	return acc
}

func TestProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 11))
	for _, n := range []int{1, 3, DefaultSize} {
		a := newAlgorithm(t, n)
		for _, depth := range []int{0, 1, 2, 3, n - 1, n, n + 1, 2 * n, 400, 3000} {
			for _, spread := range []float64{0.001, 1} {
				pairs := randomSide(rng, depth, spread)
				for _, bids := range []bool{true, false} {
					prices, sizes := compress(t, a, bids, pairs)
					if len(prices) != n || len(sizes) != n {
						t.Fatalf("n=%d depth=%d: width %d/%d", n, depth, len(prices), len(sizes))
					}

					again, againSizes := compress(t, a, bids, pairs)
					if !slices.Equal(prices, again) || !slices.Equal(sizes, againSizes) {
						t.Fatalf("n=%d depth=%d bids=%v: output not deterministic", n, depth, bids)
					}

					if depth >= 2 {
						for i := 1; i < n; i++ {
							if prices[i] <= prices[i-1] {
								t.Fatalf("n=%d depth=%d bids=%v: prices not ascending %v", n, depth, bids, prices)
							}
						}
					}

					input := make([]float64, depth)
					for i, p := range pairs {
						input[i] = p.Size
					}
					kept := !bids || depth <= n || !spansLogUnit(pricesOf(pairs))
					if kept && math.Abs(total(sizes)-total(input)) > 1e-6 {
						t.Fatalf("n=%d depth=%d bids=%v: volume %v, want %v", n, depth, bids, total(sizes), total(input))
					}
					if !kept && total(sizes) > total(input)+1e-6 {
						t.Fatalf("n=%d depth=%d: bid volume grew to %v from %v", n, depth, total(sizes), total(input))
					}
				}
			}
		}
	}
}

func pricesOf(pairs []marketdata.PriceSizePair) []float64 {
	res := make([]float64, len(pairs))
	for i, p := range pairs {
		res[i] = p.Price
	}
	return res
}

func TestBaseLogsRoundTrip(t *testing.T) {
	for name, base := range map[string]BaseLog{"log2": Log2, "ln": LogE, "log10": Log10} {
		for _, x := range []float32{1, 2, 17, 1000} {
			got := base.Exp(base.Log(x))
			if math.Abs(float64(got-x)) > 1e-3*float64(x) {
				t.Errorf("%s: Exp(Log(%v)) = %v", name, x, got)
			}
		}
	}
}

func TestAlternativeBaseLogKeepsWidth(t *testing.T) {
	a, err := New(WithSize(7), WithBaseLog(Log10), WithPool(NewBufferPool()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rng := rand.New(rand.NewPCG(5, 5))
	pairs := randomSide(rng, 120, 0.5)
	prices, sizes := compress(t, a, false, pairs)
	if len(prices) != 7 || len(sizes) != 7 {
		t.Fatalf("unexpected width %d/%d", len(prices), len(sizes))
	}
}

func TestBufferReleaseIsIdempotent(t *testing.T) {
	pool := NewBufferPool()
	buf := pool.Get(4)
	buf.Values()[0] = 3
	buf.Release()
	buf.Release()
	if buf.Values() != nil {
		t.Fatalf("released buffer still exposes values")
	}
	next := pool.Get(4)
	defer next.Release()
	for _, v := range next.Values() {
		if v != 0 {
			t.Fatalf("pooled buffer not zeroed: %v", next.Values())
		}
	}
}

func TestCreateSortsTrimsAndPads(t *testing.T) {
	a := newAlgorithm(t, 3)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	book := &marketdata.GroupedOrderbook{
		Exchange: "binance",
		Market:   "BTCUSDT",
		Time:     ts,
		Bids: []marketdata.PriceSizePair{
			{Price: 101, Size: 0},
			{Price: 99, Size: 1},
			{Price: 100, Size: 2},
			{Price: 0, Size: 5},
			{Price: math.NaN(), Size: 1},
		},
		Asks: []marketdata.PriceSizePair{
			{Price: 102, Size: 1},
			{Price: 103, Size: 0},
			{Price: 101, Size: 3},
		},
	}

	got, err := a.Create(book)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Exchange != "binance" || got.Market != "BTCUSDT" || !got.Time.Equal(ts) {
		t.Fatalf("metadata not copied: %+v", got)
	}

	bidPrices, bidSizes := pricesOf(got.Bids), sizesOf(got.Bids)
	assertFloats(t, "bid prices", bidPrices, []float64{99 * (1 + (99.0/100 - 1)), 99, 100})
	assertFloats(t, "bid sizes", bidSizes, []float64{0, 1, 2})

	askStep := 102.0/101 - 1
	assertFloats(t, "ask prices", pricesOf(got.Asks), []float64{101, 102, 102 * (1 + askStep)})
	assertFloats(t, "ask sizes", sizesOf(got.Asks), []float64{3, 1, 0})

	if book.Bids[0].Price != 101 {
		t.Fatalf("Create mutated its input")
	}
}

func TestCreateMergesEqualPrices(t *testing.T) {
	a := newAlgorithm(t, 5)
	book := &marketdata.GroupedOrderbook{
		Market: "BTCUSDT",
		Bids:   levels([]float64{99, 99, 98}, []float64{1, 2, 3}),
		Asks:   levels([]float64{100, 100}, []float64{1, 2}),
	}

	got, err := a.Create(book)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for side, pairs := range map[string][]marketdata.PriceSizePair{"bids": got.Bids, "asks": got.Asks} {
		for i := 1; i < len(pairs); i++ {
			if pairs[i].Price <= pairs[i-1].Price {
				t.Fatalf("%s: prices not strictly ascending %v", side, pairs)
			}
		}
	}
	if v := total(sizesOf(got.Bids)); v != 6 {
		t.Fatalf("expected bid volume 6, got %v", v)
	}
	if v := total(sizesOf(got.Asks)); v != 3 {
		t.Fatalf("expected ask volume 3, got %v", v)
	}
	if best := got.Bids[len(got.Bids)-1]; best.Price != 99 || best.Size != 3 {
		t.Fatalf("expected merged best bid {99 3}, got %+v", best)
	}
	if best := got.Asks[0]; best.Price != 100 || best.Size != 3 {
		t.Fatalf("expected merged best ask {100 3}, got %+v", best)
	}
	if book.Bids[0].Size != 1 || book.Asks[1].Size != 2 {
		t.Fatalf("Create mutated its input")
	}
}

func TestCreateEmptyBook(t *testing.T) {
	a := newAlgorithm(t, DefaultSize)
	got, err := a.Create(&marketdata.GroupedOrderbook{Market: "ETHUSDT"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(got.Bids) != DefaultSize || len(got.Asks) != DefaultSize {
		t.Fatalf("expected %d levels per side, got %d/%d", DefaultSize, len(got.Bids), len(got.Asks))
	}
	for _, level := range append(got.Bids, got.Asks...) {
		if level.Price != 0 || level.Size != 0 {
			t.Fatalf("expected zero levels, got %+v", level)
		}
	}
}

func TestCreateCapsDepthAtTheTouch(t *testing.T) {
	a := newAlgorithm(t, 5)
	const extra = 10
	side := make([]marketdata.PriceSizePair, MaxDepth+extra)
	for i := range side {
		side[i] = marketdata.PriceSizePair{Price: 1000 + float64(i)*0.001, Size: 1}
	}
	got, err := a.Create(&marketdata.GroupedOrderbook{Bids: side, Asks: side})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if v := total(sizesOf(got.Bids)); v != MaxDepth {
		t.Fatalf("expected bid volume %d, got %v", MaxDepth, v)
	}
	if top := got.Bids[len(got.Bids)-1].Price; top != side[len(side)-1].Price {
		t.Fatalf("best bid %v lost, got %v", side[len(side)-1].Price, top)
	}

	if v := total(sizesOf(got.Asks)); v != MaxDepth {
		t.Fatalf("expected ask volume %d, got %v", MaxDepth, v)
	}
	if best := got.Asks[0].Price; best != side[0].Price {
		t.Fatalf("best ask %v lost, got %v", side[0].Price, best)
	}
}

func sizesOf(pairs []marketdata.PriceSizePair) []float64 {
	res := make([]float64, len(pairs))
	for i, p := range pairs {
		res[i] = p.Size
	}
	return res
}
