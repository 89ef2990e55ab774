package marketdata

import (
	"cmp"
	"time"

	"github.com/google/uuid"
)

// PriceSizePair is one order book level. Pairs order by price, then size.
type PriceSizePair struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Compare orders p against other by price, then by size.
func (p PriceSizePair) Compare(other PriceSizePair) int {
	if c := cmp.Compare(p.Price, other.Price); c != 0 {
		return c
	}
	return cmp.Compare(p.Size, other.Size)
}

// GroupedOrderbook is a full-depth snapshot as received from an exchange. Sides
// are not assumed to be sorted.
type GroupedOrderbook struct {
	Exchange string          `json:"exchange"`
	Market   string          `json:"market"`
	Time     time.Time       `json:"time"`
	Bids     []PriceSizePair `json:"bids"`
	Asks     []PriceSizePair `json:"asks"`
}

// RegroupedOrderbook is a snapshot compressed into a fixed number of log-spaced
// buckets per side. Both sides are sorted ascending by price and always hold the
// same number of entries.
type RegroupedOrderbook struct {
	ID       uuid.UUID       `json:"id"`
	Exchange string          `json:"exchange"`
	Market   string          `json:"market"`
	Time     time.Time       `json:"time"`
	Bids     []PriceSizePair `json:"bids"`
	Asks     []PriceSizePair `json:"asks"`
}

// Depth returns the number of buckets per side.
func (o *RegroupedOrderbook) Depth() int {
	return len(o.Bids)
}

// Notional returns sum(price*size) over the bid and ask buckets.
func (o *RegroupedOrderbook) Notional() (bid, ask float64) {
	for _, level := range o.Bids {
		bid += level.Price * level.Size
	}
	for _, level := range o.Asks {
		ask += level.Price * level.Size
	}
	return bid, ask
}
