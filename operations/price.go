package operations

import (
	"time"

	"github.com/robinvdvleuten/zhang/store"
)

// GetPrice returns the most recent price for (from → to) recorded at or
// before the given instant, or nil when no such price exists.
func (o *Operations) GetPrice(date time.Time, from, to string) *store.PriceDomain {
	var best *store.PriceDomain
	for i := range o.Store.Prices {
		p := &o.Store.Prices[i]
		if p.Commodity != from || p.TargetCommodity != to || p.Datetime.After(date) {
			continue
		}
		if best == nil || p.Datetime.After(best.Datetime) {
			best = p
		}
	}
	return best
}

// GetLatestPrice returns the most recent price for (from → to) regardless
// of date.
func (o *Operations) GetLatestPrice(from, to string) *store.PriceDomain {
	var best *store.PriceDomain
	for i := range o.Store.Prices {
		p := &o.Store.Prices[i]
		if p.Commodity != from || p.TargetCommodity != to {
			continue
		}
		if best == nil || p.Datetime.After(best.Datetime) {
			best = p
		}
	}
	return best
}

// CommodityPrices returns every recorded price point of a commodity.
func (o *Operations) CommodityPrices(commodity string) []store.PriceDomain {
	var prices []store.PriceDomain
	for _, p := range o.Store.Prices {
		if p.Commodity == commodity {
			prices = append(prices, p)
		}
	}
	return prices
}
