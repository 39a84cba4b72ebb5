package kalshi

import (
	"context"
	"sort"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

type orderbookBody struct {
	Orderbook struct {
		Yes [][2]float64 `json:"yes"`
		No  [][2]float64 `json:"no"`
	} `json:"orderbook"`
}

// FetchOrderBook returns the book for a market ticker. Yes bids map to
// bids directly; asks are derived from the no side as (100 − price)/100
// and clamped to [0, 1] against stale or crossed venue data. Failures
// degrade to an empty book.
func (e *Exchange) FetchOrderBook(ctx context.Context, id string) (*pmxt.OrderBook, error) {
	ticker := cleanTicker(id)

	var body orderbookBody
	resp, err := e.market.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/markets/" + ticker + "/orderbook")
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		e.log.Error("kalshi: orderbook fetch failed", "ticker", ticker, "err", err)
		return &pmxt.OrderBook{Bids: []pmxt.Level{}, Asks: []pmxt.Level{}}, nil
	}

	bids := make([]pmxt.Level, 0, len(body.Orderbook.Yes))
	for _, level := range body.Orderbook.Yes {
		bids = append(bids, pmxt.Level{Price: clamp01(level[0] / 100), Size: level[1]})
	}
	asks := make([]pmxt.Level, 0, len(body.Orderbook.No))
	for _, level := range body.Orderbook.No {
		asks = append(asks, pmxt.Level{Price: clamp01((100 - level[0]) / 100), Size: level[1]})
	}

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	return &pmxt.OrderBook{
		Bids:      bids,
		Asks:      asks,
		Timestamp: e.now().UnixMilli(),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
