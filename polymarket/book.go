package polymarket

import (
	"context"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

type rawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookBody struct {
	Bids      []rawLevel `json:"bids"`
	Asks      []rawLevel `json:"asks"`
	Timestamp string     `json:"timestamp"`
}

// parseLevels converts the CLOB's decimal-string levels, dropping any that
// fail to parse.
func parseLevels(raw []rawLevel) []pmxt.Level {
	levels := make([]pmxt.Level, 0, len(raw))
	for _, l := range raw {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(l.Size)
		if err != nil {
			continue
		}
		levels = append(levels, pmxt.Level{
			Price: price.InexactFloat64(),
			Size:  size.InexactFloat64(),
		})
	}
	return levels
}

// FetchOrderBook returns the book for a CLOB token id. Failures degrade to
// an empty book.
func (e *Exchange) FetchOrderBook(ctx context.Context, id string) (*pmxt.OrderBook, error) {
	var body bookBody
	resp, err := e.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", id).
		SetResult(&body).
		Get("/book")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		e.log.Error("polymarket: orderbook fetch failed", "token", id, "err", err)
		return &pmxt.OrderBook{Bids: []pmxt.Level{}, Asks: []pmxt.Level{}}, nil
	}

	bids := parseLevels(body.Bids)
	asks := parseLevels(body.Asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	ts := e.now().UnixMilli()
	if body.Timestamp != "" {
		if parsed, err := strconv.ParseInt(body.Timestamp, 10, 64); err == nil {
			ts = parsed
		}
	}

	return &pmxt.OrderBook{Bids: bids, Asks: asks, Timestamp: ts}, nil
}
