package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	pmxt "github.com/pmxt/pmxt-go"
)

// DefaultPolymarketURL is the public CLOB market-channel endpoint.
const DefaultPolymarketURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// polySubscribe is the market-channel subscription message.
type polySubscribe struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids"`
}

type polyEnvelope struct {
	EventType string `json:"event_type"`
}

type polyLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type polyBookEvent struct {
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Bids      []polyLevel `json:"bids"`
	Asks      []polyLevel `json:"asks"`
	Timestamp string      `json:"timestamp"`
}

// Polymarket parses CLOB market-channel book events into unified updates.
// The venue sends full book snapshots, so no local state is kept.
type Polymarket struct {
	ws  *Client
	log *slog.Logger

	raw     <-chan []byte
	updates chan BookUpdate
}

// NewPolymarket creates the adapter backed by the given client.
func NewPolymarket(ws *Client, log *slog.Logger) *Polymarket {
	if log == nil {
		log = slog.Default()
	}
	return &Polymarket{
		ws:      ws,
		log:     log,
		raw:     ws.Subscribe(),
		updates: make(chan BookUpdate, 1024),
	}
}

// Updates returns the channel of unified book updates.
func (p *Polymarket) Updates() <-chan BookUpdate { return p.updates }

// SubscribeToken sends a market-channel subscription for a CLOB token id.
func (p *Polymarket) SubscribeToken(tokenID string) {
	msg, _ := json.Marshal(polySubscribe{
		Type:     "market",
		AssetIDs: []string{tokenID},
	})
	p.ws.Send(msg)
}

// Run consumes the client fan-out until ctx is cancelled.
func (p *Polymarket) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-p.raw:
			if !ok {
				return
			}
			p.handleMessage(raw)
		}
	}
}

func (p *Polymarket) handleMessage(raw []byte) {
	var env polyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		p.log.Warn("polymarket stream: invalid JSON", "err", err)
		return
	}

	switch env.EventType {
	case "book":
		p.handleBook(raw)
	case "error":
		p.log.Error("polymarket stream: venue error", "raw", string(raw))
	default:
		// price_change, tick_size_change, last_trade_price ignored.
	}
}

func (p *Polymarket) handleBook(raw []byte) {
	var ev polyBookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.log.Warn("polymarket stream: bad book event", "err", err)
		return
	}

	bids := parseStreamLevels(ev.Bids)
	asks := parseStreamLevels(ev.Asks)
	// Venue order is not guaranteed; re-sort to the pmxt.OrderBook
	// contract of bids descending and asks ascending.
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	update := BookUpdate{
		Venue:     pmxt.VenuePolymarket,
		MarketID:  ev.Market,
		OutcomeID: ev.AssetID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: parsePolyTimestamp(ev.Timestamp),
	}

	select {
	case p.updates <- update:
	default:
		p.log.Warn("polymarket stream: updates channel full, dropping", "token", ev.AssetID)
	}
}

// parseStreamLevels converts decimal-string levels, dropping any that fail
// to parse.
func parseStreamLevels(raw []polyLevel) []pmxt.Level {
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

// parsePolyTimestamp converts a Unix-millisecond string.
func parsePolyTimestamp(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
