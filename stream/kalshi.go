package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/kalshi"
)

// DefaultKalshiURL is the production market-data websocket endpoint.
const DefaultKalshiURL = "wss://api.elections.kalshi.com/trade-api/ws/v2"

// kalshiWSPath is the path signed into the websocket upgrade request.
const kalshiWSPath = "/trade-api/ws/v2"

// KalshiHandshakeHeaders builds the signed headers for the websocket
// upgrade request, using the same RSA-PSS scheme as the REST portfolio
// endpoints.
func KalshiHandshakeHeaders(creds pmxt.Credentials) (http.Header, error) {
	auth, err := kalshi.NewAuth(creds)
	if err != nil {
		return nil, err
	}
	signed, err := auth.Headers("GET", kalshiWSPath)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	for k, v := range signed {
		headers.Set(k, v)
	}
	return headers, nil
}

// kalshiCommand is the venue's websocket command envelope.
type kalshiCommand struct {
	ID     int                 `json:"id"`
	Cmd    string              `json:"cmd"`
	Params kalshiCommandParams `json:"params"`
}

type kalshiCommandParams struct {
	Channels     []string `json:"channels"`
	MarketTicker string   `json:"market_ticker"`
}

type kalshiEnvelope struct {
	Type string `json:"type"`
}

type kalshiSnapshot struct {
	Msg struct {
		MarketTicker string   `json:"market_ticker"`
		MarketID     string   `json:"market_id"`
		Yes          [][2]int `json:"yes"`
		No           [][2]int `json:"no"`
	} `json:"msg"`
}

type kalshiDelta struct {
	Msg struct {
		MarketTicker string `json:"market_ticker"`
		Price        int    `json:"price"`
		Delta        int    `json:"delta"`
		Side         string `json:"side"`
	} `json:"msg"`
}

// kalshiBook is per-market book state: price in cents mapped to resting
// quantity, one map per side.
type kalshiBook struct {
	marketID string
	yes      map[int]int
	no       map[int]int
}

// Kalshi maintains live contract books from the venue's orderbook_delta
// channel and emits unified snapshots after every change.
type Kalshi struct {
	ws  *Client
	log *slog.Logger

	raw     <-chan []byte
	updates chan BookUpdate

	mu    sync.RWMutex
	books map[string]*kalshiBook

	cmdID int
}

// NewKalshi creates the adapter backed by the given client. It subscribes
// to the client fan-out immediately so no messages are missed.
func NewKalshi(ws *Client, log *slog.Logger) *Kalshi {
	if log == nil {
		log = slog.Default()
	}
	return &Kalshi{
		ws:      ws,
		log:     log,
		raw:     ws.Subscribe(),
		updates: make(chan BookUpdate, 1024),
		books:   make(map[string]*kalshiBook),
	}
}

// Updates returns the channel of unified book updates.
func (k *Kalshi) Updates() <-chan BookUpdate { return k.updates }

// SubscribeMarket sends an orderbook_delta subscription for a ticker.
func (k *Kalshi) SubscribeMarket(ticker string) {
	k.cmdID++
	msg, _ := json.Marshal(kalshiCommand{
		ID:  k.cmdID,
		Cmd: "subscribe",
		Params: kalshiCommandParams{
			Channels:     []string{"orderbook_delta"},
			MarketTicker: ticker,
		},
	})
	k.ws.Send(msg)
}

// Run consumes the client fan-out until ctx is cancelled.
func (k *Kalshi) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-k.raw:
			if !ok {
				return
			}
			k.handleMessage(raw)
		}
	}
}

func (k *Kalshi) handleMessage(raw []byte) {
	var env kalshiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		k.log.Warn("kalshi stream: invalid JSON", "err", err)
		return
	}

	switch env.Type {
	case "orderbook_snapshot":
		k.handleSnapshot(raw)
	case "orderbook_delta":
		k.handleDelta(raw)
	case "error":
		k.log.Error("kalshi stream: venue error", "raw", string(raw))
	default:
		// Subscription acks and heartbeats ignored.
	}
}

func (k *Kalshi) handleSnapshot(raw []byte) {
	var snap kalshiSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		k.log.Warn("kalshi stream: bad snapshot", "err", err)
		return
	}

	book := &kalshiBook{
		marketID: snap.Msg.MarketID,
		yes:      make(map[int]int, len(snap.Msg.Yes)),
		no:       make(map[int]int, len(snap.Msg.No)),
	}
	for _, level := range snap.Msg.Yes {
		book.yes[level[0]] = level[1]
	}
	for _, level := range snap.Msg.No {
		book.no[level[0]] = level[1]
	}

	k.mu.Lock()
	k.books[snap.Msg.MarketTicker] = book
	k.mu.Unlock()

	k.emit(snap.Msg.MarketTicker, book)
}

func (k *Kalshi) handleDelta(raw []byte) {
	var delta kalshiDelta
	if err := json.Unmarshal(raw, &delta); err != nil {
		k.log.Warn("kalshi stream: bad delta", "err", err)
		return
	}

	k.mu.Lock()
	book, ok := k.books[delta.Msg.MarketTicker]
	if !ok {
		// Delta before snapshot: nothing to apply it to.
		k.mu.Unlock()
		return
	}

	side := book.yes
	if delta.Msg.Side == "no" {
		side = book.no
	}
	qty := side[delta.Msg.Price] + delta.Msg.Delta
	if qty <= 0 {
		delete(side, delta.Msg.Price)
	} else {
		side[delta.Msg.Price] = qty
	}
	k.mu.Unlock()

	k.emit(delta.Msg.MarketTicker, book)
}

// emit converts book state into a unified update. Yes bids map to bids at
// cents/100; resting no orders imply asks at (100 − cents)/100, matching
// the REST book normalization. Levels are sorted the way pmxt.OrderBook
// orders them: bids descending, asks ascending.
func (k *Kalshi) emit(ticker string, book *kalshiBook) {
	k.mu.RLock()
	bids := make([]pmxt.Level, 0, len(book.yes))
	for cents, qty := range book.yes {
		bids = append(bids, pmxt.Level{Price: float64(cents) / 100, Size: float64(qty)})
	}
	asks := make([]pmxt.Level, 0, len(book.no))
	for cents, qty := range book.no {
		asks = append(asks, pmxt.Level{Price: float64(100-cents) / 100, Size: float64(qty)})
	}
	marketID := book.marketID
	k.mu.RUnlock()

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	update := BookUpdate{
		Venue:     pmxt.VenueKalshi,
		MarketID:  marketID,
		OutcomeID: ticker,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}

	select {
	case k.updates <- update:
	default:
		k.log.Warn("kalshi stream: updates channel full, dropping", "ticker", ticker)
	}
}
