// Package stream provides live order-book streaming: a resilient
// websocket client, per-venue book-stream adapters emitting unified
// snapshots, and a fan-out hub.
package stream

import (
	"time"

	pmxt "github.com/pmxt/pmxt-go"
)

// BookUpdate is one unified order-book state emitted by a venue adapter.
// Prices are normalized to the [0,1] probability scale, bids and asks
// carry the same semantics as pmxt.OrderBook.
type BookUpdate struct {
	Venue     pmxt.Venue
	MarketID  string
	OutcomeID string
	Bids      []pmxt.Level
	Asks      []pmxt.Level
	Timestamp time.Time
}
