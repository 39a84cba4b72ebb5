// Package pmxt defines the unified data model and operation contract shared
// by all prediction-market venue adapters. Each venue package (kalshi,
// polymarket) implements the Exchange interface independently; callers
// depend only on this package.
package pmxt

import "context"

// Exchange is the common operation contract implemented once per venue.
// Read operations degrade or propagate per the venue's error policy;
// trading and account operations require credentials and return
// ErrAuthRequired otherwise.
type Exchange interface {
	// Name returns the venue's display name.
	Name() string

	// FetchMarkets lists normalized markets, sorted and truncated per params.
	FetchMarkets(ctx context.Context, params *MarketsParams) ([]Market, error)

	// SearchMarkets materializes the full catalog and filters it with a
	// case-insensitive substring test against the scoped fields.
	SearchMarkets(ctx context.Context, query string, params *SearchParams) ([]Market, error)

	// GetMarketsBySlug looks up the markets of a single event by its
	// URL slug or event ticker.
	GetMarketsBySlug(ctx context.Context, slug string) ([]Market, error)

	// FetchOHLCV returns price candles for an outcome identity.
	FetchOHLCV(ctx context.Context, id string, params *HistoryParams) ([]Candle, error)

	// FetchOrderBook returns the current book for an outcome identity,
	// bids descending and asks ascending.
	FetchOrderBook(ctx context.Context, id string) (*OrderBook, error)

	// FetchTrades returns the venue tape for an outcome identity.
	FetchTrades(ctx context.Context, id string, params *TradesParams) ([]Trade, error)

	// CreateOrder submits an order. At-most-once: no retry is attempted.
	CreateOrder(ctx context.Context, params *OrderParams) (*Order, error)

	// CancelOrder cancels an order by id.
	CancelOrder(ctx context.Context, orderID string) (*Order, error)

	// FetchOrder looks up a single order by id.
	FetchOrder(ctx context.Context, orderID string) (*Order, error)

	// FetchOpenOrders lists resting orders, optionally filtered by market.
	FetchOpenOrders(ctx context.Context, marketID string) ([]Order, error)

	// FetchPositions lists current portfolio positions.
	FetchPositions(ctx context.Context) ([]Position, error)

	// FetchBalance returns per-currency account balances.
	FetchBalance(ctx context.Context) ([]Balance, error)
}

// Unsupported provides ErrNotSupported defaults for every Exchange
// operation. Venue implementations embed it and override what they
// support, so adding a contract method does not break existing venues.
type Unsupported struct{}

func (Unsupported) FetchMarkets(context.Context, *MarketsParams) ([]Market, error) {
	return nil, ErrNotSupported
}

func (Unsupported) SearchMarkets(context.Context, string, *SearchParams) ([]Market, error) {
	return nil, ErrNotSupported
}

func (Unsupported) GetMarketsBySlug(context.Context, string) ([]Market, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOHLCV(context.Context, string, *HistoryParams) ([]Candle, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOrderBook(context.Context, string) (*OrderBook, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchTrades(context.Context, string, *TradesParams) ([]Trade, error) {
	return nil, ErrNotSupported
}

func (Unsupported) CreateOrder(context.Context, *OrderParams) (*Order, error) {
	return nil, ErrNotSupported
}

func (Unsupported) CancelOrder(context.Context, string) (*Order, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOrder(context.Context, string) (*Order, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOpenOrders(context.Context, string) ([]Order, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchPositions(context.Context) ([]Position, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchBalance(context.Context) ([]Balance, error) {
	return nil, ErrNotSupported
}
