package pmxt

import "time"

// Venue identifies a supported prediction-market platform.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// Side represents the direction of an order or trade.
type Side string

const (
	SideBuy     Side = "buy"
	SideSell    Side = "sell"
	SideUnknown Side = "unknown"
)

// OrderType distinguishes execution semantics.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the unified order lifecycle state. Venues whose raw status
// has no unified equivalent pass the raw string through unmapped.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Resolution is the candle bucket granularity for history requests.
type Resolution string

const (
	Resolution1m  Resolution = "1m"
	Resolution5m  Resolution = "5m"
	Resolution15m Resolution = "15m"
	Resolution1h  Resolution = "1h"
	Resolution6h  Resolution = "6h"
	Resolution1d  Resolution = "1d"
)

// SearchScope selects which fields a text search is applied to.
type SearchScope string

const (
	SearchTitle       SearchScope = "title"
	SearchDescription SearchScope = "description"
	SearchBoth        SearchScope = "both"
)

// SortKey selects the catalog sort order applied after normalization.
type SortKey string

const (
	SortVolume    SortKey = "volume"
	SortLiquidity SortKey = "liquidity"
	SortNewest    SortKey = "newest"
)

// Outcome is one tradeable side of a market. ID is the venue's tradeable
// unit (a contract ticker or an order-book token id), never the market id.
type Outcome struct {
	ID             string
	Label          string
	Price          float64
	PriceChange24h float64
	Metadata       map[string]string
}

// Market is the venue-agnostic market entity produced by the normalization
// mappers. Values are fully populated: numeric fields missing from the
// source default to zero so markets sort comparably.
type Market struct {
	ID             string
	Title          string
	Description    string
	Outcomes       []Outcome
	ResolutionDate time.Time
	Volume24h      float64
	Volume         float64
	Liquidity      float64
	OpenInterest   float64
	URL            string
	Image          string
	Category       string
	Tags           []string
}

// Candle is a single OHLCV bucket. Timestamp is Unix milliseconds, floored
// to the requested resolution's bucket boundary.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Level is a single order-book price level.
type Level struct {
	Price float64
	Size  float64
}

// OrderBook holds bid levels sorted descending and ask levels sorted
// ascending by price. Timestamp is Unix milliseconds of the snapshot.
type OrderBook struct {
	Bids      []Level
	Asks      []Level
	Timestamp int64
}

// Trade is a single entry from the venue's tape. Timestamp is Unix ms.
type Trade struct {
	ID        string
	Timestamp int64
	Price     float64
	Amount    float64
	Side      Side
}

// Order is the unified order shape returned by the trading adapters.
// Orders are never mutated in place; state changes are observed by
// re-fetching venue state.
type Order struct {
	ID        string
	MarketID  string
	OutcomeID string
	Side      Side
	Type      OrderType
	Price     float64
	Amount    float64
	Status    OrderStatus
	Filled    float64
	Remaining float64
	Timestamp int64
	Fee       float64
}

// Position is a unified portfolio position. Size is signed: positive long,
// negative short.
type Position struct {
	MarketID      string
	OutcomeID     string
	OutcomeLabel  string
	Size          float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

// Balance is a per-currency account balance. Available + Locked ≈ Total
// modulo venue rounding.
type Balance struct {
	Currency  string
	Total     float64
	Available float64
	Locked    float64
}

// Credentials is the venue-agnostic credential bag. Each venue's auth
// provider validates only the subset it requires.
type Credentials struct {
	APIKey        string
	APISecret     string
	Passphrase    string
	PrivateKey    string
	SignatureType int
	FunderAddress string
}

// MarketsParams controls catalog listing.
type MarketsParams struct {
	Limit  int
	Offset int
	Sort   SortKey
}

// SearchParams controls client-side catalog search.
type SearchParams struct {
	Limit    int
	Sort     SortKey
	SearchIn SearchScope
}

// HistoryParams controls OHLCV requests. When Start is zero a lookback
// window is computed from Limit × Resolution.
type HistoryParams struct {
	Resolution Resolution
	Start      time.Time
	End        time.Time
	Limit      int
}

// TradesParams controls tape requests.
type TradesParams struct {
	Start time.Time
	End   time.Time
	Limit int
}

// OrderParams describes an order submission in unified terms.
type OrderParams struct {
	MarketID  string
	OutcomeID string
	Side      Side
	Type      OrderType
	Amount    float64
	Price     float64 // required for limit orders; 0 means unset
}
