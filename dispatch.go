package pmxt

import (
	"context"
	"fmt"
)

// Op names one facade operation. External routers select operations by Op
// value through Call instead of reflecting over method names.
type Op string

const (
	OpFetchMarkets     Op = "fetchMarkets"
	OpSearchMarkets    Op = "searchMarkets"
	OpGetMarketsBySlug Op = "getMarketsBySlug"
	OpFetchOHLCV       Op = "fetchOHLCV"
	OpFetchOrderBook   Op = "fetchOrderBook"
	OpFetchTrades      Op = "fetchTrades"
	OpCreateOrder      Op = "createOrder"
	OpCancelOrder      Op = "cancelOrder"
	OpFetchOrder       Op = "fetchOrder"
	OpFetchOpenOrders  Op = "fetchOpenOrders"
	OpFetchPositions   Op = "fetchPositions"
	OpFetchBalance     Op = "fetchBalance"
)

// Request carries the union of operation arguments. Each handler reads only
// the fields its operation defines.
type Request struct {
	ID      string // outcome identity, order id, or slug depending on op
	Query   string
	Markets *MarketsParams
	Search  *SearchParams
	History *HistoryParams
	Trades  *TradesParams
	Order   *OrderParams
}

type handler func(ctx context.Context, ex Exchange, req *Request) (any, error)

// ops is the explicit command table mapping operation names to typed
// handlers.
var ops = map[Op]handler{
	OpFetchMarkets: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchMarkets(ctx, req.Markets)
	},
	OpSearchMarkets: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.SearchMarkets(ctx, req.Query, req.Search)
	},
	OpGetMarketsBySlug: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.GetMarketsBySlug(ctx, req.ID)
	},
	OpFetchOHLCV: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchOHLCV(ctx, req.ID, req.History)
	},
	OpFetchOrderBook: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchOrderBook(ctx, req.ID)
	},
	OpFetchTrades: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchTrades(ctx, req.ID, req.Trades)
	},
	OpCreateOrder: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.CreateOrder(ctx, req.Order)
	},
	OpCancelOrder: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.CancelOrder(ctx, req.ID)
	},
	OpFetchOrder: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchOrder(ctx, req.ID)
	},
	OpFetchOpenOrders: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchOpenOrders(ctx, req.ID)
	},
	OpFetchPositions: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchPositions(ctx)
	},
	OpFetchBalance: func(ctx context.Context, ex Exchange, req *Request) (any, error) {
		return ex.FetchBalance(ctx)
	},
}

// Call invokes the named operation on ex. Unknown operations return an
// error rather than panicking, so routers can surface bad requests.
func Call(ctx context.Context, ex Exchange, op Op, req *Request) (any, error) {
	h, ok := ops[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if req == nil {
		req = &Request{}
	}
	return h(ctx, ex, req)
}
