package kalshi

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

// --- Raw wire types ---

type rawOrder struct {
	OrderID        string  `json:"order_id"`
	Ticker         string  `json:"ticker"`
	Side           string  `json:"side"`
	Type           string  `json:"type"`
	YesPrice       float64 `json:"yes_price"`
	NoPrice        float64 `json:"no_price"`
	Count          float64 `json:"count"`
	RemainingCount float64 `json:"remaining_count"`
	QueuePosition  float64 `json:"queue_position"`
	Status         string  `json:"status"`
	CreatedTime    string  `json:"created_time"`
}

type orderEnvelope struct {
	Order rawOrder `json:"order"`
}

type ordersEnvelope struct {
	Orders []rawOrder `json:"orders"`
}

type balanceBody struct {
	Balance        float64 `json:"balance"`
	PortfolioValue float64 `json:"portfolio_value"`
}

type positionsBody struct {
	MarketPositions []struct {
		Ticker         string  `json:"ticker"`
		Position       float64 `json:"position"`
		TotalCost      float64 `json:"total_cost"`
		MarketPrice    float64 `json:"market_price"`
		MarketExposure float64 `json:"market_exposure"`
		RealizedPnL    float64 `json:"realized_pnl"`
	} `json:"market_positions"`
}

// createOrderBody is the venue-native submission shape. The price field is
// keyed by whichever side is active.
type createOrderBody struct {
	Ticker        string  `json:"ticker"`
	ClientOrderID string  `json:"client_order_id"`
	Side          string  `json:"side"`
	Action        string  `json:"action"`
	Count         float64 `json:"count"`
	Type          string  `json:"type"`
	YesPrice      *int    `json:"yes_price,omitempty"`
	NoPrice       *int    `json:"no_price,omitempty"`
}

// signedHeaders produces the auth headers for a portfolio request. Only
// the path is signed; query parameters are excluded by venue contract.
func (e *Exchange) signedHeaders(method, path string) (map[string]string, error) {
	auth, err := e.ensureAuth()
	if err != nil {
		return nil, err
	}
	return auth.Headers(method, path)
}

func mapOrderStatus(status string) pmxt.OrderStatus {
	switch status {
	case "resting":
		return pmxt.OrderStatusOpen
	case "canceled", "cancelled":
		return pmxt.OrderStatusCancelled
	case "executed", "filled":
		return pmxt.OrderStatusFilled
	default:
		return pmxt.OrderStatusOpen
	}
}

func parseCreatedTime(s string) int64 {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli()
	}
	return 0
}

// mapOrder converts a venue order into the unified shape. The contract
// ticker doubles as both market and outcome identity on this venue.
func mapOrder(o rawOrder) pmxt.Order {
	side := pmxt.SideSell
	if o.Side == "yes" {
		side = pmxt.SideBuy
	}
	typ := pmxt.OrderTypeMarket
	if o.Type == "limit" {
		typ = pmxt.OrderTypeLimit
	}
	var price float64
	if o.YesPrice != 0 {
		price = o.YesPrice / 100
	}
	return pmxt.Order{
		ID:        o.OrderID,
		MarketID:  o.Ticker,
		OutcomeID: o.Ticker,
		Side:      side,
		Type:      typ,
		Price:     price,
		Amount:    o.Count,
		Status:    mapOrderStatus(o.Status),
		Filled:    o.Count - o.RemainingCount,
		Remaining: o.RemainingCount,
		Timestamp: parseCreatedTime(o.CreatedTime),
	}
}

// CreateOrder submits an order. Unified buy maps to the venue's yes side;
// a supplied price is converted to integer cents and keyed by the active
// side. Submission errors propagate; nothing is retried.
func (e *Exchange) CreateOrder(ctx context.Context, params *pmxt.OrderParams) (*pmxt.Order, error) {
	if _, err := e.ensureAuth(); err != nil {
		return nil, err
	}
	if params == nil {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenueKalshi, Msg: "order params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenueKalshi, Msg: err.Error()}
	}

	isYes := params.Side == pmxt.SideBuy
	body := createOrderBody{
		Ticker:        params.MarketID,
		ClientOrderID: "pmxt-" + uuid.NewString(),
		Side:          "no",
		Action:        string(params.Side),
		Count:         params.Amount,
		Type:          string(params.Type),
	}
	if isYes {
		body.Side = "yes"
	}
	if params.Price != 0 {
		cents := int(math.Round(params.Price * 100))
		if isYes {
			body.YesPrice = &cents
		} else {
			body.NoPrice = &cents
		}
	}

	path := tradePrefix + "/portfolio/orders"
	headers, err := e.signedHeaders("POST", path)
	if err != nil {
		return nil, err
	}

	var result orderEnvelope
	resp, err := e.trade.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		SetResult(&result).
		Post(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("kalshi: create order: %w", err)
	}

	order := result.Order
	filled := 0.0
	if order.QueuePosition == 0 && order.Status != "resting" {
		filled = params.Amount
	}
	remaining := order.RemainingCount
	if remaining == 0 && filled == 0 {
		remaining = params.Amount
	}
	return &pmxt.Order{
		ID:        order.OrderID,
		MarketID:  params.MarketID,
		OutcomeID: params.OutcomeID,
		Side:      params.Side,
		Type:      params.Type,
		Price:     params.Price,
		Amount:    params.Amount,
		Status:    mapOrderStatus(order.Status),
		Filled:    filled,
		Remaining: remaining,
		Timestamp: parseCreatedTime(order.CreatedTime),
	}, nil
}

// CancelOrder cancels by id and returns the terminal unified order.
func (e *Exchange) CancelOrder(ctx context.Context, orderID string) (*pmxt.Order, error) {
	path := tradePrefix + "/portfolio/orders/" + orderID
	headers, err := e.signedHeaders("DELETE", path)
	if err != nil {
		return nil, err
	}

	var result orderEnvelope
	resp, err := e.trade.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Delete(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("kalshi: cancel order %s: %w", orderID, err)
	}

	order := mapOrder(result.Order)
	order.Status = pmxt.OrderStatusCancelled
	order.Filled = result.Order.Count - result.Order.RemainingCount
	order.Remaining = 0
	return &order, nil
}

// FetchOrder looks up one order by id.
func (e *Exchange) FetchOrder(ctx context.Context, orderID string) (*pmxt.Order, error) {
	path := tradePrefix + "/portfolio/orders/" + orderID
	headers, err := e.signedHeaders("GET", path)
	if err != nil {
		return nil, err
	}

	var result orderEnvelope
	resp, err := e.trade.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch order %s: %w", orderID, err)
	}

	order := mapOrder(result.Order)
	return &order, nil
}

// FetchOpenOrders lists resting orders, optionally filtered by ticker.
// The signature covers only the base path; the status and ticker filters
// ride as unsigned query parameters. Failures degrade to an empty list.
func (e *Exchange) FetchOpenOrders(ctx context.Context, marketID string) ([]pmxt.Order, error) {
	path := tradePrefix + "/portfolio/orders"
	headers, err := e.signedHeaders("GET", path)
	if err != nil {
		return nil, err
	}

	req := e.trade.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("status", "resting")
	if marketID != "" {
		req.SetQueryParam("ticker", marketID)
	}

	var result ordersEnvelope
	resp, err := req.SetResult(&result).Get(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		e.log.Error("kalshi: open orders fetch failed", "err", err)
		return []pmxt.Order{}, nil
	}

	orders := make([]pmxt.Order, 0, len(result.Orders))
	for _, o := range result.Orders {
		order := mapOrder(o)
		order.Status = pmxt.OrderStatusOpen
		orders = append(orders, order)
	}
	return orders, nil
}

// FetchPositions lists portfolio positions. Entry price is reconstructed
// from total cost over absolute size; flat positions report zero.
// Failures degrade to an empty list.
func (e *Exchange) FetchPositions(ctx context.Context) ([]pmxt.Position, error) {
	path := tradePrefix + "/portfolio/positions"
	headers, err := e.signedHeaders("GET", path)
	if err != nil {
		return nil, err
	}

	var result positionsBody
	resp, err := e.trade.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		e.log.Error("kalshi: positions fetch failed", "err", err)
		return []pmxt.Position{}, nil
	}

	positions := make([]pmxt.Position, 0, len(result.MarketPositions))
	for _, p := range result.MarketPositions {
		abs := math.Abs(p.Position)
		var entry float64
		if abs > 0 {
			entry = p.TotalCost / abs / 100
		}
		current := entry
		if p.MarketPrice != 0 {
			current = p.MarketPrice / 100
		}
		positions = append(positions, pmxt.Position{
			MarketID:      p.Ticker,
			OutcomeID:     p.Ticker,
			OutcomeLabel:  p.Ticker,
			Size:          p.Position,
			EntryPrice:    entry,
			CurrentPrice:  current,
			UnrealizedPnL: p.MarketExposure / 100,
			RealizedPnL:   p.RealizedPnL / 100,
		})
	}
	return positions, nil
}

// FetchBalance returns the USD balance. The venue reports available cash
// and total portfolio value in cents; locked is the difference.
func (e *Exchange) FetchBalance(ctx context.Context) ([]pmxt.Balance, error) {
	path := tradePrefix + "/portfolio/balance"
	headers, err := e.signedHeaders("GET", path)
	if err != nil {
		return nil, err
	}

	var result balanceBody
	resp, err := e.trade.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch balance: %w", err)
	}

	available := result.Balance / 100
	total := result.PortfolioValue / 100
	return []pmxt.Balance{{
		Currency:  "USD",
		Total:     total,
		Available: available,
		Locked:    total - available,
	}}, nil
}
