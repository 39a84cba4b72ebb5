package polymarket

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

// usdcDecimals is the exponent for atomic order amounts; the CLOB settles
// exclusively in USDC on Polygon.
const usdcDecimals = 6

// Market orders carry the maximum acceptable slippage as their price:
// a buyer pays up to 99c, a seller accepts down to 1c.
const (
	marketBuyPrice  = 0.99
	marketSellPrice = 0.01
)

var maxSalt = new(big.Int).Lsh(big.NewInt(1), 64)

// signedOrder is the wire form of an EIP-712 signed order. Amounts travel
// as decimal strings in atomic units.
type signedOrder struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type postOrderBody struct {
	Order     signedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType string      `json:"orderType"`
}

type postOrderResult struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// rawClobOrder is the /data/order response shape. Sizes and prices are
// decimal strings; created_at is Unix seconds.
type rawClobOrder struct {
	ID           string    `json:"id"`
	Market       string    `json:"market"`
	AssetID      string    `json:"asset_id"`
	Side         string    `json:"side"`
	OrderType    string    `json:"order_type"`
	Price        string    `json:"price"`
	OriginalSize string    `json:"original_size"`
	SizeMatched  string    `json:"size_matched"`
	SizeLeft     string    `json:"size_left"`
	Status       string    `json:"status"`
	CreatedAt    flexFloat `json:"created_at"`
}

func mapClobStatus(raw string) pmxt.OrderStatus {
	switch strings.ToUpper(raw) {
	case "LIVE":
		return pmxt.OrderStatusOpen
	case "MATCHED", "FILLED":
		return pmxt.OrderStatusFilled
	case "CANCELED", "CANCELLED":
		return pmxt.OrderStatusCancelled
	}
	// No unified equivalent: pass the venue vocabulary through.
	return pmxt.OrderStatus(strings.ToLower(raw))
}

func parseDec(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func mapClobOrder(o rawClobOrder) pmxt.Order {
	side := pmxt.SideUnknown
	switch o.Side {
	case "BUY":
		side = pmxt.SideBuy
	case "SELL":
		side = pmxt.SideSell
	}
	typ := pmxt.OrderTypeMarket
	if o.OrderType == "GTC" {
		typ = pmxt.OrderTypeLimit
	}

	amount := parseDec(o.OriginalSize)
	filled := parseDec(o.SizeMatched)
	remaining := amount - filled
	if o.SizeLeft != "" {
		remaining = parseDec(o.SizeLeft)
	}

	return pmxt.Order{
		ID:        o.ID,
		MarketID:  o.Market,
		OutcomeID: o.AssetID,
		Side:      side,
		Type:      typ,
		Price:     parseDec(o.Price),
		Amount:    amount,
		Status:    mapClobStatus(o.Status),
		Filled:    filled,
		Remaining: remaining,
		Timestamp: int64(o.CreatedAt) * 1000,
	}
}

// buildOrder assembles and signs the EIP-712 order. For a BUY the maker
// gives USDC (price × size) and takes outcome tokens (size); a SELL is the
// mirror image. Amounts are computed in decimal and rounded to atomic
// units so float drift never reaches the signature.
func (a *Auth) buildOrder(tokenID string, side pmxt.Side, price, size float64) (*signedOrder, error) {
	token, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, &pmxt.ValidationError{
			Venue: pmxt.VenuePolymarket,
			Msg:   fmt.Sprintf("invalid token id %q", tokenID),
		}
	}
	salt, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	priceDec := decimal.NewFromFloat(price)
	sizeDec := decimal.NewFromFloat(size)
	tokenUnits := sizeDec.Shift(usdcDecimals).Round(0)
	usdcUnits := priceDec.Mul(sizeDec).Shift(usdcDecimals).Round(0)

	var sideCode uint8
	maker, taker := usdcUnits, tokenUnits
	if side == pmxt.SideSell {
		sideCode = 1
		maker, taker = tokenUnits, usdcUnits
	}

	order := &orderData{
		Salt:          salt,
		Maker:         a.funder,
		Signer:        a.wallet.address,
		Taker:         common.Address{},
		TokenID:       token,
		MakerAmount:   maker.BigInt(),
		TakerAmount:   taker.BigInt(),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          sideCode,
		SignatureType: uint8(a.signatureType),
	}
	sig, err := a.wallet.signOrder(order)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	return &signedOrder{
		Salt:          order.Salt.String(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenID.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          strings.ToUpper(string(side)),
		SignatureType: a.signatureType,
		Signature:     sig,
	}, nil
}

// postSigned sends a CLOB request whose body is covered by the L2 HMAC.
// The body is marshaled once so the signed bytes and the sent bytes are
// identical.
func (e *Exchange) postSigned(ctx context.Context, method, path string, body any, out any) error {
	auth, err := e.ensureAuth()
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}
	headers, err := auth.l2Headers(ctx, method, path, string(payload))
	if err != nil {
		return err
	}

	req := e.clob.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json")
	if payload != nil {
		req.SetBody(payload)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	return err
}

// CreateOrder signs and posts an order. Limit orders map to GTC, market
// orders to FOK with the maximum-slippage price.
func (e *Exchange) CreateOrder(ctx context.Context, params *pmxt.OrderParams) (*pmxt.Order, error) {
	auth, err := e.ensureAuth()
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenuePolymarket, Msg: "order params are required"}
	}
	if err := params.Validate(); err != nil {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenuePolymarket, Msg: err.Error()}
	}
	if params.OutcomeID == "" || isMarketID(params.OutcomeID) {
		return nil, &pmxt.ValidationError{
			Venue: pmxt.VenuePolymarket,
			Msg:   "orders require a CLOB token id (outcome id), not a market id",
		}
	}

	price := params.Price
	if price == 0 {
		price = marketBuyPrice
		if params.Side == pmxt.SideSell {
			price = marketSellPrice
		}
	}

	order, err := auth.buildOrder(params.OutcomeID, params.Side, price, params.Amount)
	if err != nil {
		return nil, err
	}
	creds, err := auth.apiCredentials(ctx)
	if err != nil {
		return nil, err
	}

	orderType := "FOK"
	if params.Type == pmxt.OrderTypeLimit {
		orderType = "GTC"
	}
	body := postOrderBody{Order: *order, Owner: creds.Key, OrderType: orderType}

	var result postOrderResult
	if err := e.postSigned(ctx, "POST", "/order", body, &result); err != nil {
		return nil, fmt.Errorf("polymarket: create order: %w", err)
	}
	if !result.Success {
		msg := result.ErrorMsg
		if msg == "" {
			msg = "order placement failed"
		}
		return nil, fmt.Errorf("polymarket: create order: %s", msg)
	}

	return &pmxt.Order{
		ID:        result.OrderID,
		MarketID:  params.MarketID,
		OutcomeID: params.OutcomeID,
		Side:      params.Side,
		Type:      params.Type,
		Price:     price,
		Amount:    params.Amount,
		Status:    pmxt.OrderStatusOpen,
		Filled:    0,
		Remaining: params.Amount,
		Timestamp: e.now().UnixMilli(),
	}, nil
}

// CancelOrder cancels by id. The cancel endpoint returns no order state,
// so the result is a shell carrying only identity and terminal status.
func (e *Exchange) CancelOrder(ctx context.Context, orderID string) (*pmxt.Order, error) {
	body := map[string]string{"orderID": orderID}
	if err := e.postSigned(ctx, "DELETE", "/order", body, nil); err != nil {
		return nil, fmt.Errorf("polymarket: cancel order %s: %w", orderID, err)
	}
	return &pmxt.Order{
		ID:        orderID,
		Side:      pmxt.SideUnknown,
		Type:      pmxt.OrderTypeLimit,
		Status:    pmxt.OrderStatusCancelled,
		Timestamp: e.now().UnixMilli(),
	}, nil
}

// FetchOrder looks up one order by id.
func (e *Exchange) FetchOrder(ctx context.Context, orderID string) (*pmxt.Order, error) {
	var raw rawClobOrder
	if err := e.postSigned(ctx, "GET", "/data/order/"+orderID, nil, &raw); err != nil {
		return nil, fmt.Errorf("polymarket: fetch order %s: %w", orderID, err)
	}
	order := mapClobOrder(raw)
	return &order, nil
}

// FetchOpenOrders lists live orders, optionally filtered to one market.
// Failures degrade to an empty list.
func (e *Exchange) FetchOpenOrders(ctx context.Context, marketID string) ([]pmxt.Order, error) {
	auth, err := e.ensureAuth()
	if err != nil {
		return nil, err
	}
	headers, err := auth.l2Headers(ctx, "GET", "/data/orders", "")
	if err != nil {
		return nil, err
	}

	req := e.clob.R().
		SetContext(ctx).
		SetHeaders(headers)
	if marketID != "" {
		req.SetQueryParam("market", marketID)
	}

	var raw []rawClobOrder
	resp, err := req.SetResult(&raw).Get("/data/orders")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		e.log.Error("polymarket: open orders fetch failed", "err", err)
		return []pmxt.Order{}, nil
	}

	orders := make([]pmxt.Order, 0, len(raw))
	for _, o := range raw {
		order := mapClobOrder(o)
		order.Status = pmxt.OrderStatusOpen
		order.Type = pmxt.OrderTypeLimit
		orders = append(orders, order)
	}
	return orders, nil
}
