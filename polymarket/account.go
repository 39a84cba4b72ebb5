package polymarket

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

type balanceAllowanceBody struct {
	Balance string `json:"balance"`
}

type rawPosition struct {
	ConditionID string    `json:"conditionId"`
	Asset       string    `json:"asset"`
	Outcome     string    `json:"outcome"`
	Size        flexFloat `json:"size"`
	AvgPrice    flexFloat `json:"avgPrice"`
	CurPrice    flexFloat `json:"curPrice"`
	CashPnL     flexFloat `json:"cashPnl"`
	RealizedPnL flexFloat `json:"realizedPnl"`
}

// FetchBalance returns the USDC collateral balance. The venue reports raw
// atomic units with no notion of holds, so locked funds are reconstructed
// from resting BUY orders: each locks remaining × price of collateral. The
// open-orders fetch runs concurrently with the balance read.
func (e *Exchange) FetchBalance(ctx context.Context) ([]pmxt.Balance, error) {
	auth, err := e.ensureAuth()
	if err != nil {
		return nil, err
	}

	ordersCh := make(chan []pmxt.Order, 1)
	go func() {
		orders, _ := e.FetchOpenOrders(ctx, "")
		ordersCh <- orders
	}()

	headers, err := auth.l2Headers(ctx, "GET", "/balance-allowance", "")
	if err != nil {
		return nil, err
	}

	var body balanceAllowanceBody
	resp, err := e.clob.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("asset_type", "COLLATERAL").
		SetResult(&body).
		Get("/balance-allowance")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch balance: %w", err)
	}

	total := 0.0
	if raw, err := decimal.NewFromString(body.Balance); err == nil {
		total = raw.Shift(-usdcDecimals).InexactFloat64()
	}

	var locked float64
	for _, order := range <-ordersCh {
		if order.Side == pmxt.SideBuy {
			locked += order.Remaining * order.Price
		}
	}

	return []pmxt.Balance{{
		Currency:  "USDC",
		Total:     total,
		Available: total - locked,
		Locked:    locked,
	}}, nil
}

// FetchPositions lists the wallet's positions from the public data API,
// keyed by the signer's address.
func (e *Exchange) FetchPositions(ctx context.Context) ([]pmxt.Position, error) {
	auth, err := e.ensureAuth()
	if err != nil {
		return nil, err
	}

	var raw []rawPosition
	resp, err := e.data.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user":  auth.Address(),
			"limit": "100",
		}).
		SetResult(&raw).
		Get("/positions")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("polymarket: fetch positions: %w", err)
	}

	positions := make([]pmxt.Position, 0, len(raw))
	for _, p := range raw {
		label := p.Outcome
		if label == "" {
			label = "Unknown"
		}
		positions = append(positions, pmxt.Position{
			MarketID:      p.ConditionID,
			OutcomeID:     p.Asset,
			OutcomeLabel:  label,
			Size:          float64(p.Size),
			EntryPrice:    float64(p.AvgPrice),
			CurrentPrice:  float64(p.CurPrice),
			UnrealizedPnL: float64(p.CashPnL),
			RealizedPnL:   float64(p.RealizedPnL),
		})
	}
	return positions, nil
}
