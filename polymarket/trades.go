package polymarket

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

type rawClobTrade struct {
	ID        string    `json:"id"`
	Timestamp flexFloat `json:"timestamp"`
	Price     string    `json:"price"`
	Size      string    `json:"size"`
	Side      string    `json:"side"`
}

// FetchTrades returns the tape for a CLOB token id. The trades endpoint
// requires L2 authentication; without credentials the result is an empty
// tape rather than an error, matching the venue's behavior for anonymous
// callers. Transport failures propagate.
func (e *Exchange) FetchTrades(ctx context.Context, id string, params *pmxt.TradesParams) ([]pmxt.Trade, error) {
	if isMarketID(id) {
		return nil, &pmxt.ValidationError{
			Venue: pmxt.VenuePolymarket,
			Msg:   fmt.Sprintf("invalid id %q: trades require a CLOB token id (outcome id), not a market id", id),
		}
	}
	if params == nil {
		params = &pmxt.TradesParams{}
	}

	if e.auth == nil {
		e.log.Debug("polymarket: trades require api credentials, returning empty tape", "token", id)
		return []pmxt.Trade{}, nil
	}
	headers, err := e.auth.l2Headers(ctx, "GET", "/trades", "")
	if err != nil {
		return nil, err
	}

	req := e.clob.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("market", id)
	if !params.Start.IsZero() {
		req.SetQueryParam("after", strconv.FormatInt(params.Start.Unix(), 10))
	}
	if !params.End.IsZero() {
		req.SetQueryParam("before", strconv.FormatInt(params.End.Unix(), 10))
	}

	var raw []rawClobTrade
	resp, err := req.SetResult(&raw).Get("/trades")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("polymarket: trades for %s: %w", id, err)
	}

	trades := make([]pmxt.Trade, 0, len(raw))
	for _, t := range raw {
		var price, size float64
		if d, err := decimal.NewFromString(t.Price); err == nil {
			price = d.InexactFloat64()
		}
		if d, err := decimal.NewFromString(t.Size); err == nil {
			size = d.InexactFloat64()
		}

		side := pmxt.SideUnknown
		switch t.Side {
		case "BUY":
			side = pmxt.SideBuy
		case "SELL":
			side = pmxt.SideSell
		}

		tradeID := t.ID
		if tradeID == "" {
			tradeID = fmt.Sprintf("%d-%s", int64(t.Timestamp), t.Price)
		}

		trades = append(trades, pmxt.Trade{
			ID:        tradeID,
			Timestamp: int64(t.Timestamp) * 1000,
			Price:     price,
			Amount:    size,
			Side:      side,
		})
	}

	if params.Limit > 0 && len(trades) > params.Limit {
		trades = trades[len(trades)-params.Limit:]
	}
	return trades, nil
}
