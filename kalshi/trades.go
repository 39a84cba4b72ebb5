package kalshi

import (
	"context"
	"strconv"
	"time"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

const defaultTradesLimit = 100

type rawTrade struct {
	TradeID     string  `json:"trade_id"`
	CreatedTime string  `json:"created_time"`
	YesPrice    float64 `json:"yes_price"`
	Count       float64 `json:"count"`
	TakerSide   string  `json:"taker_side"`
}

type tradesBody struct {
	Trades []rawTrade `json:"trades"`
}

// FetchTrades returns the venue tape for a market ticker, normalizing the
// yes/no taker-side vocabulary. Failures degrade to an empty tape.
func (e *Exchange) FetchTrades(ctx context.Context, id string, params *pmxt.TradesParams) ([]pmxt.Trade, error) {
	if params == nil {
		params = &pmxt.TradesParams{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultTradesLimit
	}
	ticker := cleanTicker(id)

	var body tradesBody
	resp, err := e.market.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ticker": ticker,
			"limit":  strconv.Itoa(limit),
		}).
		SetResult(&body).
		Get("/markets/trades")
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		e.log.Error("kalshi: trades fetch failed", "ticker", ticker, "err", err)
		return []pmxt.Trade{}, nil
	}

	trades := make([]pmxt.Trade, 0, len(body.Trades))
	for _, t := range body.Trades {
		side := pmxt.SideSell
		if t.TakerSide == "yes" {
			side = pmxt.SideBuy
		}
		var ts int64
		if created, err := time.Parse(time.RFC3339, t.CreatedTime); err == nil {
			ts = created.UnixMilli()
		}
		trades = append(trades, pmxt.Trade{
			ID:        t.TradeID,
			Timestamp: ts,
			Price:     t.YesPrice / 100,
			Amount:    t.Count,
			Side:      side,
		})
	}
	return trades, nil
}
