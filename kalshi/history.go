package kalshi

import (
	"context"
	"fmt"
	"strconv"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

// intervalMinutes maps a unified resolution onto the venue's candlestick
// period_interval granularity. The venue only offers 1, 60, and 1440
// minute buckets, so sub-hour resolutions collapse to 1 minute.
func intervalMinutes(r pmxt.Resolution) (int, bool) {
	switch r {
	case pmxt.Resolution1m, pmxt.Resolution5m, pmxt.Resolution15m:
		return 1, true
	case pmxt.Resolution1h, pmxt.Resolution6h:
		return 60, true
	case pmxt.Resolution1d:
		return 1440, true
	}
	return 0, false
}

// candleSide holds one OHLC quadruple from the venue; pointers distinguish
// absent fields from genuine zeros.
type candleSide struct {
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Close    *float64 `json:"close"`
	Previous *float64 `json:"previous"`
}

type rawCandle struct {
	EndPeriodTS int64      `json:"end_period_ts"`
	Price       candleSide `json:"price"`
	YesAsk      candleSide `json:"yes_ask"`
	YesBid      candleSide `json:"yes_bid"`
	Volume      float64    `json:"volume"`
}

type candlesticksBody struct {
	Candlesticks []rawCandle `json:"candlesticks"`
}

// field extracts one OHLC field with the venue's fallback chain: the
// transaction price, else the bid/ask midpoint, else the previous price.
func (c rawCandle) field(pick func(candleSide) *float64) float64 {
	if v := pick(c.Price); v != nil {
		return *v
	}
	a, b := pick(c.YesAsk), pick(c.YesBid)
	if a != nil && b != nil {
		return (*a + *b) / 2
	}
	if c.Price.Previous != nil {
		return *c.Price.Previous
	}
	return 0
}

// FetchOHLCV returns candles for a market ticker. The synthetic "-NO"
// suffix is stripped so history resolves against the underlying market.
// History errors propagate — silent empty history is indistinguishable
// from "no data exists yet".
func (e *Exchange) FetchOHLCV(ctx context.Context, id string, params *pmxt.HistoryParams) ([]pmxt.Candle, error) {
	if params == nil {
		params = &pmxt.HistoryParams{}
	}
	resolution := params.Resolution
	if resolution == "" {
		resolution = pmxt.Resolution1h
	}
	interval, ok := intervalMinutes(resolution)
	if !ok {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenueKalshi, Msg: fmt.Sprintf("unsupported resolution %q", resolution)}
	}

	ticker := cleanTicker(id)
	series, err := SplitSeriesTicker(ticker)
	if err != nil {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenueKalshi, Msg: err.Error()}
	}

	now := e.now().Unix()
	startTS := now - 24*60*60
	endTS := now
	if !params.End.IsZero() {
		endTS = params.End.Unix()
		if params.Start.IsZero() {
			startTS = endTS - 24*60*60
		}
	}
	if !params.Start.IsZero() {
		startTS = params.Start.Unix()
	}

	var body candlesticksBody
	path := "/series/" + series + "/markets/" + ticker + "/candlesticks"
	resp, err := e.market.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"period_interval": strconv.Itoa(interval),
			"start_ts":        strconv.FormatInt(startTS, 10),
			"end_ts":          strconv.FormatInt(endTS, 10),
		}).
		SetResult(&body).
		Get(path)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("kalshi: history for %s: %w", id, err)
	}

	candles := make([]pmxt.Candle, 0, len(body.Candlesticks))
	for _, c := range body.Candlesticks {
		candles = append(candles, pmxt.Candle{
			Timestamp: c.EndPeriodTS * 1000,
			Open:      c.field(func(s candleSide) *float64 { return s.Open }) / 100,
			High:      c.field(func(s candleSide) *float64 { return s.High }) / 100,
			Low:       c.field(func(s candleSide) *float64 { return s.Low }) / 100,
			Close:     c.field(func(s candleSide) *float64 { return s.Close }) / 100,
			Volume:    c.Volume,
		})
	}

	if params.Limit > 0 && len(candles) > params.Limit {
		candles = candles[len(candles)-params.Limit:]
	}
	return candles, nil
}
