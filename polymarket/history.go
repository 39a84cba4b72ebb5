package polymarket

import (
	"context"
	"fmt"
	"strconv"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
)

const defaultHistoryLimit = 100

// fidelityMinutes maps a unified resolution onto the CLOB's fidelity
// parameter, which is expressed in minutes.
func fidelityMinutes(r pmxt.Resolution) (int, bool) {
	switch r {
	case pmxt.Resolution1m:
		return 1, true
	case pmxt.Resolution5m:
		return 5, true
	case pmxt.Resolution15m:
		return 15, true
	case pmxt.Resolution1h:
		return 60, true
	case pmxt.Resolution6h:
		return 360, true
	case pmxt.Resolution1d:
		return 1440, true
	}
	return 0, false
}

type pricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

type historyBody struct {
	History []pricePoint `json:"history"`
}

// FetchOHLCV returns candles for a CLOB token id. The endpoint returns a
// sparse price series, not true OHLC buckets: each tick becomes a candle
// with O=H=L=C and its timestamp floored to the bucket boundary so candles
// align to a regular grid. Errors propagate — silent empty history is
// indistinguishable from "no data exists yet".
func (e *Exchange) FetchOHLCV(ctx context.Context, id string, params *pmxt.HistoryParams) ([]pmxt.Candle, error) {
	if isMarketID(id) {
		return nil, &pmxt.ValidationError{
			Venue: pmxt.VenuePolymarket,
			Msg:   fmt.Sprintf("invalid id %q: history requires a CLOB token id (outcome id), not a market id", id),
		}
	}

	if params == nil {
		params = &pmxt.HistoryParams{}
	}
	resolution := params.Resolution
	if resolution == "" {
		resolution = pmxt.Resolution1h
	}
	fidelity, ok := fidelityMinutes(resolution)
	if !ok {
		return nil, &pmxt.ValidationError{Venue: pmxt.VenuePolymarket, Msg: fmt.Sprintf("unsupported resolution %q", resolution)}
	}

	endTS := e.now().Unix()
	if !params.End.IsZero() {
		endTS = params.End.Unix()
	}
	startTS := endTS
	if params.Start.IsZero() {
		// No explicit window: look back far enough to fill the
		// requested candle count.
		count := params.Limit
		if count <= 0 {
			count = defaultHistoryLimit
		}
		startTS = endTS - int64(count*fidelity*60)
	} else {
		startTS = params.Start.Unix()
	}

	var body historyBody
	resp, err := e.clob.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"market":   id,
			"fidelity": strconv.Itoa(fidelity),
			"startTs":  strconv.FormatInt(startTS, 10),
			"endTs":    strconv.FormatInt(endTS, 10),
		}).
		SetResult(&body).
		Get("/prices-history")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		return nil, fmt.Errorf("polymarket: history for %s: %w", id, err)
	}

	bucketMs := int64(fidelity) * 60 * 1000
	candles := make([]pmxt.Candle, 0, len(body.History))
	for _, point := range body.History {
		snapped := (point.T * 1000 / bucketMs) * bucketMs
		candles = append(candles, pmxt.Candle{
			Timestamp: snapped,
			Open:      point.P,
			High:      point.P,
			Low:       point.P,
			Close:     point.P,
		})
	}

	if params.Limit > 0 && len(candles) > params.Limit {
		candles = candles[len(candles)-params.Limit:]
	}
	return candles, nil
}
