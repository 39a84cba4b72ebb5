package polymarket

import (
	"context"
	"sort"
	"strconv"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
	"github.com/pmxt/pmxt-go/internal/search"
)

const (
	// defaultMarketsLimit is deliberately generous: events fan out into
	// several markets each, so a large page keeps coverage reasonable.
	defaultMarketsLimit = 200

	defaultSearchLimit = 20

	// searchFetchLimit effectively unbounds the catalog fetch backing a
	// search, so filtering sees every active market.
	searchFetchLimit = 100000
)

// fetchEvents pulls one offset page of active events. The gamma API only
// understands server-side ordering for some keys; liquidity ordering is
// done client-side only, and sending an unknown order key draws a 422.
// Failures degrade to an empty listing.
func (e *Exchange) fetchEvents(ctx context.Context, limit, offset int, key pmxt.SortKey) []Event {
	req := e.gamma.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active": "true",
			"closed": "false",
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		})
	switch key {
	case pmxt.SortVolume:
		req.SetQueryParam("order", "volume")
		req.SetQueryParam("ascending", "false")
	case pmxt.SortNewest:
		req.SetQueryParam("order", "startDate")
		req.SetQueryParam("ascending", "false")
	}

	var events []Event
	resp, err := req.SetResult(&events).Get("/events")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		e.log.Error("polymarket: events fetch failed", "err", err)
		return nil
	}
	return events
}

// catalogEvents returns the cached events page when the cached query
// matches, otherwise fetches and refills the slot.
func (e *Exchange) catalogEvents(ctx context.Context, limit, offset int, key pmxt.SortKey) []Event {
	if snap, ok := e.cache.Get(); ok && snap.limit == limit && snap.offset == offset && snap.sort == key {
		return snap.events
	}
	events := e.fetchEvents(ctx, limit, offset, key)
	e.cache.Put(snapshot{limit: limit, offset: offset, sort: key, events: events})
	return events
}

// normalizeEvents flattens events into unified markets, logging markets
// whose outcome arrays could not be decoded.
func (e *Exchange) normalizeEvents(events []Event, questionFallback bool) []pmxt.Market {
	var markets []pmxt.Market
	for _, event := range events {
		for _, m := range event.Markets {
			if !m.outcomesValid() {
				e.log.Warn("polymarket: outcome parse failed", "market", m.ID)
			}
			if um := MapMarket(event, m, questionFallback); um != nil {
				markets = append(markets, *um)
			}
		}
	}
	return markets
}

// sortMarkets re-sorts client-side. The server-side order parameter ranks
// events, not their nested markets, so the requested order is always
// re-applied to the flattened listing.
func sortMarkets(markets []pmxt.Market, key pmxt.SortKey) {
	switch key {
	case pmxt.SortLiquidity:
		sort.SliceStable(markets, func(i, j int) bool {
			return markets[i].Liquidity > markets[j].Liquidity
		})
	case pmxt.SortNewest:
		// Resolution date is not listing date; leave the server order.
	default:
		sort.SliceStable(markets, func(i, j int) bool {
			return markets[i].Volume24h > markets[j].Volume24h
		})
	}
}

// FetchMarkets lists active markets flattened from the event hierarchy.
// Transport failures degrade to an empty listing.
func (e *Exchange) FetchMarkets(ctx context.Context, params *pmxt.MarketsParams) ([]pmxt.Market, error) {
	if params == nil {
		params = &pmxt.MarketsParams{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultMarketsLimit
	}

	events := e.catalogEvents(ctx, limit, params.Offset, params.Sort)
	markets := e.normalizeEvents(events, false)
	sortMarkets(markets, params.Sort)

	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

// SearchMarkets materializes the full catalog and filters client-side; the
// gamma API has no native full-text search.
func (e *Exchange) SearchMarkets(ctx context.Context, query string, params *pmxt.SearchParams) ([]pmxt.Market, error) {
	if params == nil {
		params = &pmxt.SearchParams{}
	}
	all, err := e.FetchMarkets(ctx, &pmxt.MarketsParams{Limit: searchFetchLimit, Sort: params.Sort})
	if err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return search.Filter(all, query, params.SearchIn, limit), nil
}

// GetMarketsBySlug looks up an event by its URL slug. The question-as-
// candidate fallback is enabled here because slug lookups surface nested
// structures where the question carries the candidate name.
func (e *Exchange) GetMarketsBySlug(ctx context.Context, slug string) ([]pmxt.Market, error) {
	var events []Event
	resp, err := e.gamma.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetResult(&events).
		Get("/events")
	if err == nil {
		err = httpx.CheckResponse("Polymarket", resp)
	}
	if err != nil {
		e.log.Error("polymarket: slug lookup failed", "slug", slug, "err", err)
		return []pmxt.Market{}, nil
	}
	return e.normalizeEvents(events, true), nil
}
