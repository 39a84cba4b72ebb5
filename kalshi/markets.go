package kalshi

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	pmxt "github.com/pmxt/pmxt-go"
	"github.com/pmxt/pmxt-go/internal/httpx"
	"github.com/pmxt/pmxt-go/internal/search"
)

const (
	// maxPages is the hard safety cap on cursor pagination, guarding
	// against a venue cursor that never reaches a natural end.
	maxPages = 1000

	// pageSize is the maximum page size the venue allows.
	pageSize = 200

	// untargetedPageCap bounds the walk when no target record count is
	// known.
	untargetedPageCap = 10

	defaultMarketsLimit = 50
	defaultSearchLimit  = 20

	// searchFetchLimit effectively unbounds the catalog fetch backing a
	// search, so filtering sees every open market.
	searchFetchLimit = 100000
)

type eventsPage struct {
	Events []Event `json:"events"`
	Cursor string  `json:"cursor"`
}

type seriesList struct {
	Series []struct {
		Ticker string   `json:"ticker"`
		Tags   []string `json:"tags"`
	} `json:"series"`
}

type eventEnvelope struct {
	Event *Event `json:"event"`
}

type seriesEnvelope struct {
	Series *struct {
		Ticker string   `json:"ticker"`
		Tags   []string `json:"tags"`
	} `json:"series"`
}

// fetchActiveEvents walks the cursor-paginated events endpoint. Pages are
// strictly sequential: cursor N+1 only exists in the response of page N.
// A page error aborts the walk and returns whatever accumulated. When a
// target market count is known, the walk stops once 1.5× the target has
// accumulated, leaving headroom for downstream filtering and sorting.
func (e *Exchange) fetchActiveEvents(ctx context.Context, target int) []Event {
	var (
		events      []Event
		marketCount int
		cursor      string
	)

	for page := 0; page < maxPages; page++ {
		req := e.market.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":               strconv.Itoa(pageSize),
				"with_nested_markets": "true",
				"status":              "open",
			})
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}

		var body eventsPage
		resp, err := req.SetResult(&body).Get("/events")
		if err == nil {
			err = httpx.CheckResponse("Kalshi", resp)
		}
		if err != nil {
			e.log.Error("kalshi: events page fetch failed", "page", page, "err", err)
			break
		}

		if len(body.Events) == 0 {
			break
		}
		events = append(events, body.Events...)

		if target > 0 {
			for _, ev := range body.Events {
				marketCount += len(ev.Markets)
			}
			if float64(marketCount) >= float64(target)*1.5 {
				break
			}
		} else if page+1 >= untargetedPageCap {
			break
		}

		cursor = body.Cursor
		if cursor == "" {
			break
		}
	}
	return events
}

// fetchSeriesTags loads the venue-level series metadata: tags live on the
// series, one level above the event/market hierarchy. Failures degrade to
// an empty map.
func (e *Exchange) fetchSeriesTags(ctx context.Context) map[string][]string {
	var body seriesList
	resp, err := e.market.R().SetContext(ctx).SetResult(&body).Get("/series")
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		e.log.Error("kalshi: series fetch failed", "err", err)
		return map[string][]string{}
	}

	tags := make(map[string][]string, len(body.Series))
	for _, s := range body.Series {
		if len(s.Tags) > 0 {
			tags[s.Ticker] = s.Tags
		}
	}
	return tags
}

// catalogSnapshot returns the cached raw catalog, or fetches a fresh one.
// The series lookup has no data dependency on the page walk, so the two
// are fetched concurrently and joined.
func (e *Exchange) catalogSnapshot(ctx context.Context, target int) snapshot {
	if snap, ok := e.cache.Get(); ok {
		return snap
	}

	seriesCh := make(chan map[string][]string, 1)
	go func() { seriesCh <- e.fetchSeriesTags(ctx) }()

	events := e.fetchActiveEvents(ctx, target)
	snap := snapshot{events: events, seriesTags: <-seriesCh}
	e.cache.Put(snap)
	return snap
}

// normalizeAll maps every nested market of every event, substituting the
// parent series' tags when an event carries none.
func normalizeAll(snap snapshot) []pmxt.Market {
	var markets []pmxt.Market
	for _, event := range snap.events {
		if len(event.Tags) == 0 {
			if tags, ok := snap.seriesTags[event.SeriesTicker]; ok {
				event.Tags = tags
			}
		}
		for _, m := range event.Markets {
			if um := MapMarket(event, m); um != nil {
				markets = append(markets, *um)
			}
		}
	}
	return markets
}

func sortMarkets(markets []pmxt.Market, key pmxt.SortKey) {
	switch key {
	case pmxt.SortVolume:
		sort.SliceStable(markets, func(i, j int) bool {
			return markets[i].Volume24h > markets[j].Volume24h
		})
	case pmxt.SortLiquidity:
		sort.SliceStable(markets, func(i, j int) bool {
			return markets[i].Liquidity > markets[j].Liquidity
		})
	}
}

// FetchMarkets lists open markets flattened from the event hierarchy.
// Transport failures degrade to an empty listing; a flaky page never
// aborts the caller's larger read.
func (e *Exchange) FetchMarkets(ctx context.Context, params *pmxt.MarketsParams) ([]pmxt.Market, error) {
	if params == nil {
		params = &pmxt.MarketsParams{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultMarketsLimit
	}

	snap := e.catalogSnapshot(ctx, limit)
	markets := normalizeAll(snap)
	sortMarkets(markets, params.Sort)

	if len(markets) > limit {
		markets = markets[:limit]
	}
	return markets, nil
}

// SearchMarkets materializes the full catalog and filters client-side; the
// venue has no server-side full-text search. Freshness follows the
// catalog cache.
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

// GetMarketsBySlug looks up a single event by its event ticker. URLs carry
// lowercase tickers while the API expects uppercase. Missing events
// produce a descriptive error rather than an empty listing.
func (e *Exchange) GetMarketsBySlug(ctx context.Context, slug string) ([]pmxt.Market, error) {
	ticker := strings.ToUpper(slug)

	var body eventEnvelope
	resp, err := e.market.R().
		SetContext(ctx).
		SetQueryParam("with_nested_markets", "true").
		SetResult(&body).
		Get("/events/" + ticker)
	if err == nil {
		err = httpx.CheckResponse("Kalshi", resp)
	}
	if err != nil {
		var apiErr *httpx.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return nil, &pmxt.ValidationError{
				Venue: pmxt.VenueKalshi,
				Msg:   "event not found: " + slug,
			}
		}
		return nil, err
	}
	if body.Event == nil {
		return nil, nil
	}
	event := *body.Event

	// Tag enrichment from the parent series is best effort.
	if event.SeriesTicker != "" && len(event.Tags) == 0 {
		var se seriesEnvelope
		resp, err := e.market.R().SetContext(ctx).SetResult(&se).Get("/series/" + event.SeriesTicker)
		if err == nil && httpx.CheckResponse("Kalshi", resp) == nil && se.Series != nil {
			event.Tags = se.Series.Tags
		}
	}

	var markets []pmxt.Market
	for _, m := range event.Markets {
		if um := MapMarket(event, m); um != nil {
			markets = append(markets, *um)
		}
	}
	return markets, nil
}
