package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmxt "github.com/pmxt/pmxt-go"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestExchange(t *testing.T, url string) *Exchange {
	t.Helper()
	e, err := New(pmxt.Credentials{}, WithMarketBaseURL(url))
	require.NoError(t, err)
	return e
}

func inflationFixture() eventsPage {
	return eventsPage{
		Events: []Event{{
			EventTicker: "KXINFLATION",
			Title:       "Inflation > 3%",
			SubTitle:    "CPI exceeds 3%",
			Category:    "Economics",
			Markets: []Market{{
				Ticker:         "KXINFLATION24",
				YesAsk:         45,
				YesBid:         43,
				Volume24h:      1000,
				ExpirationTime: "2024-12-31T00:00:00Z",
				OpenInterest:   500,
				LastPrice:      44,
			}},
		}},
	}
}

func TestFetchMarkets_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events":
			assert.Equal(t, "true", r.URL.Query().Get("with_nested_markets"))
			assert.Equal(t, "open", r.URL.Query().Get("status"))
			writeJSON(t, w, inflationFixture())
		case "/series":
			writeJSON(t, w, map[string]any{"series": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	markets, err := e.FetchMarkets(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, "KXINFLATION24", m.ID)
	assert.Equal(t, "Inflation > 3%", m.Title)
	assert.Equal(t, 1000.0, m.Volume24h)
	assert.Equal(t, "Economics", m.Category)
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, 0.44, m.Outcomes[0].Price)
}

func TestFetchMarkets_CatalogCached(t *testing.T) {
	var eventCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events":
			eventCalls.Add(1)
			writeJSON(t, w, inflationFixture())
		case "/series":
			writeJSON(t, w, map[string]any{"series": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	ctx := context.Background()

	_, err := e.FetchMarkets(ctx, nil)
	require.NoError(t, err)
	_, err = e.FetchMarkets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), eventCalls.Load(), "second read should hit the cache")

	e.ResetCache()
	_, err = e.FetchMarkets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), eventCalls.Load(), "reset must force a refetch")
}

func TestFetchActiveEvents_TargetedEarlyStop(t *testing.T) {
	// Every page holds 10 markets and advertises another cursor. With a
	// target of 10, accumulation stops once 1.5x the target is reached.
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		n := pages.Add(1)
		page := eventsPage{Cursor: fmt.Sprintf("cursor-%d", n)}
		ev := Event{EventTicker: fmt.Sprintf("EV%d", n)}
		for i := 0; i < 10; i++ {
			ev.Markets = append(ev.Markets, Market{Ticker: fmt.Sprintf("EV%d-M%d", n, i)})
		}
		page.Events = []Event{ev}
		writeJSON(t, w, page)
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	events := e.fetchActiveEvents(context.Background(), 10)

	assert.Equal(t, int32(2), pages.Load(), "20 markets over 2 pages covers 1.5x a target of 10")
	assert.Len(t, events, 2)
}

func TestFetchActiveEvents_UntargetedPageCap(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		n := pages.Add(1)
		writeJSON(t, w, eventsPage{
			Events: []Event{{EventTicker: fmt.Sprintf("EV%d", n)}},
			Cursor: fmt.Sprintf("cursor-%d", n),
		})
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	e.fetchActiveEvents(context.Background(), 0)

	assert.Equal(t, int32(10), pages.Load())
}

func TestFetchActiveEvents_TargetedHardCap(t *testing.T) {
	// Events with no nested markets never advance the accumulated market
	// count, so the 1.5x early stop can never trigger. The walk must still
	// terminate at the hard page cap despite the endless cursor.
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			http.NotFound(w, r)
			return
		}
		n := pages.Add(1)
		writeJSON(t, w, eventsPage{
			Events: []Event{{EventTicker: fmt.Sprintf("EV%d", n)}},
			Cursor: fmt.Sprintf("cursor-%d", n),
		})
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	events := e.fetchActiveEvents(context.Background(), 5)

	assert.Equal(t, int32(maxPages), pages.Load())
	assert.Len(t, events, maxPages)
}

func TestFetchMarkets_DegradesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"maintenance"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	markets, err := e.FetchMarkets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, markets)
}

func TestSearchMarkets_FiltersByTitle(t *testing.T) {
	fixture := eventsPage{Events: []Event{
		{EventTicker: "FED", Title: "Fed rate decision", Markets: []Market{{Ticker: "FED-1"}}},
		{EventTicker: "BTC", Title: "Bitcoin above 100k", Markets: []Market{{Ticker: "BTC-1"}}},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events":
			writeJSON(t, w, fixture)
		case "/series":
			writeJSON(t, w, map[string]any{"series": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	got, err := e.SearchMarkets(context.Background(), "bitcoin", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BTC-1", got[0].ID)
}

func TestGetMarketsBySlug_UppercasesTicker(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeJSON(t, w, eventEnvelope{Event: &Event{
			EventTicker: "KXINFLATION",
			Title:       "Inflation > 3%",
			Markets:     []Market{{Ticker: "KXINFLATION24", LastPrice: 44}},
		}})
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	markets, err := e.GetMarketsBySlug(context.Background(), "kxinflation")
	require.NoError(t, err)

	assert.Equal(t, "/events/KXINFLATION", gotPath)
	require.Len(t, markets, 1)
	assert.Equal(t, "KXINFLATION24", markets[0].ID)
}

func TestGetMarketsBySlug_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"event not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	_, err := e.GetMarketsBySlug(context.Background(), "nope")

	var vErr *pmxt.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, pmxt.VenueKalshi, vErr.Venue)
}
