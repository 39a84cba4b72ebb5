package kalshi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmxt "github.com/pmxt/pmxt-go"
)

func TestFetchTrades_MapsTape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/trades", r.URL.Path)
		assert.Equal(t, "KXINFLATION24", r.URL.Query().Get("ticker"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		writeJSON(t, w, tradesBody{Trades: []rawTrade{
			{TradeID: "t1", CreatedTime: "2024-01-01T00:00:00Z", YesPrice: 44, Count: 10, TakerSide: "yes"},
			{TradeID: "t2", CreatedTime: "2024-01-01T00:01:00Z", YesPrice: 43, Count: 5, TakerSide: "no"},
		}})
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	trades, err := e.FetchTrades(context.Background(), "kxinflation24", nil)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "t1", trades[0].ID)
	assert.Equal(t, pmxt.SideBuy, trades[0].Side)
	assert.Equal(t, 0.44, trades[0].Price)
	assert.Equal(t, 10.0, trades[0].Amount)
	assert.Equal(t, int64(1_704_067_200_000), trades[0].Timestamp)

	assert.Equal(t, pmxt.SideSell, trades[1].Side)
}

func TestFetchTrades_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newTestExchange(t, srv.URL)
	trades, err := e.FetchTrades(context.Background(), "KXINFLATION24", nil)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
