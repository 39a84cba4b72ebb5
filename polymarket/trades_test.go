package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmxt "github.com/pmxt/pmxt-go"
)

func TestFetchTrades_RejectsMarketIDBeforeIO(t *testing.T) {
	e, err := New(pmxt.Credentials{})
	require.NoError(t, err)

	_, err = e.FetchTrades(context.Background(), "501234", nil)
	var vErr *pmxt.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestFetchTrades_AnonymousReturnsEmptyWithoutRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	e, err := New(pmxt.Credentials{}, WithClobBaseURL(srv.URL))
	require.NoError(t, err)

	trades, err := e.FetchTrades(context.Background(), testTokenID, nil)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestFetchTrades_AuthenticatedMapsTape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, testTokenID, r.URL.Query().Get("market"))
		assert.NotEmpty(t, r.Header.Get("POLY_API_KEY"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		writeJSON(t, w, []rawClobTrade{
			{ID: "t1", Timestamp: 1704067200, Price: "0.62", Size: "10", Side: "BUY"},
			{Timestamp: 1704067260, Price: "0.61", Size: "5", Side: "SELL"},
			{ID: "t3", Timestamp: 1704067320, Price: "0.60", Size: "2", Side: "weird"},
		})
	}))
	defer srv.Close()

	e, err := New(explicitCreds(), WithClobBaseURL(srv.URL))
	require.NoError(t, err)

	trades, err := e.FetchTrades(context.Background(), testTokenID, nil)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	assert.Equal(t, "t1", trades[0].ID)
	assert.Equal(t, pmxt.SideBuy, trades[0].Side)
	assert.Equal(t, 0.62, trades[0].Price)
	assert.Equal(t, 10.0, trades[0].Amount)
	assert.Equal(t, int64(1704067200000), trades[0].Timestamp)

	// Missing id falls back to a synthetic timestamp-price id.
	assert.Equal(t, "1704067260-0.61", trades[1].ID)
	assert.Equal(t, pmxt.SideSell, trades[1].Side)

	assert.Equal(t, pmxt.SideUnknown, trades[2].Side)
}

func TestFetchTrades_LimitKeepsMostRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []rawClobTrade{
			{ID: "t1", Timestamp: 1, Price: "0.1", Size: "1", Side: "BUY"},
			{ID: "t2", Timestamp: 2, Price: "0.2", Size: "1", Side: "BUY"},
			{ID: "t3", Timestamp: 3, Price: "0.3", Size: "1", Side: "BUY"},
		})
	}))
	defer srv.Close()

	e, err := New(explicitCreds(), WithClobBaseURL(srv.URL))
	require.NoError(t, err)

	trades, err := e.FetchTrades(context.Background(), testTokenID, &pmxt.TradesParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "t2", trades[0].ID)
	assert.Equal(t, "t3", trades[1].ID)
}

func TestFetchTrades_ErrorsPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := New(explicitCreds(), WithClobBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = e.FetchTrades(context.Background(), testTokenID, nil)
	require.Error(t, err)
}
