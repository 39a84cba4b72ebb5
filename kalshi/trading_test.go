package kalshi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pmxt "github.com/pmxt/pmxt-go"
)

func newTradingExchange(t *testing.T, url string) *Exchange {
	t.Helper()
	_, pemStr := testRSAKey(t)
	e, err := New(
		pmxt.Credentials{APIKey: "key-id", PrivateKey: pemStr},
		WithTradeBaseURL(url),
	)
	require.NoError(t, err)
	return e
}

func orderParams() *pmxt.OrderParams {
	return &pmxt.OrderParams{
		MarketID:  "KXINFLATION24",
		OutcomeID: "KXINFLATION24",
		Side:      pmxt.SideBuy,
		Type:      pmxt.OrderTypeLimit,
		Price:     0.44,
		Amount:    10,
	}
}

func TestCreateOrder_RequiresAuth(t *testing.T) {
	e, err := New(pmxt.Credentials{})
	require.NoError(t, err)

	_, err = e.CreateOrder(context.Background(), orderParams())
	assert.ErrorIs(t, err, pmxt.ErrAuthRequired)
}

func TestCreateOrder_InvalidParamsFailBeforeIO(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid params")
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	p := orderParams()
	p.Price = 0 // limit without a price

	_, err := e.CreateOrder(context.Background(), p)
	var vErr *pmxt.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCreateOrder_BuySubmitsYesSide(t *testing.T) {
	var got createOrderBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/trade-api/v2/portfolio/orders", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-KEY"))
		assert.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-TIMESTAMP"))
		assert.NotEmpty(t, r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, orderEnvelope{Order: rawOrder{
			OrderID:        "ord-1",
			Status:         "resting",
			RemainingCount: 10,
			CreatedTime:    "2024-01-01T00:00:00Z",
		}})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	order, err := e.CreateOrder(context.Background(), orderParams())
	require.NoError(t, err)

	assert.Equal(t, "KXINFLATION24", got.Ticker)
	assert.Equal(t, "yes", got.Side)
	assert.Equal(t, "buy", got.Action)
	assert.Equal(t, "limit", got.Type)
	assert.Equal(t, 10.0, got.Count)
	require.NotNil(t, got.YesPrice)
	assert.Equal(t, 44, *got.YesPrice)
	assert.Nil(t, got.NoPrice)
	assert.True(t, strings.HasPrefix(got.ClientOrderID, "pmxt-"))

	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, pmxt.OrderStatusOpen, order.Status)
	assert.Equal(t, 10.0, order.Remaining)
	assert.Zero(t, order.Filled)
}

func TestCreateOrder_SellKeysNoPrice(t *testing.T) {
	var got createOrderBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, orderEnvelope{Order: rawOrder{OrderID: "ord-2", Status: "resting"}})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	p := orderParams()
	p.Side = pmxt.SideSell

	_, err := e.CreateOrder(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "no", got.Side)
	assert.Equal(t, "sell", got.Action)
	require.NotNil(t, got.NoPrice)
	assert.Equal(t, 44, *got.NoPrice)
	assert.Nil(t, got.YesPrice)
}

func TestCreateOrder_ExecutedReportsFilled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, orderEnvelope{Order: rawOrder{OrderID: "ord-3", Status: "executed"}})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	order, err := e.CreateOrder(context.Background(), orderParams())
	require.NoError(t, err)

	assert.Equal(t, pmxt.OrderStatusFilled, order.Status)
	assert.Equal(t, 10.0, order.Filled)
	assert.Zero(t, order.Remaining)
}

func TestCreateOrder_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	_, err := e.CreateOrder(context.Background(), orderParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestCancelOrder_ReturnsTerminalOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/trade-api/v2/portfolio/orders/ord-1", r.URL.Path)
		writeJSON(t, w, orderEnvelope{Order: rawOrder{
			OrderID:        "ord-1",
			Ticker:         "KXINFLATION24",
			Side:           "yes",
			Type:           "limit",
			Status:         "canceled",
			Count:          10,
			RemainingCount: 4,
		}})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	order, err := e.CancelOrder(context.Background(), "ord-1")
	require.NoError(t, err)

	assert.Equal(t, pmxt.OrderStatusCancelled, order.Status)
	assert.Equal(t, 6.0, order.Filled)
	assert.Zero(t, order.Remaining)
	assert.Equal(t, pmxt.SideBuy, order.Side)
}

func TestFetchOpenOrders_FiltersResting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resting", r.URL.Query().Get("status"))
		assert.Equal(t, "KXINFLATION24", r.URL.Query().Get("ticker"))
		writeJSON(t, w, ordersEnvelope{Orders: []rawOrder{
			{OrderID: "ord-1", Ticker: "KXINFLATION24", Side: "yes", Type: "limit", Status: "resting", Count: 10, RemainingCount: 10, YesPrice: 44},
		}})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	orders, err := e.FetchOpenOrders(context.Background(), "KXINFLATION24")
	require.NoError(t, err)
	require.Len(t, orders, 1)

	assert.Equal(t, pmxt.OrderStatusOpen, orders[0].Status)
	assert.Equal(t, 0.44, orders[0].Price)
}

func TestFetchOpenOrders_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	orders, err := e.FetchOpenOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFetchBalance_CentsToDollars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trade-api/v2/portfolio/balance", r.URL.Path)
		writeJSON(t, w, balanceBody{Balance: 5000, PortfolioValue: 10000})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	balances, err := e.FetchBalance(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 1)

	b := balances[0]
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, 50.0, b.Available)
	assert.Equal(t, 100.0, b.Total)
	assert.Equal(t, 50.0, b.Locked)
}

func TestFetchPositions_ReconstructsEntryPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"market_positions": []map[string]any{{
				"ticker":          "KXINFLATION24",
				"position":        10,
				"total_cost":      440,
				"market_price":    50,
				"market_exposure": 500,
				"realized_pnl":    0,
			}},
		})
	}))
	defer srv.Close()

	e := newTradingExchange(t, srv.URL)
	positions, err := e.FetchPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, 10.0, p.Size)
	assert.InDelta(t, 0.44, p.EntryPrice, 1e-9)
	assert.Equal(t, 0.50, p.CurrentPrice)
	assert.Equal(t, 5.0, p.UnrealizedPnL)
}

func TestFetchBalance_RequiresAuth(t *testing.T) {
	e, err := New(pmxt.Credentials{})
	require.NoError(t, err)

	_, err = e.FetchBalance(context.Background())
	assert.ErrorIs(t, err, pmxt.ErrAuthRequired)
}
