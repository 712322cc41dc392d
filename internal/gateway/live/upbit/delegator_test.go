package upbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func testConfig(baseURL string) Config {
	return Config{AccessKey: "access", SecretKey: "secret", BaseURL: baseURL}
}

func request() model.TradeRequest {
	return model.TradeRequest{
		ID:       "req-1",
		Kind:     enum.RequestKindBuy,
		Market:   "KRW-BTC",
		Price:    11_372_000,
		Amount:   90_000,
		IssuedAt: time.Now(),
	}
}

func TestNewDelegatorRequiresCredentials(t *testing.T) {
	_, err := NewDelegator(nil, Config{})
	assert.Error(t, err)

	d, err := NewDelegator(nil, testConfig("https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", d.cfg.BaseURL)
}

func TestPlaceOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Bearer "))
		assert.Len(t, strings.Split(strings.TrimPrefix(auth, "Bearer "), "."), 3)

		w.Write([]byte(`{"uuid":"venue-1","state":"wait","market":"KRW-BTC"}`))
	}))
	defer server.Close()

	d, err := NewDelegator(server.Client(), testConfig(server.URL))
	require.NoError(t, err)

	venueID, err := d.PlaceOrder(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "venue-1", venueID)
}

func TestPlaceOrderVenueRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"name":"insufficient_funds_bid","message":"not enough funds"}}`))
	}))
	defer server.Close()

	d, err := NewDelegator(server.Client(), testConfig(server.URL))
	require.NoError(t, err)

	_, err = d.PlaceOrder(context.Background(), request())
	assert.Error(t, err)
}

func TestQueryOrdersMapsTerminalStates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/order", r.URL.Path)
		switch r.URL.Query().Get("uuid") {
		case "done-1":
			w.Write([]byte(`{
				"uuid": "done-1",
				"state": "done",
				"price": "11372000.0",
				"executed_volume": "0.0009",
				"trades": [
					{"price": "11372000.0", "volume": "0.0009", "funds": "10234.8"}
				]
			}`))
		case "wait-1":
			w.Write([]byte(`{"uuid":"wait-1","state":"wait","executed_volume":"0.0"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"name":"order_not_found","message":"unknown"}}`))
		}
	}))
	defer server.Close()

	d, err := NewDelegator(server.Client(), testConfig(server.URL))
	require.NoError(t, err)

	statuses, err := d.QueryOrders(context.Background(), []string{"done-1", "wait-1"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	done := statuses[0]
	assert.Equal(t, enum.ResultStateDone, done.State)
	assert.Equal(t, model.Amount(90_000), done.Amount)
	// 10235 funds over 0.0009 filled.
	assert.Equal(t, model.Price(11_372_222), done.Price)

	wait := statuses[1]
	assert.Equal(t, enum.ResultStateRequested, wait.State)
	assert.False(t, wait.State.IsTerminal())
}

func TestCancelOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/order", r.URL.Path)
		assert.Equal(t, "venue-1", r.URL.Query().Get("uuid"))
		w.Write([]byte(`{"uuid":"venue-1","state":"cancel","executed_volume":"0.0"}`))
	}))
	defer server.Close()

	d, err := NewDelegator(server.Client(), testConfig(server.URL))
	require.NoError(t, err)

	status, err := d.CancelOrder(context.Background(), "venue-1")
	require.NoError(t, err)
	assert.Equal(t, enum.ResultStateDone, status.State)
	assert.Equal(t, "canceled", status.Message)
}

func TestQueryAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts", r.URL.Path)
		w.Write([]byte(`[
			{"currency":"KRW","balance":"39760.0","unit_currency":"KRW"},
			{"currency":"BTC","balance":"0.0009","avg_buy_price":"11372000.0","unit_currency":"KRW"}
		]`))
	}))
	defer server.Close()

	d, err := NewDelegator(server.Client(), testConfig(server.URL))
	require.NoError(t, err)

	account, err := d.QueryAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Price(39_760), account.Cash)

	holding, ok := account.Holdings["KRW-BTC"]
	require.True(t, ok)
	assert.Equal(t, model.Amount(90_000), holding.Amount)
	assert.Equal(t, model.Price(11_372_000), holding.AvgPrice)
}
