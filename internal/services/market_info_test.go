package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/betbot/gohedge/internal/exchange/binance"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*binance.Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := binance.NewClient(binance.Options{BaseURL: srv.URL, APIKey: "k", APISecret: "s"})
	return c, srv.Close
}

const exchangeInfoFixture = `{
  "symbols": [
    {
      "symbol": "BTCUSDT",
      "status": "TRADING",
      "filters": [
        {"filterType": "MIN_NOTIONAL", "notional": "5"},
        {"filterType": "PRICE_FILTER", "tickSize": "0.10"},
        {"filterType": "LOT_SIZE", "stepSize": "0.001"}
      ]
    }
  ]
}`

func TestGetConstraints_ParsesFiltersByType(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fapi/v1/exchangeInfo", r.URL.Path)
		w.Write([]byte(exchangeInfoFixture))
	})
	defer closeFn()

	svc := NewMarketInfoService(client)
	sc, err := svc.GetConstraints(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, "0.1", sc.PriceStep.String())
	require.Equal(t, "0.001", sc.QuantityStep.String())
	require.Equal(t, "5", sc.MinNotional.String())
}

func TestGetConstraints_SymbolMissing(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[]}`))
	})
	defer closeFn()

	svc := NewMarketInfoService(client)
	_, err := svc.GetConstraints(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, ErrMarketDataUnavailable)
}

func TestGetConstraints_FilterFieldMissing(t *testing.T) {
	// 缺 LOT_SIZE -> MarketDataUnavailable
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[{"symbol":"BTCUSDT","filters":[
			{"filterType":"PRICE_FILTER","tickSize":"0.10"},
			{"filterType":"MIN_NOTIONAL","notional":"5"}]}]}`))
	})
	defer closeFn()

	svc := NewMarketInfoService(client)
	_, err := svc.GetConstraints(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, ErrMarketDataUnavailable)
}

func TestGetAvailableBalance(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"asset":"BNB","balance":"1","availableBalance":"1"},
			{"asset":"USDT","balance":"1000.5","availableBalance":"987.25"}]`))
	})
	defer closeFn()

	svc := NewAccountService(client)
	bal, err := svc.GetAvailableBalance(context.Background(), "USDT")
	require.NoError(t, err)
	require.Equal(t, "987.25", bal.String())

	_, err = svc.GetAvailableBalance(context.Background(), "BUSD")
	require.ErrorIs(t, err, ErrAccountDataUnavailable)
}

func TestGetPositionState_AggregatesSides(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","positionSide":"LONG","positionAmt":"0.020"},
			{"symbol":"BTCUSDT","positionSide":"SHORT","positionAmt":"-0.020"},
			{"symbol":"ETHUSDT","positionSide":"LONG","positionAmt":"5"}]`))
	})
	defer closeFn()

	svc := NewAccountService(client)
	state, err := svc.GetPositionState(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, "0.02", state.LongQuantity.String())
	require.Equal(t, "0.02", state.ShortQuantity.String())
	require.True(t, state.IsStraddle())
}

func TestGetPositionState_AbsentSidesZero(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer closeFn()

	svc := NewAccountService(client)
	state, err := svc.GetPositionState(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.True(t, state.IsFlat())
}
