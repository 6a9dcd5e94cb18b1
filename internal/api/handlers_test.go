package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/gridexchange/gridex/internal/api"
	"github.com/gridexchange/gridex/internal/config"
	keepertest "github.com/gridexchange/gridex/testutil/keeper"
)

func newTestServer(t *testing.T) (*api.Server, *keepertest.Fixture) {
	t.Helper()
	f := keepertest.ExchangeKeeper()
	cfg := config.APIConfig{Host: "127.0.0.1", Port: 0}
	srv := api.NewServer(cfg, config.MetricsConfig{}, f.Keeper, f.Bank, log.NewNopLogger())
	return srv, f
}

func do(t *testing.T, srv *api.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRegisterBookEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/books", map[string]string{
		"base": "atom", "quote": "usdc", "quote_scale": "1000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate registration maps to a conflict.
	rec = do(t, srv, http.MethodPost, "/api/v1/books", map[string]string{
		"base": "atom", "quote": "usdc", "quote_scale": "1000",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Missing fields fail binding.
	rec = do(t, srv, http.MethodPost, "/api/v1/books", map[string]string{"base": "atom"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/books/atom/usdc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/books/atom/eth", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	srv, f := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/books", map[string]string{
		"base": "atom", "quote": "usdc", "quote_scale": "1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Fund through the faucet endpoint.
	rec = do(t, srv, http.MethodPost, "/api/v1/accounts/maker/mint", map[string]string{
		"token": "atom", "amount": "100",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/orders", map[string]string{
		"account": "maker", "token_from": "atom", "token_to": "usdc",
		"price": "10", "amount": "5",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed struct {
		OrderID uint64 `json:"order_id"`
		Resting bool   `json:"resting"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	require.True(t, placed.Resting)

	rec = do(t, srv, http.MethodGet, "/api/v1/orders?base=atom&quote=usdc&maker=maker", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/price?from=usdc&to=atom", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Only the maker may cancel.
	path := "/api/v1/orders/atom/usdc/" + uintStr(placed.OrderID)
	rec = do(t, srv, http.MethodDelete, path+"?side=sell&caller=mallory", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv, http.MethodDelete, path+"?side=sell&caller=maker", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, math.NewInt(100), f.Bank.Balance("maker", "atom"))
}

func TestQuoteEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/quote", map[string]any{
		"path": []string{"atom", "usdc"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/quote", map[string]any{
		"path": []string{"atom", "usdc"}, "amount_in": "1000",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwapEndpoint(t *testing.T) {
	srv, f := newTestServer(t)
	f.Fund("lp", "atom", 2_000_000)
	f.Fund("lp", "usdc", 2_000_000)
	require.NoError(t, f.Keeper.CreatePool(f.Ctx, "lp", "atom", "usdc",
		math.NewInt(1_000_000), math.NewInt(1_000_000)))
	f.Fund("trader", "atom", 10_000)

	rec := do(t, srv, http.MethodPost, "/api/v1/swap", map[string]any{
		"trader": "trader", "path": []string{"atom", "usdc"}, "amount_in": "10000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, f.Bank.Balance("trader", "usdc").IsPositive())

	// Unreachable slippage bound surfaces as unprocessable.
	f.Fund("trader", "atom", 10_000)
	rec = do(t, srv, http.MethodPost, "/api/v1/swap", map[string]any{
		"trader": "trader", "path": []string{"atom", "usdc"},
		"amount_in": "10000", "min_amount_out": "999999999",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func uintStr(v uint64) string {
	return strconv.FormatUint(v, 10)
}
