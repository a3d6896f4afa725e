package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/services"
)

type stubTrades struct {
	services.TradeService
	lastTrade models.TradeRequest
	lastClose models.CloseRequest
	candles   []models.Candle
	err       error
}

func (s *stubTrades) Dashboard(context.Context) (models.Dashboard, error) {
	return models.Dashboard{Balance: 3000, Equity: 2950, Profit: -50}, s.err
}

func (s *stubTrades) Candles(_ context.Context, symbol, tf string, limit int) ([]models.Candle, error) {
	if symbol == "" {
		return nil, errs.Invalid("symbol is required")
	}
	return s.candles, s.err
}

func (s *stubTrades) Trade(_ context.Context, req models.TradeRequest) (models.DetailResponse, error) {
	s.lastTrade = req
	return models.DetailResponse{Message: "ok", Details: []string{"a: success", "b: Timeout"}}, s.err
}

func (s *stubTrades) Close(_ context.Context, req models.CloseRequest) (models.DetailResponse, error) {
	s.lastClose = req
	if s.err != nil {
		return models.DetailResponse{}, s.err
	}
	return models.DetailResponse{Details: []string{"a: #1 queued"}}, nil
}

func serve(t *testing.T, register func(*mux.Router), method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	router := mux.NewRouter()
	register(router.PathPrefix("/api").Subrouter())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestDashboardEndpoint(t *testing.T) {
	h := NewTradeHandler(&stubTrades{})
	rec := serve(t, h.RegisterRoutes, http.MethodGet, "/api/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var d models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 3000.0, d.Balance)
	assert.Equal(t, -50.0, d.Profit)
}

func TestCandlesEndpoint(t *testing.T) {
	h := NewTradeHandler(&stubTrades{candles: []models.Candle{}})

	rec := serve(t, h.RegisterRoutes, http.MethodGet, "/api/candles?symbol=XAUUSD&timeframe=1H&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = serve(t, h.RegisterRoutes, http.MethodGet, "/api/candles?symbol=XAUUSD&limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.RegisterRoutes, http.MethodGet, "/api/candles", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradeEndpoint(t *testing.T) {
	stub := &stubTrades{}
	h := NewTradeHandler(stub)

	rec := serve(t, h.RegisterRoutes, http.MethodPost, "/api/trade",
		`{"symbol":"XAUUSD","type":"BUY","volume":2,"order_type":"MARKET","sl":1990}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "XAUUSD", stub.lastTrade.Symbol)
	require.NotNil(t, stub.lastTrade.SL)
	assert.Equal(t, 1990.0, *stub.lastTrade.SL)
	assert.Nil(t, stub.lastTrade.TP)

	var resp models.DetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Details, 2)

	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/trade", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseEndpointTicketForms(t *testing.T) {
	stub := &stubTrades{}
	h := NewTradeHandler(stub)

	rec := serve(t, h.RegisterRoutes, http.MethodPost, "/api/close", `{"ticket":"XAUUSD_BUY"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.GroupTicket("XAUUSD", models.Buy), stub.lastClose.Ticket)

	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/close", `{"ticket":12345}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ConcreteTicket(12345), stub.lastClose.Ticket)

	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/close", `{"ticket":"XAUUSD_HOLD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stub.err = errs.NotFound("position EURUSD_SELL")
	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/close", `{"ticket":"EURUSD_SELL"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubAccounts struct {
	services.AccountService
	toggled map[uint]bool
	deleted []uint
}

func (s *stubAccounts) ListAccounts(context.Context) ([]models.Account, error) {
	return []models.Account{{ID: 1, Name: "alpha", Password: "hidden", IsActive: true}}, nil
}

func (s *stubAccounts) SaveAccount(_ context.Context, req models.AccountRequest) (models.Account, error) {
	if req.Name == "" {
		return models.Account{}, errs.Invalid("name is required")
	}
	return models.Account{ID: 9, Name: req.Name, IsActive: true}, nil
}

func (s *stubAccounts) SetActive(_ context.Context, id uint, active bool) (models.Account, error) {
	if id != 1 {
		return models.Account{}, errs.NotFound("account")
	}
	s.toggled[id] = active
	return models.Account{ID: id, IsActive: active}, nil
}

func (s *stubAccounts) DeleteAccount(_ context.Context, id uint) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func TestAccountEndpoints(t *testing.T) {
	stub := &stubAccounts{toggled: map[uint]bool{}}
	h := NewAccountHandler(stub)

	rec := serve(t, h.RegisterRoutes, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hidden")

	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/accounts", `{"name":"bravo","login":2}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/accounts", `{"login":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/accounts/1/toggle", `{"is_active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, stub.toggled[1])
	rec = serve(t, h.RegisterRoutes, http.MethodPost, "/api/accounts/5/toggle", `{"is_active":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, h.RegisterRoutes, http.MethodDelete, "/api/accounts/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint{1}, stub.deleted)
}

type stubWatchlist struct {
	services.WatchlistService
	removed []string
}

func (s *stubWatchlist) RemoveSymbol(_ context.Context, symbol string) error {
	if symbol == "NOPE" {
		return errs.NotFound("symbol %s", symbol)
	}
	s.removed = append(s.removed, symbol)
	return nil
}

func TestRemoveSymbolEndpoint(t *testing.T) {
	stub := &stubWatchlist{}
	h := NewSymbolHandler(stub)

	rec := serve(t, h.RegisterRoutes, http.MethodDelete, "/api/symbols/EURUSD", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"EURUSD"}, stub.removed)

	rec = serve(t, h.RegisterRoutes, http.MethodDelete, "/api/symbols/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubAuth struct {
	services.AuthService
}

func (stubAuth) Authenticate(_ context.Context, username, password string) (models.User, error) {
	if username != "admin" || password != "admin" {
		return models.User{}, services.ErrInvalidCredentials
	}
	return models.User{ID: 1, Username: "admin"}, nil
}

func (stubAuth) GenerateToken(models.User, []byte) (string, error) {
	return "signed", nil
}

func TestLogin(t *testing.T) {
	h := NewAuthHandler(stubAuth{}, []byte("k"))
	register := func(r *mux.Router) { r.HandleFunc("/login", h.Login).Methods("POST") }

	rec := serve(t, register, http.MethodPost, "/api/login", `{"username":"admin","password":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tok models.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "signed", tok.AccessToken)
	assert.Equal(t, uint(1), tok.UserID)

	rec = serve(t, register, http.MethodPost, "/api/login", `{"username":"admin","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
