package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/services"
)

// TradeHandler handles the dashboard and trading requests
type TradeHandler struct {
	tradeService services.TradeService
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(tradeService services.TradeService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

// RegisterRoutes registers all trade routes
func (h *TradeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/candles", h.GetCandles).Methods("GET")
	router.HandleFunc("/trade", h.Trade).Methods("POST")
	router.HandleFunc("/modify", h.Modify).Methods("POST")
	router.HandleFunc("/close", h.Close).Methods("POST")
	router.HandleFunc("/order/modify", h.ModifyOrder).Methods("POST")
	router.HandleFunc("/order/cancel", h.CancelOrder).Methods("POST")
}

// GetDashboard returns the aggregated view
func (h *TradeHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.tradeService.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetCandles returns bars for a symbol
func (h *TradeHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, errs.Invalid("invalid limit %q", raw))
			return
		}
		limit = n
	}

	candles, err := h.tradeService.Candles(r.Context(), query.Get("symbol"), query.Get("timeframe"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, candles)
}

// Trade fans an order out to every active account
func (h *TradeHandler) Trade(w http.ResponseWriter, r *http.Request) {
	var req models.TradeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.tradeService.Trade(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Modify changes SL/TP of a position or netted group
func (h *TradeHandler) Modify(w http.ResponseWriter, r *http.Request) {
	var req models.ModifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.tradeService.Modify(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Close closes a position or netted group
func (h *TradeHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req models.CloseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.tradeService.Close(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ModifyOrder updates a pending order
func (h *TradeHandler) ModifyOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderModifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.tradeService.ModifyOrder(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// CancelOrder removes a pending order
func (h *TradeHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderCancelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.tradeService.CancelOrder(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
