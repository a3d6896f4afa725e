package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/services"
)

// SymbolHandler manages the global watch list
type SymbolHandler struct {
	watchlistService services.WatchlistService
}

func NewSymbolHandler(watchlistService services.WatchlistService) *SymbolHandler {
	return &SymbolHandler{
		watchlistService: watchlistService,
	}
}

func (h *SymbolHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/symbols", h.GetSymbols).Methods("GET")
	router.HandleFunc("/symbols", h.AddSymbol).Methods("POST")
	router.HandleFunc("/symbols/{symbol}", h.RemoveSymbol).Methods("DELETE")
}

// GetSymbols returns the watch list
func (h *SymbolHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.watchlistService.ListSymbols(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, symbols)
}

// AddSymbol adds or updates a watch list entry. Running workers pick it up
// on their next restart.
func (h *SymbolHandler) AddSymbol(w http.ResponseWriter, r *http.Request) {
	var sym models.WatchSymbol
	if err := decodeJSON(r, &sym); err != nil {
		respondError(w, r, err)
		return
	}
	saved, err := h.watchlistService.AddSymbol(r.Context(), sym)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// RemoveSymbol deletes a watch list entry
func (h *SymbolHandler) RemoveSymbol(w http.ResponseWriter, r *http.Request) {
	if err := h.watchlistService.RemoveSymbol(r.Context(), mux.Vars(r)["symbol"]); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
