package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/services"
)

// AccountHandler exposes the account directory
type AccountHandler struct {
	accountService services.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// RegisterRoutes registers all account routes
func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.GetAccounts).Methods("GET")
	router.HandleFunc("/accounts", h.SaveAccount).Methods("POST")
	router.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{id:[0-9]+}/toggle", h.ToggleAccount).Methods("POST")
	router.HandleFunc("/accounts/{id:[0-9]+}", h.DeleteAccount).Methods("DELETE")
}

func accountID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Invalid("invalid account id")
	}
	return uint(id), nil
}

// GetAccounts lists every account
func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// GetAccount returns one account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	account, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// SaveAccount creates an account, or updates it when the body has an id
func (h *AccountHandler) SaveAccount(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	account, err := h.accountService.SaveAccount(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if req.ID == 0 {
		status = http.StatusCreated
	}
	respondJSON(w, status, account)
}

// ToggleAccount switches an account on or off, starting or stopping its worker
func (h *AccountHandler) ToggleAccount(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req models.ToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	account, err := h.accountService.SetActive(r.Context(), id, req.IsActive)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// DeleteAccount stops the worker and removes the account
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.accountService.DeleteAccount(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
