package handlers

import (
	"net/http"

	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/services"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService  services.AuthService
	jwtSecretKey []byte
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, jwtSecretKey []byte) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		jwtSecretKey: jwtSecretKey,
	}
}

// Login handles user login and returns a JWT token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.authService.Authenticate(r.Context(), loginReq.Username, loginReq.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tokenString, err := h.authService.GenerateToken(user, h.jwtSecretKey)
	if err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
		UserID:      user.ID,
	})
}
