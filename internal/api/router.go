package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/tradehub/internal/config"
	"github.com/vikasavnish/tradehub/internal/handlers"
	"github.com/vikasavnish/tradehub/internal/middleware"
	"github.com/vikasavnish/tradehub/internal/services"
	"github.com/vikasavnish/tradehub/internal/websocket"
)

// Services bundles what the HTTP layer talks to
type Services struct {
	Auth      services.AuthService
	Accounts  services.AccountService
	Watchlist services.WatchlistService
	Trades    services.TradeService
	Users     services.UserService
}

// SetupRouter configures all routes and returns the router
func SetupRouter(cfg *config.Config, svc Services, wsHub *websocket.Hub) *mux.Router {
	router := mux.NewRouter()
	auth := middleware.AuthMiddleware(cfg.JWT.SecretKey)

	// Public endpoints
	router.HandleFunc("/api/health", HealthHandler).Methods("GET")
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg.JWT.SecretKey)
	router.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	// Push channel; browsers pass the token as ?token=
	router.Handle("/ws", auth(http.HandlerFunc(wsHub.HandleWebSocket)))

	// Create the API router for authenticated endpoints
	authRouter := router.PathPrefix("/api").Subrouter()
	authRouter.Use(auth)

	handlers.NewTradeHandler(svc.Trades).RegisterRoutes(authRouter)
	handlers.NewAccountHandler(svc.Accounts).RegisterRoutes(authRouter)
	handlers.NewSymbolHandler(svc.Watchlist).RegisterRoutes(authRouter)
	handlers.NewUserHandler(svc.Users).RegisterRoutes(authRouter)
	authRouter.HandleFunc("/routes", PrintRoutesHandler(router)).Methods("GET")

	return router
}
