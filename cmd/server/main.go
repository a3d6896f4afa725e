package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/aggregate"
	"github.com/vikasavnish/tradehub/internal/api"
	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/config"
	"github.com/vikasavnish/tradehub/internal/db"
	"github.com/vikasavnish/tradehub/internal/dispatch"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/services"
	"github.com/vikasavnish/tradehub/internal/state"
	"github.com/vikasavnish/tradehub/internal/tasks"
	"github.com/vikasavnish/tradehub/internal/venue"
	"github.com/vikasavnish/tradehub/internal/websocket"
	"github.com/vikasavnish/tradehub/internal/worker"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Initialize configuration
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		FileName:   cfg.Log.FileName,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   true,
		Console:    cfg.Log.Console,
	}, "server")
	defer logger.Sync()
	if envErr != nil {
		logger.Info("No .env file found, using environment variables")
	}

	// Initialize database connection
	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Redis carries state and commands when workers run out of process
	useRedis := cfg.Engine.StateBackend == "redis" || cfg.Server.Launcher == "exec"
	var redisClient *redis.Client
	if useRedis {
		redisClient, err = db.ConnectRedis(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var (
		store  state.Store
		broker command.Broker
	)
	if useRedis {
		store = state.NewRedisStore(redisClient, cfg.Engine.ResultTTL)
		broker = command.NewRedisBroker(redisClient)
	} else {
		store = state.NewMemoryStore(cfg.Engine.ResultTTL)
		broker = command.NewMemoryBroker()
	}

	watchlist := services.NewWatchlistService(database)

	var launcher worker.Launcher
	switch cfg.Server.Launcher {
	case "exec":
		launcher = &worker.ExecLauncher{Binary: cfg.Server.WorkerBinary}
	default:
		factory, err := venue.NewFactory(cfg.Venue)
		if err != nil {
			logger.Fatal("Invalid venue configuration", zap.Error(err))
		}
		launcher = &worker.InProcessLauncher{
			Factory: factory,
			Broker:  broker,
			Store:   store,
			Options: worker.Options{
				Interval:      cfg.Engine.WorkerInterval,
				HistoryEvery:  cfg.Engine.HistoryEvery,
				DefaultSymbol: cfg.Engine.DefaultSymbol,
			},
			Watchlist: watchlist.Symbols,
		}
	}

	manager := worker.NewManager(broker, store, launcher)
	dispatcher := dispatch.New(manager, store, cfg.Engine.PollInterval)
	accounts := services.NewAccountService(database, manager, store)
	trades := services.NewTradeService(accounts, store, dispatcher, aggregate.NewEngine(), services.TradeOptions{
		CandleTimeout: cfg.Engine.CandleTimeout,
		TradeTimeout:  cfg.Engine.TradeTimeout,
		AllowHedge:    cfg.Engine.AllowHedge,
	})

	// Spawn a worker for every active account
	ctx := context.Background()
	active, err := accounts.ActiveAccounts(ctx)
	if err != nil {
		logger.Error("Failed to load active accounts", zap.Error(err))
	}
	for _, account := range active {
		if err := manager.Start(ctx, account); err != nil {
			logger.Error("Failed to start worker", zap.String("account", account.Name), zap.Error(err))
		}
	}

	// Initialize WebSocket hub and the dashboard broadcast
	wsHub := websocket.NewHub()
	taskManager := tasks.NewManager()
	taskManager.RegisterTask(tasks.NewBroadcastTask(trades, wsHub, cfg.Engine.BroadcastInterval))
	taskManager.StartScheduledTasks()

	// Initialize router
	router := api.SetupRouter(cfg, api.Services{
		Auth:      services.NewAuthService(database),
		Accounts:  accounts,
		Watchlist: watchlist,
		Trades:    trades,
		Users:     services.NewUserService(database),
	}, wsHub)
	api.PrintRoutes(router)

	// Set up CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Allow all origins for API access
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: corsMiddleware.Handler(router),
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("launcher", cfg.Server.Launcher))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	taskManager.StopAllTasks()
	wsHub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	if err := manager.StopAll(shutdownCtx); err != nil {
		logger.Warn("Stopping workers", zap.Error(err))
	}
}
