// Command worker runs a single account worker in its own process. The server
// spawns it when WORKER_LAUNCHER=exec; state and commands go through Redis.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/config"
	"github.com/vikasavnish/tradehub/internal/db"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/services"
	"github.com/vikasavnish/tradehub/internal/state"
	"github.com/vikasavnish/tradehub/internal/venue"
	"github.com/vikasavnish/tradehub/internal/worker"
)

func main() {
	accountID := flag.Uint("account", 0, "account id to run")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		FileName:   cfg.Log.FileName,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   true,
		Console:    cfg.Log.Console,
	}, "worker-"+strconv.FormatUint(uint64(*accountID), 10))
	defer logger.Sync()

	if *accountID == 0 {
		logger.Fatal("missing -account")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	account, err := services.NewAccountService(database, nil, nil).GetAccount(ctx, uint(*accountID))
	if err != nil {
		logger.Fatal("Failed to load account", zap.Uint("account_id", uint(*accountID)), zap.Error(err))
	}

	factory, err := venue.NewFactory(cfg.Venue)
	if err != nil {
		logger.Fatal("Invalid venue configuration", zap.Error(err))
	}

	w := worker.New(
		account,
		factory(account),
		command.NewRedisBroker(redisClient).Attach(account.ID),
		state.NewRedisStore(redisClient, cfg.Engine.ResultTTL),
		worker.Options{
			Interval:      cfg.Engine.WorkerInterval,
			HistoryEvery:  cfg.Engine.HistoryEvery,
			DefaultSymbol: cfg.Engine.DefaultSymbol,
		},
		services.NewWatchlistService(database).Symbols,
	)

	if err := w.Run(ctx); err != nil {
		logger.Error("worker exited", zap.String("account", account.Name), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
