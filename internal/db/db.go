package db

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vikasavnish/tradehub/internal/config"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
)

// Connect establishes a connection to the account directory database
func Connect(config config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.URL), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the directory tables and seeds the default admin user
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Account{}, &models.WatchSymbol{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	// Create a default admin user if none exists
	createDefaultAdmin(db)
	return nil
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(config config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	// Test the connection
	if _, err = client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	return client, nil
}

// createDefaultAdmin creates a default admin user if no users exist
func createDefaultAdmin(db *gorm.DB) {
	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("hash default admin password", zap.Error(err))
			return
		}
		db.Create(&models.User{
			Username:       "admin",
			HashedPassword: string(hashedPassword),
			Role:           "admin",
		})
		logger.Info("Created default admin user")
	}
}
