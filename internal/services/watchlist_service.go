package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
)

// WatchlistService defines the operations on the global symbol watch list
type WatchlistService interface {
	ListSymbols(ctx context.Context) ([]models.WatchSymbol, error)
	Symbols(ctx context.Context) ([]string, error)
	AddSymbol(ctx context.Context, sym models.WatchSymbol) (models.WatchSymbol, error)
	RemoveSymbol(ctx context.Context, symbol string) error
}

type watchlistService struct {
	db *gorm.DB
}

// NewWatchlistService creates a new watch list service
func NewWatchlistService(db *gorm.DB) WatchlistService {
	return &watchlistService{db: db}
}

func (s *watchlistService) ListSymbols(ctx context.Context) ([]models.WatchSymbol, error) {
	var symbols []models.WatchSymbol
	if err := s.db.WithContext(ctx).Order("symbol").Find(&symbols).Error; err != nil {
		return nil, directoryErr("list symbols", err)
	}
	return symbols, nil
}

// Symbols returns just the names; workers read it once at spawn
func (s *watchlistService) Symbols(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&models.WatchSymbol{}).Order("symbol").Pluck("symbol", &names).Error; err != nil {
		return nil, directoryErr("watch list", err)
	}
	return names, nil
}

// AddSymbol inserts a symbol or updates its description and trail
func (s *watchlistService) AddSymbol(ctx context.Context, sym models.WatchSymbol) (models.WatchSymbol, error) {
	sym.Symbol = strings.ToUpper(strings.TrimSpace(sym.Symbol))
	if sym.Symbol == "" {
		return models.WatchSymbol{}, errs.Invalid("symbol is required")
	}

	var existing models.WatchSymbol
	err := s.db.WithContext(ctx).Where("symbol = ?", sym.Symbol).First(&existing).Error
	switch {
	case err == nil:
		existing.Description = sym.Description
		existing.Trail = sym.Trail
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return models.WatchSymbol{}, directoryErr("update symbol", err)
		}
		return existing, nil
	case err == gorm.ErrRecordNotFound:
		sym.ID = 0
		if err := s.db.WithContext(ctx).Create(&sym).Error; err != nil {
			return models.WatchSymbol{}, directoryErr("add symbol", err)
		}
		return sym, nil
	default:
		return models.WatchSymbol{}, directoryErr("find symbol", err)
	}
}

func (s *watchlistService) RemoveSymbol(ctx context.Context, symbol string) error {
	res := s.db.WithContext(ctx).Where("symbol = ?", strings.ToUpper(symbol)).Delete(&models.WatchSymbol{})
	if res.Error != nil {
		return directoryErr("remove symbol", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("symbol %s", symbol)
	}
	return nil
}
