package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
)

// WorkerControl starts and stops account workers
type WorkerControl interface {
	Start(ctx context.Context, account models.Account) error
	Stop(ctx context.Context, accountID uint) error
}

// AccountService defines the account directory operations
type AccountService interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetAccount(ctx context.Context, id uint) (models.Account, error)
	ActiveAccounts(ctx context.Context) ([]models.Account, error)
	SaveAccount(ctx context.Context, req models.AccountRequest) (models.Account, error)
	SetActive(ctx context.Context, id uint, active bool) (models.Account, error)
	DeleteAccount(ctx context.Context, id uint) error
}

// accountService implements the AccountService interface
type accountService struct {
	db      *gorm.DB
	workers WorkerControl
	store   state.Store
}

// NewAccountService creates an account directory. workers and store may be
// nil for read-only use, as in the worker process.
func NewAccountService(db *gorm.DB, workers WorkerControl, store state.Store) AccountService {
	return &accountService{
		db:      db,
		workers: workers,
		store:   store,
	}
}

func directoryErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("%s", op)
	}
	return &errs.DirectoryError{Op: op, Err: err}
}

// ListAccounts returns every account ordered by name
func (s *accountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).Order("name, id").Find(&accounts).Error; err != nil {
		return nil, directoryErr("list accounts", err)
	}
	return accounts, nil
}

// GetAccount returns an account by ID
func (s *accountService) GetAccount(ctx context.Context, id uint) (models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return models.Account{}, directoryErr("account", err)
	}
	return account, nil
}

// ActiveAccounts returns the accounts that should have a running worker
func (s *accountService) ActiveAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name, id").Find(&accounts).Error; err != nil {
		return nil, directoryErr("active accounts", err)
	}
	return accounts, nil
}

// SaveAccount creates an account, or updates it when an ID is given. An
// empty password on update keeps the stored one. Active accounts get their
// worker (re)started with the new settings.
func (s *accountService) SaveAccount(ctx context.Context, req models.AccountRequest) (models.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return models.Account{}, errs.Invalid("name is required")
	}
	if req.Login <= 0 {
		return models.Account{}, errs.Invalid("login is required")
	}

	var account models.Account
	update := req.ID != 0
	if update {
		existing, err := s.GetAccount(ctx, req.ID)
		if err != nil {
			return models.Account{}, err
		}
		account = existing
	} else {
		account.IsActive = true
	}

	account.Name = req.Name
	account.Login = req.Login
	account.Server = req.Server
	account.TerminalPath = req.TerminalPath
	if req.Password != "" {
		account.Password = req.Password
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}
	if req.SymbolConfig != nil {
		account.SymbolConfig = datatypes.NewJSONType(req.SymbolConfig)
	}

	if err := s.db.WithContext(ctx).Save(&account).Error; err != nil {
		return models.Account{}, directoryErr("save account", err)
	}

	if s.workers != nil {
		if update {
			if err := s.workers.Stop(ctx, account.ID); err != nil {
				logger.Warn("stop worker for update", zap.Uint("account_id", account.ID), zap.Error(err))
			}
		}
		if account.IsActive {
			if err := s.workers.Start(ctx, account); err != nil {
				return account, err
			}
		}
	}
	return account, nil
}

// SetActive toggles an account and starts or stops its worker
func (s *accountService) SetActive(ctx context.Context, id uint, active bool) (models.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	if err := s.db.WithContext(ctx).Model(&account).Update("is_active", active).Error; err != nil {
		return models.Account{}, directoryErr("toggle account", err)
	}
	account.IsActive = active

	if s.workers == nil {
		return account, nil
	}
	if active {
		return account, s.workers.Start(ctx, account)
	}
	return account, s.workers.Stop(ctx, id)
}

// DeleteAccount stops the worker and removes the record and its snapshot
func (s *accountService) DeleteAccount(ctx context.Context, id uint) error {
	if _, err := s.GetAccount(ctx, id); err != nil {
		return err
	}
	if s.workers != nil {
		if err := s.workers.Stop(ctx, id); err != nil {
			return err
		}
	}
	if err := s.db.WithContext(ctx).Delete(&models.Account{}, id).Error; err != nil {
		return directoryErr("delete account", err)
	}
	if s.store != nil {
		return s.store.DeleteSnapshot(ctx, id)
	}
	return nil
}
