package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vikasavnish/tradehub/internal/db"
	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

type fakeWorkers struct {
	mu      sync.Mutex
	started []uint
	stopped []uint
}

func (f *fakeWorkers) Start(_ context.Context, a models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, a.ID)
	return nil
}

func (f *fakeWorkers) Stop(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func TestSaveAccountCreatesActiveAndStartsWorker(t *testing.T) {
	ctx := context.Background()
	workers := &fakeWorkers{}
	svc := NewAccountService(newTestDB(t), workers, nil)

	account, err := svc.SaveAccount(ctx, models.AccountRequest{
		Name:         " alpha ",
		Login:        1001,
		Password:     "secret",
		Server:       "Demo-1",
		SymbolConfig: models.SymbolConfig{"XAUUSD": {Volume: 0.05}},
	})
	require.NoError(t, err)

	assert.NotZero(t, account.ID)
	assert.Equal(t, "alpha", account.Name)
	assert.True(t, account.IsActive)
	assert.Equal(t, []uint{account.ID}, workers.started)

	stored, err := svc.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	vol, ok := stored.BaseVolume("XAUUSD")
	assert.True(t, ok)
	assert.Equal(t, 0.05, vol)
	assert.Equal(t, "secret", stored.Password)
}

func TestSaveAccountUpdateKeepsPassword(t *testing.T) {
	ctx := context.Background()
	workers := &fakeWorkers{}
	svc := NewAccountService(newTestDB(t), workers, nil)

	created, err := svc.SaveAccount(ctx, models.AccountRequest{Name: "alpha", Login: 1, Password: "p1"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.SaveAccount(ctx, models.AccountRequest{
		ID:       created.ID,
		Name:     "alpha-2",
		Login:    2,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "alpha-2", updated.Name)
	assert.Equal(t, "p1", updated.Password)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []uint{created.ID}, workers.stopped)
	assert.Len(t, workers.started, 1)
}

func TestSaveAccountValidation(t *testing.T) {
	svc := NewAccountService(newTestDB(t), nil, nil)

	_, err := svc.SaveAccount(context.Background(), models.AccountRequest{Login: 1})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = svc.SaveAccount(context.Background(), models.AccountRequest{Name: "a"})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = svc.SaveAccount(context.Background(), models.AccountRequest{ID: 42, Name: "a", Login: 1})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSetActiveTogglesWorker(t *testing.T) {
	ctx := context.Background()
	workers := &fakeWorkers{}
	svc := NewAccountService(newTestDB(t), workers, nil)
	account, err := svc.SaveAccount(ctx, models.AccountRequest{Name: "alpha", Login: 1})
	require.NoError(t, err)

	off, err := svc.SetActive(ctx, account.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	assert.Equal(t, []uint{account.ID}, workers.stopped)

	active, err := svc.ActiveAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.SetActive(ctx, account.ID, true)
	require.NoError(t, err)
	assert.Len(t, workers.started, 2)

	_, err = svc.SetActive(ctx, 999, true)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteAccountRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	workers := &fakeWorkers{}
	store := state.NewMemoryStore(time.Minute)
	svc := NewAccountService(newTestDB(t), workers, store)

	account, err := svc.SaveAccount(ctx, models.AccountRequest{Name: "alpha", Login: 1})
	require.NoError(t, err)
	require.NoError(t, store.PutSnapshot(ctx, models.AccountSnapshot{AccountID: account.ID, Name: "alpha", Status: models.StatusOnline}))

	require.NoError(t, svc.DeleteAccount(ctx, account.ID))

	_, ok, err := store.Snapshot(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []uint{account.ID}, workers.stopped)

	_, err = svc.GetAccount(ctx, account.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, account.ID), errs.ErrNotFound)
}

func TestListAccountsOrderedByName(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(newTestDB(t), nil, nil)
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, err := svc.SaveAccount(ctx, models.AccountRequest{Name: name, Login: 1})
		require.NoError(t, err)
	}

	accounts, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "alpha", accounts[0].Name)
	assert.Equal(t, "charlie", accounts[2].Name)
}
