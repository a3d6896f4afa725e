package worker

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
)

type entry struct {
	account models.Account
	channel command.Channel
	handle  Handle
}

// Manager keeps exactly one running worker per started account. Start, Stop
// and exit cleanup are serialized by lifecycle; mu only guards the registry.
type Manager struct {
	lifecycle sync.Mutex
	mu        sync.Mutex
	workers   map[uint]*entry
	broker    command.Broker
	store     state.Store
	launcher  Launcher
}

// NewManager creates a manager launching workers with l
func NewManager(broker command.Broker, store state.Store, l Launcher) *Manager {
	return &Manager{
		workers:  make(map[uint]*entry),
		broker:   broker,
		store:    store,
		launcher: l,
	}
}

// Start launches a worker for the account unless one is already running
func (m *Manager) Start(ctx context.Context, account models.Account) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.IsRunning(account.ID) {
		return nil
	}

	ch, err := m.broker.Open(ctx, account.ID)
	if err != nil {
		return errors.Wrapf(err, "open channel for %s", account.Name)
	}
	h, err := m.launcher.Launch(account)
	if err != nil {
		if _, rerr := m.broker.Release(ctx, account.ID); rerr != nil {
			logger.Warn("release channel", zap.Uint("account_id", account.ID), zap.Error(rerr))
		}
		return errors.Wrapf(err, "launch worker for %s", account.Name)
	}

	e := &entry{account: account, channel: ch, handle: h}
	m.mu.Lock()
	m.workers[account.ID] = e
	m.mu.Unlock()
	go m.watch(e)

	logger.Info("worker started", zap.Uint("account_id", account.ID), zap.String("account", account.Name))
	return nil
}

// watch cleans up after a worker that exits on its own. The worker has
// already recorded ERROR or CRASHED; it is not restarted.
func (m *Manager) watch(e *entry) {
	<-e.handle.Done()

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	current, ok := m.workers[e.account.ID]
	if !ok || current != e {
		m.mu.Unlock()
		return
	}
	delete(m.workers, e.account.ID)
	m.mu.Unlock()

	ctx := context.Background()
	logger.Warn("worker exited", zap.Uint("account_id", e.account.ID), zap.Error(e.handle.Err()))

	// a killed child process cannot record its own crash
	if snap, found, err := m.store.Snapshot(ctx, e.account.ID); err == nil && found {
		if snap.Status == models.StatusOnline || snap.Status == models.StatusConnecting {
			detail := "worker exited"
			if err := e.handle.Err(); err != nil {
				detail = err.Error()
			}
			if err := m.store.MarkStatus(ctx, e.account.ID, models.StatusCrashed, detail); err != nil {
				logger.Error("mark crashed", zap.Uint("account_id", e.account.ID), zap.Error(err))
			}
		}
	}
	m.release(ctx, e.account)
}

// Stop kills the account's worker without draining, releases its channel and
// marks the snapshot OFFLINE. Other accounts are untouched.
func (m *Manager) Stop(ctx context.Context, accountID uint) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	e, ok := m.workers[accountID]
	delete(m.workers, accountID)
	m.mu.Unlock()

	if !ok {
		_, found, err := m.store.Snapshot(ctx, accountID)
		if err != nil || !found {
			return err
		}
		return m.store.MarkStatus(ctx, accountID, models.StatusOffline, "")
	}

	if err := e.handle.Kill(); err != nil {
		logger.Warn("kill worker", zap.Uint("account_id", accountID), zap.Error(err))
	}
	// the entry is already unregistered, so watch will not clean up; finish
	// even when the caller's request is gone
	<-e.handle.Done()
	cleanup := context.WithoutCancel(ctx)

	m.release(cleanup, e.account)
	logger.Info("worker stopped", zap.Uint("account_id", accountID), zap.String("account", e.account.Name))
	return m.store.MarkStatus(cleanup, accountID, models.StatusOffline, "")
}

// release drops the account's channel. Queued trades are answered so their
// callers do not wait for the full timeout.
func (m *Manager) release(ctx context.Context, account models.Account) {
	left, err := m.broker.Release(ctx, account.ID)
	if err != nil {
		logger.Warn("release channel", zap.Uint("account_id", account.ID), zap.Error(err))
		return
	}
	for _, cmd := range left {
		if cmd.Kind != models.CmdTrade {
			continue
		}
		msg := account.Name + ": " + errs.ErrWorkerStopped.Error()
		if err := m.store.PutResult(ctx, cmd.CorrelationID, account.ID, msg); err != nil {
			logger.Warn("answer dropped trade", zap.Uint("account_id", account.ID), zap.Error(err))
		}
	}
	if len(left) > 0 {
		logger.Info("dropped queued commands", zap.Uint("account_id", account.ID), zap.Int("count", len(left)))
	}
}

// StopAll stops every running worker
func (m *Manager) StopAll(ctx context.Context) error {
	var err error
	for _, id := range m.Running() {
		err = multierr.Append(err, m.Stop(ctx, id))
	}
	return err
}

// Channel returns the command channel of a running worker
func (m *Manager) Channel(accountID uint) (command.Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.workers[accountID]
	if !ok {
		return nil, false
	}
	return e.channel, true
}

// IsRunning reports whether the account has a registered worker
func (m *Manager) IsRunning(accountID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workers[accountID]
	return ok
}

// Running lists the ids of registered workers in ascending order
func (m *Manager) Running() []uint {
	m.mu.Lock()
	ids := make([]uint, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
