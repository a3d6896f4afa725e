// Package dispatch pushes commands to account workers and waits for their
// correlated results.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
)

// Registry finds the command channel of a running worker
type Registry interface {
	Channel(accountID uint) (command.Channel, bool)
}

// Target is one account a command is sent to
type Target struct {
	ID   uint
	Name string
}

// Handle identifies a submitted command and the accounts it reached
type Handle struct {
	CorrelationID string
	Kind          models.CommandKind
	Targets       []Target
	// Failed holds the accounts the command could not be delivered to
	Failed map[uint]string
}

// Delivered lists the targets whose channel accepted the command
func (h *Handle) Delivered() []Target {
	out := make([]Target, 0, len(h.Targets))
	for _, t := range h.Targets {
		if _, failed := h.Failed[t.ID]; !failed {
			out = append(out, t)
		}
	}
	return out
}

// Dispatcher is the correlation-id future over command channels and the
// shared store
type Dispatcher struct {
	registry Registry
	store    state.Store
	poll     time.Duration
}

// New creates a dispatcher polling the store every poll interval
func New(registry Registry, store state.Store, poll time.Duration) *Dispatcher {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Dispatcher{registry: registry, store: store, poll: poll}
}

// Submit pushes one command per target under a fresh correlation id.
// Accounts without a running worker are recorded on the handle.
func (d *Dispatcher) Submit(ctx context.Context, kind models.CommandKind, payload interface{}, targets ...Target) (*Handle, error) {
	cmd, err := models.NewCommand(kind, uuid.NewString(), payload)
	if err != nil {
		return nil, errs.Invalid("encode %s payload: %v", kind, err)
	}

	h := &Handle{
		CorrelationID: cmd.CorrelationID,
		Kind:          kind,
		Targets:       targets,
		Failed:        make(map[uint]string),
	}

	var pushErr error
	for _, t := range targets {
		ch, ok := d.registry.Channel(t.ID)
		if !ok {
			h.Failed[t.ID] = t.Name + ": worker not running"
			continue
		}
		if err := ch.Push(ctx, cmd); err != nil {
			h.Failed[t.ID] = t.Name + ": " + err.Error()
			pushErr = multierr.Append(pushErr, err)
		}
	}
	if pushErr != nil {
		logger.Warn("command push failed",
			zap.String("kind", string(kind)),
			zap.String("correlation_id", h.CorrelationID),
			zap.Error(pushErr))
	}
	return h, nil
}

// AwaitResponse waits for the single response posted under the handle's
// correlation id. It returns errs.ErrTimeout when none arrives in time.
func (d *Dispatcher) AwaitResponse(ctx context.Context, h *Handle, timeout time.Duration) ([]byte, error) {
	if len(h.Delivered()) == 0 {
		return nil, errs.ErrTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		raw, ok, err := d.store.TakeResponse(ctx, h.CorrelationID)
		if err != nil {
			logger.Warn("poll response", zap.String("correlation_id", h.CorrelationID), zap.Error(err))
		}
		if ok {
			return raw, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errs.ErrTimeout
		case <-ticker.C:
		}
	}
}

// AwaitResults waits until every delivered target posted its result. The
// returned map always holds the delivery failures; on timeout it also holds
// whatever arrived and the error is errs.ErrTimeout.
func (d *Dispatcher) AwaitResults(ctx context.Context, h *Handle, timeout time.Duration) (map[uint]string, error) {
	defer func() {
		if err := d.store.ClearResults(context.Background(), h.CorrelationID); err != nil {
			logger.Warn("clear results", zap.String("correlation_id", h.CorrelationID), zap.Error(err))
		}
	}()

	out := make(map[uint]string, len(h.Targets))
	for id, msg := range h.Failed {
		out[id] = msg
	}
	pending := h.Delivered()
	if len(pending) == 0 {
		return out, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		got, err := d.store.Results(ctx, h.CorrelationID)
		if err != nil {
			logger.Warn("poll results", zap.String("correlation_id", h.CorrelationID), zap.Error(err))
		}
		complete := true
		for _, t := range pending {
			msg, ok := got[t.ID]
			if !ok {
				complete = false
				continue
			}
			out[t.ID] = msg
		}
		if complete {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-deadline.C:
			return out, errs.ErrTimeout
		case <-ticker.C:
		}
	}
}
