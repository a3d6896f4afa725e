package worker

import (
	"context"
	"os"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
	"github.com/vikasavnish/tradehub/internal/venue"
)

// Handle controls one launched worker
type Handle interface {
	// Kill stops the worker immediately; queued commands are not drained
	Kill() error
	// Done is closed once the worker has exited
	Done() <-chan struct{}
	// Err is the exit error; valid after Done is closed
	Err() error
}

// Launcher starts a worker for an account
type Launcher interface {
	Launch(account models.Account) (Handle, error)
}

type goroutineHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (h *goroutineHandle) Kill() error           { h.cancel(); return nil }
func (h *goroutineHandle) Done() <-chan struct{} { return h.done }
func (h *goroutineHandle) Err() error            { return h.err }

// InProcessLauncher runs each worker on its own goroutine with its own venue
// session. Sessions, resolvers and symbol caches are never shared.
type InProcessLauncher struct {
	Factory   venue.Factory
	Broker    command.Broker
	Store     state.Store
	Options   Options
	Watchlist Watchlist
}

func (l *InProcessLauncher) Launch(account models.Account) (Handle, error) {
	session := l.Factory(account)
	if session == nil {
		return nil, errors.Errorf("no venue session for account %d", account.ID)
	}
	w := New(account, session, l.Broker.Attach(account.ID), l.Store, l.Options, l.Watchlist)

	ctx, cancel := context.WithCancel(context.Background())
	h := &goroutineHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.err = w.Run(ctx)
	}()
	return h, nil
}

type processHandle struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func (h *processHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	err := h.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (h *processHandle) Done() <-chan struct{} { return h.done }
func (h *processHandle) Err() error            { return h.err }

// ExecLauncher starts the worker binary as a child process per account. The
// child reaches the server only through the Redis command list and store.
type ExecLauncher struct {
	Binary string
	Dir    string
	// Env holds overrides appended to the server's own environment
	Env []string
}

func (l *ExecLauncher) Launch(account models.Account) (Handle, error) {
	cmd := exec.Command(l.Binary, "-account", strconv.FormatUint(uint64(account.ID), 10))
	cmd.Dir = l.Dir
	cmd.Env = append(os.Environ(), l.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start worker for account %d", account.ID)
	}

	h := &processHandle{cmd: cmd, done: make(chan struct{})}
	go func() {
		h.err = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}
