// Package command carries commands from the API layer to account workers.
// Each account has one unbounded FIFO with a single consumer.
package command

import (
	"context"
	"errors"

	"github.com/vikasavnish/tradehub/internal/models"
)

// ErrChannelClosed is returned when pushing to a released channel
var ErrChannelClosed = errors.New("command channel closed")

// Channel is one account's command queue
type Channel interface {
	// Push appends a command; never blocks on the consumer
	Push(ctx context.Context, cmd models.Command) error
	// Drain removes and returns every queued command in order
	Drain(ctx context.Context) ([]models.Command, error)
}

// Broker owns the per-account channels
type Broker interface {
	// Open creates a fresh, empty channel for the account
	Open(ctx context.Context, accountID uint) (Channel, error)
	// Attach returns the consumer side of an already opened channel
	Attach(accountID uint) Channel
	// Release removes the channel and returns the commands still queued
	Release(ctx context.Context, accountID uint) ([]models.Command, error)
}
