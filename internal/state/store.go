// Package state is the shared store between account workers and readers.
//
// Snapshots are keyed by account id and have exactly one writer: the
// account's worker while it runs, the manager after it has exited. Readers
// take a full copy per pass instead of locking individual keys. Responses and
// results are ephemeral, keyed by correlation id, and expire after a TTL.
package state

import (
	"context"

	"github.com/vikasavnish/tradehub/internal/models"
)

// Store holds snapshots, correlated responses and per-account results
type Store interface {
	PutSnapshot(ctx context.Context, snap models.AccountSnapshot) error
	Snapshot(ctx context.Context, accountID uint) (models.AccountSnapshot, bool, error)
	Snapshots(ctx context.Context) (map[uint]models.AccountSnapshot, error)
	MarkStatus(ctx context.Context, accountID uint, status models.Status, detail string) error
	DeleteSnapshot(ctx context.Context, accountID uint) error

	PutResponse(ctx context.Context, correlationID string, payload []byte) error
	TakeResponse(ctx context.Context, correlationID string) ([]byte, bool, error)

	PutResult(ctx context.Context, correlationID string, accountID uint, msg string) error
	Results(ctx context.Context, correlationID string) (map[uint]string, error)
	ClearResults(ctx context.Context, correlationID string) error
}
