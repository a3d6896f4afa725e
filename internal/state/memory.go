package state

import (
	"context"
	"sync"
	"time"

	"github.com/vikasavnish/tradehub/internal/models"
)

type response struct {
	payload []byte
	expires time.Time
}

type resultSet struct {
	mu      sync.Mutex
	entries map[uint]string
	expires time.Time
}

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	ttl       time.Duration
	snapshots sync.Map // uint -> models.AccountSnapshot
	responses sync.Map // string -> response
	results   sync.Map // string -> *resultSet
}

// NewMemoryStore creates a store whose ephemeral entries live for ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl}
}

func (s *MemoryStore) PutSnapshot(_ context.Context, snap models.AccountSnapshot) error {
	s.snapshots.Store(snap.AccountID, snap)
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context, accountID uint) (models.AccountSnapshot, bool, error) {
	v, ok := s.snapshots.Load(accountID)
	if !ok {
		return models.AccountSnapshot{}, false, nil
	}
	return v.(models.AccountSnapshot), true, nil
}

func (s *MemoryStore) Snapshots(context.Context) (map[uint]models.AccountSnapshot, error) {
	out := make(map[uint]models.AccountSnapshot)
	s.snapshots.Range(func(k, v interface{}) bool {
		out[k.(uint)] = v.(models.AccountSnapshot)
		return true
	})
	return out, nil
}

func (s *MemoryStore) MarkStatus(ctx context.Context, accountID uint, status models.Status, detail string) error {
	snap, _, _ := s.Snapshot(ctx, accountID)
	s.snapshots.Store(accountID, withStatus(snap, accountID, status, detail))
	return nil
}

func (s *MemoryStore) DeleteSnapshot(_ context.Context, accountID uint) error {
	s.snapshots.Delete(accountID)
	return nil
}

func (s *MemoryStore) PutResponse(_ context.Context, correlationID string, payload []byte) error {
	s.sweep()
	s.responses.Store(correlationID, response{payload: payload, expires: time.Now().Add(s.ttl)})
	return nil
}

func (s *MemoryStore) TakeResponse(_ context.Context, correlationID string) ([]byte, bool, error) {
	v, ok := s.responses.LoadAndDelete(correlationID)
	if !ok {
		return nil, false, nil
	}
	return v.(response).payload, true, nil
}

func (s *MemoryStore) PutResult(_ context.Context, correlationID string, accountID uint, msg string) error {
	s.sweep()
	v, _ := s.results.LoadOrStore(correlationID, &resultSet{
		entries: make(map[uint]string),
		expires: time.Now().Add(s.ttl),
	})
	set := v.(*resultSet)
	set.mu.Lock()
	set.entries[accountID] = msg
	set.expires = time.Now().Add(s.ttl)
	set.mu.Unlock()
	return nil
}

func (s *MemoryStore) Results(_ context.Context, correlationID string) (map[uint]string, error) {
	out := make(map[uint]string)
	v, ok := s.results.Load(correlationID)
	if !ok {
		return out, nil
	}
	set := v.(*resultSet)
	set.mu.Lock()
	for k, msg := range set.entries {
		out[k] = msg
	}
	set.mu.Unlock()
	return out, nil
}

func (s *MemoryStore) ClearResults(_ context.Context, correlationID string) error {
	s.results.Delete(correlationID)
	return nil
}

// sweep drops expired ephemeral entries
func (s *MemoryStore) sweep() {
	now := time.Now()
	s.responses.Range(func(k, v interface{}) bool {
		if now.After(v.(response).expires) {
			s.responses.Delete(k)
		}
		return true
	})
	s.results.Range(func(k, v interface{}) bool {
		set := v.(*resultSet)
		set.mu.Lock()
		expired := now.After(set.expires)
		set.mu.Unlock()
		if expired {
			s.results.Delete(k)
		}
		return true
	})
}

func withStatus(snap models.AccountSnapshot, accountID uint, status models.Status, detail string) models.AccountSnapshot {
	snap.AccountID = accountID
	snap.Status = status
	snap.Error = detail
	snap.UpdatedAt = time.Now()
	return snap
}
