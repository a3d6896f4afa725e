package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/models"
)

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(time.Minute),
		"redis":  NewRedisStore(client, time.Minute),
	}
}

func TestSnapshotsReplaceWholesale(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutSnapshot(ctx, models.AccountSnapshot{
				AccountID: 1,
				Name:      "alpha",
				Status:    models.StatusOnline,
				Positions: []models.Position{{Ticket: 10, Symbol: "XAUUSD"}},
			}))
			require.NoError(t, s.PutSnapshot(ctx, models.AccountSnapshot{
				AccountID: 1,
				Name:      "alpha",
				Status:    models.StatusOnline,
				Balance:   500,
			}))

			snap, ok, err := s.Snapshot(ctx, 1)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Empty(t, snap.Positions)
			assert.Equal(t, 500.0, snap.Balance)

			_, ok, err = s.Snapshot(ctx, 2)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMarkStatusKeepsOthers(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutSnapshot(ctx, models.AccountSnapshot{AccountID: 1, Name: "a", Status: models.StatusOnline, Balance: 100}))
			require.NoError(t, s.PutSnapshot(ctx, models.AccountSnapshot{AccountID: 2, Name: "b", Status: models.StatusOnline, Balance: 200}))

			require.NoError(t, s.MarkStatus(ctx, 1, models.StatusOffline, ""))

			all, err := s.Snapshots(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, models.StatusOffline, all[1].Status)
			assert.Equal(t, 100.0, all[1].Balance)
			assert.Equal(t, models.StatusOnline, all[2].Status)

			require.NoError(t, s.MarkStatus(ctx, 9, models.StatusError, "login failed"))
			snap, ok, err := s.Snapshot(ctx, 9)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "login failed", snap.Error)

			require.NoError(t, s.DeleteSnapshot(ctx, 9))
			_, ok, _ = s.Snapshot(ctx, 9)
			assert.False(t, ok)
		})
	}
}

func TestSnapshotsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	require.NoError(t, s.PutSnapshot(ctx, models.AccountSnapshot{AccountID: 1, Balance: 1}))

	all, err := s.Snapshots(ctx)
	require.NoError(t, err)
	delete(all, 1)

	again, err := s.Snapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestResponseTakenOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.TakeResponse(ctx, "c1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.PutResponse(ctx, "c1", []byte(`[1,2]`)))

			raw, ok, err := s.TakeResponse(ctx, "c1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `[1,2]`, string(raw))

			_, ok, err = s.TakeResponse(ctx, "c1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestResultsPerAccount(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutResult(ctx, "c2", 1, "alpha: success"))
			require.NoError(t, s.PutResult(ctx, "c2", 2, "beta: No money"))
			require.NoError(t, s.PutResult(ctx, "other", 1, "alpha: success"))

			got, err := s.Results(ctx, "c2")
			require.NoError(t, err)
			assert.Equal(t, map[uint]string{1: "alpha: success", 2: "beta: No money"}, got)

			require.NoError(t, s.ClearResults(ctx, "c2"))
			got, err = s.Results(ctx, "c2")
			require.NoError(t, err)
			assert.Empty(t, got)

			other, err := s.Results(ctx, "other")
			require.NoError(t, err)
			assert.Len(t, other, 1)
		})
	}
}

func TestMemoryEphemeralExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10 * time.Millisecond)
	require.NoError(t, s.PutResponse(ctx, "old", []byte("x")))
	require.NoError(t, s.PutResult(ctx, "old", 1, "m"))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.PutResponse(ctx, "new", []byte("y")))

	_, ok, _ := s.TakeResponse(ctx, "old")
	assert.False(t, ok)
	got, _ := s.Results(ctx, "old")
	assert.Empty(t, got)
}

func TestRedisEphemeralExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedisStore(client, time.Minute)

	require.NoError(t, s.PutResult(ctx, "c", 1, "m"))
	require.NoError(t, s.PutResponse(ctx, "c", []byte("x")))
	mr.FastForward(2 * time.Minute)

	got, err := s.Results(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, got)
	_, ok, err := s.TakeResponse(ctx, "c")
	require.NoError(t, err)
	assert.False(t, ok)
}
