package command

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/models"
)

func newRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBroker(client), mr
}

func brokers(t *testing.T) map[string]Broker {
	rb, _ := newRedisBroker(t)
	return map[string]Broker{
		"memory": NewMemoryBroker(),
		"redis":  rb,
	}
}

func cmd(t *testing.T, kind models.CommandKind, corr string) models.Command {
	t.Helper()
	c, err := models.NewCommand(kind, corr, models.ClosePayload{Position: 1})
	require.NoError(t, err)
	return c
}

func TestChannelFIFO(t *testing.T) {
	ctx := context.Background()
	for name, b := range brokers(t) {
		t.Run(name, func(t *testing.T) {
			ch, err := b.Open(ctx, 1)
			require.NoError(t, err)

			for _, corr := range []string{"a", "b", "c"} {
				require.NoError(t, ch.Push(ctx, cmd(t, models.CmdClose, corr)))
			}

			got, err := b.Attach(1).Drain(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "a", got[0].CorrelationID)
			assert.Equal(t, "b", got[1].CorrelationID)
			assert.Equal(t, "c", got[2].CorrelationID)

			again, err := ch.Drain(ctx)
			require.NoError(t, err)
			assert.Empty(t, again)
		})
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, b := range brokers(t) {
		t.Run(name, func(t *testing.T) {
			one, err := b.Open(ctx, 1)
			require.NoError(t, err)
			two, err := b.Open(ctx, 2)
			require.NoError(t, err)

			require.NoError(t, one.Push(ctx, cmd(t, models.CmdTrade, "x")))

			got, err := two.Drain(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestReleaseReturnsLeftovers(t *testing.T) {
	ctx := context.Background()
	for name, b := range brokers(t) {
		t.Run(name, func(t *testing.T) {
			ch, err := b.Open(ctx, 7)
			require.NoError(t, err)
			require.NoError(t, ch.Push(ctx, cmd(t, models.CmdTrade, "t1")))

			left, err := b.Release(ctx, 7)
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, models.CmdTrade, left[0].Kind)
		})
	}
}

func TestMemoryPushAfterRelease(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	ch, err := b.Open(ctx, 1)
	require.NoError(t, err)
	_, err = b.Release(ctx, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, ch.Push(ctx, cmd(t, models.CmdClose, "late")), ErrChannelClosed)
	assert.Equal(t, 0, b.Len())
}

func TestRedisOpenResetsList(t *testing.T) {
	ctx := context.Background()
	b, mr := newRedisBroker(t)
	_, err := mr.Push(Key(3), "stale")
	require.NoError(t, err)

	ch, err := b.Open(ctx, 3)
	require.NoError(t, err)
	got, err := ch.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, mr.Exists(Key(3)))
}
