package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
)

type registry map[uint]command.Channel

func (r registry) Channel(id uint) (command.Channel, bool) {
	ch, ok := r[id]
	return ch, ok
}

func setup(t *testing.T, ids ...uint) (*Dispatcher, *command.MemoryBroker, *state.MemoryStore) {
	t.Helper()
	broker := command.NewMemoryBroker()
	store := state.NewMemoryStore(time.Minute)
	reg := registry{}
	for _, id := range ids {
		ch, err := broker.Open(context.Background(), id)
		require.NoError(t, err)
		reg[id] = ch
	}
	return New(reg, store, 5*time.Millisecond), broker, store
}

func TestSubmitSharesCorrelationID(t *testing.T) {
	ctx := context.Background()
	d, broker, _ := setup(t, 1, 2)

	h, err := d.Submit(ctx, models.CmdTrade, models.TradePayload{Symbol: "XAUUSD"},
		Target{ID: 1, Name: "a"}, Target{ID: 2, Name: "b"}, Target{ID: 3, Name: "c"})
	require.NoError(t, err)
	require.NotEmpty(t, h.CorrelationID)
	assert.Equal(t, map[uint]string{3: "c: worker not running"}, h.Failed)
	assert.Len(t, h.Delivered(), 2)

	for _, id := range []uint{1, 2} {
		cmds, err := broker.Attach(id).Drain(ctx)
		require.NoError(t, err)
		require.Len(t, cmds, 1)
		assert.Equal(t, h.CorrelationID, cmds[0].CorrelationID)
		assert.Equal(t, models.CmdTrade, cmds[0].Kind)
	}
}

func TestAwaitResponseTimeout(t *testing.T) {
	d, _, _ := setup(t, 1)
	h, err := d.Submit(context.Background(), models.CmdGetCandles, models.CandlesPayload{Symbol: "XAUUSD"}, Target{ID: 1, Name: "a"})
	require.NoError(t, err)

	start := time.Now()
	_, err = d.AwaitResponse(context.Background(), h, 30*time.Millisecond)
	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAwaitResponseArrives(t *testing.T) {
	ctx := context.Background()
	d, _, store := setup(t, 1)
	h, err := d.Submit(ctx, models.CmdGetCandles, models.CandlesPayload{Symbol: "XAUUSD"}, Target{ID: 1, Name: "a"})
	require.NoError(t, err)

	go func() {
		time.Sleep(15 * time.Millisecond)
		store.PutResponse(ctx, h.CorrelationID, []byte(`[]`))
	}()

	raw, err := d.AwaitResponse(ctx, h, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestAwaitResultsPartial(t *testing.T) {
	ctx := context.Background()
	d, _, store := setup(t, 1, 2)
	h, err := d.Submit(ctx, models.CmdTrade, models.TradePayload{}, Target{ID: 1, Name: "a"}, Target{ID: 2, Name: "b"})
	require.NoError(t, err)

	require.NoError(t, store.PutResult(ctx, h.CorrelationID, 1, "a: success"))

	got, err := d.AwaitResults(ctx, h, 30*time.Millisecond)
	assert.ErrorIs(t, err, errs.ErrTimeout)
	assert.Equal(t, map[uint]string{1: "a: success"}, got)

	left, _ := store.Results(ctx, h.CorrelationID)
	assert.Empty(t, left)
}

func TestAwaitResultsComplete(t *testing.T) {
	ctx := context.Background()
	d, _, store := setup(t, 1, 2)
	h, err := d.Submit(ctx, models.CmdTrade, models.TradePayload{},
		Target{ID: 1, Name: "a"}, Target{ID: 2, Name: "b"}, Target{ID: 9, Name: "z"})
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		store.PutResult(ctx, h.CorrelationID, 2, "b: No money")
		store.PutResult(ctx, h.CorrelationID, 1, "a: success")
	}()

	got, err := d.AwaitResults(ctx, h, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{
		1: "a: success",
		2: "b: No money",
		9: "z: worker not running",
	}, got)
}
