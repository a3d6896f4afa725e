package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
)

func TestWatchlistAddUpsertsAndLists(t *testing.T) {
	ctx := context.Background()
	svc := NewWatchlistService(newTestDB(t))

	_, err := svc.AddSymbol(ctx, models.WatchSymbol{Symbol: "eurusd", Description: "Euro"})
	require.NoError(t, err)
	_, err = svc.AddSymbol(ctx, models.WatchSymbol{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	updated, err := svc.AddSymbol(ctx, models.WatchSymbol{Symbol: "EURUSD", Description: "Euro / Dollar", Trail: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "Euro / Dollar", updated.Description)

	names, err := svc.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "EURUSD"}, names)

	list, err := svc.ListSymbols(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 0.5, list[1].Trail)
}

func TestWatchlistRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewWatchlistService(newTestDB(t))

	_, err := svc.AddSymbol(ctx, models.WatchSymbol{Symbol: "XAUUSD"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveSymbol(ctx, "xauusd"))
	assert.ErrorIs(t, svc.RemoveSymbol(ctx, "XAUUSD"), errs.ErrNotFound)

	_, err = svc.AddSymbol(ctx, models.WatchSymbol{Symbol: "  "})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}
