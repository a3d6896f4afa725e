package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/tradehub/internal/models"
)

func TestPaperRequiresLogin(t *testing.T) {
	p := NewPaper(1000)
	_, err := p.AccountSummary(context.Background())
	assert.Error(t, err)

	p.FailLogin(errors.New("invalid account"))
	assert.EqualError(t, p.Login(context.Background(), Credentials{Login: 1}), "invalid account")
}

func TestPaperDealLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(1000)
	require.NoError(t, p.Login(ctx, Credentials{Login: 1}))

	res, err := p.Send(ctx, TradeRequest{Action: ActionDeal, Symbol: "XAUUSD", Type: models.Buy, Volume: 0.1, Filling: FillFOK})
	require.NoError(t, err)
	require.True(t, res.OK(), res.Comment)

	positions, err := p.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, 2000.3, pos.PriceOpen)
	assert.Equal(t, 2000.0, pos.PriceCurrent)

	p.SetPrice("XAUUSD", 2010, 2010.3)
	sum, err := p.AccountSummary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1000+(2010-2000.3)*0.1*100, sum.Equity, 1e-6)

	res, err = p.Send(ctx, TradeRequest{Action: ActionDeal, Symbol: "XAUUSD", Type: models.Sell, Volume: 0.1, Position: pos.Ticket})
	require.NoError(t, err)
	require.True(t, res.OK())

	positions, _ = p.Positions(ctx)
	assert.Empty(t, positions)

	deals, err := p.Deals(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.InDelta(t, 97.0, deals[0].Profit, 1e-6)
}

func TestPaperRejection(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(1000)
	require.NoError(t, p.Login(ctx, Credentials{}))
	p.Reject(RetcodeNoMoney, "No money")

	res, err := p.Send(ctx, TradeRequest{Action: ActionDeal, Symbol: "XAUUSD", Type: models.Buy, Volume: 1})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, "No money", res.Comment)
}

func TestPaperCandlesAscending(t *testing.T) {
	p := NewPaper(1000)
	bars, err := p.Candles(context.Background(), "XAUUSD", "5M", 20)
	require.NoError(t, err)
	require.Len(t, bars, 20)
	for i := 1; i < len(bars); i++ {
		assert.Equal(t, int64(300), bars[i].Time-bars[i-1].Time)
	}
}

func TestPreferredFilling(t *testing.T) {
	assert.Equal(t, FillFOK, SymbolInfo{FillingFlags: FlagFOK | FlagIOC}.PreferredFilling())
	assert.Equal(t, FillIOC, SymbolInfo{FillingFlags: FlagIOC}.PreferredFilling())
	assert.Equal(t, FillReturn, SymbolInfo{}.PreferredFilling())
}
