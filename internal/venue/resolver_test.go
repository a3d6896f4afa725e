package venue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paperWith(t *testing.T, names ...string) *Paper {
	t.Helper()
	p := &Paper{
		symbols: make(map[string]*paperSymbol),
	}
	for _, n := range names {
		p.AddSymbol(SymbolInfo{Name: n, ContractSize: 1, VolumeMin: 0.01}, 1, 1)
	}
	require.NoError(t, p.Login(context.Background(), Credentials{}))
	return p
}

func TestResolveSymbol(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		tradable  []string
		requested string
		want      string
	}{
		{"exact match", []string{"BTCUSDTp", "BTCUSDT"}, "BTCUSDT", "BTCUSDT"},
		{"suffixed", []string{"BTCUSDTp"}, "BTCUSDT", "BTCUSDTp"},
		{"no match", []string{"ETHUSDT"}, "BTCUSDT", "BTCUSDT"},
		{"contains but not prefix", []string{"xBTCUSDT"}, "BTCUSDT", "BTCUSDT"},
		{"first prefix in venue order", []string{"XAUUSD.m", "XAUUSDp"}, "XAUUSD", "XAUUSD.m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paperWith(t, tt.tradable...)
			assert.Equal(t, tt.want, ResolveSymbol(ctx, p, tt.requested))
		})
	}
}

func TestResolveSymbolSessionDown(t *testing.T) {
	p := paperWith(t, "BTCUSDTp")
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Equal(t, "BTCUSDT", ResolveSymbol(context.Background(), p, "BTCUSDT"))
}

func TestResolverCaches(t *testing.T) {
	ctx := context.Background()
	p := paperWith(t, "BTCUSDTp")
	r := NewResolver(p)

	assert.Equal(t, "BTCUSDTp", r.Resolve(ctx, "BTCUSDT"))

	// still served from cache once the terminal stops answering
	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, "BTCUSDTp", r.Resolve(ctx, "BTCUSDT"))
}
