package venue

import (
	"fmt"

	"github.com/vikasavnish/tradehub/internal/config"
)

const paperStartingBalance = 10000

// NewFactory picks the terminal implementation configured for workers
func NewFactory(cfg config.VenueConfig) (Factory, error) {
	switch cfg.Mode {
	case "", "paper":
		return NewPaperFactory(paperStartingBalance, 0.0002), nil
	case "bridge":
		return NewBridgeFactory(cfg.BridgeURL, cfg.BridgeTimeout), nil
	}
	return nil, fmt.Errorf("unknown venue mode %q", cfg.Mode)
}
