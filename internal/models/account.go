package models

import (
	"time"

	"gorm.io/datatypes"
)

// SymbolSetting holds the per-symbol trading configuration of an account
type SymbolSetting struct {
	Volume float64 `json:"volume"`
}

// SymbolConfig maps a symbol to its setting
type SymbolConfig map[string]SymbolSetting

// Account is one brokerage account reachable through its own trading terminal
type Account struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	Name         string                           `json:"name" gorm:"index"`
	Login        int64                            `json:"login" gorm:"column:login"`
	Password     string                           `json:"-" gorm:"column:password"`
	Server       string                           `json:"server" gorm:"column:server"`
	TerminalPath string                           `json:"terminalPath" gorm:"column:terminal_path"`
	IsActive     bool                             `json:"isActive" gorm:"column:is_active;index"`
	SymbolConfig datatypes.JSONType[SymbolConfig] `json:"symbolConfig" gorm:"column:symbol_config"`
	CreatedAt    time.Time                        `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt    time.Time                        `json:"updatedAt" gorm:"column:updated_at"`
}

// TableName specifies the table name for Account model
func (Account) TableName() string {
	return "accounts"
}

// Symbols returns the configured symbols of the account
func (a Account) Symbols() []string {
	cfg := a.SymbolConfig.Data()
	out := make([]string, 0, len(cfg))
	for sym := range cfg {
		out = append(out, sym)
	}
	return out
}

// BaseVolume returns the configured volume for a symbol, if any
func (a Account) BaseVolume(symbol string) (float64, bool) {
	setting, ok := a.SymbolConfig.Data()[symbol]
	if !ok || setting.Volume <= 0 {
		return 0, false
	}
	return setting.Volume, true
}

// AccountRequest is used for creating and updating accounts
type AccountRequest struct {
	ID           uint         `json:"id,omitempty"`
	Name         string       `json:"name"`
	Login        int64        `json:"login"`
	Password     string       `json:"password"`
	Server       string       `json:"server"`
	TerminalPath string       `json:"terminalPath"`
	IsActive     *bool        `json:"isActive,omitempty"`
	SymbolConfig SymbolConfig `json:"symbolConfig,omitempty"`
}

// ToggleRequest switches an account on or off
type ToggleRequest struct {
	IsActive bool `json:"is_active"`
}

// WatchSymbol is an entry of the global symbol watch list
type WatchSymbol struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"uniqueIndex" json:"sym"`
	Description string    `json:"desc"`
	Trail       float64   `json:"trail"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for WatchSymbol model
func (WatchSymbol) TableName() string {
	return "watch_symbols"
}
