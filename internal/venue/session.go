// Package venue defines the trading terminal session used by account workers.
package venue

import (
	"context"
	"strings"
	"time"

	"github.com/vikasavnish/tradehub/internal/models"
)

// Result codes reported by a terminal for trade requests
const (
	RetcodePlaced  = 10008
	RetcodeDone    = 10009
	RetcodeReject  = 10006
	RetcodeInvalid = 10013
	RetcodeNoMoney = 10019
)

// DefaultContractSize is used when a terminal does not report one
const DefaultContractSize = 100000

// Filling is the execution policy for partial fills
type Filling int

const (
	FillFOK Filling = iota
	FillIOC
	FillReturn
)

func (f Filling) String() string {
	switch f {
	case FillFOK:
		return "FOK"
	case FillIOC:
		return "IOC"
	}
	return "RETURN"
}

// Filling capability bits reported in SymbolInfo.FillingFlags
const (
	FlagFOK = 1
	FlagIOC = 2
)

// Action is the kind of trade request
type Action string

const (
	ActionDeal    Action = "DEAL"
	ActionPending Action = "PENDING"
	ActionSLTP    Action = "SLTP"
	ActionModify  Action = "MODIFY"
	ActionRemove  Action = "REMOVE"
)

// Credentials are the login parameters of one account
type Credentials struct {
	Login        int64  `json:"login"`
	Password     string `json:"password"`
	Server       string `json:"server"`
	TerminalPath string `json:"path,omitempty"`
}

// Summary is the account-level money state
type Summary struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"margin_free"`
}

// SymbolInfo is the terminal metadata of a tradable symbol
type SymbolInfo struct {
	Name         string  `json:"name"`
	ContractSize float64 `json:"contract_size"`
	VolumeMin    float64 `json:"volume_min"`
	VolumeStep   float64 `json:"volume_step"`
	FillingFlags int     `json:"filling_mode"`
	Digits       int     `json:"digits"`
}

// PreferredFilling picks fill-or-kill, then immediate-or-cancel, then return
func (s SymbolInfo) PreferredFilling() Filling {
	switch {
	case s.FillingFlags&FlagFOK != 0:
		return FillFOK
	case s.FillingFlags&FlagIOC != 0:
		return FillIOC
	}
	return FillReturn
}

// TradeRequest is one order submission, modification or removal
type TradeRequest struct {
	Action    Action           `json:"action"`
	Symbol    string           `json:"symbol,omitempty"`
	Volume    float64          `json:"volume,omitempty"`
	Type      models.Direction `json:"type,omitempty"`
	Kind      models.OrderType `json:"kind,omitempty"`
	Price     float64          `json:"price,omitempty"`
	SL        float64          `json:"sl"`
	TP        float64          `json:"tp"`
	Position  int64            `json:"position,omitempty"`
	Order     int64            `json:"order,omitempty"`
	Filling   Filling          `json:"type_filling"`
	Deviation int              `json:"deviation,omitempty"`
	Comment   string           `json:"comment,omitempty"`
}

// TradeResult is the terminal's answer to a TradeRequest
type TradeResult struct {
	Code    int    `json:"retcode"`
	Comment string `json:"comment"`
	Order   int64  `json:"order,omitempty"`
	Deal    int64  `json:"deal,omitempty"`
}

// OK reports whether the request was executed or placed
func (r TradeResult) OK() bool {
	return r.Code == RetcodeDone || r.Code == RetcodePlaced
}

// Timeframe is a candle period
type Timeframe string

// Timeframes maps the supported labels to their bar length
var Timeframes = map[Timeframe]time.Duration{
	"1M":  time.Minute,
	"3M":  3 * time.Minute,
	"5M":  5 * time.Minute,
	"15M": 15 * time.Minute,
	"30M": 30 * time.Minute,
	"1H":  time.Hour,
	"4H":  4 * time.Hour,
	"1D":  24 * time.Hour,
	"1W":  7 * 24 * time.Hour,
}

// ParseTimeframe accepts the labels in Timeframes, case-insensitive
func ParseTimeframe(s string) (Timeframe, bool) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := Timeframes[tf]
	return tf, ok
}

// Session is an exclusive connection to one account's trading terminal.
// Implementations are not safe to share between accounts.
type Session interface {
	Login(ctx context.Context, creds Credentials) error
	Shutdown(ctx context.Context) error
	AccountSummary(ctx context.Context) (Summary, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Orders(ctx context.Context) ([]models.Order, error)
	Symbols(ctx context.Context) ([]string, error)
	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	Tick(ctx context.Context, symbol string) (models.Quote, error)
	Candles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	Deals(ctx context.Context, from, to time.Time) ([]models.Deal, error)
	Send(ctx context.Context, req TradeRequest) (TradeResult, error)
}

// Factory builds a fresh session for an account
type Factory func(account models.Account) Session
