package models

import (
	"encoding/json"
	"time"
)

// CommandKind names an operation executed by an account worker
type CommandKind string

const (
	CmdGetCandles  CommandKind = "GET_CANDLES"
	CmdTrade       CommandKind = "TRADE"
	CmdModify      CommandKind = "MODIFY"
	CmdOrderModify CommandKind = "ORDER_MODIFY"
	CmdOrderCancel CommandKind = "ORDER_CANCEL"
	CmdClose       CommandKind = "CLOSE"
)

// Correlated reports whether the worker posts a result the caller waits on
func (k CommandKind) Correlated() bool {
	return k == CmdTrade || k == CmdGetCandles
}

// Command is one unit of work pushed to an account's command channel
type Command struct {
	Kind          CommandKind     `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlation_id"`
	QueuedAt      time.Time       `json:"queued_at"`
}

// NewCommand encodes payload into a command
func NewCommand(kind CommandKind, correlationID string, payload interface{}) (Command, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Command{}, err
	}
	return Command{
		Kind:          kind,
		Payload:       raw,
		CorrelationID: correlationID,
		QueuedAt:      time.Now(),
	}, nil
}

// Decode unmarshals the payload into v
func (c Command) Decode(v interface{}) error {
	return json.Unmarshal(c.Payload, v)
}

// CandlesPayload is the body of GET_CANDLES
type CandlesPayload struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit"`
}

// TradePayload is the body of TRADE. Volume is a multiplier of the
// account's base volume for the symbol.
type TradePayload struct {
	Symbol    string    `json:"symbol"`
	Type      Direction `json:"type"`
	Volume    float64   `json:"volume"`
	OrderType OrderType `json:"order_type"`
	Price     float64   `json:"price,omitempty"`
	SL        *float64  `json:"sl,omitempty"`
	TP        *float64  `json:"tp,omitempty"`
}

// ModifyPayload is the body of MODIFY; nil fields keep the current value
type ModifyPayload struct {
	Position int64    `json:"position"`
	SL       *float64 `json:"sl,omitempty"`
	TP       *float64 `json:"tp,omitempty"`
}

// OrderModifyPayload is the body of ORDER_MODIFY
type OrderModifyPayload struct {
	Ticket int64   `json:"ticket"`
	Price  float64 `json:"price"`
	SL     float64 `json:"sl"`
	TP     float64 `json:"tp"`
}

// OrderCancelPayload is the body of ORDER_CANCEL
type OrderCancelPayload struct {
	Ticket int64 `json:"ticket"`
}

// ClosePayload is the body of CLOSE
type ClosePayload struct {
	Position int64 `json:"position"`
}
