package models

import (
	"strings"
	"time"
)

// Direction is the side of a position or order
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// ParseDirection accepts BUY/SELL in any case
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	}
	return "", false
}

// Opposite returns the other side
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

// Sign is +1 for BUY and -1 for SELL
func (d Direction) Sign() float64 {
	if d == Sell {
		return -1
	}
	return 1
}

// OrderType selects how a trade is placed
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderStop   OrderType = "STOP"
)

// ParseOrderType defaults to MARKET when empty
func ParseOrderType(s string) (OrderType, bool) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", OrderMarket:
		return OrderMarket, true
	case OrderLimit:
		return OrderLimit, true
	case OrderStop:
		return OrderStop, true
	}
	return "", false
}

// Position is an open position reported by a terminal
type Position struct {
	Ticket       int64     `json:"ticket"`
	Symbol       string    `json:"symbol"`
	Type         Direction `json:"type"`
	Volume       float64   `json:"volume"`
	PriceOpen    float64   `json:"price_open"`
	PriceCurrent float64   `json:"price_current"`
	SL           float64   `json:"sl"`
	TP           float64   `json:"tp"`
	Profit       float64   `json:"profit"`
	Swap         float64   `json:"swap"`
	ContractSize float64   `json:"contract_size"`
	AccountID    uint      `json:"account_id"`
	AccountName  string    `json:"account"`
}

// Order is a pending order reported by a terminal
type Order struct {
	Ticket      int64     `json:"ticket"`
	Symbol      string    `json:"symbol"`
	Type        Direction `json:"type"`
	Kind        OrderType `json:"kind"`
	Volume      float64   `json:"volume"`
	Price       float64   `json:"price"`
	SL          float64   `json:"sl"`
	TP          float64   `json:"tp"`
	AccountID   uint      `json:"account_id"`
	AccountName string    `json:"account"`
}

// Deal is a closing deal from the account history
type Deal struct {
	Ticket      int64     `json:"ticket"`
	Time        string    `json:"time"`
	Timestamp   int64     `json:"timestamp"`
	Symbol      string    `json:"symbol"`
	Type        Direction `json:"type"`
	Volume      float64   `json:"volume"`
	Price       float64   `json:"price"`
	Profit      float64   `json:"profit"`
	AccountName string    `json:"account"`
}

// Quote is the latest bid/ask of a symbol
type Quote struct {
	Bid  float64   `json:"bid"`
	Ask  float64   `json:"ask"`
	Time time.Time `json:"time"`
}

// Candle is one OHLC bar
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}
