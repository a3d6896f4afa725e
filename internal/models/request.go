package models

// TradeRequest is the body of a fan-out trade. Volume multiplies each
// account's base volume for the symbol.
type TradeRequest struct {
	Symbol    string   `json:"symbol"`
	Type      string   `json:"type"`
	Volume    float64  `json:"volume"`
	OrderType string   `json:"order_type"`
	Price     float64  `json:"price,omitempty"`
	SL        *float64 `json:"sl,omitempty"`
	TP        *float64 `json:"tp,omitempty"`
}

// ModifyRequest changes SL and/or TP of a position or netted group
type ModifyRequest struct {
	Ticket Ticket   `json:"ticket"`
	SL     *float64 `json:"sl,omitempty"`
	TP     *float64 `json:"tp,omitempty"`
}

// CloseRequest closes a position or every position of a netted group
type CloseRequest struct {
	Ticket Ticket `json:"ticket"`
}

// OrderModifyRequest updates a pending order
type OrderModifyRequest struct {
	Ticket int64   `json:"ticket"`
	Price  float64 `json:"price"`
	SL     float64 `json:"sl"`
	TP     float64 `json:"tp"`
}

// OrderCancelRequest removes a pending order
type OrderCancelRequest struct {
	Ticket int64 `json:"ticket"`
}
