package models

// VirtualPosition is the netted view of every position sharing a symbol and
// direction across accounts.
type VirtualPosition struct {
	Ticket       string     `json:"ticket"`
	Symbol       string     `json:"symbol"`
	Type         Direction  `json:"type"`
	Volume       float64    `json:"volume"`
	PriceOpen    float64    `json:"price_open"`
	PriceCurrent float64    `json:"price_current"`
	Profit       float64    `json:"profit"`
	SL           float64    `json:"sl"`
	TP           float64    `json:"tp"`
	SLMixed      bool       `json:"sl_mixed"`
	TPMixed      bool       `json:"tp_mixed"`
	Children     []Position `json:"children"`
}

// AccountRow is the per-account status line of the dashboard
type AccountRow struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Status     Status  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	FreeMargin float64 `json:"margin_free"`
	Positions  int     `json:"positions"`
}

// Dashboard is the aggregated state of all accounts
type Dashboard struct {
	Balance    float64           `json:"balance"`
	Equity     float64           `json:"equity"`
	Margin     float64           `json:"margin"`
	FreeMargin float64           `json:"margin_free"`
	Profit     float64           `json:"profit"`
	Floating   float64           `json:"floating"`
	Positions  []VirtualPosition `json:"positions"`
	Orders     []Order           `json:"orders"`
	History    []Deal            `json:"history"`
	Prices     map[string]Quote  `json:"prices"`
	Accounts   []AccountRow      `json:"accounts"`
}
