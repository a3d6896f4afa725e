package models

import "time"

// Status is the lifecycle state of an account worker as seen by readers
type Status string

const (
	StatusConnecting Status = "CONNECTING"
	StatusOnline     Status = "ONLINE"
	StatusError      Status = "ERROR"
	StatusCrashed    Status = "CRASHED"
	StatusOffline    Status = "OFFLINE"
)

// AccountSnapshot is the point-in-time state of one account. It is always
// written wholesale by the account's own worker.
type AccountSnapshot struct {
	AccountID  uint             `json:"account_id"`
	Name       string           `json:"name"`
	Status     Status           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Balance    float64          `json:"balance"`
	Equity     float64          `json:"equity"`
	Margin     float64          `json:"margin"`
	FreeMargin float64          `json:"margin_free"`
	Positions  []Position       `json:"positions"`
	Orders     []Order          `json:"orders"`
	History    []Deal           `json:"history"`
	Prices     map[string]Quote `json:"prices"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Online reports whether the snapshot counts towards aggregated totals
func (s AccountSnapshot) Online() bool {
	return s.Status == StatusOnline
}
