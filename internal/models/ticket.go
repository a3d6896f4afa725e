package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ticket addresses either one concrete position/order or a netted group
// keyed by symbol and direction.
type Ticket struct {
	Number    int64
	Symbol    string
	Direction Direction
}

// ConcreteTicket addresses exactly one venue ticket
func ConcreteTicket(n int64) Ticket {
	return Ticket{Number: n}
}

// GroupTicket addresses every position with the given symbol and direction
func GroupTicket(symbol string, dir Direction) Ticket {
	return Ticket{Symbol: symbol, Direction: dir}
}

// IsGroup reports whether the ticket names a netted group
func (t Ticket) IsGroup() bool {
	return t.Symbol != ""
}

// String renders "{symbol}_{direction}" for groups and the number otherwise
func (t Ticket) String() string {
	if t.IsGroup() {
		return t.Symbol + "_" + string(t.Direction)
	}
	return strconv.FormatInt(t.Number, 10)
}

// ParseTicket accepts a positive number or "{symbol}_{BUY|SELL}". The symbol
// may itself contain underscores; only the last segment is the direction.
func ParseTicket(s string) (Ticket, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ticket{}, fmt.Errorf("empty ticket")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return Ticket{}, fmt.Errorf("invalid ticket %q", s)
		}
		return ConcreteTicket(n), nil
	}
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return Ticket{}, fmt.Errorf("invalid ticket %q", s)
	}
	dir, ok := ParseDirection(s[i+1:])
	if !ok {
		return Ticket{}, fmt.Errorf("invalid ticket direction %q", s[i+1:])
	}
	return GroupTicket(s[:i], dir), nil
}

// MarshalJSON encodes the ticket in its string form
func (t Ticket) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both JSON numbers and strings
func (t *Ticket) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseTicket(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
