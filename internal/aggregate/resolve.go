package aggregate

import (
	"strings"

	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/models"
)

// Target is one real position a ticket resolved to
type Target struct {
	AccountID   uint
	AccountName string
	Position    models.Position
}

// OrderTarget is the pending order a ticket resolved to
type OrderTarget struct {
	AccountID   uint
	AccountName string
	Order       models.Order
}

// Resolve maps a ticket to real positions on ONLINE accounts. A group ticket
// matches every position with its symbol and direction; a concrete ticket
// matches exactly one position.
func Resolve(snaps map[uint]models.AccountSnapshot, ticket models.Ticket) ([]Target, error) {
	var out []Target
	for _, s := range sortedSnapshots(snaps) {
		if !s.Online() {
			continue
		}
		for _, pos := range s.Positions {
			if ticket.IsGroup() {
				if pos.Symbol != ticket.Symbol || pos.Type != ticket.Direction {
					continue
				}
			} else if pos.Ticket != ticket.Number {
				continue
			}
			out = append(out, Target{AccountID: s.AccountID, AccountName: s.Name, Position: pos})
			if !ticket.IsGroup() {
				return out, nil
			}
		}
	}
	if len(out) == 0 {
		return nil, errs.NotFound("position %s", ticket)
	}
	return out, nil
}

// ResolveOrder finds the pending order with the given ticket
func ResolveOrder(snaps map[uint]models.AccountSnapshot, ticket int64) (OrderTarget, error) {
	for _, s := range sortedSnapshots(snaps) {
		if !s.Online() {
			continue
		}
		for _, o := range s.Orders {
			if o.Ticket == ticket {
				return OrderTarget{AccountID: s.AccountID, AccountName: s.Name, Order: o}, nil
			}
		}
	}
	return OrderTarget{}, errs.NotFound("order %d", ticket)
}

// sameInstrument reports whether a and b name the same instrument up to a
// broker suffix: one or two characters, or anything after a separator.
func sameInstrument(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if a == "" || !strings.HasPrefix(b, a) {
		return false
	}
	suffix := b[len(a):]
	if len(suffix) <= 2 {
		return true
	}
	return strings.ContainsRune(".-_#", rune(suffix[0]))
}

// Opposing reports whether any ONLINE account holds the other side of the
// symbol, ignoring broker suffixes on either side.
func Opposing(snaps map[uint]models.AccountSnapshot, symbol string, dir models.Direction) bool {
	other := dir.Opposite()
	for _, s := range snaps {
		if !s.Online() {
			continue
		}
		for _, pos := range s.Positions {
			if pos.Type == other && sameInstrument(pos.Symbol, symbol) {
				return true
			}
		}
	}
	return false
}
