// Package aggregate merges account snapshots into one netted dashboard.
// Nothing here mutates its input.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/venue"
)

const (
	// DefaultHistoryLimit bounds the merged deal history
	DefaultHistoryLimit = 50
	// stopTolerance is the largest SL/TP spread still shown as one value
	stopTolerance = 0.001
)

var tolerance = decimal.NewFromFloat(stopTolerance)

// Engine builds dashboards from snapshot copies
type Engine struct {
	HistoryLimit int
}

// NewEngine returns an engine with the default history window
func NewEngine() *Engine {
	return &Engine{HistoryLimit: DefaultHistoryLimit}
}

type groupKey struct {
	symbol string
	dir    models.Direction
}

// Build recomputes the aggregated view. Totals, positions, orders and history
// come from ONLINE accounts only; every account gets a status row.
func (e *Engine) Build(snaps map[uint]models.AccountSnapshot) models.Dashboard {
	accounts := sortedSnapshots(snaps)
	prices := mergePrices(accounts)

	d := models.Dashboard{
		Positions: []models.VirtualPosition{},
		Orders:    []models.Order{},
		History:   []models.Deal{},
		Prices:    prices,
		Accounts:  make([]models.AccountRow, 0, len(accounts)),
	}

	var balance, equity, margin, free, floating decimal.Decimal
	groups := make(map[groupKey][]models.Position)

	for _, s := range accounts {
		d.Accounts = append(d.Accounts, models.AccountRow{
			ID:         s.AccountID,
			Name:       s.Name,
			Status:     s.Status,
			Error:      s.Error,
			Balance:    s.Balance,
			Equity:     s.Equity,
			FreeMargin: s.FreeMargin,
			Positions:  len(s.Positions),
		})
		if !s.Online() {
			continue
		}

		balance = balance.Add(decimal.NewFromFloat(s.Balance))
		equity = equity.Add(decimal.NewFromFloat(s.Equity))
		margin = margin.Add(decimal.NewFromFloat(s.Margin))
		free = free.Add(decimal.NewFromFloat(s.FreeMargin))

		for _, pos := range s.Positions {
			child := live(pos, prices)
			if child.AccountName == "" {
				child.AccountName = s.Name
				child.AccountID = s.AccountID
			}
			floating = floating.Add(decimal.NewFromFloat(child.Profit))
			key := groupKey{symbol: child.Symbol, dir: child.Type}
			groups[key] = append(groups[key], child)
		}
		for _, o := range s.Orders {
			if o.AccountName == "" {
				o.AccountName = s.Name
				o.AccountID = s.AccountID
			}
			d.Orders = append(d.Orders, o)
		}
		for _, deal := range s.History {
			if deal.AccountName == "" {
				deal.AccountName = s.Name
			}
			d.History = append(d.History, deal)
		}
	}

	d.Balance = balance.InexactFloat64()
	d.Equity = equity.InexactFloat64()
	d.Margin = margin.InexactFloat64()
	d.FreeMargin = free.InexactFloat64()
	d.Profit = equity.Sub(balance).InexactFloat64()
	d.Floating = floating.InexactFloat64()

	for key, children := range groups {
		d.Positions = append(d.Positions, Net(key.symbol, key.dir, children))
	}
	sort.Slice(d.Positions, func(i, j int) bool {
		a, b := d.Positions[i], d.Positions[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Type < b.Type
	})

	sort.SliceStable(d.Orders, func(i, j int) bool {
		a, b := d.Orders[i], d.Orders[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.AccountName != b.AccountName {
			return a.AccountName < b.AccountName
		}
		return a.Ticket < b.Ticket
	})

	sort.SliceStable(d.History, func(i, j int) bool {
		a, b := d.History[i], d.History[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.Ticket > b.Ticket
	})
	limit := e.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(d.History) > limit {
		d.History = d.History[:limit]
	}
	return d
}

// Net combines positions sharing a symbol and direction. Children are
// sorted by account name then ticket; SL/TP are only reported when every
// child agrees within the tolerance.
func Net(symbol string, dir models.Direction, children []models.Position) models.VirtualPosition {
	kids := append([]models.Position(nil), children...)
	sort.Slice(kids, func(i, j int) bool {
		if kids[i].AccountName != kids[j].AccountName {
			return kids[i].AccountName < kids[j].AccountName
		}
		return kids[i].Ticket < kids[j].Ticket
	})

	vp := models.VirtualPosition{
		Ticket:   models.GroupTicket(symbol, dir).String(),
		Symbol:   symbol,
		Type:     dir,
		Children: kids,
	}
	if len(kids) == 0 {
		return vp
	}

	var volume, weighted, profit decimal.Decimal
	for _, c := range kids {
		v := decimal.NewFromFloat(c.Volume)
		volume = volume.Add(v)
		weighted = weighted.Add(decimal.NewFromFloat(c.PriceOpen).Mul(v))
		profit = profit.Add(decimal.NewFromFloat(c.Profit))
	}
	vp.Volume = volume.InexactFloat64()
	if !volume.IsZero() {
		vp.PriceOpen = weighted.Div(volume).InexactFloat64()
	}
	vp.Profit = profit.InexactFloat64()
	vp.PriceCurrent = kids[0].PriceCurrent

	vp.SL, vp.SLMixed = common(kids, func(p models.Position) float64 { return p.SL })
	vp.TP, vp.TPMixed = common(kids, func(p models.Position) float64 { return p.TP })
	return vp
}

// common returns the shared value when max-min is within tolerance,
// otherwise 0 and mixed=true
func common(kids []models.Position, get func(models.Position) float64) (value float64, mixed bool) {
	lo := decimal.NewFromFloat(get(kids[0]))
	hi := lo
	for _, c := range kids[1:] {
		v := decimal.NewFromFloat(get(c))
		if v.LessThan(lo) {
			lo = v
		}
		if v.GreaterThan(hi) {
			hi = v
		}
	}
	if hi.Sub(lo).GreaterThan(tolerance) {
		return 0, true
	}
	return get(kids[0]), false
}

// live reprices a position from the merged price map. Longs close at the bid
// and shorts at the ask; without a quote the last reported price is used.
func live(pos models.Position, prices map[string]models.Quote) models.Position {
	price := 0.0
	if q, ok := prices[pos.Symbol]; ok {
		price = q.Bid
		if pos.Type == models.Sell && q.Ask > 0 {
			price = q.Ask
		}
	}
	if price <= 0 {
		price = pos.PriceCurrent
	}
	if price <= 0 {
		price = pos.PriceOpen
	}
	contract := pos.ContractSize
	if contract <= 0 {
		contract = venue.DefaultContractSize
	}

	profit := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(pos.PriceOpen)).
		Mul(decimal.NewFromFloat(pos.Type.Sign())).
		Mul(decimal.NewFromFloat(pos.Volume)).
		Mul(decimal.NewFromFloat(contract)).
		Add(decimal.NewFromFloat(pos.Swap))

	pos.PriceCurrent = price
	pos.ContractSize = contract
	pos.Profit = profit.Round(2).InexactFloat64()
	return pos
}

// mergePrices keeps the newest quote per symbol across accounts
func mergePrices(accounts []models.AccountSnapshot) map[string]models.Quote {
	out := make(map[string]models.Quote)
	for _, s := range accounts {
		for sym, q := range s.Prices {
			if cur, ok := out[sym]; !ok || q.Time.After(cur.Time) {
				out[sym] = q
			}
		}
	}
	return out
}

func sortedSnapshots(snaps map[uint]models.AccountSnapshot) []models.AccountSnapshot {
	out := make([]models.AccountSnapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}
