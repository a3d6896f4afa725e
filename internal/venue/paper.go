package venue

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vikasavnish/tradehub/internal/models"
)

const paperLeverage = 100

var errNotLoggedIn = errors.New("terminal not initialized")

type paperSymbol struct {
	info SymbolInfo
	bid  float64
	ask  float64
}

// Paper is an in-memory simulated terminal. Orders fill immediately at the
// current quote; pending orders rest until cancelled.
type Paper struct {
	mu sync.Mutex

	symbols   map[string]*paperSymbol
	order     []string
	positions map[int64]*models.Position
	pending   map[int64]*models.Order
	deals     []models.Deal
	balance   float64
	next      int64
	loggedIn  bool

	loginErr   error
	summaryErr error
	reject     *TradeResult
	jitter     float64
	sent       []TradeRequest
}

// NewPaper returns a terminal with a starting balance and a few default symbols
func NewPaper(balance float64) *Paper {
	p := &Paper{
		symbols:   make(map[string]*paperSymbol),
		positions: make(map[int64]*models.Position),
		pending:   make(map[int64]*models.Order),
		balance:   balance,
		next:      1000,
	}
	p.AddSymbol(SymbolInfo{Name: "XAUUSD", ContractSize: 100, VolumeMin: 0.01, VolumeStep: 0.01, FillingFlags: FlagFOK | FlagIOC, Digits: 2}, 2000, 2000.3)
	p.AddSymbol(SymbolInfo{Name: "EURUSD", ContractSize: 100000, VolumeMin: 0.01, VolumeStep: 0.01, FillingFlags: FlagIOC, Digits: 5}, 1.08, 1.08012)
	p.AddSymbol(SymbolInfo{Name: "BTCUSDTp", ContractSize: 1, VolumeMin: 0.01, VolumeStep: 0.01, Digits: 2}, 60000, 60010)
	return p
}

// NewPaperFactory builds an independent paper terminal per account
func NewPaperFactory(balance float64, jitter float64) Factory {
	return func(models.Account) Session {
		p := NewPaper(balance)
		p.jitter = jitter
		return p
	}
}

// AddSymbol registers or replaces a tradable symbol with its quote
func (p *Paper) AddSymbol(info SymbolInfo, bid, ask float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.symbols[info.Name]; !ok {
		p.order = append(p.order, info.Name)
	}
	p.symbols[info.Name] = &paperSymbol{info: info, bid: bid, ask: ask}
}

// SetPrice moves the quote of a known symbol
func (p *Paper) SetPrice(symbol string, bid, ask float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.symbols[symbol]; ok {
		s.bid, s.ask = bid, ask
	}
}

// FailLogin makes the next Login calls fail with err
func (p *Paper) FailLogin(err error) {
	p.mu.Lock()
	p.loginErr = err
	p.mu.Unlock()
}

// FailSummary makes AccountSummary fail with err until cleared with nil
func (p *Paper) FailSummary(err error) {
	p.mu.Lock()
	p.summaryErr = err
	p.mu.Unlock()
}

// Reject makes every subsequent trade request return the given code and comment
func (p *Paper) Reject(code int, comment string) {
	p.mu.Lock()
	p.reject = &TradeResult{Code: code, Comment: comment}
	p.mu.Unlock()
}

// Open inserts a position directly, bypassing order validation
func (p *Paper) Open(symbol string, dir models.Direction, volume, price, sl, tp float64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openLocked(symbol, dir, volume, price, sl, tp)
}

// Sent returns a copy of every trade request received
func (p *Paper) Sent() []TradeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TradeRequest(nil), p.sent...)
}

func (p *Paper) Login(_ context.Context, creds Credentials) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loginErr != nil {
		return p.loginErr
	}
	p.loggedIn = true
	return nil
}

func (p *Paper) Shutdown(context.Context) error {
	p.mu.Lock()
	p.loggedIn = false
	p.mu.Unlock()
	return nil
}

func (p *Paper) AccountSummary(context.Context) (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loggedIn {
		return Summary{}, errNotLoggedIn
	}
	if p.summaryErr != nil {
		return Summary{}, p.summaryErr
	}
	var floating, margin float64
	for _, pos := range p.positions {
		p.markLocked(pos)
		floating += pos.Profit + pos.Swap
		margin += pos.Volume * pos.ContractSize * pos.PriceOpen / paperLeverage
	}
	equity := p.balance + floating
	return Summary{
		Balance:    p.balance,
		Equity:     equity,
		Margin:     margin,
		FreeMargin: equity - margin,
	}, nil
}

func (p *Paper) Positions(context.Context) ([]models.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loggedIn {
		return nil, errNotLoggedIn
	}
	out := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		p.markLocked(pos)
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

func (p *Paper) Orders(context.Context) ([]models.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loggedIn {
		return nil, errNotLoggedIn
	}
	out := make([]models.Order, 0, len(p.pending))
	for _, o := range p.pending {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

func (p *Paper) Symbols(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loggedIn {
		return nil, errNotLoggedIn
	}
	return append([]string(nil), p.order...), nil
}

func (p *Paper) SymbolInfo(_ context.Context, symbol string) (SymbolInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.symbols[symbol]
	if !ok {
		return SymbolInfo{}, fmt.Errorf("symbol %s not found", symbol)
	}
	return s.info, nil
}

func (p *Paper) Tick(_ context.Context, symbol string) (models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.symbols[symbol]
	if !ok {
		return models.Quote{}, fmt.Errorf("symbol %s not found", symbol)
	}
	if p.jitter > 0 {
		move := (rand.Float64()*2 - 1) * p.jitter * s.bid
		s.bid += move
		s.ask += move
	}
	return models.Quote{Bid: s.bid, Ask: s.ask, Time: time.Now()}, nil
}

// Candles synthesises bars ending at the current bid
func (p *Paper) Candles(_ context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	step, ok := Timeframes[tf]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %s", tf)
	}
	end := time.Now().Truncate(step)
	out := make([]models.Candle, 0, limit)
	for i := 0; i < limit; i++ {
		back := limit - 1 - i
		mid := s.bid * (1 + 0.002*math.Sin(float64(back)/7))
		swing := s.bid * 0.0005
		out = append(out, models.Candle{
			Time:  end.Add(-time.Duration(back) * step).Unix(),
			Open:  mid - swing/2,
			High:  mid + swing,
			Low:   mid - swing,
			Close: mid + swing/2,
		})
	}
	return out, nil
}

func (p *Paper) Deals(_ context.Context, from, to time.Time) ([]models.Deal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loggedIn {
		return nil, errNotLoggedIn
	}
	var out []models.Deal
	for _, d := range p.deals {
		if d.Timestamp >= from.Unix() && d.Timestamp <= to.Unix() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (p *Paper) Send(_ context.Context, req TradeRequest) (TradeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loggedIn {
		return TradeResult{}, errNotLoggedIn
	}
	p.sent = append(p.sent, req)
	if p.reject != nil {
		return *p.reject, nil
	}

	switch req.Action {
	case ActionDeal:
		if req.Position != 0 {
			return p.closeLocked(req), nil
		}
		s, ok := p.symbols[req.Symbol]
		if !ok {
			return TradeResult{Code: RetcodeInvalid, Comment: "symbol not found"}, nil
		}
		if req.Volume < s.info.VolumeMin {
			return TradeResult{Code: RetcodeInvalid, Comment: "Invalid volume"}, nil
		}
		price := s.ask
		if req.Type == models.Sell {
			price = s.bid
		}
		ticket := p.openLocked(req.Symbol, req.Type, req.Volume, price, req.SL, req.TP)
		return TradeResult{Code: RetcodeDone, Comment: "Request executed", Order: ticket, Deal: ticket}, nil

	case ActionPending:
		if _, ok := p.symbols[req.Symbol]; !ok {
			return TradeResult{Code: RetcodeInvalid, Comment: "symbol not found"}, nil
		}
		p.next++
		p.pending[p.next] = &models.Order{
			Ticket: p.next,
			Symbol: req.Symbol,
			Type:   req.Type,
			Kind:   req.Kind,
			Volume: req.Volume,
			Price:  req.Price,
			SL:     req.SL,
			TP:     req.TP,
		}
		return TradeResult{Code: RetcodePlaced, Comment: "Request placed", Order: p.next}, nil

	case ActionSLTP:
		pos, ok := p.positions[req.Position]
		if !ok {
			return TradeResult{Code: RetcodeInvalid, Comment: "position not found"}, nil
		}
		pos.SL, pos.TP = req.SL, req.TP
		return TradeResult{Code: RetcodeDone, Comment: "Request executed"}, nil

	case ActionModify:
		o, ok := p.pending[req.Order]
		if !ok {
			return TradeResult{Code: RetcodeInvalid, Comment: "order not found"}, nil
		}
		o.Price, o.SL, o.TP = req.Price, req.SL, req.TP
		return TradeResult{Code: RetcodeDone, Comment: "Request executed"}, nil

	case ActionRemove:
		if _, ok := p.pending[req.Order]; !ok {
			return TradeResult{Code: RetcodeInvalid, Comment: "order not found"}, nil
		}
		delete(p.pending, req.Order)
		return TradeResult{Code: RetcodeDone, Comment: "Request executed"}, nil
	}
	return TradeResult{Code: RetcodeInvalid, Comment: "unsupported action"}, nil
}

func (p *Paper) openLocked(symbol string, dir models.Direction, volume, price, sl, tp float64) int64 {
	p.next++
	contract := float64(DefaultContractSize)
	if s, ok := p.symbols[symbol]; ok && s.info.ContractSize > 0 {
		contract = s.info.ContractSize
	}
	p.positions[p.next] = &models.Position{
		Ticket:       p.next,
		Symbol:       symbol,
		Type:         dir,
		Volume:       volume,
		PriceOpen:    price,
		PriceCurrent: price,
		SL:           sl,
		TP:           tp,
		ContractSize: contract,
	}
	return p.next
}

func (p *Paper) closeLocked(req TradeRequest) TradeResult {
	pos, ok := p.positions[req.Position]
	if !ok {
		return TradeResult{Code: RetcodeInvalid, Comment: "position not found"}
	}
	if req.Type != pos.Type.Opposite() {
		return TradeResult{Code: RetcodeInvalid, Comment: "invalid close direction"}
	}
	p.markLocked(pos)
	delete(p.positions, pos.Ticket)
	p.balance += pos.Profit + pos.Swap
	p.next++
	now := time.Now()
	p.deals = append(p.deals, models.Deal{
		Ticket:    p.next,
		Time:      now.Format("2006-01-02 15:04:05"),
		Timestamp: now.Unix(),
		Symbol:    pos.Symbol,
		Type:      req.Type,
		Volume:    pos.Volume,
		Price:     pos.PriceCurrent,
		Profit:    pos.Profit + pos.Swap,
	})
	return TradeResult{Code: RetcodeDone, Comment: "Request executed", Deal: p.next}
}

// markLocked refreshes the current price and profit from the quote
func (p *Paper) markLocked(pos *models.Position) {
	s, ok := p.symbols[pos.Symbol]
	if !ok {
		return
	}
	price := s.bid
	if pos.Type == models.Sell {
		price = s.ask
	}
	pos.PriceCurrent = price
	pos.Profit = (price - pos.PriceOpen) * pos.Type.Sign() * pos.Volume * pos.ContractSize
}
