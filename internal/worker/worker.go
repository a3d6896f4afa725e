// Package worker runs one isolated loop per trading account and manages
// their lifecycle.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/command"
	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
	"github.com/vikasavnish/tradehub/internal/venue"
)

const (
	defaultCandleLimit = 500
	maxCandleLimit     = 5000
	historyLookback    = 30 * 24 * time.Hour
	historyLookahead   = 2 * 24 * time.Hour
	historyKeep        = 50
	tradeDeviation     = 20
	tradeComment       = "tradehub"
)

// Options tune the worker loop
type Options struct {
	Interval      time.Duration
	HistoryEvery  int
	DefaultSymbol string
}

// Watchlist returns the global symbol watch list
type Watchlist func(ctx context.Context) ([]string, error)

// Worker owns one account's venue session. Nothing else may call into the
// session while the worker runs.
type Worker struct {
	account   models.Account
	session   venue.Session
	channel   command.Channel
	store     state.Store
	opts      Options
	watchlist Watchlist

	resolver *venue.Resolver
	log      *zap.Logger
	watch    []string
	info     map[string]venue.SymbolInfo
	last     models.AccountSnapshot
	cycle    int
}

// New binds a worker to its account, session, command channel and store
func New(account models.Account, session venue.Session, channel command.Channel, store state.Store, opts Options, watchlist Watchlist) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if opts.HistoryEvery <= 0 {
		opts.HistoryEvery = 20
	}
	return &Worker{
		account:   account,
		session:   session,
		channel:   channel,
		store:     store,
		opts:      opts,
		watchlist: watchlist,
		resolver:  venue.NewResolver(session),
		log:       logger.With(zap.Uint("account_id", account.ID), zap.String("account", account.Name)),
		info:      make(map[string]venue.SymbolInfo),
		last: models.AccountSnapshot{
			AccountID: account.ID,
			Name:      account.Name,
			Prices:    map[string]models.Quote{},
		},
	}
}

// Run logs in and loops until ctx is cancelled. A failed login ends the
// worker with a SessionError after recording ERROR; a panic is recorded as
// CRASHED. Neither is retried.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
			w.log.Error("worker crashed", zap.Any("panic", r))
			w.putStatus(models.StatusCrashed, fmt.Sprint(r))
		}
	}()

	w.putStatus(models.StatusConnecting, "")
	creds := venue.Credentials{
		Login:        w.account.Login,
		Password:     w.account.Password,
		Server:       w.account.Server,
		TerminalPath: w.account.TerminalPath,
	}
	if err := w.session.Login(ctx, creds); err != nil {
		w.log.Error("venue login failed", zap.Error(err))
		w.putStatus(models.StatusError, err.Error())
		return &errs.SessionError{Account: w.account.Name, Err: err}
	}
	defer func() {
		if err := w.session.Shutdown(context.Background()); err != nil {
			w.log.Warn("venue shutdown", zap.Error(err))
		}
	}()
	w.log.Info("worker online")

	w.watch = w.watchSet(ctx)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()
	for {
		w.drain(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.fetch(ctx)

		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// watchSet is the default symbol, the account's configured symbols and the
// global watch list, each resolved to the venue's name.
func (w *Worker) watchSet(ctx context.Context) []string {
	requested := []string{w.opts.DefaultSymbol}
	requested = append(requested, w.account.Symbols()...)
	if w.watchlist != nil {
		global, err := w.watchlist(ctx)
		if err != nil {
			w.log.Warn("watch list unavailable, using defaults", zap.Error(&errs.DirectoryError{Op: "watchlist", Err: err}))
		}
		requested = append(requested, global...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, sym := range requested {
		if sym == "" {
			continue
		}
		name := w.resolver.Resolve(ctx, sym)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (w *Worker) putStatus(status models.Status, detail string) {
	snap := w.last
	snap.Status = status
	snap.Error = detail
	snap.UpdatedAt = time.Now()
	if err := w.store.PutSnapshot(context.Background(), snap); err != nil {
		w.log.Error("write snapshot", zap.Error(err))
	}
}

func (w *Worker) drain(ctx context.Context) {
	cmds, err := w.channel.Drain(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("drain commands", zap.Error(err))
		}
		return
	}
	for _, cmd := range cmds {
		w.execute(ctx, cmd)
	}
}

func (w *Worker) execute(ctx context.Context, cmd models.Command) {
	log := w.log.With(zap.String("kind", string(cmd.Kind)), zap.String("correlation_id", cmd.CorrelationID))

	switch cmd.Kind {
	case models.CmdTrade:
		var p models.TradePayload
		msg := w.name() + ": invalid trade request"
		if err := cmd.Decode(&p); err == nil {
			msg = w.trade(ctx, p)
		}
		log.Info("trade", zap.String("result", msg))
		if err := w.store.PutResult(ctx, cmd.CorrelationID, w.account.ID, msg); err != nil {
			log.Error("post trade result", zap.Error(err))
		}

	case models.CmdGetCandles:
		var p models.CandlesPayload
		if err := cmd.Decode(&p); err != nil {
			log.Warn("bad candles payload", zap.Error(err))
			return
		}
		raw, err := json.Marshal(w.candles(ctx, p))
		if err != nil {
			log.Error("encode candles", zap.Error(err))
			return
		}
		if err := w.store.PutResponse(ctx, cmd.CorrelationID, raw); err != nil {
			log.Error("post candles", zap.Error(err))
		}

	case models.CmdModify:
		var p models.ModifyPayload
		if err := cmd.Decode(&p); err != nil {
			log.Warn("bad modify payload", zap.Error(err))
			return
		}
		if err := w.modify(ctx, p); err != nil {
			log.Warn("modify failed", zap.Int64("position", p.Position), zap.Error(err))
		}

	case models.CmdOrderModify:
		var p models.OrderModifyPayload
		if err := cmd.Decode(&p); err != nil {
			log.Warn("bad order modify payload", zap.Error(err))
			return
		}
		err := w.send(ctx, venue.TradeRequest{Action: venue.ActionModify, Order: p.Ticket, Price: p.Price, SL: p.SL, TP: p.TP})
		if err != nil {
			log.Warn("order modify failed", zap.Int64("order", p.Ticket), zap.Error(err))
		}

	case models.CmdOrderCancel:
		var p models.OrderCancelPayload
		if err := cmd.Decode(&p); err != nil {
			log.Warn("bad order cancel payload", zap.Error(err))
			return
		}
		if err := w.send(ctx, venue.TradeRequest{Action: venue.ActionRemove, Order: p.Ticket}); err != nil {
			log.Warn("order cancel failed", zap.Int64("order", p.Ticket), zap.Error(err))
		}

	case models.CmdClose:
		var p models.ClosePayload
		if err := cmd.Decode(&p); err != nil {
			log.Warn("bad close payload", zap.Error(err))
			return
		}
		if err := w.close(ctx, p); err != nil {
			log.Warn("close failed", zap.Int64("position", p.Position), zap.Error(err))
		}

	default:
		log.Warn("unknown command")
	}
}

func (w *Worker) name() string {
	return w.account.Name
}

// send submits a request and turns a non-success code into a VenueRejection
func (w *Worker) send(ctx context.Context, req venue.TradeRequest) error {
	res, err := w.session.Send(ctx, req)
	if err != nil {
		return err
	}
	if !res.OK() {
		return &errs.VenueRejection{Account: w.name(), Code: res.Code, Comment: res.Comment}
	}
	return nil
}

func (w *Worker) symbolInfo(ctx context.Context, symbol string) (venue.SymbolInfo, error) {
	if info, ok := w.info[symbol]; ok {
		return info, nil
	}
	info, err := w.session.SymbolInfo(ctx, symbol)
	if err != nil {
		return venue.SymbolInfo{}, err
	}
	w.info[symbol] = info
	return info, nil
}

// trade places one order and returns the caller-visible result line
func (w *Worker) trade(ctx context.Context, p models.TradePayload) string {
	symbol := w.resolver.Resolve(ctx, p.Symbol)
	info, err := w.symbolInfo(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("%s: %v", w.name(), err)
	}

	base, ok := w.account.BaseVolume(p.Symbol)
	if !ok {
		base, ok = w.account.BaseVolume(symbol)
	}
	if !ok {
		base = info.VolumeMin
	}
	volume := decimal.NewFromFloat(base).Mul(decimal.NewFromFloat(p.Volume)).Round(2).InexactFloat64()
	if volume <= 0 {
		return w.name() + ": invalid volume"
	}

	req := venue.TradeRequest{
		Symbol:    symbol,
		Volume:    volume,
		Type:      p.Type,
		Filling:   info.PreferredFilling(),
		Deviation: tradeDeviation,
		Comment:   tradeComment,
	}

	// unset SL/TP follow an existing position on the same side
	if p.SL == nil || p.TP == nil {
		if positions, err := w.session.Positions(ctx); err == nil {
			for _, pos := range positions {
				if pos.Symbol == symbol && pos.Type == p.Type {
					req.SL, req.TP = pos.SL, pos.TP
					break
				}
			}
		}
	}
	if p.SL != nil {
		req.SL = *p.SL
	}
	if p.TP != nil {
		req.TP = *p.TP
	}

	switch p.OrderType {
	case models.OrderLimit, models.OrderStop:
		req.Action = venue.ActionPending
		req.Kind = p.OrderType
		req.Price = p.Price
	default:
		tick, err := w.session.Tick(ctx, symbol)
		if err != nil {
			return fmt.Sprintf("%s: %v", w.name(), err)
		}
		req.Action = venue.ActionDeal
		req.Kind = models.OrderMarket
		req.Price = tick.Ask
		if p.Type == models.Sell {
			req.Price = tick.Bid
		}
	}

	res, err := w.session.Send(ctx, req)
	if err != nil {
		return fmt.Sprintf("%s: %v", w.name(), err)
	}
	if !res.OK() {
		return (&errs.VenueRejection{Account: w.name(), Code: res.Code, Comment: res.Comment}).Error()
	}
	return w.name() + ": success"
}

// candles returns ascending bars with the last one patched to the live bid
func (w *Worker) candles(ctx context.Context, p models.CandlesPayload) []models.Candle {
	tf, ok := venue.ParseTimeframe(p.Timeframe)
	if !ok {
		tf = "1H"
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultCandleLimit
	}
	if limit > maxCandleLimit {
		limit = maxCandleLimit
	}

	symbol := w.resolver.Resolve(ctx, p.Symbol)
	bars, err := w.session.Candles(ctx, symbol, tf, limit)
	if err != nil {
		w.log.Warn("fetch candles", zap.String("symbol", symbol), zap.Error(err))
		return []models.Candle{}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })

	if n := len(bars); n > 0 {
		if tick, err := w.session.Tick(ctx, symbol); err == nil && tick.Bid > 0 {
			last := &bars[n-1]
			last.Close = tick.Bid
			last.High = math.Max(last.High, tick.Bid)
			last.Low = math.Min(last.Low, tick.Bid)
		}
	}
	if bars == nil {
		bars = []models.Candle{}
	}
	return bars
}

func (w *Worker) findPosition(ctx context.Context, ticket int64) (models.Position, error) {
	positions, err := w.session.Positions(ctx)
	if err != nil {
		return models.Position{}, err
	}
	for _, pos := range positions {
		if pos.Ticket == ticket {
			return pos, nil
		}
	}
	return models.Position{}, errs.NotFound("position %d", ticket)
}

func (w *Worker) modify(ctx context.Context, p models.ModifyPayload) error {
	pos, err := w.findPosition(ctx, p.Position)
	if err != nil {
		return err
	}
	sl, tp := pos.SL, pos.TP
	if p.SL != nil {
		sl = *p.SL
	}
	if p.TP != nil {
		tp = *p.TP
	}
	return w.send(ctx, venue.TradeRequest{
		Action:   venue.ActionSLTP,
		Symbol:   pos.Symbol,
		Position: pos.Ticket,
		SL:       sl,
		TP:       tp,
	})
}

func (w *Worker) close(ctx context.Context, p models.ClosePayload) error {
	pos, err := w.findPosition(ctx, p.Position)
	if err != nil {
		return err
	}
	info, err := w.symbolInfo(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	tick, err := w.session.Tick(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	price := tick.Bid
	if pos.Type == models.Sell {
		price = tick.Ask
	}
	return w.send(ctx, venue.TradeRequest{
		Action:    venue.ActionDeal,
		Symbol:    pos.Symbol,
		Volume:    pos.Volume,
		Type:      pos.Type.Opposite(),
		Price:     price,
		Position:  pos.Ticket,
		Filling:   info.PreferredFilling(),
		Deviation: tradeDeviation,
		Comment:   tradeComment,
	})
}

// fetch assembles and writes one snapshot. When the summary cannot be read
// the last known state is kept and marked CONNECTING.
func (w *Worker) fetch(ctx context.Context) {
	sum, err := w.session.AccountSummary(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Debug("account summary unavailable", zap.Error(err))
		w.putStatus(models.StatusConnecting, err.Error())
		return
	}

	snap := models.AccountSnapshot{
		AccountID:  w.account.ID,
		Name:       w.account.Name,
		Status:     models.StatusOnline,
		Balance:    sum.Balance,
		Equity:     sum.Equity,
		Margin:     sum.Margin,
		FreeMargin: sum.FreeMargin,
		Positions:  w.last.Positions,
		Orders:     w.last.Orders,
		History:    w.last.History,
		Prices:     make(map[string]models.Quote, len(w.watch)),
		UpdatedAt:  time.Now(),
	}

	if positions, err := w.session.Positions(ctx); err == nil {
		for i := range positions {
			positions[i].AccountID = w.account.ID
			positions[i].AccountName = w.account.Name
			if positions[i].ContractSize == 0 {
				if info, err := w.symbolInfo(ctx, positions[i].Symbol); err == nil {
					positions[i].ContractSize = info.ContractSize
				}
			}
		}
		snap.Positions = positions
	} else {
		w.log.Warn("fetch positions", zap.Error(err))
	}

	if orders, err := w.session.Orders(ctx); err == nil {
		for i := range orders {
			orders[i].AccountID = w.account.ID
			orders[i].AccountName = w.account.Name
		}
		snap.Orders = orders
	} else {
		w.log.Warn("fetch orders", zap.Error(err))
	}

	symbols := append([]string(nil), w.watch...)
	for _, pos := range snap.Positions {
		symbols = append(symbols, pos.Symbol)
	}
	for _, sym := range symbols {
		if _, done := snap.Prices[sym]; done {
			continue
		}
		tick, err := w.session.Tick(ctx, sym)
		if err != nil {
			if q, ok := w.last.Prices[sym]; ok {
				snap.Prices[sym] = q
			}
			continue
		}
		snap.Prices[sym] = tick
	}

	if w.cycle%w.opts.HistoryEvery == 0 {
		now := time.Now()
		if deals, err := w.session.Deals(ctx, now.Add(-historyLookback), now.Add(historyLookahead)); err == nil {
			for i := range deals {
				deals[i].AccountName = w.account.Name
			}
			sort.Slice(deals, func(i, j int) bool { return deals[i].Timestamp > deals[j].Timestamp })
			if len(deals) > historyKeep {
				deals = deals[:historyKeep]
			}
			snap.History = deals
		} else {
			w.log.Warn("fetch history", zap.Error(err))
		}
	}
	w.cycle++

	if err := w.store.PutSnapshot(ctx, snap); err != nil {
		w.log.Error("write snapshot", zap.Error(err))
		return
	}
	w.last = snap
}
