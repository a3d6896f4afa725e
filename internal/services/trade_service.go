package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/aggregate"
	"github.com/vikasavnish/tradehub/internal/dispatch"
	"github.com/vikasavnish/tradehub/internal/errs"
	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
	"github.com/vikasavnish/tradehub/internal/state"
	"github.com/vikasavnish/tradehub/internal/venue"
)

const maxCandles = 5000

// TradeOptions bounds the blocking trade and candle calls
type TradeOptions struct {
	CandleTimeout time.Duration
	TradeTimeout  time.Duration
	AllowHedge    bool
}

// TradeService defines the dashboard operations that fan out to account workers
type TradeService interface {
	Dashboard(ctx context.Context) (models.Dashboard, error)
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	Trade(ctx context.Context, req models.TradeRequest) (models.DetailResponse, error)
	Modify(ctx context.Context, req models.ModifyRequest) (models.DetailResponse, error)
	Close(ctx context.Context, req models.CloseRequest) (models.DetailResponse, error)
	ModifyOrder(ctx context.Context, req models.OrderModifyRequest) (models.DetailResponse, error)
	CancelOrder(ctx context.Context, req models.OrderCancelRequest) (models.DetailResponse, error)
}

// tradeService implements the TradeService interface
type tradeService struct {
	accounts   AccountService
	store      state.Store
	dispatcher *dispatch.Dispatcher
	engine     *aggregate.Engine
	opts       TradeOptions
}

// NewTradeService creates a new trade service
func NewTradeService(accounts AccountService, store state.Store, dispatcher *dispatch.Dispatcher, engine *aggregate.Engine, opts TradeOptions) TradeService {
	if opts.CandleTimeout <= 0 {
		opts.CandleTimeout = 3 * time.Second
	}
	if opts.TradeTimeout <= 0 {
		opts.TradeTimeout = 10 * time.Second
	}
	return &tradeService{
		accounts:   accounts,
		store:      store,
		dispatcher: dispatcher,
		engine:     engine,
		opts:       opts,
	}
}

// Dashboard builds the netted view from a fresh copy of every snapshot
func (s *tradeService) Dashboard(ctx context.Context) (models.Dashboard, error) {
	snaps, err := s.store.Snapshots(ctx)
	if err != nil {
		return models.Dashboard{}, errors.Wrap(err, "read snapshots")
	}
	return s.engine.Build(snaps), nil
}

// Candles asks the first ONLINE account, by name, for bars. No ONLINE
// account or no answer in time yields an empty list.
func (s *tradeService) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errs.Invalid("symbol is required")
	}
	if timeframe != "" {
		if _, ok := venue.ParseTimeframe(timeframe); !ok {
			return nil, errs.Invalid("unknown timeframe %q", timeframe)
		}
	}
	if limit < 0 || limit > maxCandles {
		return nil, errs.Invalid("limit must be between 0 and %d", maxCandles)
	}

	snaps, err := s.store.Snapshots(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshots")
	}
	target, ok := firstOnline(snaps)
	if !ok {
		return []models.Candle{}, nil
	}

	h, err := s.dispatcher.Submit(ctx, models.CmdGetCandles, models.CandlesPayload{
		Symbol:    symbol,
		Timeframe: timeframe,
		Limit:     limit,
	}, target)
	if err != nil {
		return nil, err
	}

	raw, err := s.dispatcher.AwaitResponse(ctx, h, s.opts.CandleTimeout)
	if errors.Is(err, errs.ErrTimeout) {
		logger.Warn("candles timed out", zap.String("account", target.Name), zap.String("symbol", symbol))
		return []models.Candle{}, nil
	}
	if err != nil {
		return nil, err
	}

	candles := []models.Candle{}
	if err := json.Unmarshal(raw, &candles); err != nil {
		return nil, errors.Wrap(err, "decode candles")
	}
	return candles, nil
}

// Trade fans a trade out to every active account and waits for one result
// per account. Missing results are reported as timeouts.
func (s *tradeService) Trade(ctx context.Context, req models.TradeRequest) (models.DetailResponse, error) {
	payload, err := tradePayload(req)
	if err != nil {
		return models.DetailResponse{}, err
	}

	if !s.opts.AllowHedge {
		snaps, err := s.store.Snapshots(ctx)
		if err != nil {
			return models.DetailResponse{}, errors.Wrap(err, "read snapshots")
		}
		if aggregate.Opposing(snaps, payload.Symbol, payload.Type) {
			return models.DetailResponse{
				Message: fmt.Sprintf("Blocked: opposite %s position open on %s", payload.Type.Opposite(), payload.Symbol),
				Details: []string{},
				Blocked: true,
			}, nil
		}
	}

	active, err := s.accounts.ActiveAccounts(ctx)
	if err != nil {
		return models.DetailResponse{}, err
	}
	if len(active) == 0 {
		return models.DetailResponse{Message: "No active accounts", Details: []string{}}, nil
	}

	targets := make([]dispatch.Target, 0, len(active))
	for _, a := range active {
		targets = append(targets, dispatch.Target{ID: a.ID, Name: a.Name})
	}

	h, err := s.dispatcher.Submit(ctx, models.CmdTrade, payload, targets...)
	if err != nil {
		return models.DetailResponse{}, err
	}
	results, err := s.dispatcher.AwaitResults(ctx, h, s.opts.TradeTimeout)
	if err != nil && !errors.Is(err, errs.ErrTimeout) {
		return models.DetailResponse{}, err
	}

	details := make([]string, 0, len(targets))
	ok := 0
	for _, t := range targets {
		msg, found := results[t.ID]
		if !found {
			msg = t.Name + ": Timeout"
		}
		if strings.HasSuffix(msg, ": success") {
			ok++
		}
		details = append(details, msg)
	}

	logger.Info("trade fan-out",
		zap.String("symbol", payload.Symbol),
		zap.String("type", string(payload.Type)),
		zap.Int("accounts", len(targets)),
		zap.Int("succeeded", ok))

	return models.DetailResponse{
		Message: fmt.Sprintf("Trade executed on %d/%d accounts", ok, len(targets)),
		Details: details,
	}, nil
}

// Modify changes SL/TP on the position or on every position of a group
func (s *tradeService) Modify(ctx context.Context, req models.ModifyRequest) (models.DetailResponse, error) {
	if req.SL == nil && req.TP == nil {
		return models.DetailResponse{}, errs.Invalid("sl or tp is required")
	}
	targets, err := s.resolve(ctx, req.Ticket)
	if err != nil {
		return models.DetailResponse{}, err
	}

	details := make([]string, 0, len(targets))
	for _, t := range targets {
		details = append(details, s.push(ctx, models.CmdModify, models.ModifyPayload{
			Position: t.Position.Ticket,
			SL:       req.SL,
			TP:       req.TP,
		}, t.AccountID, t.AccountName, t.Position.Ticket))
	}
	return models.DetailResponse{
		Message: fmt.Sprintf("Modify queued for %s on %d positions", req.Ticket, len(targets)),
		Details: details,
	}, nil
}

// Close closes the position or every position of a group
func (s *tradeService) Close(ctx context.Context, req models.CloseRequest) (models.DetailResponse, error) {
	targets, err := s.resolve(ctx, req.Ticket)
	if err != nil {
		return models.DetailResponse{}, err
	}

	details := make([]string, 0, len(targets))
	for _, t := range targets {
		details = append(details, s.push(ctx, models.CmdClose, models.ClosePayload{
			Position: t.Position.Ticket,
		}, t.AccountID, t.AccountName, t.Position.Ticket))
	}
	return models.DetailResponse{
		Message: fmt.Sprintf("Close queued for %s on %d positions", req.Ticket, len(targets)),
		Details: details,
	}, nil
}

// ModifyOrder updates a pending order on the account holding it
func (s *tradeService) ModifyOrder(ctx context.Context, req models.OrderModifyRequest) (models.DetailResponse, error) {
	if req.Ticket <= 0 {
		return models.DetailResponse{}, errs.Invalid("ticket is required")
	}
	if req.Price <= 0 {
		return models.DetailResponse{}, errs.Invalid("price must be positive")
	}
	target, err := s.resolveOrder(ctx, req.Ticket)
	if err != nil {
		return models.DetailResponse{}, err
	}

	detail := s.push(ctx, models.CmdOrderModify, models.OrderModifyPayload{
		Ticket: req.Ticket,
		Price:  req.Price,
		SL:     req.SL,
		TP:     req.TP,
	}, target.AccountID, target.AccountName, req.Ticket)
	return models.DetailResponse{
		Message: fmt.Sprintf("Order %d modify queued", req.Ticket),
		Details: []string{detail},
	}, nil
}

// CancelOrder removes a pending order on the account holding it
func (s *tradeService) CancelOrder(ctx context.Context, req models.OrderCancelRequest) (models.DetailResponse, error) {
	if req.Ticket <= 0 {
		return models.DetailResponse{}, errs.Invalid("ticket is required")
	}
	target, err := s.resolveOrder(ctx, req.Ticket)
	if err != nil {
		return models.DetailResponse{}, err
	}

	detail := s.push(ctx, models.CmdOrderCancel, models.OrderCancelPayload{
		Ticket: req.Ticket,
	}, target.AccountID, target.AccountName, req.Ticket)
	return models.DetailResponse{
		Message: fmt.Sprintf("Order %d cancel queued", req.Ticket),
		Details: []string{detail},
	}, nil
}

func (s *tradeService) resolve(ctx context.Context, ticket models.Ticket) ([]aggregate.Target, error) {
	if !ticket.IsGroup() && ticket.Number <= 0 {
		return nil, errs.Invalid("ticket is required")
	}
	snaps, err := s.store.Snapshots(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshots")
	}
	return aggregate.Resolve(snaps, ticket)
}

func (s *tradeService) resolveOrder(ctx context.Context, ticket int64) (aggregate.OrderTarget, error) {
	snaps, err := s.store.Snapshots(ctx)
	if err != nil {
		return aggregate.OrderTarget{}, errors.Wrap(err, "read snapshots")
	}
	return aggregate.ResolveOrder(snaps, ticket)
}

// push queues a fire-and-forget command for one account and renders the
// outcome as a detail line
func (s *tradeService) push(ctx context.Context, kind models.CommandKind, payload interface{}, accountID uint, name string, ticket int64) string {
	h, err := s.dispatcher.Submit(ctx, kind, payload, dispatch.Target{ID: accountID, Name: name})
	if err != nil {
		return fmt.Sprintf("%s: %v", name, err)
	}
	if msg, failed := h.Failed[accountID]; failed {
		return msg
	}
	return fmt.Sprintf("%s: #%d queued", name, ticket)
}

func tradePayload(req models.TradeRequest) (models.TradePayload, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return models.TradePayload{}, errs.Invalid("symbol is required")
	}
	dir, ok := models.ParseDirection(req.Type)
	if !ok {
		return models.TradePayload{}, errs.Invalid("type must be BUY or SELL")
	}
	if req.Volume <= 0 {
		return models.TradePayload{}, errs.Invalid("volume must be positive")
	}
	orderType, ok := models.ParseOrderType(req.OrderType)
	if !ok {
		return models.TradePayload{}, errs.Invalid("unknown order type %q", req.OrderType)
	}
	if orderType != models.OrderMarket && req.Price <= 0 {
		return models.TradePayload{}, errs.Invalid("price is required for %s orders", orderType)
	}

	return models.TradePayload{
		Symbol:    symbol,
		Type:      dir,
		Volume:    req.Volume,
		OrderType: orderType,
		Price:     req.Price,
		SL:        req.SL,
		TP:        req.TP,
	}, nil
}

func firstOnline(snaps map[uint]models.AccountSnapshot) (dispatch.Target, bool) {
	online := make([]models.AccountSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.Online() {
			online = append(online, s)
		}
	}
	if len(online) == 0 {
		return dispatch.Target{}, false
	}
	sort.Slice(online, func(i, j int) bool {
		if online[i].Name != online[j].Name {
			return online[i].Name < online[j].Name
		}
		return online[i].AccountID < online[j].AccountID
	})
	return dispatch.Target{ID: online[0].AccountID, Name: online[0].Name}, true
}
