package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vikasavnish/tradehub/internal/models"
)

// Bridge talks to a terminal gateway over JSON/HTTP. Each Bridge owns one
// gateway session, opened by Login and closed by Shutdown.
type Bridge struct {
	baseURL string
	client  *http.Client
	session string
}

// NewBridge creates a gateway client for one account
func NewBridge(baseURL string, timeout time.Duration) *Bridge {
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// NewBridgeFactory builds a gateway client per account
func NewBridgeFactory(baseURL string, timeout time.Duration) Factory {
	return func(models.Account) Session {
		return NewBridge(baseURL, timeout)
	}
}

type bridgeError struct {
	Error string `json:"error"`
}

func (b *Bridge) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var be bridgeError
		_ = json.NewDecoder(resp.Body).Decode(&be)
		if be.Error == "" {
			be.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, be.Error)
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode %s", path)
}

func (b *Bridge) sessionPath(parts ...string) (string, error) {
	if b.session == "" {
		return "", errNotLoggedIn
	}
	return "/session/" + url.PathEscape(b.session) + "/" + strings.Join(parts, "/"), nil
}

func (b *Bridge) get(ctx context.Context, out interface{}, parts ...string) error {
	path, err := b.sessionPath(parts...)
	if err != nil {
		return err
	}
	return b.do(ctx, http.MethodGet, path, nil, out)
}

func (b *Bridge) Login(ctx context.Context, creds Credentials) error {
	var resp struct {
		Session string `json:"session"`
	}
	if err := b.do(ctx, http.MethodPost, "/session", creds, &resp); err != nil {
		return err
	}
	if resp.Session == "" {
		return errors.New("gateway returned no session")
	}
	b.session = resp.Session
	return nil
}

func (b *Bridge) Shutdown(ctx context.Context) error {
	if b.session == "" {
		return nil
	}
	path := "/session/" + url.PathEscape(b.session)
	b.session = ""
	return b.do(ctx, http.MethodDelete, path, nil, nil)
}

func (b *Bridge) AccountSummary(ctx context.Context) (Summary, error) {
	var s Summary
	err := b.get(ctx, &s, "account")
	return s, err
}

func (b *Bridge) Positions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	err := b.get(ctx, &out, "positions")
	return out, err
}

func (b *Bridge) Orders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	err := b.get(ctx, &out, "orders")
	return out, err
}

func (b *Bridge) Symbols(ctx context.Context) ([]string, error) {
	var out []string
	err := b.get(ctx, &out, "symbols")
	return out, err
}

func (b *Bridge) SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	var info SymbolInfo
	err := b.get(ctx, &info, "symbol", url.PathEscape(symbol))
	return info, err
}

func (b *Bridge) Tick(ctx context.Context, symbol string) (models.Quote, error) {
	var q models.Quote
	err := b.get(ctx, &q, "tick", url.PathEscape(symbol))
	return q, err
}

func (b *Bridge) Candles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("limit", strconv.Itoa(limit))
	var out []models.Candle
	err := b.get(ctx, &out, "candles?"+q.Encode())
	return out, err
}

func (b *Bridge) Deals(ctx context.Context, from, to time.Time) ([]models.Deal, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))
	var out []models.Deal
	err := b.get(ctx, &out, "deals?"+q.Encode())
	return out, err
}

func (b *Bridge) Send(ctx context.Context, req TradeRequest) (TradeResult, error) {
	path, err := b.sessionPath("order")
	if err != nil {
		return TradeResult{}, err
	}
	var res TradeResult
	err = b.do(ctx, http.MethodPost, path, req, &res)
	return res, err
}
