// Package botapi is the HTTP client for the trading bot's REST API. The
// overlay engine polls it for chart data and bot status; the symbol picker
// uses it with a Binance fallback.
package botapi

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/internal/version"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds each request to the bot server.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryCount retries transient failures before the poll gives up
	// for this tick.
	DefaultRetryCount = 2
)

// Client talks to the bot server's REST endpoints.
type Client struct {
	http *resty.Client
	log  *logger.Logger

	// lastBotVersion remembers the version the bot last advertised so the
	// compatibility warning fires once per change, not once per poll.
	lastBotVersion atomic.Value
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithRetryCount overrides the transient-failure retry count.
func WithRetryCount(count int) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count)
	}
}

// NewClient creates a Client for the bot server at baseURL.
func NewClient(baseURL string, log *logger.Logger, opts ...Option) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultRetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	c := &Client{
		http: http,
		log:  log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ChartData fetches open positions and recent signals for a symbol from
// GET /api/chart-data/{symbol}. A payload carrying a different symbol than
// requested is rejected as stale rather than returned.
func (c *Client) ChartData(ctx context.Context, symbol string) (types.ChartData, error) {
	var out types.ChartData

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("symbol", symbol).
		Get("/api/chart-data/{symbol}")
	if err != nil {
		return types.ChartData{}, wrapTransport(err, resp, "fetching chart data")
	}

	if resp.IsError() {
		return types.ChartData{}, errors.Newf(errors.ErrCodeBotAPIError, "chart data request returned %s", resp.Status())
	}

	if !out.Success {
		return types.ChartData{}, errors.Newf(errors.ErrCodeBotAPIError, "bot rejected chart data request: %s", out.Message)
	}

	if out.Symbol != "" && out.Symbol != symbol {
		return types.ChartData{}, errors.Newf(errors.ErrCodeStaleResponse,
			"requested %s but response carries %s", symbol, out.Symbol)
	}

	return out, nil
}

// Status fetches the bot status from GET /api/status.
func (c *Client) Status(ctx context.Context) (types.BotStatus, error) {
	var out types.BotStatus

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/status")
	if err != nil {
		return types.BotStatus{}, wrapTransport(err, resp, "fetching bot status")
	}

	if resp.IsError() {
		return types.BotStatus{}, errors.Newf(errors.ErrCodeBotAPIError, "status request returned %s", resp.Status())
	}

	c.checkBotVersion(resp)

	return out, nil
}

// checkBotVersion warns once per version change when the bot advertises a
// release the dashboard was not built against. The poll itself proceeds.
func (c *Client) checkBotVersion(resp *resty.Response) {
	botVersion := resp.Header().Get(version.Header)
	if botVersion == "" {
		return
	}

	previous, _ := c.lastBotVersion.Swap(botVersion).(string)
	if botVersion == previous {
		return
	}

	if err := version.CheckAPICompatibility(version.GetVersion(), botVersion); err != nil {
		c.log.Warn("bot version may be incompatible with this dashboard",
			zap.String("dashboard_version", version.GetVersion()),
			zap.String("bot_version", botVersion),
			zap.Error(err),
		)
	}
}

// Symbols fetches the bot's tradable symbols from GET /api/symbols.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var out types.SymbolsResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/symbols")
	if err != nil {
		return nil, wrapTransport(err, resp, "fetching symbols")
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeBotAPIError, "symbols request returned %s", resp.Status())
	}

	if !out.Success {
		return nil, errors.Newf(errors.ErrCodeBotAPIError, "bot rejected symbols request: %s", out.Message)
	}

	return out.Symbols, nil
}

// wrapTransport classifies a resty error: a response that arrived but could
// not be decoded is a decode failure, everything else is transport.
func wrapTransport(err error, resp *resty.Response, message string) error {
	if resp != nil && resp.StatusCode() != 0 {
		return errors.Wrap(errors.ErrCodeDecodeFailed, message, err)
	}

	return errors.Wrap(errors.ErrCodeRequestFailed, message, err)
}
