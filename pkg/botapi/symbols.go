package botapi

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"
)

const (
	// DefaultMinQuoteVolume is the minimum 24h USDT volume for a pair to be
	// offered in the symbol picker.
	DefaultMinQuoteVolume = 1_000_000.0
	// DefaultSymbolLimit caps the symbol picker list.
	DefaultSymbolLimit = 20
	// DefaultSymbolCacheTTL keeps ticker statistics for 30 minutes to limit
	// Binance API calls.
	DefaultSymbolCacheTTL = 30 * time.Minute
)

// defaultSymbols is served when both the bot API and Binance fail.
var defaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "DOGEUSDT",
	"XRPUSDT", "DOTUSDT", "UNIUSDT", "LTCUSDT", "LINKUSDT",
	"SOLUSDT", "MATICUSDT", "AVAXUSDT", "ATOMUSDT", "TRXUSDT",
}

// FuturesTickers is the slice of the Binance futures API the provider
// queries for 24h volume statistics.
type FuturesTickers interface {
	PriceChangeStats(ctx context.Context) ([]*futures.PriceChangeStats, error)
}

type binanceTickers struct {
	client *futures.Client
}

func (b binanceTickers) PriceChangeStats(ctx context.Context) ([]*futures.PriceChangeStats, error) {
	return b.client.NewListPriceChangeStatsService().Do(ctx)
}

// SymbolProvider resolves the symbol picker list. It asks the bot server
// first, falls back to the highest-volume USDT pairs on Binance futures,
// and serves a static list when both are unreachable, so the picker always
// has content.
type SymbolProvider struct {
	api       *Client
	tickers   FuturesTickers
	log       *logger.Logger
	minVolume float64
	limit     int
	ttl       time.Duration

	mu       sync.Mutex
	cached   []string
	cachedAt time.Time
}

// SymbolOption customizes a SymbolProvider.
type SymbolOption func(*SymbolProvider)

// WithMinQuoteVolume overrides the 24h volume threshold.
func WithMinQuoteVolume(volume float64) SymbolOption {
	return func(p *SymbolProvider) { p.minVolume = volume }
}

// WithSymbolLimit overrides the list cap.
func WithSymbolLimit(limit int) SymbolOption {
	return func(p *SymbolProvider) { p.limit = limit }
}

// WithSymbolCacheTTL overrides the cache lifetime.
func WithSymbolCacheTTL(ttl time.Duration) SymbolOption {
	return func(p *SymbolProvider) { p.ttl = ttl }
}

// WithTickers overrides the Binance ticker source.
func WithTickers(tickers FuturesTickers) SymbolOption {
	return func(p *SymbolProvider) { p.tickers = tickers }
}

// NewSymbolProvider creates a provider backed by the bot API and the public
// Binance futures endpoints.
func NewSymbolProvider(api *Client, log *logger.Logger, opts ...SymbolOption) *SymbolProvider {
	p := &SymbolProvider{
		api:       api,
		tickers:   binanceTickers{client: futures.NewClient("", "")},
		log:       log,
		minVolume: DefaultMinQuoteVolume,
		limit:     DefaultSymbolLimit,
		ttl:       DefaultSymbolCacheTTL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Symbols returns the picker list. It never fails; every fallback level is
// logged.
func (p *SymbolProvider) Symbols(ctx context.Context) []string {
	p.mu.Lock()
	if len(p.cached) > 0 && time.Since(p.cachedAt) < p.ttl {
		cached := append([]string(nil), p.cached...)
		p.mu.Unlock()

		return cached
	}
	p.mu.Unlock()

	if p.api != nil {
		symbols, err := p.api.Symbols(ctx)
		if err == nil && len(symbols) > 0 {
			return p.store(symbols)
		}

		if err != nil {
			p.log.Warn("bot symbols endpoint failed, trying Binance", zap.Error(err))
		}
	}

	symbols, err := p.highVolumePairs(ctx)
	if err == nil && len(symbols) > 0 {
		return p.store(symbols)
	}

	if err != nil {
		p.log.Warn("Binance ticker statistics failed, using default symbols", zap.Error(err))
	}

	return append([]string(nil), defaultSymbols...)
}

// highVolumePairs filters the 24h futures tickers down to USDT pairs above
// the volume threshold, highest volume first.
func (p *SymbolProvider) highVolumePairs(ctx context.Context) ([]string, error) {
	stats, err := p.tickers.PriceChangeStats(ctx)
	if err != nil {
		return nil, err
	}

	type pair struct {
		symbol string
		volume float64
	}

	pairs := make([]pair, 0, len(stats))

	for _, s := range stats {
		if !strings.HasSuffix(s.Symbol, "USDT") {
			continue
		}

		volume, err := strconv.ParseFloat(s.QuoteVolume, 64)
		if err != nil || volume < p.minVolume {
			continue
		}

		pairs = append(pairs, pair{symbol: s.Symbol, volume: volume})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].volume > pairs[j].volume
	})

	if len(pairs) > p.limit {
		pairs = pairs[:p.limit]
	}

	symbols := make([]string, 0, len(pairs))
	for _, pr := range pairs {
		symbols = append(symbols, pr.symbol)
	}

	return symbols, nil
}

func (p *SymbolProvider) store(symbols []string) []string {
	p.mu.Lock()
	p.cached = append([]string(nil), symbols...)
	p.cachedAt = time.Now()
	p.mu.Unlock()

	return append([]string(nil), symbols...)
}
