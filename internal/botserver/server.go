// Package botserver runs a simulated trading bot exposing the dashboard's
// REST API plus a WebSocket candle stream. It backs the mockbot command and
// the end-to-end tests, serving generated market data with the same wire
// format as the real bot.
package botserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/datagen"
	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/internal/version"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds configuration for the simulated bot.
type Config struct {
	// Symbols are the pairs the bot pretends to trade.
	Symbols []string
	// Interval is the candle interval of the generated series.
	Interval string
	// CandleCount is the length of each symbol's series.
	CandleCount int
	// OpenPositions is how many of the latest signals carry an open position.
	OpenPositions int
	// StreamInterval is the delay between streamed candles.
	StreamInterval time.Duration
	// Seed fixes the generated series for reproducible tests.
	Seed int64
	// Mode is reported by the status endpoint ("signal" or "grid").
	Mode string
}

// DefaultConfig returns a bot trading BTCUSDT and ETHUSDT on 1m candles.
func DefaultConfig() Config {
	return Config{
		Symbols:        []string{"BTCUSDT", "ETHUSDT"},
		Interval:       "1m",
		CandleCount:    240,
		OpenPositions:  2,
		StreamInterval: time.Second,
		Seed:           42,
		Mode:           "signal",
	}
}

// symbolSeries is the generated market state for one pair.
type symbolSeries struct {
	config    datagen.Config
	candles   []types.Candle
	signals   []types.Signal
	positions []types.Position
}

// Server is the simulated bot.
type Server struct {
	config Config
	log    *logger.Logger

	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	mu        sync.RWMutex
	gen       *datagen.Generator
	series    map[string]*symbolSeries
	startTime time.Time

	wsMu          sync.Mutex
	wsConnections map[*websocket.Conn]bool
	stopStreaming chan struct{}
	stopOnce      sync.Once
}

// New creates a Server and generates its market state.
func New(config Config, log *logger.Logger) (*Server, error) {
	if len(config.Symbols) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "bot server needs at least one symbol")
	}

	if config.Interval == "" {
		config.Interval = "1m"
	}

	if config.CandleCount <= 0 {
		config.CandleCount = 240
	}

	if config.StreamInterval <= 0 {
		config.StreamInterval = time.Second
	}

	if config.Mode == "" {
		config.Mode = "signal"
	}

	s := &Server{
		config: config,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		gen:           datagen.NewGenerator(config.Seed),
		series:        make(map[string]*symbolSeries),
		startTime:     time.Now(),
		wsConnections: make(map[*websocket.Conn]bool),
		stopStreaming: make(chan struct{}),
	}

	interval := types.IntervalDuration(config.Interval)
	now := time.Now().Truncate(interval)

	for i, symbol := range config.Symbols {
		genConfig := datagen.DefaultConfig()
		genConfig.Symbol = symbol
		genConfig.Interval = interval
		genConfig.Count = config.CandleCount
		genConfig.StartTime = now.Add(-time.Duration(config.CandleCount) * interval)
		// spread initial prices so the symbols are distinguishable
		genConfig.InitialPrice = genConfig.InitialPrice / float64(i+1)

		candles := s.gen.Candles(genConfig)
		signals := s.gen.Signals(genConfig, candles)
		positions := s.gen.Positions(genConfig, candles, signals, config.OpenPositions)

		s.series[symbol] = &symbolSeries{
			config:    genConfig,
			candles:   candles,
			signals:   signals,
			positions: positions,
		}
	}

	return s, nil
}

// Start begins serving on the given address. An empty address or ":0" picks
// a random port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRequestFailed, "creating bot server listener", err)
	}

	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/chart-data/{symbol}", s.handleChartData).Methods(http.MethodGet)
	router.HandleFunc("/api/symbols", s.handleSymbols).Methods(http.MethodGet)
	router.HandleFunc("/ws/{symbol}", s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Error("bot server stopped unexpectedly", zap.Error(err))
		}
	}()

	s.log.Info("simulated bot listening", zap.String("address", s.Address()))

	return nil
}

// Stop shuts the server down and closes all stream connections.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() { close(s.stopStreaming) })

	s.wsMu.Lock()
	for conn := range s.wsConnections {
		conn.Close()
	}
	s.wsConnections = make(map[*websocket.Conn]bool)
	s.wsMu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL for the server.
func (s *Server) BaseURL() string {
	return "http://" + s.Address()
}

// WebSocketURL returns the WebSocket base URL for the server.
func (s *Server) WebSocketURL() string {
	return "ws://" + s.Address()
}

// Candles returns the generated series for a symbol, mostly for tests and
// the local widget factory.
func (s *Server) Candles(symbol string) []types.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[symbol]
	if !ok {
		return nil
	}

	return append([]types.Candle(nil), series.candles...)
}

// handleStatus serves GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []types.Position

	unrealized := decimal.Zero
	for _, symbol := range s.config.Symbols {
		series := s.series[symbol]
		positions = append(positions, series.positions...)

		for _, p := range series.positions {
			unrealized = unrealized.Add(p.PnL)
		}
	}

	wallet := decimal.NewFromInt(10_000)

	status := types.BotStatus{
		IsRunning: true,
		Mode:      s.config.Mode,
		StartTime: s.startTime.Format("2006-01-02 15:04:05"),
		Symbols:   s.config.Symbols,
		Account: types.AccountInfo{
			TotalWalletBalance:    wallet,
			TotalUnrealizedProfit: unrealized,
			AvailableBalance:      wallet.Add(unrealized),
		},
		Positions: positions,
		Orders:    []types.Order{},
		Trades:    []types.Trade{},
		PnL: types.PnLSummary{
			Daily: unrealized.Div(wallet).Mul(decimal.NewFromInt(100)).Round(4),
			Total: unrealized.Round(4),
		},
	}

	writeJSON(w, http.StatusOK, status)
}

// handleChartData serves GET /api/chart-data/{symbol}.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	s.mu.RLock()
	series, ok := s.series[symbol]

	var data types.ChartData

	if ok {
		data = types.ChartData{
			Success:   true,
			Symbol:    symbol,
			Positions: append([]types.Position(nil), series.positions...),
			Signals:   append([]types.Signal(nil), series.signals...),
		}
	}
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusOK, types.ChartData{
			Success: false,
			Message: "symbol " + symbol + " is not tracked by this bot",
		})

		return
	}

	writeJSON(w, http.StatusOK, data)
}

// handleSymbols serves GET /api/symbols.
func (s *Server) handleSymbols(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.SymbolsResponse{
		Success: true,
		Symbols: s.config.Symbols,
	})
}

// handleWebSocket streams new candles for a symbol, extending the generated
// series with every tick.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	s.mu.RLock()
	_, ok := s.series[symbol]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "unknown symbol", http.StatusNotFound)

		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	s.streamCandles(conn, symbol)
}

// streamCandles pushes one new candle per stream interval.
func (s *Server) streamCandles(conn *websocket.Conn, symbol string) {
	ticker := time.NewTicker(s.config.StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopStreaming:
			return
		case <-ticker.C:
			candle := s.extendSeries(symbol)
			if err := conn.WriteJSON(candle); err != nil {
				return
			}
		}
	}
}

// extendSeries appends the next random-walk candle to a symbol's series and
// returns it.
func (s *Server) extendSeries(symbol string) types.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.series[symbol]
	last := series.candles[len(series.candles)-1]
	next := s.gen.NextCandle(series.config, last)
	series.candles = append(series.candles, next)

	return next
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(version.Header, version.GetVersion())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
