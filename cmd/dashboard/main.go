package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/TheFahmi/binance-trading-bot/internal/botserver"
	"github.com/TheFahmi/binance-trading-bot/internal/config"
	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/projector"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/scheduler"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/viewport"
	"github.com/TheFahmi/binance-trading-bot/internal/recorder"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/internal/version"
	"github.com/TheFahmi/binance-trading-bot/pkg/botapi"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// dashboardAction wires the bot API client, overlay engine and terminal
// chart together and runs the UI until the user quits.
func dashboardAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg = loaded
	}

	if symbol := cmd.String("symbol"); symbol != "" {
		cfg.Overlay.Symbol = symbol
	}

	if interval := cmd.String("interval"); interval != "" {
		cfg.Overlay.Interval = interval
	}

	if url := cmd.String("bot-url"); url != "" {
		cfg.BotAPI.BaseURL = url
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// a live zap logger would draw over the TUI, so logging stays off
	// unless debugging against a log file capture
	zlog := logger.NewNopLogger()

	if cmd.Bool("debug") {
		debugLog, err := logger.NewDebugLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		zlog = debugLog
	}

	var klines botapi.KlineService = botapi.NewBinanceKlines()

	// --mock runs an embedded simulated bot instead of talking to a real
	// deployment, serving both the overlay endpoints and the candles
	if cmd.Bool("mock") {
		server, err := botserver.New(botserver.DefaultConfig(), zlog)
		if err != nil {
			return fmt.Errorf("failed to create mock bot: %w", err)
		}

		if err := server.Start("127.0.0.1:0"); err != nil {
			return fmt.Errorf("failed to start mock bot: %w", err)
		}

		defer func() { _ = server.Stop() }()

		cfg.BotAPI.BaseURL = server.BaseURL()
		klines = mockKlines{server: server}
	}

	client := botapi.NewClient(cfg.BotAPI.BaseURL, zlog, botapi.WithTimeout(cfg.BotAPI.Timeout.Std()))
	symbols := botapi.NewSymbolProvider(client, zlog).Symbols(ctx)

	chart := NewChart()
	// NewWidget defers the chart swap to the engine's install path: a slow
	// kline fetch for an abandoned selection yields a widget the engine
	// destroys before it ever touches the displayed series
	factory := scheduler.WidgetFactoryFunc(func(ctx context.Context, selection types.Selection) (viewport.Widget, error) {
		candles, err := klines.Candles(ctx, selection, botapi.DefaultKlineLimit)
		if err != nil {
			return nil, err
		}

		return chart.NewWidget(selection, candles), nil
	})

	eventStore := store.New(cfg.Overlay.Symbol)
	proj := projector.New(cfg.ProjectorConfig(), eventStore, chart, zlog)

	var program *tea.Program

	engineOpts := []scheduler.Option{
		scheduler.WithStatusListener(func(status types.BotStatus) {
			if program != nil {
				program.Send(botStatusMsg{Status: status})
			}
		}),
		scheduler.WithStateListener(func(state scheduler.State) {
			if program != nil {
				program.Send(engineStateMsg{State: state})
			}
		}),
	}

	if cfg.Recorder.Enabled {
		rec, err := recorder.New(zlog, cfg.Recorder.Path)
		if err != nil {
			return fmt.Errorf("failed to open event recorder: %w", err)
		}

		defer func() { _ = rec.Close() }()

		engineOpts = append(engineOpts, scheduler.WithSnapshotSink(rec))
	}

	engine, err := scheduler.New(cfg.SchedulerConfig(), client, factory, eventStore, proj, zlog, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create overlay engine: %w", err)
	}

	program = tea.NewProgram(NewModel(chart, engine, symbols), tea.WithAltScreen())

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start overlay engine: %w", err)
	}

	defer engine.Stop()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard exited with error: %w", err)
	}

	return nil
}

// mockKlines serves candles straight from the embedded simulated bot so
// mock mode never reaches the Binance API.
type mockKlines struct {
	server *botserver.Server
}

func (m mockKlines) Candles(_ context.Context, selection types.Selection, limit int) ([]types.Candle, error) {
	candles := m.server.Candles(selection.Symbol)
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

func main() {
	cmd := &cli.Command{
		Name:    "dashboard",
		Usage:   "Terminal dashboard for monitoring a running trading bot",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "bot-url",
				Aliases: []string{"u"},
				Usage:   "Base URL of the bot API, overrides the config file",
			},
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"s"},
				Usage:   "Initial trading pair, e.g. BTCUSDT",
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Initial candle interval, e.g. 1m",
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "Run against an embedded simulated bot instead of a live deployment",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: dashboardAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
