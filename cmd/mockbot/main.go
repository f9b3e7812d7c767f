package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/botserver"
	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/version"
	"github.com/urfave/cli/v3"
)

// serveAction starts the simulated bot and blocks until interrupted.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	zlog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	if cmd.Bool("debug") {
		zlog, err = logger.NewDebugLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	}

	config := botserver.DefaultConfig()
	config.Interval = cmd.String("interval")
	config.CandleCount = int(cmd.Int("candles"))
	config.OpenPositions = int(cmd.Int("positions"))
	config.StreamInterval = cmd.Duration("stream-interval")
	config.Seed = cmd.Int("seed")
	config.Mode = cmd.String("mode")

	if symbols := cmd.String("symbols"); symbols != "" {
		config.Symbols = nil

		for _, symbol := range strings.Split(symbols, ",") {
			if trimmed := strings.ToUpper(strings.TrimSpace(symbol)); trimmed != "" {
				config.Symbols = append(config.Symbols, trimmed)
			}
		}
	}

	server, err := botserver.New(config, zlog)
	if err != nil {
		return fmt.Errorf("failed to create bot server: %w", err)
	}

	if err := server.Start(cmd.String("address")); err != nil {
		return fmt.Errorf("failed to start bot server: %w", err)
	}

	fmt.Printf("Simulated bot listening on %s (symbols: %s)\n",
		server.BaseURL(), strings.Join(config.Symbols, ", "))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-stop:
	}

	fmt.Println("Shutting down...")

	return server.Stop()
}

func main() {
	cmd := &cli.Command{
		Name:    "mockbot",
		Usage:   "Simulated trading bot API for dashboard development",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Listen address",
				Value:   "127.0.0.1:5000",
			},
			&cli.StringFlag{
				Name:    "symbols",
				Aliases: []string{"s"},
				Usage:   "Comma-separated list of trading pairs",
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Candle interval for the generated series",
				Value:   "1m",
			},
			&cli.IntFlag{
				Name:  "candles",
				Usage: "Number of historical candles per symbol",
				Value: 240,
			},
			&cli.IntFlag{
				Name:  "positions",
				Usage: "Number of open positions per symbol",
				Value: 2,
			},
			&cli.DurationFlag{
				Name:  "stream-interval",
				Usage: "Delay between streamed candle updates",
				Value: time.Second,
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Random seed for the generated market data",
				Value: 42,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Trading mode reported by the status endpoint",
				Value: "signal",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Action: serveAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
