// Package config loads and validates the dashboard configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/overlay/projector"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/scheduler"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration accepts "5s" style values in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BotAPIConfig locates the trading bot's HTTP API.
type BotAPIConfig struct {
	// BaseURL is the bot server root, e.g. http://127.0.0.1:5000.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// Timeout bounds each request.
	Timeout Duration `yaml:"timeout"`
}

// OverlayConfig tunes the chart overlay engine.
type OverlayConfig struct {
	// Symbol is the bootstrap trading pair.
	Symbol string `yaml:"symbol" validate:"required"`
	// Interval is the bootstrap candle interval.
	Interval string `yaml:"interval" validate:"required"`
	// StatusPollInterval is the bot status poll cadence.
	StatusPollInterval Duration `yaml:"status_poll_interval"`
	// ChartPollInterval is the chart-data poll cadence.
	ChartPollInterval Duration `yaml:"chart_poll_interval"`
	// ProjectionDebounce coalesces projection triggers.
	ProjectionDebounce Duration `yaml:"projection_debounce"`
	// RetryDelay is the wait between viewport readiness attempts.
	RetryDelay Duration `yaml:"retry_delay"`
	// MaxAttempts bounds the viewport readiness retries.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`
	// EdgeOffset is the pinned distance from the chart's right edge for
	// position markers, in pixels.
	EdgeOffset float64 `yaml:"edge_offset" validate:"gte=0"`
}

// RecorderConfig controls mark persistence.
type RecorderConfig struct {
	// Enabled turns snapshot recording on.
	Enabled bool `yaml:"enabled"`
	// Path is the DuckDB database file, ":memory:" or empty for in-memory.
	Path string `yaml:"path"`
}

// Config is the root dashboard configuration.
type Config struct {
	BotAPI   BotAPIConfig   `yaml:"bot_api" validate:"required"`
	Overlay  OverlayConfig  `yaml:"overlay" validate:"required"`
	Recorder RecorderConfig `yaml:"recorder"`
	// Debug switches the logger to development mode.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file is given: a local bot
// on the Flask default port, BTCUSDT at 1m.
func Default() Config {
	return Config{
		BotAPI: BotAPIConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: Duration(10 * time.Second),
		},
		Overlay: OverlayConfig{
			Symbol:   "BTCUSDT",
			Interval: "1m",
		},
		Recorder: RecorderConfig{
			Enabled: false,
			Path:    "",
		},
		Debug: false,
	}
}

// Load reads and validates a YAML configuration file. Values absent from
// the file keep their defaults.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "reading config file %s", path)
	}

	return Parse(content)
}

// Parse decodes and validates YAML configuration content.
func Parse(content []byte) (Config, error) {
	config := Default()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "decoding config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks structural constraints plus the overlay selection.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "validating config", err)
	}

	if err := c.Selection().Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "validating overlay selection", err)
	}

	return nil
}

// Selection returns the bootstrap symbol/interval.
func (c Config) Selection() types.Selection {
	return types.Selection{
		Symbol:   c.Overlay.Symbol,
		Interval: c.Overlay.Interval,
	}
}

// SchedulerConfig maps the overlay section onto the engine's tuning knobs.
// Zero values fall through to the engine defaults.
func (c Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Selection:          c.Selection(),
		StatusPollInterval: c.Overlay.StatusPollInterval.Std(),
		ChartPollInterval:  c.Overlay.ChartPollInterval.Std(),
		ProjectionDebounce: c.Overlay.ProjectionDebounce.Std(),
	}
}

// ProjectorConfig maps the overlay section onto the projector's tuning
// knobs. Zero values fall through to the projector defaults.
func (c Config) ProjectorConfig() projector.Config {
	return projector.Config{
		RetryDelay:  c.Overlay.RetryDelay.Std(),
		MaxAttempts: c.Overlay.MaxAttempts,
		EdgeOffset:  c.Overlay.EdgeOffset,
	}
}
