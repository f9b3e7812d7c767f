package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParseFullConfig() {
	content := `
bot_api:
  base_url: http://192.168.1.20:5000
  timeout: 5s
overlay:
  symbol: ETHUSDT
  interval: 5m
  status_poll_interval: 3s
  chart_poll_interval: 10s
  projection_debounce: 100ms
  retry_delay: 250ms
  max_attempts: 10
  edge_offset: 45.5
recorder:
  enabled: true
  path: /tmp/marks.duckdb
debug: true
`

	config, err := Parse([]byte(content))
	suite.Require().NoError(err)

	suite.Equal("http://192.168.1.20:5000", config.BotAPI.BaseURL)
	suite.Equal(5*time.Second, config.BotAPI.Timeout.Std())
	suite.Equal("ETHUSDT", config.Overlay.Symbol)
	suite.Equal("5m", config.Overlay.Interval)
	suite.True(config.Recorder.Enabled)
	suite.True(config.Debug)

	sched := config.SchedulerConfig()
	suite.Equal(3*time.Second, sched.StatusPollInterval)
	suite.Equal(10*time.Second, sched.ChartPollInterval)
	suite.Equal(100*time.Millisecond, sched.ProjectionDebounce)
	suite.Equal("ETHUSDT", sched.Selection.Symbol)

	proj := config.ProjectorConfig()
	suite.Equal(250*time.Millisecond, proj.RetryDelay)
	suite.Equal(10, proj.MaxAttempts)
	suite.InDelta(45.5, proj.EdgeOffset, 0.0001)
}

func (suite *ConfigTestSuite) TestParseKeepsDefaultsForAbsentValues() {
	content := `
overlay:
  symbol: SOLUSDT
  interval: 15m
`

	config, err := Parse([]byte(content))
	suite.Require().NoError(err)

	suite.Equal("http://127.0.0.1:5000", config.BotAPI.BaseURL)
	suite.Equal(10*time.Second, config.BotAPI.Timeout.Std())
	suite.Equal("SOLUSDT", config.Overlay.Symbol)
	suite.False(config.Recorder.Enabled)

	// unset poll intervals reach the engine as zero and fall through to
	// its defaults
	suite.Equal(time.Duration(0), config.SchedulerConfig().StatusPollInterval)
}

func (suite *ConfigTestSuite) TestDefaultValidates() {
	suite.Require().NoError(Default().Validate())
}

func (suite *ConfigTestSuite) TestInvalidBaseURLRejected() {
	content := `
bot_api:
  base_url: not a url
`

	_, err := Parse([]byte(content))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestUnsupportedIntervalRejected() {
	content := `
overlay:
  symbol: BTCUSDT
  interval: 7m
`

	_, err := Parse([]byte(content))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestMalformedDurationRejected() {
	content := `
overlay:
  symbol: BTCUSDT
  interval: 1m
  status_poll_interval: soon
`

	_, err := Parse([]byte(content))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadFromFile() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	content := []byte("overlay:\n  symbol: BNBUSDT\n  interval: 1h\n")
	suite.Require().NoError(os.WriteFile(path, content, 0o600))

	config, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal("BNBUSDT", config.Overlay.Symbol)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.T().TempDir(), "absent.yaml"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
