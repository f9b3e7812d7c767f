package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
}

func (suite *LoggerTestSuite) TestNewDebugLogger() {
	logger, err := NewDebugLogger()
	suite.NoError(err)
	suite.NotNil(logger)

	// Debug output should not panic
	logger.Debug("debug message")
}

func (suite *LoggerTestSuite) TestNopLoggerIsSilentAndSafe() {
	logger := NewNopLogger()
	suite.NotNil(logger)

	logger.Info("discarded")
	logger.Error("also discarded")
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestSyncNilInnerLogger() {
	logger := &Logger{Logger: nil}
	suite.NoError(logger.Sync())
}
