package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RecorderTestSuite struct {
	suite.Suite
	recorder *Recorder
}

func TestRecorderTestSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (suite *RecorderTestSuite) SetupTest() {
	recorder, err := New(logger.NewNopLogger(), "")
	suite.Require().NoError(err)
	suite.recorder = recorder
}

func (suite *RecorderTestSuite) TearDownTest() {
	suite.Require().NoError(suite.recorder.Close())
}

func snapshotFixture(polledAt time.Time) store.Snapshot {
	return store.Snapshot{
		Symbol: "BTCUSDT",
		Positions: []types.Position{{
			Side:       types.PositionSideLong,
			EntryPrice: decimal.NewFromFloat(64250.5),
			Size:       decimal.NewFromFloat(0.25),
			PnL:        decimal.NewFromFloat(120.75),
			Timestamp:  1700000000000,
		}},
		Signals: []types.Signal{
			{Type: types.SignalTypeLong, Price: decimal.NewFromFloat(64100), Timestamp: 1700000050000},
			{Type: types.SignalTypeShort, Price: decimal.NewFromFloat(64900), Timestamp: 1700000110000},
		},
		PolledAt: polledAt,
	}
}

func (suite *RecorderTestSuite) TestRecordSnapshotStoresEvents() {
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))

	events, err := suite.recorder.Events("BTCUSDT")
	suite.Require().NoError(err)
	suite.Require().Len(events, 3)

	suite.Equal(EventKindPosition, events[0].Kind)
	suite.Equal("LONG", events[0].Direction)
	suite.InDelta(64250.5, events[0].Price, 0.0001)

	suite.Equal(EventKindSignal, events[1].Kind)
	suite.Equal(EventKindSignal, events[2].Kind)
	suite.True(events[2].EventTime.After(events[1].EventTime))
}

func (suite *RecorderTestSuite) TestRepeatedPollsDoNotDuplicate() {
	snapshot := snapshotFixture(time.Now())

	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshot))
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshot))
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshot))

	events, err := suite.recorder.Events("BTCUSDT")
	suite.Require().NoError(err)
	suite.Len(events, 3)
}

func (suite *RecorderTestSuite) TestNewEventsAppendAcrossPolls() {
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))

	next := snapshotFixture(time.Now())
	next.Signals = append(next.Signals, types.Signal{
		Type:      types.SignalTypeLong,
		Price:     decimal.NewFromFloat(63800),
		Timestamp: 1700000170000,
	})

	suite.Require().NoError(suite.recorder.RecordSnapshot(next))

	events, err := suite.recorder.Events("BTCUSDT")
	suite.Require().NoError(err)
	suite.Len(events, 4)
}

func (suite *RecorderTestSuite) TestEventsScopedBySymbol() {
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))

	other := snapshotFixture(time.Now())
	other.Symbol = "ETHUSDT"
	suite.Require().NoError(suite.recorder.RecordSnapshot(other))

	btc, err := suite.recorder.Events("BTCUSDT")
	suite.Require().NoError(err)
	suite.Len(btc, 3)

	eth, err := suite.recorder.Events("ETHUSDT")
	suite.Require().NoError(err)
	suite.Len(eth, 3)
}

func (suite *RecorderTestSuite) TestSignalCounts() {
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))

	counts, err := suite.recorder.SignalCounts("BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(1, counts[types.SignalTypeLong])
	suite.Equal(1, counts[types.SignalTypeShort])
}

func (suite *RecorderTestSuite) TestExportWritesParquet() {
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))

	dir := suite.T().TempDir()
	suite.Require().NoError(suite.recorder.Export(dir))

	info, err := os.Stat(filepath.Join(dir, "bot_events.parquet"))
	suite.Require().NoError(err)
	suite.Positive(info.Size())
}

func (suite *RecorderTestSuite) TestCleanupResetsState() {
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))
	suite.Require().NoError(suite.recorder.Cleanup())

	events, err := suite.recorder.Events("BTCUSDT")
	suite.Require().NoError(err)
	suite.Empty(events)

	// recording still works after a reset
	suite.Require().NoError(suite.recorder.RecordSnapshot(snapshotFixture(time.Now())))
}
