package store

import (
	"sync"
	"testing"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type EventStoreTestSuite struct {
	suite.Suite
	store *EventStore
}

func TestEventStoreSuite(t *testing.T) {
	suite.Run(t, new(EventStoreTestSuite))
}

func (suite *EventStoreTestSuite) SetupTest() {
	suite.store = New("BTCUSDT")
}

func (suite *EventStoreTestSuite) TestEmptyUntilFirstPoll() {
	_, ok := suite.store.Latest()
	suite.False(ok)
}

func (suite *EventStoreTestSuite) TestReplaceAndRead() {
	polledAt := time.Now()
	positions := []types.Position{{Side: types.PositionSideLong, EntryPrice: decimal.NewFromInt(64000)}}
	signals := []types.Signal{{Type: types.SignalTypeLong, Timestamp: 1700000000000}}

	suite.True(suite.store.Replace("BTCUSDT", positions, signals, polledAt))

	snapshot, ok := suite.store.Latest()
	suite.Require().True(ok)
	suite.Equal("BTCUSDT", snapshot.Symbol)
	suite.Len(snapshot.Positions, 1)
	suite.Len(snapshot.Signals, 1)
	suite.Equal(polledAt, snapshot.PolledAt)
}

func (suite *EventStoreTestSuite) TestStaleSymbolDiscarded() {
	suite.store.Select("ETHUSDT")

	// response for the previous selection arrives late
	suite.False(suite.store.Replace("BTCUSDT", nil, []types.Signal{{Type: types.SignalTypeLong}}, time.Now()))

	_, ok := suite.store.Latest()
	suite.False(ok)
}

func (suite *EventStoreTestSuite) TestSelectDropsPreviousSnapshot() {
	suite.True(suite.store.Replace("BTCUSDT", nil, []types.Signal{{Type: types.SignalTypeLong}}, time.Now()))

	suite.store.Select("ETHUSDT")

	_, ok := suite.store.Latest()
	suite.False(ok)
	suite.Equal("ETHUSDT", suite.store.Selected())
}

func (suite *EventStoreTestSuite) TestReselectingSameSymbolKeepsSnapshot() {
	suite.True(suite.store.Replace("BTCUSDT", nil, []types.Signal{{Type: types.SignalTypeLong}}, time.Now()))

	suite.store.Select("BTCUSDT")

	_, ok := suite.store.Latest()
	suite.True(ok)
}

func (suite *EventStoreTestSuite) TestSnapshotIsolatedFromCallerBuffers() {
	signals := []types.Signal{{Type: types.SignalTypeLong, Timestamp: 1000}}
	suite.True(suite.store.Replace("BTCUSDT", nil, signals, time.Now()))

	// caller reuses its buffer for the next poll
	signals[0].Timestamp = 9999

	snapshot, ok := suite.store.Latest()
	suite.Require().True(ok)
	suite.Equal(int64(1000), snapshot.Signals[0].Timestamp)
}

func (suite *EventStoreTestSuite) TestConcurrentReplaceFromTwoPollers() {
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 200; j++ {
				suite.store.Replace("BTCUSDT", nil, []types.Signal{{Timestamp: int64(j)}}, time.Now())
				suite.store.Latest()
			}
		}()
	}

	wg.Wait()

	_, ok := suite.store.Latest()
	suite.True(ok)
}

func (suite *EventStoreTestSuite) TestSnapshotAge() {
	polledAt := time.Now().Add(-30 * time.Second)
	suite.True(suite.store.Replace("BTCUSDT", nil, nil, polledAt))

	snapshot, _ := suite.store.Latest()
	suite.InDelta(30, snapshot.Age(time.Now()).Seconds(), 1)
}
