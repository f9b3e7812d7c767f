// Package store holds the latest polled positions and signals for the
// active symbol. Replace is the sole mutator; reads only ever see the
// snapshot belonging to the currently selected symbol, so a poll response
// that raced past a symbol switch is discarded instead of merged.
package store

import (
	"sync"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
)

// Snapshot is the immutable latest view of the chart events for a symbol.
type Snapshot struct {
	// Symbol the events were polled for.
	Symbol string
	// Positions open at poll time.
	Positions []types.Position
	// Signals detected on recent candles.
	Signals []types.Signal
	// PolledAt is when the snapshot was taken, for staleness display.
	PolledAt time.Time
}

// Age returns how old the snapshot is.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.PolledAt)
}

// EventStore keeps the latest snapshot per poll. It is safe for concurrent
// use: the status poller and the chart-data poller both write through it.
type EventStore struct {
	mu       sync.RWMutex
	selected string
	current  *Snapshot
}

// New creates an empty store scoped to the given symbol.
func New(selected string) *EventStore {
	return &EventStore{selected: selected}
}

// Select switches the store to a new symbol. The previous snapshot is
// dropped: event data is symbol-scoped and never carried across a switch.
func (s *EventStore) Select(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == symbol {
		return
	}

	s.selected = symbol
	s.current = nil
}

// Selected returns the symbol reads are scoped to.
func (s *EventStore) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selected
}

// Replace installs a freshly polled snapshot. It returns false and discards
// the data when the snapshot's symbol no longer matches the selection, which
// happens when an in-flight response arrives after a fast symbol switch.
func (s *EventStore) Replace(symbol string, positions []types.Position, signals []types.Signal, polledAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if symbol != s.selected {
		return false
	}

	s.current = &Snapshot{
		Symbol:    symbol,
		Positions: clonePositions(positions),
		Signals:   cloneSignals(signals),
		PolledAt:  polledAt,
	}

	return true
}

// Latest returns the current snapshot for the selected symbol. The second
// return is false when nothing has been polled since the last selection
// change.
func (s *EventStore) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Snapshot{}, false
	}

	return *s.current, true
}

// Replace hands out copies so a caller mutating its poll buffers cannot
// corrupt a snapshot already handed to the projector.
func clonePositions(in []types.Position) []types.Position {
	out := make([]types.Position, len(in))
	copy(out, in)

	return out
}

func cloneSignals(in []types.Signal) []types.Signal {
	out := make([]types.Signal, len(in))
	copy(out, in)

	return out
}
