// Package recorder persists polled bot events into DuckDB so a session's
// signal and position history survives the dashboard and can be exported
// for analysis.
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// EventKind distinguishes recorded rows.
type EventKind string

const (
	EventKindPosition EventKind = "position"
	EventKindSignal   EventKind = "signal"
)

// Event is one recorded bot event.
type Event struct {
	ID        int
	Symbol    string
	Kind      EventKind
	Key       string
	Direction string
	Price     float64
	EventTime time.Time
	FirstSeen time.Time
}

// Recorder writes polled snapshots into DuckDB. Each event key is stored
// once per symbol; repeated polls carrying the same open position or signal
// do not duplicate rows.
type Recorder struct {
	mu  sync.Mutex
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// New creates a Recorder. An empty path or ":memory:" keeps the database
// in memory.
func New(log *logger.Logger, path string) (*Recorder, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderUnavailable, "opening duckdb", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeRecorderUnavailable, "connecting to duckdb", err)
	}

	r := &Recorder{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := r.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return r, nil
}

// RecordSnapshot implements scheduler.SnapshotSink.
func (r *Recorder) RecordSnapshot(snapshot store.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, position := range snapshot.Positions {
		price, _ := position.EntryPrice.Float64()

		err := r.insertEvent(Event{
			Symbol:    snapshot.Symbol,
			Kind:      EventKindPosition,
			Key:       position.Key(),
			Direction: string(position.Side),
			Price:     price,
			EventTime: time.UnixMilli(position.Timestamp),
			FirstSeen: snapshot.PolledAt,
		})
		if err != nil {
			return err
		}
	}

	for _, signal := range snapshot.Signals {
		price, _ := signal.Price.Float64()

		err := r.insertEvent(Event{
			Symbol:    snapshot.Symbol,
			Kind:      EventKindSignal,
			Key:       signal.Key(),
			Direction: string(signal.Type),
			Price:     price,
			EventTime: signal.Time(),
			FirstSeen: snapshot.PolledAt,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// insertEvent writes one event row unless the key was already recorded for
// the symbol. Caller holds the lock.
func (r *Recorder) insertEvent(event Event) error {
	var existing int

	countQuery := r.sq.
		Select("COUNT(*)").
		From("bot_events").
		Where(squirrel.Eq{"symbol": event.Symbol, "key": event.Key}).
		RunWith(r.db)

	if err := countQuery.QueryRow().Scan(&existing); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderQueryFailed, "checking existing event", err)
	}

	if existing > 0 {
		return nil
	}

	var nextID int
	if err := r.db.QueryRow("SELECT nextval('bot_event_id_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderQueryFailed, "allocating event id", err)
	}

	insertQuery := r.sq.
		Insert("bot_events").
		Columns("id", "symbol", "kind", "key", "direction", "price", "event_time", "first_seen").
		Values(nextID, event.Symbol, string(event.Kind), event.Key, event.Direction,
			event.Price, event.EventTime, event.FirstSeen).
		RunWith(r.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderQueryFailed, "inserting event", err)
	}

	return nil
}

// Events returns the recorded events for a symbol, oldest first.
func (r *Recorder) Events(symbol string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	selectQuery := r.sq.
		Select("id", "symbol", "kind", "key", "direction", "price", "event_time", "first_seen").
		From("bot_events").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("event_time ASC").
		RunWith(r.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "querying events", err)
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		var event Event

		var kind string

		err := rows.Scan(
			&event.ID,
			&event.Symbol,
			&kind,
			&event.Key,
			&event.Direction,
			&event.Price,
			&event.EventTime,
			&event.FirstSeen,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "scanning event", err)
		}

		event.Kind = EventKind(kind)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "iterating events", err)
	}

	return events, nil
}

// SignalCounts returns how many recorded signals each direction has for a
// symbol.
func (r *Recorder) SignalCounts(symbol string) (map[types.SignalType]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	selectQuery := r.sq.
		Select("direction", "COUNT(*)").
		From("bot_events").
		Where(squirrel.Eq{"symbol": symbol, "kind": string(EventKindSignal)}).
		GroupBy("direction").
		RunWith(r.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "querying signal counts", err)
	}
	defer rows.Close()

	counts := make(map[types.SignalType]int)

	for rows.Next() {
		var direction string

		var count int

		if err := rows.Scan(&direction, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "scanning signal count", err)
		}

		counts[types.SignalType(direction)] = count
	}

	return counts, rows.Err()
}

// Export saves the recorded events to a Parquet file in the given
// directory.
func (r *Recorder) Export(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderQueryFailed, "creating export directory", err)
	}

	path := filepath.Join(dir, "bot_events.parquet")

	if _, err := r.db.Exec(fmt.Sprintf(`COPY bot_events TO '%s' (FORMAT PARQUET)`, path)); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderQueryFailed, "exporting events to parquet", err)
	}

	r.log.Info("exported recorded events", zap.String("path", path))

	return nil
}

// Cleanup drops and recreates the event table.
func (r *Recorder) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		DROP TABLE IF EXISTS bot_events;
		DROP SEQUENCE IF EXISTS bot_event_id_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderQueryFailed, "dropping event table", err)
	}

	return r.initialize()
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	return r.db.Close()
}

func (r *Recorder) initialize() error {
	if _, err := r.db.Exec(`CREATE SEQUENCE IF NOT EXISTS bot_event_id_seq`); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderUnavailable, "creating id sequence", err)
	}

	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_events (
			id INTEGER PRIMARY KEY,
			symbol TEXT,
			kind TEXT,
			key TEXT,
			direction TEXT,
			price DOUBLE,
			event_time TIMESTAMP,
			first_seen TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderUnavailable, "creating event table", err)
	}

	return nil
}
