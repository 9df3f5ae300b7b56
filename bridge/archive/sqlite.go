package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/eventbridge-go/bridge/event"
	_ "modernc.org/sqlite"
)

// SQLiteArchive is a SQLite implementation of Archive.
//
// It records flush outcomes in a single-file database. Designed for:
//   - Local assessment runs with zero setup
//   - Post-run inspection of what was delivered or lost
//   - Prototyping before pointing at a shared MySQL archive
//
// The archive uses WAL mode so a reporting process can read the file while
// the bridge is still writing.
//
// Schema:
//   - bridge_events: one row per archived event with its delivery outcome
type SQLiteArchive struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewSQLiteArchive opens (or creates) a SQLite-backed archive.
//
// The path parameter specifies the database file location:
//   - "./events.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The archive automatically creates its table, enables WAL mode, and sets
// a busy timeout so concurrent readers do not fail immediately on lock
// contention.
//
// Example:
//
//	ar, err := archive.NewSQLiteArchive("./events.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ar.Close()
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	a := &SQLiteArchive{db: db, path: path}
	if err := a.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return a, nil
}

func (a *SQLiteArchive) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS bridge_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		content TEXT NOT NULL,
		event_ts INTEGER NOT NULL,
		operation_id TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		delivered INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bridge_events_operation
		ON bridge_events(operation_id, recorded_at);`
	_, err := a.db.ExecContext(ctx, schema)
	return err
}

// RecordBatch archives the batch in a single transaction so a partial
// batch is never visible to readers.
func (a *SQLiteArchive) RecordBatch(ctx context.Context, events []event.Event, delivered bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bridge_events
			(id, event_type, content, event_ts, operation_id, session_id, user_id, metadata, delivered, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for _, ev := range events {
		meta, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for event %s: %w", ev.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID, ev.Type, ev.Content, ev.Timestamp, ev.OperationID,
			ev.SessionID, ev.UserID, string(meta), boolToInt(delivered), now,
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// ByOperation returns archived events for the operation in record order.
func (a *SQLiteArchive) ByOperation(ctx context.Context, operationID string) ([]StoredEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, event_type, content, event_ts, operation_id, session_id, user_id, metadata, delivered, recorded_at
		FROM bridge_events
		WHERE operation_id = ?
		ORDER BY recorded_at, rowid`, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanStoredEvents(rows)
}

// Ping verifies the database connection is alive.
func (a *SQLiteArchive) Ping(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.db.PingContext(ctx)
}

// Close closes the underlying database.
func (a *SQLiteArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	return a.db.Close()
}

// scanStoredEvents converts rows into StoredEvents. Shared with the MySQL
// archive, whose SELECT produces the same column order.
func scanStoredEvents(rows *sql.Rows) ([]StoredEvent, error) {
	out := []StoredEvent{}
	for rows.Next() {
		var (
			se        StoredEvent
			metaJSON  string
			delivered int
		)
		if err := rows.Scan(
			&se.Event.ID, &se.Event.Type, &se.Event.Content, &se.Event.Timestamp,
			&se.Event.OperationID, &se.Event.SessionID, &se.Event.UserID,
			&metaJSON, &delivered, &se.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &se.Event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for event %s: %w", se.Event.ID, err)
		}
		se.Delivered = delivered != 0
		out = append(out, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
