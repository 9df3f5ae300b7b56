package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dshills/eventbridge-go/bridge/event"
)

// MySQLArchive is a MySQL implementation of Archive.
//
// Designed for shared deployments where several assessment hosts archive
// into one database and a central reporting job reads across operations.
// For single-host runs prefer SQLiteArchive, which needs no server.
type MySQLArchive struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLArchive connects to MySQL using the given DSN and prepares the
// archive table.
//
// DSN format follows go-sql-driver/mysql:
//
//	user:password@tcp(host:3306)/dbname?parseTime=true
//
// The connection pool is sized for the bridge's single-writer access
// pattern plus a few concurrent readers.
func NewMySQLArchive(dsn string) (*MySQLArchive, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	a := &MySQLArchive{db: db}
	if err := a.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return a, nil
}

func (a *MySQLArchive) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS bridge_events (
		id VARCHAR(64) PRIMARY KEY,
		event_type VARCHAR(128) NOT NULL,
		content MEDIUMTEXT NOT NULL,
		event_ts BIGINT NOT NULL,
		operation_id VARCHAR(128) NOT NULL,
		session_id VARCHAR(128) NOT NULL DEFAULT '',
		user_id VARCHAR(128) NOT NULL DEFAULT '',
		metadata TEXT NOT NULL,
		delivered TINYINT NOT NULL,
		recorded_at BIGINT NOT NULL,
		seq BIGINT AUTO_INCREMENT UNIQUE,
		INDEX idx_bridge_events_operation (operation_id, recorded_at)
	) ENGINE=InnoDB`
	_, err := a.db.ExecContext(ctx, schema)
	return err
}

// RecordBatch archives the batch in a single transaction.
func (a *MySQLArchive) RecordBatch(ctx context.Context, events []event.Event, delivered bool) error {
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
func (a *MySQLArchive) ByOperation(ctx context.Context, operationID string) ([]StoredEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, event_type, content, event_ts, operation_id, session_id, user_id, metadata, delivered, recorded_at
		FROM bridge_events
		WHERE operation_id = ?
		ORDER BY recorded_at, seq`, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanStoredEvents(rows)
}

// Ping verifies the database connection is alive.
func (a *MySQLArchive) Ping(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.db.PingContext(ctx)
}

// Close closes the underlying database.
func (a *MySQLArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	return a.db.Close()
}
