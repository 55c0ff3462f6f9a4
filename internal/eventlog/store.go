package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS event (
    transaction_id INTEGER NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('commit', 'hide', 'unhide', 'rewrite', 'ref-move')),
    timestamp REAL NOT NULL,
    ref1 TEXT,
    ref2 TEXT,
    ref3 TEXT,
    message TEXT
);

CREATE TABLE IF NOT EXISTS event_transaction (
    transaction_id INTEGER PRIMARY KEY AUTOINCREMENT,
    message TEXT
);
`

// Store is the durable event log. Events are only ever appended; the
// total order is the SQLite rowid.
type Store struct {
	db   *sql.DB
	path string
}

// DBPath returns the event database location for a repository's git
// directory.
func DBPath(gitDir string) string {
	return filepath.Join(gitDir, "branchless", "db.sqlite3")
}

func connString(path string) string {
	// WAL plus a busy timeout so concurrent hook invocations serialize
	// instead of failing with SQLITE_BUSY. _txlock=immediate acquires
	// the write lock at BEGIN.
	return "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)"
}

// OpenStore opens (creating if needed) the event database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", connString(path))
	if err != nil {
		return nil, fmt.Errorf("opening event database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing event database schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// MakeTransactionID opens a new event transaction and returns its id.
// All events produced by one hook invocation share the same id.
func (s *Store) MakeTransactionID(ctx context.Context, now time.Time, message string) (TransactionID, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO event_transaction (message)
		VALUES (?)
	`, message)
	if err != nil {
		return 0, fmt.Errorf("creating event transaction: %w", err)
	}
	txID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting event transaction id: %w", err)
	}
	return TransactionID(txID), nil
}

// AddEvents atomically appends the given events to the log.
func (s *Store) AddEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, event := range events {
			row := eventToRow(event)
			_, err := tx.ExecContext(ctx, `
				INSERT INTO event (transaction_id, type, timestamp, ref1, ref2, ref3, message)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, row.TxID, row.Type, row.Timestamp, row.Ref1, row.Ref2, row.Ref3, row.Message)
			if err != nil {
				return fmt.Errorf("appending %s event: %w", row.Type, err)
			}
		}
		return nil
	})
}

// Events returns every event in the log in rowid order.
func (s *Store) Events(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rowid, transaction_id, type, timestamp, ref1, ref2, ref3, message
		FROM event
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var row eventRow
		var ref1, ref2, ref3, message sql.NullString
		if err := rows.Scan(
			&row.RowID, &row.TxID, &row.Type, &row.Timestamp,
			&ref1, &ref2, &ref3, &message,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		if ref1.Valid {
			row.Ref1 = &ref1.String
		}
		if ref2.Valid {
			row.Ref2 = &ref2.String
		}
		if ref3.Valid {
			row.Ref3 = &ref3.String
		}
		if message.Valid {
			row.Message = &message.String
		}
		event, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// UnderlyingDB exposes the database connection so that sibling stores
// (the merge-base cache) can share the same file.
func (s *Store) UnderlyingDB() *sql.DB {
	return s.db
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
