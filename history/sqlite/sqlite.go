package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/jobmesh/history"
)

// Options configures the SQLite sink.
type Options struct {
	TableName string // Default "chat_history"
}

// Sink persists transcript records in a SQLite database. Records are
// listed back in insertion order via the autoincrement primary key.
type Sink struct {
	db        *sql.DB
	tableName string
}

var _ history.Sink = (*Sink)(nil)

// New opens (or creates) the database at path and initializes the schema.
func New(path string, optFns ...func(o *Options)) (*Sink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	sink := NewFromDB(db, optFns...)

	if err := sink.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return sink, nil
}

// NewFromDB creates a Sink on an existing database handle. The schema is
// not touched.
func NewFromDB(db *sql.DB, optFns ...func(o *Options)) *Sink {
	opts := Options{
		TableName: "chat_history",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Sink{
		db:        db,
		tableName: opts.TableName,
	}
}

// InitSchema creates the history table and its session index if they do
// not exist.
func (s *Sink) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			agent TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Append implements the history.Sink interface.
func (s *Sink) Append(ctx context.Context, rec history.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, agent, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		rec.SessionID,
		rec.Agent,
		rec.Role,
		rec.Content,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	return nil
}

// List implements the history.Sink interface.
func (s *Sink) List(ctx context.Context, sessionID string) ([]history.Record, error) {
	query := fmt.Sprintf(`
		SELECT session_id, agent, role, content, timestamp
		FROM %s
		WHERE session_id = ?
		ORDER BY id ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []history.Record

	for rows.Next() {
		var rec history.Record

		if err := rows.Scan(
			&rec.SessionID,
			&rec.Agent,
			&rec.Role,
			&rec.Content,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	return records, nil
}
