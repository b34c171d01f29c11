package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/jobmesh/history"
)

// DBPool is the subset of pgxpool.Pool the sink uses. The seam allows
// tests to substitute a pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Options configures the Postgres sink.
type Options struct {
	TableName string // Default "chat_history"
}

// Sink persists transcript records in PostgreSQL. Records are listed back
// in insertion order via the serial primary key, which stays stable even
// when messages of one step share a timestamp.
type Sink struct {
	pool      DBPool
	tableName string
}

var _ history.Sink = (*Sink)(nil)

// New connects a pool and creates a Sink. The schema is not touched; call
// InitSchema once during deployment or startup.
func New(ctx context.Context, connString string, optFns ...func(o *Options)) (*Sink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	return NewFromPool(pool, optFns...), nil
}

// NewFromPool creates a Sink on an existing pool. Useful for sharing a
// pool across components and for testing with mocks.
func NewFromPool(pool DBPool, optFns ...func(o *Options)) *Sink {
	opts := Options{
		TableName: "chat_history",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Sink{
		pool:      pool,
		tableName: opts.TableName,
	}
}

// InitSchema creates the history table and its session index if they do
// not exist.
func (s *Sink) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			agent TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the underlying pool.
func (s *Sink) Close() {
	s.pool.Close()
}

// Append implements the history.Sink interface.
func (s *Sink) Append(ctx context.Context, rec history.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, agent, role, content, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query,
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
		WHERE session_id = $1
		ORDER BY id ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, sessionID)
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
