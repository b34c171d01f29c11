// Package postgres persists run transcripts in PostgreSQL via pgx. The
// sink depends on a narrow DBPool interface satisfied by *pgxpool.Pool,
// allowing tests to run against a pgxmock pool without a database.
package postgres
