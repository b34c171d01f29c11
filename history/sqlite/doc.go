// Package sqlite persists run transcripts in a SQLite database via
// database/sql and the mattn/go-sqlite3 driver. Suited for single-node
// deployments that need transcripts to survive restarts without running a
// database server.
package sqlite
