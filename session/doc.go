// Package session persists per-session run records: lifecycle status plus
// the latest workflow state snapshot. The engine writes a snapshot after
// every applied step, which makes the store the source of truth for status
// queries on running and finished sessions alike.
//
// The package defines the Store contract and ships a volatile in-memory
// implementation. Additional backends (Redis) live in sub-packages so that
// callers depend on the interface and only the wiring layer picks a concrete
// store.
package session
