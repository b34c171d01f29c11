// Package history persists run transcripts. The workflow executor appends
// one Record per message an agent step produced; readers list a session's
// records in insertion order.
//
// The Sink is an observer, not a participant: append failures are logged by
// the executor and never fail the run. Implementations live in this package
// (in-memory) and its subpackages (postgres, sqlite); depend on the Sink
// interface and select a backend at wiring time.
package history
