// Package redis provides a session.Store backed by Redis, for deployments
// where status queries must survive process restarts or be answered by more
// than one instance. Sessions are JSON values under a configurable key
// prefix with an optional TTL.
package redis
