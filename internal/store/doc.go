// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the progress engine, so the scheduling rules stay independent of
// specific database technologies. Implementations live under
// internal/platform (postgres for production, memory for tests and
// single-process runs).
package store
