// Package memory provides an in-process implementation of the store
// interfaces. It keeps the same contracts as the PostgreSQL stores,
// including optimistic versioning, and is used by scenario tests and by
// the server when no database URL is configured.
package memory
