// Package postgres provides PostgreSQL implementations of the word and
// progress stores defined in the internal/store package, together with the
// embedded schema migrations they run against.
//
// Stores work on a store.DBTX, so any *sql.DB opened with the pgx stdlib
// driver can back them.
package postgres
