// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels. Request-scoped loggers travel in a context.Context
// (WithLogger, FromContext) and pick up the request's correlation ID. Under CI
// the JSON output is enriched with CI metadata by CIHandler.
package logger
