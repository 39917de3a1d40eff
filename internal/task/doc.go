// Package task runs background work on a bounded in-memory queue drained by
// a fixed pool of workers. The progress engine uses it to take topic
// rollup refreshes off the review path.
package task
