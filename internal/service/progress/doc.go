// Package progress implements the review scheduler: it records review
// attempts through the srs state machine, keeps per-topic rollups in step
// with word progress, and answers due-list, study-session and statistics
// queries for a learner.
package progress
