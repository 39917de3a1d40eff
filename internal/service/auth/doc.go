// Package auth issues and validates the bearer tokens that identify a
// learner to the HTTP API. Account management lives outside this service;
// a token only has to carry the learner ID in its subject claim.
package auth
