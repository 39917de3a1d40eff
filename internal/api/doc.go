// Package api exposes the review scheduler over HTTP. It decodes and
// validates requests, resolves the authenticated learner, and translates
// scheduler errors into status codes without leaking internal details.
package api
