// Package domain contains the core business entities, value objects, and
// domain logic of the application: per-word review progress, per-topic
// rollups and the study session shapes built on top of them. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
