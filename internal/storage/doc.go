// Package storage implements the subscription registry.
//
// It owns the durable mapping of (chat, channel) pairs. Channels are
// implicit: a channel exists while at least one subscription row names it.
// Uniqueness of a (chat, channel) pair is enforced by the database
// constraint, not by a read-then-write check, so concurrent Subscribe
// calls for the same pair are serialized by SQLite itself.
package storage
