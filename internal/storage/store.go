// Package storage provides the key/value persistence boundary of the household state.
package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by Set when the write would not fit in the space granted to the household.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store defines the key/value operations the state layer relies on.
// This abstraction allows swapping storage backends (SQLite, Redis, memory)
// without changing the state pipeline.
type Store interface {
	// Get returns the value stored under key, or missing when the key was never written.
	Get(ctx context.Context, key, missing string) (string, error)

	// Set stores value under key, replacing any previous value.
	// Returns ErrQuotaExceeded (possibly wrapped) when the backend is full.
	Set(ctx context.Context, key, value string) error

	// Keys lists the stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Usage is the number of bytes a key/value pair counts against a quota.
func Usage(key, value string) int64 {
	return int64(len(key) + len(value))
}
