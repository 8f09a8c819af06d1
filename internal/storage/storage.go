// Package storage provides durable local key/value storage used for the
// pending-scan snapshot and the stored auth token.
package storage

import "context"

// Storage is a small durable key/value store.
//
// Get returns (nil, nil) when the key is absent so callers can distinguish
// "no value" from storage failures without a sentinel.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
