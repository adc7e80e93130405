// Package otp implements the admin elevation step: short-lived numeric codes held in a
// key-value store and delivered out of band.
package otp

import (
	"context"
	"errors"
	"time"
)

var ErrKeyNotFound = errors.New("otp: key not found")

// KVStore is the storage contract for pending codes. A zero ttl means the backend keeps
// the value until it is deleted or overwritten.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	// CompareAndSwap replaces key with next only while it still holds expected.
	CompareAndSwap(ctx context.Context, key string, expected, next []byte, ttl time.Duration) (bool, error)
}
