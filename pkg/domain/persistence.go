package domain

import (
	"context"
	"fmt"
)

// KVStore is the minimal durable key-value contract the save store writes
// through. Values are opaque byte documents.
type KVStore interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put overwrites key. Backends configured with a quota reject values
	// larger than the quota with an error wrapping ErrQuotaExceeded.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// CheckQuota returns an error wrapping ErrQuotaExceeded when size exceeds a
// positive quota. A quota of zero or less disables the check.
func CheckQuota(key string, size, quota int) error {
	if quota <= 0 || size <= quota {
		return nil
	}
	return fmt.Errorf("%s is %d bytes, limit %d: %w", key, size, quota, ErrQuotaExceeded)
}
