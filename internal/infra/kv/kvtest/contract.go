// Package kvtest holds the behavioural contract every kv backend must meet.
package kvtest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tycooncore/pkg/domain"
)

// RunContract exercises store against the domain.KVStore contract. When quota
// is positive the store must have been opened with that quota.
func RunContract(t *testing.T, store domain.KVStore, quota int) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "save", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "save", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := store.Get(ctx, "save")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	for _, k := range []string{"backup_2", "backup_1", "other"} {
		if err := store.Put(ctx, k, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	keys, err := store.Keys(ctx, "backup_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if strings.Join(keys, ",") != "backup_1,backup_2" {
		t.Fatalf("unexpected prefix listing %v", keys)
	}
	all, err := store.Keys(ctx, "")
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4 keys, got %v (err=%v)", all, err)
	}

	if err := store.Delete(ctx, "save"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "save"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "save"); ok {
		t.Fatalf("expected key removed")
	}

	if quota > 0 {
		err := store.Put(ctx, "big", make([]byte, quota+1))
		if !errors.Is(err, domain.ErrQuotaExceeded) {
			t.Fatalf("expected quota error, got %v", err)
		}
		if _, ok, _ := store.Get(ctx, "big"); ok {
			t.Fatalf("oversized value must not be stored")
		}
		if err := store.Put(ctx, "fits", make([]byte, quota)); err != nil {
			t.Fatalf("value at quota should fit: %v", err)
		}
	}
}
