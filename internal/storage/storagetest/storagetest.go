// Package storagetest holds the behaviour every storage.Store implementation must share.
package storagetest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmynk/foyer/internal/storage"
)

// Factory opens a fresh, empty store. A positive quota limits its size in bytes.
type Factory func(t *testing.T, quota int64) storage.Store

// Run exercises a storage.Store implementation.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()

	t.Run("Get returns the fallback for a missing key", func(t *testing.T) {
		store := open(t, 0)
		got, err := store.Get(ctx, "account", "{}")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "{}" {
			t.Errorf("Get = %q, want %q", got, "{}")
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		store := open(t, 0)
		if err := store.Set(ctx, "users", `[{"id":"1"}]`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set(ctx, "users", `[]`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := store.Get(ctx, "users", "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "[]" {
			t.Errorf("Get = %q, want the last written value", got)
		}
	})

	t.Run("empty value is not missing", func(t *testing.T) {
		store := open(t, 0)
		if err := store.Set(ctx, "note", ""); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := store.Get(ctx, "note", "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "" {
			t.Errorf("Get = %q, want empty", got)
		}
	})

	t.Run("Keys are sorted", func(t *testing.T) {
		store := open(t, 0)
		for _, key := range []string{"users", "account", "settings"} {
			if err := store.Set(ctx, key, "x"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
		}
		keys, err := store.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if strings.Join(keys, ",") != "account,settings,users" {
			t.Errorf("Keys = %v, want sorted keys", keys)
		}
	})

	t.Run("quota", func(t *testing.T) {
		store := open(t, 32)
		// "account" + 20 bytes = 27
		if err := store.Set(ctx, "account", strings.Repeat("a", 20)); err != nil {
			t.Fatalf("Set within quota failed: %v", err)
		}
		err := store.Set(ctx, "users", strings.Repeat("u", 20))
		if !errors.Is(err, storage.ErrQuotaExceeded) {
			t.Fatalf("Set over quota error = %v, want %v", err, storage.ErrQuotaExceeded)
		}
		got, err := store.Get(ctx, "users", "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "missing" {
			t.Errorf("a rejected write should not be stored, got %q", got)
		}
		// replacing a value only counts the new size
		if err := store.Set(ctx, "account", strings.Repeat("b", 25)); err != nil {
			t.Errorf("Set replacing a value within quota failed: %v", err)
		}
	})
}
