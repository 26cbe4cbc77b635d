package badger

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

func newTestKVStorage(t *testing.T) interfaces.KeyValueStorage {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "leadforge-kv-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewKVStorage(db, arbor.NewLogger())
}

func TestKVStorageSetAndGetIsCaseInsensitive(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "MaxRetries", "5", "tuning knob"); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	got, err := kv.Get(ctx, "maxretries")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got != "5" {
		t.Fatalf("Get() = %q, want %q", got, "5")
	}
}

func TestKVStorageGetMissingKeyReturnsErrKeyNotFound(t *testing.T) {
	kv := newTestKVStorage(t)
	if _, err := kv.Get(context.Background(), "missing"); err != interfaces.ErrKeyNotFound {
		t.Fatalf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestKVStorageSetPreservesCreatedAtOnUpdate(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "key1", "v1", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	first, err := kv.GetPair(ctx, "key1")
	if err != nil {
		t.Fatalf("GetPair() returned error: %v", err)
	}

	if err := kv.Set(ctx, "key1", "v2", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	second, err := kv.GetPair(ctx, "key1")
	if err != nil {
		t.Fatalf("GetPair() returned error: %v", err)
	}

	if second.Value != "v2" {
		t.Fatalf("Value = %q, want v2", second.Value)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("CreatedAt changed across update: %v != %v", second.CreatedAt, first.CreatedAt)
	}
}

func TestKVStorageUpsertReportsNewVsExisting(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()

	isNew, err := kv.Upsert(ctx, "key1", "v1", "")
	if err != nil {
		t.Fatalf("Upsert() returned error: %v", err)
	}
	if !isNew {
		t.Fatal("Upsert() isNew = false, want true for a brand new key")
	}

	isNew, err = kv.Upsert(ctx, "key1", "v2", "")
	if err != nil {
		t.Fatalf("Upsert() returned error: %v", err)
	}
	if isNew {
		t.Fatal("Upsert() isNew = true, want false for an existing key")
	}
}

func TestKVStorageDeleteRemovesKey(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "key1", "v1", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if err := kv.Delete(ctx, "KEY1"); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if _, err := kv.Get(ctx, "key1"); err != interfaces.ErrKeyNotFound {
		t.Fatalf("Get() after Delete() error = %v, want ErrKeyNotFound", err)
	}
}

func TestKVStorageDeleteMissingKeyReturnsErrKeyNotFound(t *testing.T) {
	kv := newTestKVStorage(t)
	if err := kv.Delete(context.Background(), "missing"); err != interfaces.ErrKeyNotFound {
		t.Fatalf("Delete() error = %v, want ErrKeyNotFound", err)
	}
}

func TestKVStorageListOrdersByUpdatedAtDescending(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "first", "1", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if err := kv.Set(ctx, "second", "2", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	pairs, err := kv.List(ctx)
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}
	if pairs[0].Key != "second" {
		t.Fatalf("pairs[0].Key = %q, want the most recently updated key %q", pairs[0].Key, "second")
	}
}

func TestKVStorageGetAllReturnsMap(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()
	if err := kv.Set(ctx, "a", "1", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if err := kv.Set(ctx, "b", "2", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() returned error: %v", err)
	}
	if all["a"] != "1" || all["b"] != "2" {
		t.Fatalf("GetAll() = %+v, want {a:1, b:2}", all)
	}
}

func TestKVStorageListByPrefixFiltersCaseInsensitively(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()
	if err := kv.Set(ctx, "scheduler.reaper.interval", "1m", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if err := kv.Set(ctx, "scheduler.learning.interval", "5m", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if err := kv.Set(ctx, "queue.pdf.retries", "3", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	pairs, err := kv.ListByPrefix(ctx, "Scheduler.")
	if err != nil {
		t.Fatalf("ListByPrefix() returned error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}
	for _, p := range pairs {
		if !strings.HasPrefix(p.Key, "scheduler.") {
			t.Fatalf("ListByPrefix() returned non-matching key %q", p.Key)
		}
	}
}

func TestKVStorageDeleteAllClearsStorage(t *testing.T) {
	kv := newTestKVStorage(t)
	ctx := context.Background()
	if err := kv.Set(ctx, "a", "1", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if err := kv.Set(ctx, "b", "2", ""); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}

	if err := kv.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() returned error: %v", err)
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() returned error: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("len(GetAll()) = %d, want 0 after DeleteAll()", len(all))
	}
}
