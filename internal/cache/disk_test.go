package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T, capacity int64, level int) (*DiskCache, string) {
	t.Helper()
	dir := t.TempDir()
	dc, err := NewDiskCache(CacheConfig{Dir: dir, Capacity: capacity, CompressionLevel: level})
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	return dc, dir
}

func TestDiskCache_BasicOperations(t *testing.T) {
	dc, _ := newTestCache(t, 1024*1024, 3)
	defer dc.Close() //nolint:errcheck

	key := GenerateCacheKey("gtts", "", "en", "hello", 1.0)
	value := []byte("fake mp3 bytes")

	if err := dc.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := dc.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Retrieved value mismatch: got %q, want %q", got, value)
	}

	if !dc.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if dc.Size() != int64(len(value)) {
		t.Errorf("Size mismatch: got %d, want %d", dc.Size(), len(value))
	}

	if err := dc.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if dc.Contains(key) {
		t.Error("Key still exists after delete")
	}
	if dc.Size() != 0 {
		t.Errorf("Size not zero after delete: %d", dc.Size())
	}

	stats := dc.Stats()
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
}

func TestDiskCache_Compression(t *testing.T) {
	dc, _ := newTestCache(t, 1024*1024, 3)
	defer dc.Close() //nolint:errcheck

	// Highly repetitive data compresses well.
	value := bytes.Repeat([]byte("audio"), 4096)
	if err := dc.Put("k", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if dc.Size() >= int64(len(value)) {
		t.Errorf("expected compressed size below %d, got %d", len(value), dc.Size())
	}

	got, ok := dc.Get("k")
	if !ok || !bytes.Equal(got, value) {
		t.Error("compressed round trip failed")
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, _ := newTestCache(t, 100, 0)
	defer dc.Close() //nolint:errcheck

	for _, k := range []string{"a", "b", "c"} {
		if err := dc.Put(k, make([]byte, 40)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	if dc.Contains("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !dc.Contains("b") || !dc.Contains("c") {
		t.Error("newer entries should remain")
	}
	if dc.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", dc.Stats().Evictions)
	}

	if err := dc.Put("huge", make([]byte, 200)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("expected ErrItemTooLarge, got %v", err)
	}
}

func TestDiskCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := CacheConfig{Dir: dir, Capacity: 1024 * 1024, CompressionLevel: 3}

	dc, err := NewDiskCache(cfg)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	if err := dc.Put("persist", []byte("data")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := dc.Put("after-close", []byte("x")); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}

	reopened, err := NewDiskCache(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("persist")
	if !ok || string(got) != "data" {
		t.Errorf("expected persisted entry, got %q ok=%v", got, ok)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dc, dir := newTestCache(t, 1024, 0)
	defer dc.Close() //nolint:errcheck

	if err := dc.Put("gone", []byte("data")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "gone.cache")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if _, ok := dc.Get("gone"); ok {
		t.Error("expected miss for deleted file")
	}
	if dc.Contains("gone") {
		t.Error("entry should be dropped from the index")
	}
}

func TestGenerateCacheKey(t *testing.T) {
	base := GenerateCacheKey("gcloud", "en-US-Neural2-C", "en-US", "Hello", 1.0)

	if base != GenerateCacheKey("gcloud", "en-US-Neural2-C", "en-US", "  Hello\n", 1.0) {
		t.Error("surrounding whitespace should not change the key")
	}
	if base != GenerateCacheKey("gcloud", "en-US-Neural2-C", "en-US", "Hello", 0) {
		t.Error("rate 0 should mean 1.0")
	}
	if base == GenerateCacheKey("gcloud", "en-US-Neural2-C", "en-US", "Hello", 0.75) {
		t.Error("rate should change the key")
	}
	if base == GenerateCacheKey("gtts", "en-US-Neural2-C", "en-US", "Hello", 1.0) {
		t.Error("engine should change the key")
	}
	if len(base) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(base))
	}

	k := Key{Engine: "gcloud", Voice: "en-US-Neural2-C", Language: "en-US", Text: "Hello", Rate: 1.0}
	if k.String() != base {
		t.Error("Key.String should match GenerateCacheKey")
	}
	k.Variant = "tld=co.uk"
	if k.String() == base {
		t.Error("variant should change the key")
	}
}

func TestDiskCache_ClearPersists(t *testing.T) {
	dc, dir := newTestCache(t, 1024*1024, 3)
	for _, text := range []string{"one", "two", "three"} {
		if err := dc.Put(GenerateCacheKey("gtts", "", "en", text, 1.0), []byte("audio "+text)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if err := dc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if dc.Size() != 0 || dc.Stats().ItemCount != 0 {
		t.Errorf("cache not empty after Clear: size=%d items=%d", dc.Size(), dc.Stats().ItemCount)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(CacheConfig{Dir: dir, Capacity: 1024 * 1024, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close() //nolint:errcheck
	if reopened.Stats().ItemCount != 0 {
		t.Errorf("expected empty index after reopen, got %d items", reopened.Stats().ItemCount)
	}
}

func TestDiskCache_RemoveOlderThan(t *testing.T) {
	dc, _ := newTestCache(t, 1024*1024, 0)
	defer dc.Close() //nolint:errcheck

	key := GenerateCacheKey("piper", "", "", "Quarterly numbers.", 1.0)
	if err := dc.Put(key, []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if n := dc.RemoveOlderThan(time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("fresh entry should survive, removed %d", n)
	}
	if !dc.Contains(key) {
		t.Fatal("entry missing after no-op prune")
	}

	if n := dc.RemoveOlderThan(time.Now().Add(time.Minute)); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if dc.Contains(key) || dc.Size() != 0 {
		t.Error("entry should be gone after prune")
	}
}
