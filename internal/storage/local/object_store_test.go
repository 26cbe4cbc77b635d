package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "leadforge-object-store-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := NewStore(dir, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewStore() returned error: %v", err)
	}
	return s
}

func TestStorePutAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	content := []byte("raw pdf bytes")

	if err := s.Put(ctx, "documents/job-1/doc.pdf", bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	r, err := s.Get(ctx, "documents/job-1/doc.pdf")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() returned error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("Get() = %q, want %q", got, content)
	}
}

func TestStoreGetMissingKeyReturnsError(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "does/not/exist.pdf"); err == nil {
		t.Fatal("Get() = nil error, want an error for a missing key")
	}
}

func TestStoreGetRangeReturnsRequestedSlice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	content := []byte("0123456789")
	if err := s.Put(ctx, "numbers.txt", bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	r, err := s.GetRange(ctx, "numbers.txt", 3, 4)
	if err != nil {
		t.Fatalf("GetRange() returned error: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() returned error: %v", err)
	}
	if string(got) != "3456" {
		t.Fatalf("GetRange() = %q, want %q", got, "3456")
	}
}

func TestStoreStatReturnsSizeAndModTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	content := []byte("hello world")
	if err := s.Put(ctx, "file.txt", bytes.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	meta, err := s.Stat(ctx, "file.txt")
	if err != nil {
		t.Fatalf("Stat() returned error: %v", err)
	}
	if meta.SizeBytes != int64(len(content)) {
		t.Fatalf("SizeBytes = %d, want %d", meta.SizeBytes, len(content))
	}
	if meta.ModifiedAt.IsZero() {
		t.Fatal("ModifiedAt is zero, want a real timestamp")
	}
}

func TestStoreDeleteRemovesObject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "file.txt", bytes.NewReader([]byte("x")), 1); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	if err := s.Delete(ctx, "file.txt"); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if _, err := s.Get(ctx, "file.txt"); err == nil {
		t.Fatal("Get() after Delete() = nil error, want an error")
	}
}

func TestStoreDeleteMissingKeyIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), "does/not/exist.txt"); err != nil {
		t.Fatalf("Delete() on a missing key returned error: %v, want nil", err)
	}
}

func TestStoreListReturnsKeysUnderPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "documents/job-1/a.pdf", bytes.NewReader([]byte("a")), 1); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	if err := s.Put(ctx, "documents/job-2/b.pdf", bytes.NewReader([]byte("b")), 1); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	keys, err := s.List(ctx, "documents/job-1")
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	found := false
	for _, k := range keys {
		if k == "documents/job-1/a.pdf" {
			found = true
		}
		if k == "documents/job-2/b.pdf" {
			t.Fatalf("List(%q) unexpectedly returned a key outside the prefix: %q", "documents/job-1", k)
		}
	}
	if !found {
		t.Fatalf("List() = %v, want it to contain documents/job-1/a.pdf", keys)
	}
}

func TestStorePresignGetIsUnsupported(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.PresignGet(context.Background(), "file.txt", 0); err == nil {
		t.Fatal("PresignGet() = nil error, want an error since the local backend has no presign path")
	}
}

func TestStorePathNeutralizesTraversalSegments(t *testing.T) {
	// A leading "/" is prepended before cleaning, so ".." segments cannot
	// walk above root; the key resolves to a path still contained in root
	// rather than escaping it.
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "../../etc/passwd", bytes.NewReader([]byte("x")), 1); err != nil {
		t.Fatalf("Put() with a traversal-like key returned error: %v, want it neutralized instead", err)
	}
	full, err := s.path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path() returned error: %v", err)
	}
	if !strings.HasPrefix(full, s.root) {
		t.Fatalf("path() = %q, want it to remain under root %q", full, s.root)
	}
}
