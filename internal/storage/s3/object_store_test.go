package s3

import "testing"

// fullKey is the only pure, network-free logic in this backend; everything
// else requires a live (or mocked) S3 endpoint, which belongs in an
// integration suite rather than a package unit test.
func TestFullKeyWithPrefix(t *testing.T) {
	s := &Store{prefix: "leadforge"}
	got := s.fullKey("documents/job-1/doc.pdf")
	want := "leadforge/documents/job-1/doc.pdf"
	if got != want {
		t.Fatalf("fullKey() = %q, want %q", got, want)
	}
}

func TestFullKeyWithoutPrefix(t *testing.T) {
	s := &Store{}
	got := s.fullKey("documents/job-1/doc.pdf")
	want := "documents/job-1/doc.pdf"
	if got != want {
		t.Fatalf("fullKey() = %q, want %q", got, want)
	}
}

func TestFullKeyTrimsLeadingSlashFromKey(t *testing.T) {
	s := &Store{prefix: "leadforge"}
	got := s.fullKey("/documents/job-1/doc.pdf")
	want := "leadforge/documents/job-1/doc.pdf"
	if got != want {
		t.Fatalf("fullKey() = %q, want %q", got, want)
	}
}
