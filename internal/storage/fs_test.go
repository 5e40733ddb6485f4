package storage

import (
	"io"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := s.Put("/lessons/L1/amanita.jpg", strings.NewReader("jpeg bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "lessons/L1/amanita.jpg" {
		t.Fatalf("key = %q", key)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "jpeg bytes" {
		t.Fatalf("content = %q", b)
	}
	if u := s.URL(key); u != "http://localhost:8080/assets/lessons/L1/amanita.jpg" {
		t.Fatalf("url = %q", u)
	}
	if _, err := s.Get("lessons/missing.jpg"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCleanKeyRejectsEscapes(t *testing.T) {
	for _, k := range []string{"", "/", "..", "../etc/passwd", "a/../../b", `..\win`} {
		if _, err := CleanKey(k); err != ErrBadKey {
			t.Errorf("CleanKey(%q) = %v, want ErrBadKey", k, err)
		}
	}
	if k, err := CleanKey("a/./b//c.png"); err != nil || k != "a/b/c.png" {
		t.Errorf("CleanKey normalised to %q, %v", k, err)
	}
}
