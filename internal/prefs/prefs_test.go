package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_SetGetRoundTrip(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := s.SetString("sync.cluster_url", "https://cluster.example.org"); err != nil {
		t.Fatalf("SetString error: %v", err)
	}
	got, err := s.GetString("sync.cluster_url")
	if err != nil {
		t.Fatalf("GetString error: %v", err)
	}
	if got != "https://cluster.example.org" {
		t.Fatalf("GetString = %q", got)
	}

	if err := s.SetInt64("sync.timestamp.bookmarks", 1700000000000); err != nil {
		t.Fatalf("SetInt64 error: %v", err)
	}
	n, err := s.GetInt64("sync.timestamp.bookmarks")
	if err != nil {
		t.Fatalf("GetInt64 error: %v", err)
	}
	if n != 1700000000000 {
		t.Fatalf("GetInt64 = %d", n)
	}
}

func TestStore_MissingKey(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := s.GetString("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetString error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetInt64("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetInt64 error = %v, want ErrNotFound", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	s1, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := s1.SetString("clients.local_guid", "clientabcdef"); err != nil {
		t.Fatalf("SetString error: %v", err)
	}
	if err := s1.SetInt64("sync.clients.count", 3); err != nil {
		t.Fatalf("SetInt64 error: %v", err)
	}

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	guid, err := s2.GetString("clients.local_guid")
	if err != nil || guid != "clientabcdef" {
		t.Fatalf("guid after reopen = %q (err=%v)", guid, err)
	}
	count, err := s2.GetInt64("sync.clients.count")
	if err != nil || count != 3 {
		t.Fatalf("count after reopen = %d (err=%v)", count, err)
	}
}

func TestStore_DeleteRemovesKey(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := s.SetString("k", "v"); err != nil {
		t.Fatalf("SetString error: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.GetString("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetString after delete = %v, want ErrNotFound", err)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := s.SetString("secret", "value"); err != nil {
		t.Fatalf("SetString error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("preference file mode = %o, want 600", perm)
	}
}
