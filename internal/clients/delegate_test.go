package clients

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/MKhiriev/weavesync/internal/prefs"
)

func TestNewDataDelegate_MintsStableIdentity(t *testing.T) {
	store, err := prefs.New(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("prefs.New error: %v", err)
	}

	d1, err := NewDataDelegate(store)
	if err != nil {
		t.Fatalf("NewDataDelegate error: %v", err)
	}
	if d1.LocalClientGUID() == "" {
		t.Fatalf("expected a minted guid")
	}
	if !strings.HasPrefix(d1.LocalClientName(), "weavesync on ") {
		t.Fatalf("unexpected client name %q", d1.LocalClientName())
	}

	// A second delegate over the same store must see the same identity.
	d2, err := NewDataDelegate(store)
	if err != nil {
		t.Fatalf("NewDataDelegate error: %v", err)
	}
	if d2.LocalClientGUID() != d1.LocalClientGUID() {
		t.Fatalf("guid not stable: %q vs %q", d1.LocalClientGUID(), d2.LocalClientGUID())
	}
	if d2.LocalClientName() != d1.LocalClientName() {
		t.Fatalf("name not stable: %q vs %q", d1.LocalClientName(), d2.LocalClientName())
	}
}

func TestDataDelegate_ClientCount(t *testing.T) {
	store, err := prefs.New("")
	if err != nil {
		t.Fatalf("prefs.New error: %v", err)
	}
	d, err := NewDataDelegate(store)
	if err != nil {
		t.Fatalf("NewDataDelegate error: %v", err)
	}

	if d.ClientCount() != 0 {
		t.Fatalf("fresh delegate count = %d, want 0", d.ClientCount())
	}
	d.SetClientCount(4)
	if d.ClientCount() != 4 {
		t.Fatalf("count = %d, want 4", d.ClientCount())
	}
}
