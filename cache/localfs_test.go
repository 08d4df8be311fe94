package cache

import (
	"os"
	"testing"

	"scene2d.dev/catalyst/cidutil"
)

func TestDir_RejectMutationByOverwrite(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}

	orig := []byte("original")
	id, err := d.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	path := d.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Get must detect the hash mismatch.
	if _, err := d.Get(id); err != ErrCIDMismatch {
		t.Fatalf("Get after corruption: got %v want %v", err, ErrCIDMismatch)
	}

	// Put must not "repair" or overwrite the corrupted object.
	if _, err := d.Put(orig); err != ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, ErrImmutable)
	}

	// Sanity: the CID is still the CID of the original bytes.
	wantID, err := cidutil.IdentifyCID(orig)
	if err != nil {
		t.Fatalf("IdentifyCID failed: %v", err)
	}
	if id != wantID {
		t.Fatalf("unexpected CID: got %s want %s", id, wantID)
	}
}
