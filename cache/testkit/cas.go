// Package testkit holds the conformance suite every cache backend must
// pass.
package testkit

import (
	"bytes"
	"testing"

	"scene2d.dev/catalyst/cache"
	"scene2d.dev/catalyst/cidutil"
)

// NewCAS constructs a fresh, empty cache backend for a test. The
// returned backend MUST be isolated from other tests.
type NewCAS func(t *testing.T) cache.CAS

func RunConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("cached scene asset bytes")

		id, err := cas.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.IdentifyCID(want)
		if err != nil {
			t.Fatalf("IdentifyCID failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		id, err := cidutil.IdentifyCID([]byte("never stored"))
		if err != nil {
			t.Fatalf("IdentifyCID failed: %v", err)
		}

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(id); !cache.IsNotFound(err) {
			t.Fatalf("Get of missing CID: got %v want ErrNotFound", err)
		}
	})
}
