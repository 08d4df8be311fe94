package cache

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"scene2d.dev/catalyst/cidutil"
)

// Dir is a filesystem-backed content cache.
//
// Objects are stored read-only under a two-level fanout keyed by their
// CID text. Writes are create-only: an existing object is never
// overwritten, and a corrupted object surfaces as ErrImmutable rather
// than being silently repaired.
type Dir struct {
	root string
}

// NewDir opens (creating if needed) a cache rooted at root.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("cache: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.IdentifyCID(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalidCID
	}

	path := d.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := d.Get(id)
			if rerr != nil {
				return cid.Undef, ErrImmutable
			}
			if string(existing) != string(bytes) {
				return cid.Undef, ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(bytes); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

func (d *Dir) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	b, err := os.ReadFile(d.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	got, err := cidutil.IdentifyCID(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, ErrCIDMismatch
	}
	return b, nil
}

func (d *Dir) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(d.pathFor(id))
	return err == nil
}

func (d *Dir) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(d.root, s)
	}
	return filepath.Join(d.root, s[:2], s)
}
