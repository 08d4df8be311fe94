package cache

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// Multi layers several caches with deterministic, ordered fallback.
//
// Reads try each tier in slice order; the usual arrangement is a warm
// local directory first and a shared remote cache behind it. Writes go
// to the first tier only.
type Multi struct {
	Tiers []CAS
}

var _ CAS = Multi{}

func (m Multi) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Tiers) == 0 {
		return cid.Undef, errors.New("cache: Multi has no tiers")
	}
	return m.Tiers[0].Put(bytes)
}

func (m Multi) Get(id cid.Cid) ([]byte, error) {
	for _, tier := range m.Tiers {
		b, err := tier.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m Multi) Has(id cid.Cid) bool {
	for _, tier := range m.Tiers {
		if tier.Has(id) {
			return true
		}
	}
	return false
}
