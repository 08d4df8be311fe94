// Package cache provides the deployer's local content-addressed cache.
//
// Downloaded content is immutable and keyed strictly by CID, so a cache
// hit never needs revalidation against the server. The client fills the
// cache on every raw content fetch and consults it before going to the
// network.
package cache

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// CAS is the content-addressable store a cache backend implements.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - Get MUST return bytes matching the requested CID or an error.
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

var (
	ErrNotFound    = errors.New("cache: not found")
	ErrInvalidCID  = errors.New("cache: invalid cid")
	ErrCIDMismatch = errors.New("cache: cid mismatch")
	ErrImmutable   = errors.New("cache: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
