// Package cidutil computes the content-addressed identifiers the
// content-server protocol keys everything by.
//
// The encoding is load-bearing: CIDv1 with the "raw" multicodec and a
// sha2-256 multihash, rendered in the default base32 text form. Both this
// module and the remote servers compare identifiers by exact string
// equality, so any change here breaks lookups against already-published
// content.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"scene2d.dev/catalyst/entity"
)

// Identify returns the ContentId for data. Deterministic and total over
// all byte inputs, including empty.
func Identify(data []byte) entity.ContentId {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length, this should be unreachable.
		return ""
	}
	return entity.ContentId(cid.NewCidV1(cid.Raw, sum).String())
}

// IdentifyCID returns the cid.Cid form of Identify(data), used where the
// binary CID is needed (cache keys).
func IdentifyCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Decode parses a textual ContentId into its binary CID form. Server
// content ids are CIDs as well, so this accepts any valid CID text,
// not only ids produced by Identify.
func Decode(id entity.ContentId) (cid.Cid, error) {
	return cid.Decode(string(id))
}
