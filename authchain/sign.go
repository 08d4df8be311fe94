package authchain

import (
	"strconv"

	"golang.org/x/crypto/sha3"
)

const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// PersonalSignHash returns the Keccak256 digest a personal-sign wallet
// signature covers: the message prefixed with the standard marker and
// the message's byte length.
//
// The signature itself is produced upstream by the wallet holding the
// secp256k1 key; this core only needs the digest for payload
// construction and for handing to external signers.
func PersonalSignHash(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(personalSignPrefix))
	_, _ = h.Write([]byte(strconv.Itoa(len(message))))
	_, _ = h.Write(message)
	return h.Sum(nil)
}
