// Package authchain models the ordered proof-of-authorship chain
// attached to every deployment.
//
// Links arrive pre-signed from the wallet layer upstream; this package
// only carries, iterates and serializes them. Link kinds differ in how
// their payload and signature are produced, but every kind projects onto
// the same two data fields on the wire, so the server-side contract never
// depends on the variant.
package authchain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the closed set of auth link kinds.
type Kind string

const (
	KindSigner                    Kind = "SIGNER"
	KindEcdsaPersonalEphemeral    Kind = "ECDSA_EPHEMERAL"
	KindEcdsaPersonalSignedEntity Kind = "ECDSA_SIGNED_ENTITY"
	KindEcdsaEip1654Ephemeral     Kind = "ECDSA_EIP_1654_EPHEMERAL"
	KindEcdsaEip1654SignedEntity  Kind = "ECDSA_EIP_1654_SIGNED_ENTITY"
)

// Valid reports whether k is a known link kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSigner, KindEcdsaPersonalEphemeral, KindEcdsaPersonalSignedEntity,
		KindEcdsaEip1654Ephemeral, KindEcdsaEip1654SignedEntity:
		return true
	}
	return false
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v := Kind(s)
	if !v.Valid() {
		return fmt.Errorf("authchain: unknown link kind %q", s)
	}
	*k = v
	return nil
}

// Link is one element of an auth chain. Payload and Signature semantics
// depend on Type, but both are always textual.
type Link struct {
	Type      Kind   `json:"type"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// Chain is an ordered, non-empty sequence of links. Order matters: the
// link index is part of the wire encoding and of any verification replay.
type Chain []Link

// ErrMissingAuthentication is returned when a deployment carries an
// empty auth chain.
var ErrMissingAuthentication = errors.New("authchain: empty auth chain")

// Field is one (name, value) pair of the chain's transport encoding.
type Field struct {
	Name  string
	Value string
}

// FormFields projects the chain into transport-envelope fields. Each
// link at index i contributes authChain[i][type], authChain[i][payload]
// and authChain[i][signature], in that order.
func FormFields(chain Chain) ([]Field, error) {
	if len(chain) == 0 {
		return nil, ErrMissingAuthentication
	}
	fields := make([]Field, 0, 3*len(chain))
	for i, link := range chain {
		fields = append(fields,
			Field{Name: fmt.Sprintf("authChain[%d][type]", i), Value: string(link.Type)},
			Field{Name: fmt.Sprintf("authChain[%d][payload]", i), Value: link.Payload},
			Field{Name: fmt.Sprintf("authChain[%d][signature]", i), Value: link.Signature},
		)
	}
	return fields, nil
}

// SimpleChain builds the common two-link chain: the signing address as a
// SIGNER root, followed by a personal-sign signature over the entity id.
func SimpleChain(signer string, entityID string, signature string) Chain {
	return Chain{
		{Type: KindSigner, Payload: signer, Signature: ""},
		{Type: KindEcdsaPersonalSignedEntity, Payload: entityID, Signature: signature},
	}
}
