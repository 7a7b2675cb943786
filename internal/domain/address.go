package domain

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address identifies an account: the base58 encoding of a 32-byte key.
// Holder addresses are ed25519 public keys and must decode to a point on
// the curve. Escrow accounts derived by the service are deliberately
// off-curve so no private key can exist for them.
type Address string

// Zero is the empty address.
const Zero Address = ""

// Decode returns the raw 32 bytes of the address.
func (a Address) Decode() ([]byte, error) {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return nil, fmt.Errorf("%w: address %q: %v", ErrInvalidInput, a, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: address %q: expected 32 bytes, got %d", ErrInvalidInput, a, len(raw))
	}
	return raw, nil
}

// Validate checks that the address is well-formed: base58, 32 bytes.
func (a Address) Validate() error {
	_, err := a.Decode()
	return err
}

// IsOnCurve reports whether the address decodes to a valid ed25519 point,
// i.e. whether a private key could exist for it.
func (a Address) IsOnCurve() bool {
	raw, err := a.Decode()
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}

// String returns the base58 form.
func (a Address) String() string {
	return string(a)
}

// DeriveEscrow derives a deterministic escrow address from a namespace and
// an identifier. The derivation loops a bump byte until the resulting point
// is off-curve, so escrow accounts can never collide with holder keys.
func DeriveEscrow(namespace, id string) Address {
	for bump := byte(0); ; bump++ {
		h := sha256.Sum256([]byte(fmt.Sprintf("revora:%s:%s:%d", namespace, id, bump)))
		candidate := Address(base58.Encode(h[:]))
		if !candidate.IsOnCurve() {
			return candidate
		}
	}
}
