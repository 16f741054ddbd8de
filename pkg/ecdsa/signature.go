// Package ecdsa holds the signatures produced by a two-party signing run.
package ecdsa

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decred "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
)

// SignatureBytes is the size of the compact (r ‖ s) encoding.
const SignatureBytes = 2 * params.ScalarBytes

var ErrInvalidSignature = errors.New("ecdsa: invalid signature encoding")

// Signature is an ECDSA signature (r, s) over secp256k1.
type Signature struct {
	R scalar.Scalar
	S scalar.Scalar
}

// Normalize replaces s by n - s when s > n/2, so that the signature is in low-s form.
func (sig *Signature) Normalize() *Signature {
	if sig.S.IsHigh() {
		sig.S.Negate()
	}
	return sig
}

// IsNormalized returns true if s ≤ n/2.
func (sig *Signature) IsNormalized() bool {
	return !sig.S.IsHigh()
}

func toModN(s *scalar.Scalar) *secp256k1.ModNScalar {
	var out secp256k1.ModNScalar
	b := s.Bytes()
	out.SetBytes(&b)
	return &out
}

func (sig *Signature) decred() *decred.Signature {
	return decred.NewSignature(toModN(&sig.R), toModN(&sig.S))
}

// Verify checks the signature for the message digest m under public key X.
func (sig *Signature) Verify(X *curve.Point, m *scalar.Scalar) bool {
	if sig.R.IsZero() || sig.S.IsZero() {
		return false
	}
	pub, err := X.PublicKey()
	if err != nil {
		return false
	}
	hash := m.Bytes()
	return sig.decred().Verify(hash[:], pub)
}

// MarshalBinary returns the compact encoding r ‖ s.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	out := make([]byte, SignatureBytes)
	sig.R.PutBytes(out[:params.ScalarBytes])
	sig.S.PutBytes(out[params.ScalarBytes:])
	return out, nil
}

// UnmarshalBinary decodes the compact encoding r ‖ s, rejecting unreduced or zero values.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if len(data) != SignatureBytes {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(data))
	}
	if err := sig.R.UnmarshalBinary(data[:params.ScalarBytes]); err != nil {
		return fmt.Errorf("%w: r: %v", ErrInvalidSignature, err)
	}
	if err := sig.S.UnmarshalBinary(data[params.ScalarBytes:]); err != nil {
		return fmt.Errorf("%w: s: %v", ErrInvalidSignature, err)
	}
	if sig.R.IsZero() || sig.S.IsZero() {
		return fmt.Errorf("%w: zero component", ErrInvalidSignature)
	}
	return nil
}

// DER returns the ASN.1 DER encoding used by Bitcoin, which always has low s.
func (sig *Signature) DER() []byte {
	return sig.decred().Serialize()
}

// ParseDER decodes a DER encoded signature.
func ParseDER(data []byte) (*Signature, error) {
	parsed, err := decred.ParseDERSignature(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var sig Signature
	r, s := parsed.R(), parsed.S()
	rb, sb := r.Bytes(), s.Bytes()
	sig.R.SetBytes(&rb)
	sig.S.SetBytes(&sb)
	return &sig, nil
}
