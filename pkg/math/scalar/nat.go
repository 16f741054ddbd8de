package scalar

import (
	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
)

var order = saferith.ModulusFromBytes([]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
	0xBA, 0xAE, 0xDC, 0xE6, 0xAF, 0x48, 0xA0, 0x3B,
	0xBF, 0xD2, 0x5E, 0x8C, 0xD0, 0x36, 0x41, 0x41,
})

// Order returns the group order n as a saferith.Modulus.
func Order() *saferith.Modulus {
	return order
}

// Nat returns s as a saferith.Nat.
func (s *Scalar) Nat() *saferith.Nat {
	b := s.Bytes()
	return new(saferith.Nat).SetBytes(b[:])
}

// SetNat sets s = x mod n and returns s.
func (s *Scalar) SetNat(x *saferith.Nat) *Scalar {
	reduced := new(saferith.Nat).Mod(x, order)
	var b [params.ScalarBytes]byte
	reduced.FillBytes(b[:])
	s.SetBytes(&b)
	return s
}
