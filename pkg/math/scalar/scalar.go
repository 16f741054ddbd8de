// Package scalar implements arithmetic modulo the order n of the secp256k1 group.
//
// A Scalar is four 64 bit limbs, least significant first. Every value returned by
// this package is fully reduced, so that encodings are canonical.
package scalar

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
)

// Limbs of the group order n.
const (
	N0 = 0xBFD25E8CD0364141
	N1 = 0xBAAEDCE6AF48A03B
	N2 = 0xFFFFFFFFFFFFFFFE
	N3 = 0xFFFFFFFFFFFFFFFF
)

// Limbs of 2²⁵⁶ - n.
const (
	NC0 = ^uint64(N0) + 1
	NC1 = ^uint64(N1)
	NC2 = 1
)

// Limbs of ⌊n/2⌋.
const (
	NH0 = 0xDFE92F46681B20A0
	NH1 = 0x5D576E7357A4501D
	NH2 = 0xFFFFFFFFFFFFFFFF
	NH3 = 0x7FFFFFFFFFFFFFFF
)

// Scalar is an integer modulo n, as four little endian 64 bit limbs.
type Scalar [4]uint64

var (
	Zero = Scalar{}
	One  = Scalar{1, 0, 0, 0}
	// NegOne is n - 1.
	NegOne = Scalar{N0 - 1, N1, N2, N3}
)

// ErrZero is returned when a non-zero scalar was expected.
var ErrZero = errors.New("scalar: zero")

// SetUint64 sets s = v and returns s.
func (s *Scalar) SetUint64(v uint64) *Scalar {
	*s = Scalar{v, 0, 0, 0}
	return s
}

// CheckOverflow returns true iff a ≥ n.
//
// The limbs are compared from the most significant one, accumulating the
// result in two flags rather than returning early.
func CheckOverflow(a *Scalar) bool {
	var yes, no uint64
	no |= lt(a[3], N3)
	no |= lt(a[2], N2)
	yes |= gt(a[2], N2) &^ no
	no |= lt(a[1], N1)
	yes |= gt(a[1], N1) &^ no
	yes |= ge(a[0], N0) &^ no
	return yes != 0
}

// lt returns 1 if a < b, 0 otherwise.
func lt(a, b uint64) uint64 {
	_, borrow := bits.Sub64(a, b, 0)
	return borrow
}

func gt(a, b uint64) uint64 { return lt(b, a) }

func ge(a, b uint64) uint64 { return 1 ^ lt(a, b) }

// reduce adds overflow⋅(2²⁵⁶ - n), dropping the carry out of the top limb.
//
// overflow must be 0 or 1.
func (s *Scalar) reduce(overflow uint64) {
	var c uint64
	s[0], c = bits.Add64(s[0], overflow*NC0, 0)
	s[1], c = bits.Add64(s[1], overflow*NC1, c)
	s[2], c = bits.Add64(s[2], overflow*NC2, c)
	s[3], _ = bits.Add64(s[3], 0, c)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Add returns a + b mod n, and whether a reduction was necessary.
func Add(a, b *Scalar) (Scalar, bool) {
	var r Scalar
	var c uint64
	r[0], c = bits.Add64(a[0], b[0], 0)
	r[1], c = bits.Add64(a[1], b[1], c)
	r[2], c = bits.Add64(a[2], b[2], c)
	r[3], c = bits.Add64(a[3], b[3], c)
	overflow := c != 0 || CheckOverflow(&r)
	r.reduce(boolToUint64(overflow))
	return r, overflow
}

// AddAssign sets s = s + a, and returns whether a reduction was necessary.
func (s *Scalar) AddAssign(a *Scalar) bool {
	r, overflow := Add(s, a)
	*s = r
	return overflow
}

// Double sets s = 2s, and returns whether a reduction was necessary.
func (s *Scalar) Double() bool {
	var c uint64
	s[0], c = bits.Add64(s[0], s[0], 0)
	s[1], c = bits.Add64(s[1], s[1], c)
	s[2], c = bits.Add64(s[2], s[2], c)
	s[3], c = bits.Add64(s[3], s[3], c)
	overflow := c != 0 || CheckOverflow(s)
	s.reduce(boolToUint64(overflow))
	return overflow
}

// Neg returns n - a, or 0 if a = 0.
func Neg(a *Scalar) Scalar {
	// mask is all ones unless a = 0
	mask := -boolToUint64(!a.IsZero())
	var r Scalar
	var c uint64
	r[0], c = bits.Add64(^a[0], N0+1, 0)
	r[1], c = bits.Add64(^a[1], N1, c)
	r[2], c = bits.Add64(^a[2], N2, c)
	r[3], _ = bits.Add64(^a[3], N3, c)
	r[0] &= mask
	r[1] &= mask
	r[2] &= mask
	r[3] &= mask
	return r
}

// Negate sets s = -s and returns s.
func (s *Scalar) Negate() *Scalar {
	*s = Neg(s)
	return s
}

// Sub returns a - b mod n.
func Sub(a, b *Scalar) Scalar {
	nb := Neg(b)
	r, _ := Add(a, &nb)
	return r
}

// IsZero returns true iff s = 0.
func (s *Scalar) IsZero() bool {
	return s[0]|s[1]|s[2]|s[3] == 0
}

// Equal compares both scalars in constant time.
func (s *Scalar) Equal(t *Scalar) bool {
	diff := (s[0] ^ t[0]) | (s[1] ^ t[1]) | (s[2] ^ t[2]) | (s[3] ^ t[3])
	folded := uint32(diff) | uint32(diff>>32)
	return subtle.ConstantTimeEq(int32(folded), 0) == 1
}

// IsHigh returns true iff s > n/2.
func (s *Scalar) IsHigh() bool {
	var yes, no uint64
	no |= lt(s[3], NH3)
	yes |= gt(s[3], NH3) &^ no
	no |= lt(s[2], NH2) &^ yes
	no |= lt(s[1], NH1) &^ yes
	yes |= gt(s[1], NH1) &^ no
	yes |= gt(s[0], NH0) &^ no
	return yes != 0
}

// Bytes returns the 32 byte big endian encoding of s.
func (s *Scalar) Bytes() [params.ScalarBytes]byte {
	var out [params.ScalarBytes]byte
	s.PutBytes(out[:])
	return out
}

// PutBytes writes the big endian encoding of s into the first 32 bytes of b.
func (s *Scalar) PutBytes(b []byte) {
	binary.BigEndian.PutUint64(b[0:8], s[3])
	binary.BigEndian.PutUint64(b[8:16], s[2])
	binary.BigEndian.PutUint64(b[16:24], s[1])
	binary.BigEndian.PutUint64(b[24:32], s[0])
}

// SetBytes interprets b as a big endian integer, reducing it modulo n.
//
// The returned flag reports whether the input was out of range.
func (s *Scalar) SetBytes(b *[params.ScalarBytes]byte) bool {
	s[3] = binary.BigEndian.Uint64(b[0:8])
	s[2] = binary.BigEndian.Uint64(b[8:16])
	s[1] = binary.BigEndian.Uint64(b[16:24])
	s[0] = binary.BigEndian.Uint64(b[24:32])
	overflow := CheckOverflow(s)
	s.reduce(boolToUint64(overflow))
	return overflow
}

// SetByteSlice is like SetBytes, but accepts shorter inputs, which are left padded with zeros.
// Inputs longer than 32 bytes are truncated to their first 32 bytes.
func (s *Scalar) SetByteSlice(b []byte) bool {
	var exact [params.ScalarBytes]byte
	if len(b) > params.ScalarBytes {
		b = b[:params.ScalarBytes]
	}
	copy(exact[params.ScalarBytes-len(b):], b)
	return s.SetBytes(&exact)
}

// FromBytes returns the reduction of the big endian integer b.
func FromBytes(b *[params.ScalarBytes]byte) Scalar {
	var s Scalar
	s.SetBytes(b)
	return s
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	b := s.Bytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
//
// Unlike SetBytes, non canonical encodings are rejected.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != params.ScalarBytes {
		return fmt.Errorf("scalar: invalid length %d", len(data))
	}
	var exact [params.ScalarBytes]byte
	copy(exact[:], data)
	if s.SetBytes(&exact) {
		return errors.New("scalar: encoding is not reduced")
	}
	return nil
}

// String returns the hex encoding of s.
func (s Scalar) String() string {
	return fmt.Sprintf("%016x%016x%016x%016x", s[3], s[2], s[1], s[0])
}

// Random samples a uniform scalar in [1, n) from r.
func Random(r io.Reader) (Scalar, error) {
	var buf [params.ScalarBytes]byte
	var s Scalar
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Zero, fmt.Errorf("scalar: sample: %w", err)
		}
		if !s.SetBytes(&buf) && !s.IsZero() {
			return s, nil
		}
	}
}

// NonConstantTimeShift sets s = 2⁸ᵇʸᵗᵉˢ⋅s by repeated doubling.
//
// The running time depends on byteCount, which must therefore be public.
// byteCount must be at most 31.
func (s *Scalar) NonConstantTimeShift(byteCount uint8) *Scalar {
	if byteCount >= params.ScalarBytes {
		panic(fmt.Sprintf("scalar: shift by %d bytes", byteCount))
	}
	for i := 0; i < 8*int(byteCount); i++ {
		s.Double()
	}
	return s
}

// MulBy256 returns the table [0⋅s, 1⋅s, …, 255⋅s].
func MulBy256(s *Scalar) [params.OTChoices]Scalar {
	var table [params.OTChoices]Scalar
	for i := 1; i < params.OTChoices; i++ {
		table[i], _ = Add(&table[i-1], s)
	}
	return table
}

// AddToTable adds c to every entry of table.
func AddToTable(table *[params.OTChoices]Scalar, c *Scalar) {
	for i := range table {
		table[i].AddAssign(c)
	}
}
