// Package curve wraps the secp256k1 group of decred's implementation around
// the scalars of package scalar.
package curve

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
)

// ErrInvalidPoint is returned when decoding bytes which are not a compressed point on the curve.
var ErrInvalidPoint = errors.New("curve: invalid point encoding")

// ErrIdentity is returned when trying to encode the point at infinity.
var ErrIdentity = errors.New("curve: point at infinity")

// Point is an element of the secp256k1 group.
//
// The zero value is the identity.
type Point struct {
	value secp256k1.JacobianPoint
}

func toModN(s *scalar.Scalar) *secp256k1.ModNScalar {
	var out secp256k1.ModNScalar
	b := s.Bytes()
	out.SetBytes(&b)
	return &out
}

// Generator returns the base point G.
func Generator() *Point {
	return BaseMult(&scalar.One)
}

// BaseMult returns k⋅G.
func BaseMult(k *scalar.Scalar) *Point {
	out := new(Point)
	secp256k1.ScalarBaseMultNonConst(toModN(k), &out.value)
	return out
}

// Mul returns k⋅p.
func (p *Point) Mul(k *scalar.Scalar) *Point {
	out := new(Point)
	secp256k1.ScalarMultNonConst(toModN(k), &p.value, &out.value)
	return out
}

// Add returns p + q.
func (p *Point) Add(q *Point) *Point {
	out := new(Point)
	secp256k1.AddNonConst(&p.value, &q.value, &out.value)
	return out
}

// Negate returns -p.
func (p *Point) Negate() *Point {
	out := new(Point)
	out.value.Set(&p.value)
	out.value.ToAffine()
	out.value.Y.Negate(1).Normalize()
	return out
}

// IsIdentity returns true if p is the point at infinity.
func (p *Point) IsIdentity() bool {
	return (p.value.X.IsZero() && p.value.Y.IsZero()) || p.value.Z.IsZero()
}

// Bytes returns the 33 byte compressed encoding of p.
func (p *Point) Bytes() ([params.PointBytes]byte, error) {
	var out [params.PointBytes]byte
	if p.IsIdentity() {
		return out, ErrIdentity
	}
	var affine secp256k1.JacobianPoint
	affine.Set(&p.value)
	affine.ToAffine()
	// Doing it this way is compatible with Bitcoin
	out[0] = byte(affine.Y.IsOddBit()) + 2
	affine.X.PutBytesUnchecked(out[1:])
	return out, nil
}

// XBytes returns the big endian x coordinate of p, i.e. its encoding without the prefix.
func (p *Point) XBytes() ([params.ScalarBytes]byte, error) {
	var out [params.ScalarBytes]byte
	b, err := p.Bytes()
	if err != nil {
		return out, err
	}
	copy(out[:], b[1:])
	return out, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Point) MarshalBinary() ([]byte, error) {
	b, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
//
// Only compressed encodings of points on the curve are accepted.
func (p *Point) UnmarshalBinary(data []byte) error {
	if len(data) != params.PointBytes {
		return fmt.Errorf("%w: length %d", ErrInvalidPoint, len(data))
	}
	if data[0] != secp256k1.PubKeyFormatCompressedEven && data[0] != secp256k1.PubKeyFormatCompressedOdd {
		return fmt.Errorf("%w: prefix 0x%02x", ErrInvalidPoint, data[0])
	}
	var x, y secp256k1.FieldVal
	if x.SetByteSlice(data[1:]) {
		return fmt.Errorf("%w: x coordinate out of range", ErrInvalidPoint)
	}
	if !secp256k1.DecompressY(&x, data[0] == secp256k1.PubKeyFormatCompressedOdd, &y) {
		return fmt.Errorf("%w: x coordinate not on curve", ErrInvalidPoint)
	}
	p.value.X.Set(&x)
	p.value.Y.Set(&y)
	p.value.Z.SetInt(1)
	return nil
}

// Equal compares the encodings of p and q in constant time.
func (p *Point) Equal(q *Point) bool {
	pIdentity, qIdentity := p.IsIdentity(), q.IsIdentity()
	if pIdentity || qIdentity {
		return pIdentity == qIdentity
	}
	a, _ := p.Bytes()
	b, _ := q.Bytes()
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Compare orders points lexicographically by their encoding.
// The identity sorts before every other point.
func (p *Point) Compare(q *Point) int {
	a, _ := p.Bytes()
	b, _ := q.Bytes()
	return bytes.Compare(a[:], b[:])
}

// PublicKey returns p as a decred public key, for signature verification.
func (p *Point) PublicKey() (*secp256k1.PublicKey, error) {
	if p.IsIdentity() {
		return nil, ErrIdentity
	}
	var affine secp256k1.JacobianPoint
	affine.Set(&p.value)
	affine.ToAffine()
	return secp256k1.NewPublicKey(&affine.X, &affine.Y), nil
}

// FromPublicKey returns the point of a decred public key.
func FromPublicKey(pub *secp256k1.PublicKey) *Point {
	out := new(Point)
	pub.AsJacobian(&out.value)
	return out
}

// WriteTo implements io.WriterTo, writing the compressed encoding of p.
func (p *Point) WriteTo(w io.Writer) (int64, error) {
	b, err := p.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b[:])
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Point) Domain() string {
	return "secp256k1 Point"
}

// String returns the hex encoding of p.
func (p *Point) String() string {
	b, err := p.Bytes()
	if err != nil {
		return "identity"
	}
	return fmt.Sprintf("%x", b[:])
}
