package hash

import (
	"fmt"
	"io"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/zeebo/blake3"
)

const DigestLengthBytes = params.SecBytes // 32

// Hash is the transcript hash both parties feed the public values of a run into.
//
// Internally, this is a wrapper around blake3, whose output can be extended if needed.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash, initialized with a domain separating this protocol.
func New() *Hash {
	hash := &Hash{h: blake3.New()}
	_ = hash.WriteAny(&BytesWithDomain{
		TheDomain: "twopc-ecdsa",
		Bytes:     nil,
	})
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// If a different length is required, use io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.ReadBytes: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Currently supported types:
//
//   - []byte
//   - *scalar.Scalar
//   - hash.WriterToWithDomain
//
// This function will apply its own domain separation for the first two types.
// The last type already suggests which domain to use, and this function respects it.
func (hash *Hash) WriteAny(data ...interface{}) error {
	var err error
	for _, d := range data {
		switch t := d.(type) {
		case []byte:
			err = writeWithDomain(hash.h, &BytesWithDomain{
				TheDomain: "[]byte",
				Bytes:     t,
			})
			if err != nil {
				return fmt.Errorf("hash.Hash: write []byte: %w", err)
			}
		case *scalar.Scalar:
			if t == nil {
				return fmt.Errorf("hash.Hash: write *scalar.Scalar: nil")
			}
			b := t.Bytes()
			err = writeWithDomain(hash.h, &BytesWithDomain{
				TheDomain: "Scalar",
				Bytes:     b[:],
			})
			if err != nil {
				return fmt.Errorf("hash.Hash: write *scalar.Scalar: %w", err)
			}
		case WriterToWithDomain:
			if err = writeWithDomain(hash.h, t); err != nil {
				return fmt.Errorf("hash.Hash: write io.WriterTo: %w", err)
			}
		default:
			return fmt.Errorf("hash.Hash: unsupported type %T", d)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}
