// Package mta converts multiplicative shares into additive ones using oblivious transfer.
//
// The sender holds α, the receiver β. For every byte βᵢ of β the receiver obtains,
// through one OT, the entry βᵢ of a table the sender built from α and a random mask φᵢ.
// Afterwards the sender holds -∑φᵢ⋅wᵢ and the receiver ∑(α⋅βᵢ + φᵢ)⋅wᵢ, where wᵢ is the
// positional weight of the byte, so that both shares sum to α⋅β.
package mta

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
)

// Ordering decides the order in which the bytes of β are transferred.
// Both parties must use the same one.
type Ordering uint8

const (
	// ScaleFree goes from the least significant byte, with the sender multiplying
	// α by 256 before each row, so the receiver simply sums its outputs.
	ScaleFree Ordering = iota
	// Legacy goes from the most significant byte, with the receiver shifting
	// each output into place.
	Legacy
)

func (o Ordering) String() string {
	switch o {
	case ScaleFree:
		return "scale-free"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Ordering(%d)", uint8(o))
	}
}

// ParseOrdering is the inverse of Ordering.String.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", "scale-free":
		return ScaleFree, nil
	case "legacy":
		return Legacy, nil
	default:
		return 0, fmt.Errorf("mta: unknown ordering %q", s)
	}
}

// Options are shared by both roles.
type Options struct {
	Ordering Ordering
	// Cipher defaults to ot.XOR.
	Cipher ot.Cipher
	// Rand defaults to crypto/rand. It is used concurrently, and must therefore be safe for that.
	Rand io.Reader
}

func (o *Options) cipher() ot.Cipher {
	if o == nil || o.Cipher == nil {
		return ot.XOR{}
	}
	return o.Cipher
}

func (o *Options) rand() io.Reader {
	if o == nil || o.Rand == nil {
		return rand.Reader
	}
	return o.Rand
}

func (o *Options) ordering() Ordering {
	if o == nil {
		return ScaleFree
	}
	return o.Ordering
}

// weight returns the byte shift applied to the k-th transferred digit.
func (o Ordering) weight(k int) uint8 {
	if o == Legacy {
		return uint8(params.MulDigits - 1 - k)
	}
	return uint8(k)
}

// digit returns the k-th transferred byte of beta's big endian encoding.
func (o Ordering) digit(beta *[params.ScalarBytes]byte, k int) byte {
	if o == Legacy {
		return beta[k]
	}
	return beta[params.ScalarBytes-1-k]
}

func toTable(row *[params.OTChoices]scalar.Scalar) *ot.Table {
	var table ot.Table
	for i := range row {
		row[i].PutBytes(table[i][:])
	}
	return &table
}
