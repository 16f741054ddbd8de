// Package ot implements a 1-out-of-256 oblivious transfer over a stream.
//
// The sender holds 256 messages of 32 bytes, the receiver a choice byte c.
// Three messages are exchanged:
//
//	sender   → receiver: S = y⋅G
//	receiver → sender:   R = c⋅T + x⋅G, where T = Oracle(S)
//	sender   → receiver: Enc(Kᵢ, mᵢ) for i = 0, …, 255
//
// with Kᵢ = H(S ‖ R ‖ y⋅(R - i⋅T)). Only K_c = H(S ‖ R ‖ x⋅S) is known to the receiver.
package ot

import (
	"crypto/sha256"
	"errors"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"golang.org/x/crypto/chacha20"
)

// Plaintext is a single message offered by the sender.
type Plaintext [params.OTPlaintextBytes]byte

// Table holds every message offered by the sender, indexed by choice.
type Table [params.OTChoices]Plaintext

// Key is derived for each index by the sender, and for the chosen one by the receiver.
type Key [sha256.Size]byte

var (
	// ErrOutOfOrder is returned when a step is called before the previous one completed.
	ErrOutOfOrder = errors.New("ot: step called out of order")
	// ErrDegenerateKey is returned when the sender's S is the generator.
	ErrDegenerateKey = errors.New("ot: sender key is the generator")
)

// deriveKey returns H(S ‖ R ‖ P).
func deriveKey(S, R *[params.PointBytes]byte, P *curve.Point) (Key, error) {
	enc, err := P.Bytes()
	if err != nil {
		return Key{}, err
	}
	h := sha256.New()
	_, _ = h.Write(S[:])
	_, _ = h.Write(R[:])
	_, _ = h.Write(enc[:])
	var k Key
	h.Sum(k[:0])
	return k, nil
}

// Cipher encrypts each OT message under its derived key.
//
// Keys are never reused, so both implementations are one-time pads.
type Cipher interface {
	Encrypt(dst, src *Plaintext, key *Key)
	Decrypt(dst, src *Plaintext, key *Key)
}

// XOR uses the key itself as a pad.
type XOR struct{}

func (XOR) Encrypt(dst, src *Plaintext, key *Key) {
	for i := range dst {
		dst[i] = src[i] ^ key[i]
	}
}

func (c XOR) Decrypt(dst, src *Plaintext, key *Key) {
	c.Encrypt(dst, src, key)
}

// ChaCha20 uses the ChaCha20 keystream of the key as a pad.
type ChaCha20 struct{}

var zeroNonce [chacha20.NonceSize]byte

func (ChaCha20) Encrypt(dst, src *Plaintext, key *Key) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], zeroNonce[:])
	if err != nil {
		// key and nonce have fixed, valid sizes
		panic(err)
	}
	c.XORKeyStream(dst[:], src[:])
}

func (c ChaCha20) Decrypt(dst, src *Plaintext, key *Key) {
	c.Encrypt(dst, src, key)
}

// CipherByName returns the cipher registered under name, "xor" or "chacha20".
func CipherByName(name string) (Cipher, error) {
	switch name {
	case "", "xor":
		return XOR{}, nil
	case "chacha20":
		return ChaCha20{}, nil
	default:
		return nil, errors.New("ot: unknown cipher " + name)
	}
}
