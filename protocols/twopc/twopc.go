package twopc

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/twopc-ecdsa/internal/mta"
	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/pool"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"github.com/taurusgroup/twopc-ecdsa/protocols/twopc/nonce"
	"github.com/taurusgroup/twopc-ecdsa/protocols/twopc/sign"
)

type (
	Result   = sign.Result
	Error    = sign.Error
	Role     = sign.Role
	Ordering = mta.Ordering
	Cipher   = ot.Cipher
)

const (
	Leader   = sign.Leader
	Follower = sign.Follower

	// ScaleFree sends the digits of the multiplications least significant first,
	// with the sender scaling its rows. This is the default.
	ScaleFree = mta.ScaleFree
	// Legacy sends the digits most significant first, with the receiver scaling its share.
	Legacy = mta.Legacy
)

// ParseOrdering returns the Ordering named s, as printed by Ordering.String.
func ParseOrdering(s string) (Ordering, error) {
	return mta.ParseOrdering(s)
}

// CipherByName returns "xor", the default, or "chacha20".
func CipherByName(name string) (Cipher, error) {
	return ot.CipherByName(name)
}

// NewNonceService starts precomputing size nonces with their inverses, using the workers of pl.
//
// The service can be shared by consecutive runs with WithNonceSource, and should be
// closed once no longer needed.
func NewNonceService(size int, pl *pool.Pool, rand io.Reader) *nonce.Service {
	return nonce.NewService(size, pl, rand)
}

// Option configures Sign.
type Option func(*sign.Config)

// WithLogger logs the progress of the run to l.
func WithLogger(l zerolog.Logger) Option {
	return func(c *sign.Config) { c.Logger = l }
}

// WithTimeout aborts the run if it did not complete after d.
func WithTimeout(d time.Duration) Option {
	return func(c *sign.Config) { c.Timeout = d }
}

// WithOrdering sets the digit ordering of the multiplications. Both parties must agree.
func WithOrdering(o Ordering) Option {
	return func(c *sign.Config) { c.Ordering = o }
}

// WithCipher sets the cipher of the oblivious transfers. Both parties must agree.
func WithCipher(cipher Cipher) Option {
	return func(c *sign.Config) { c.Cipher = cipher }
}

// WithNonceSource takes the run's nonce from src, such as a service created by NewNonceService.
func WithNonceSource(src nonce.Source) Option {
	return func(c *sign.Config) { c.Nonces = src }
}

// WithRand draws every secret of the run from r instead of crypto/rand.
func WithRand(r io.Reader) Option {
	return func(c *sign.Config) { c.Rand = r }
}

// WithRunID tags the run's log lines with id instead of a random UUID.
func WithRunID(id string) Option {
	return func(c *sign.Config) { c.RunID = id }
}

// Sign produces an ECDSA signature of a 32 byte digest, jointly with the party at the
// other end of conn.
//
// Both parties generate fresh keys for this run, and the result holds the joint public
// key the signature verifies under. The party whose key is larger leads the run, so both
// parties call Sign identically.
func Sign(ctx context.Context, conn stream.Stream, digest []byte, opts ...Option) (*Result, error) {
	if len(digest) != params.ScalarBytes {
		return nil, fmt.Errorf("twopc: digest must be %d bytes, got %d", params.ScalarBytes, len(digest))
	}
	var m scalar.Scalar
	m.SetByteSlice(digest)
	return SignScalar(ctx, conn, &m, opts...)
}

// SignScalar is Sign, for a digest already reduced to a scalar.
func SignScalar(ctx context.Context, conn stream.Stream, m *scalar.Scalar, opts ...Option) (*Result, error) {
	cfg := sign.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return sign.Run(ctx, conn, m, cfg)
}
