// Package sign runs one side of a two-party ECDSA signature over a byte stream.
//
// Both parties start symmetric: each samples a fresh key, and the larger public key
// makes its owner the leader. The nonce is shared multiplicatively, r is derived from
// k_L⋅k_F⋅G, and s = q_L⋅q_F⋅(M + r⋅(k'_L + k'_F)), with qᵢ = kᵢ⁻¹ and k'ᵢ the tweaked keys,
// is split into additive shares by two oblivious multiplications.
// Each party ends up with the same low-s signature, valid under the joint key.
//
// The parties are only protected against semi-honest peers.
package sign

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/ecdsa"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"github.com/taurusgroup/twopc-ecdsa/protocols/twopc/nonce"
)

// run holds the state of one party during a signing run.
type run struct {
	ctx  context.Context
	cfg  *Config
	conn stream.Stream
	log  zerolog.Logger
	step Step

	// m is the message digest, as a scalar.
	m     scalar.Scalar
	keys  *keys
	nonce *nonce.Pair
	r     scalar.Scalar
}

// Run signs m with a peer reachable over conn, and returns the signature along with
// the joint public key it verifies under.
//
// Both parties must call Run with the same m. The run is aborted when ctx is done,
// or after cfg.Timeout. Errors are of type *Error.
func Run(ctx context.Context, conn stream.Stream, m *scalar.Scalar, cfg *Config) (*Result, error) {
	cfg = cfg.normalized()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	release := stream.Watch(ctx, conn)
	defer release()

	r := &run{
		ctx:  ctx,
		cfg:  cfg,
		conn: conn,
		m:    *m,
		log:  cfg.Logger.With().Str("run", cfg.RunID).Logger(),
	}
	r.log.Info().Msg("start")
	result, err := r.execute()
	if err != nil {
		var e *Error
		if errors.As(err, &e) && ctx.Err() != nil && e.Kind != KindVerification {
			// report why the stream was torn down, not only the failed read
			e.Kind = KindTransport
			e.Err = errors.Join(ctx.Err(), e.Err)
		}
		r.log.Error().Err(err).Msg("abort")
		return nil, err
	}
	r.log.Info().Hex("session", result.SessionID).Msg("done")
	return result, nil
}

func (r *run) advance(step Step) {
	r.step = step
	r.log.Debug().Stringer("step", step).Msg("step")
}

func (r *run) fail(err error) error {
	return &Error{Step: r.step, Kind: classify(err), Err: err}
}

func (r *run) execute() (*Result, error) {
	r.advance(StepExchangePubkeys)
	key, err := scalar.Random(r.cfg.Rand)
	if err != nil {
		return nil, r.fail(err)
	}
	if r.keys, err = exchangeKeys(r.conn, &key); err != nil {
		return nil, r.fail(err)
	}

	r.advance(StepRoleDetermined)
	r.log = r.log.With().Stringer("role", r.keys.role).Logger()
	r.log.Debug().Stringer("joint", r.keys.joint).Msg("joint key")

	if r.nonce, err = r.cfg.Nonces.Next(r.ctx); err != nil {
		return nil, r.fail(err)
	}

	var s scalar.Scalar
	if r.keys.role == Leader {
		s, err = r.lead()
	} else {
		s, err = r.follow()
	}
	if err != nil {
		return nil, err
	}

	r.advance(StepVerifySignature)
	sig := &ecdsa.Signature{R: r.r, S: s}
	sig.Normalize()
	if !sig.Verify(r.keys.joint, &r.m) {
		return nil, r.fail(ErrVerificationFailed)
	}

	result, err := r.result(sig)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(StepDone)
	return result, nil
}

// exchangeFinalShares sends own and returns own + the peer's share.
func (r *run) exchangeFinalShares(own *scalar.Scalar) (scalar.Scalar, error) {
	r.advance(StepExchangeFinalShare)
	ownBytes := own.Bytes()
	if err := stream.WriteFlush(r.conn, "final share", ownBytes[:]); err != nil {
		return scalar.Zero, r.fail(err)
	}
	var peerBytes [params.ScalarBytes]byte
	if err := stream.ReadFull(r.conn, "final share", peerBytes[:]); err != nil {
		return scalar.Zero, r.fail(err)
	}
	var peer scalar.Scalar
	peer.SetBytes(&peerBytes)
	s, _ := scalar.Add(own, &peer)
	return s, nil
}

// setR interprets the x coordinate of the nonce point as r.
func (r *run) setR(x *[params.ScalarBytes]byte) error {
	r.r.SetBytes(x)
	if r.r.IsZero() {
		return ErrZeroR
	}
	return nil
}
