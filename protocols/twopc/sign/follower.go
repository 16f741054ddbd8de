package sign

import (
	"fmt"

	"github.com/taurusgroup/twopc-ecdsa/internal/mta"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// follow runs the follower's side, and returns the full s.
//
//	δ  = [q_L⋅r⋅k'_F]_F                       (first multiplication, sender)
//	s₁ = q_F⋅δ + [γ₁⋅q_F]_F                   (second multiplication, receiver)
//
// so that s₀ + s₁ = q_F⋅(γ₁ + δ) = q_L⋅q_F⋅(M + r⋅(k'_L + k'_F)).
func (r *run) follow() (scalar.Scalar, error) {
	opts := r.cfg.mtaOptions()

	r.advance(StepExchangeNonce)
	var RBytes [params.PointBytes]byte
	if err := stream.ReadFull(r.conn, "nonce point", RBytes[:]); err != nil {
		return scalar.Zero, r.fail(err)
	}
	R := new(curve.Point)
	if err := R.UnmarshalBinary(RBytes[:]); err != nil {
		return scalar.Zero, r.fail(fmt.Errorf("leader nonce point: %w", err))
	}

	r.advance(StepComputeR)
	x, err := R.Mul(&r.nonce.Nonce).XBytes()
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	if err = stream.WriteFlush(r.conn, "nonce x coordinate", x[:]); err != nil {
		return scalar.Zero, r.fail(err)
	}
	if err = r.setR(&x); err != nil {
		return scalar.Zero, r.fail(err)
	}

	r.advance(StepFirstMultiplication)
	kx := scalar.Mul(&r.keys.tweaked, &r.r)
	sending, err := mta.StartSender(r.ctx, r.conn, &kx, opts)
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	q, err := r.nonce.Inverse(r.ctx)
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	t2 := scalar.Mul(&q, &sending.Share)
	if err = sending.Wait(); err != nil {
		return scalar.Zero, r.fail(err)
	}

	r.advance(StepSecondMultiplication)
	share, err := mta.StartReceiver(r.ctx, r.conn, &q, opts).Wait()
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	s1, _ := scalar.Add(&share, &t2)

	return r.exchangeFinalShares(&s1)
}
