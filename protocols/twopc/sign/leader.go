package sign

import (
	"github.com/taurusgroup/twopc-ecdsa/internal/mta"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// lead runs the leader's side, and returns the full s.
//
//	γ₁ = q_L⋅(M + r⋅k'_L) + [q_L⋅r⋅k'_F]_L   (first multiplication, receiver)
//	s₀ = [γ₁⋅q_F]_L                           (second multiplication, sender)
//
// where [x⋅y]_L is the leader's additive share of the product.
func (r *run) lead() (scalar.Scalar, error) {
	opts := r.cfg.mtaOptions()
	// the second multiplication's masks do not depend on anything the peer sends
	masks, err := mta.NewMasks(opts.Rand, opts.Ordering)
	if err != nil {
		return scalar.Zero, r.fail(err)
	}

	r.advance(StepExchangeNonce)
	R := curve.BaseMult(&r.nonce.Nonce)
	RBytes, err := R.Bytes()
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	if err = stream.WriteFlush(r.conn, "nonce point", RBytes[:]); err != nil {
		return scalar.Zero, r.fail(err)
	}

	r.advance(StepComputeR)
	var x [params.ScalarBytes]byte
	if err = stream.ReadFull(r.conn, "nonce x coordinate", x[:]); err != nil {
		return scalar.Zero, r.fail(err)
	}
	if err = r.setR(&x); err != nil {
		return scalar.Zero, r.fail(err)
	}

	r.advance(StepFirstMultiplication)
	kxm := scalar.Mul(&r.keys.tweaked, &r.r)
	kxm.AddAssign(&r.m)
	q, err := r.nonce.Inverse(r.ctx)
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	g0 := scalar.Mul(&q, &kxm)
	share, err := mta.StartReceiver(r.ctx, r.conn, &q, opts).Wait()
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	gamma1, _ := scalar.Add(&share, &g0)

	r.advance(StepSecondMultiplication)
	sending, err := mta.StartSenderWithMasks(r.ctx, r.conn, &gamma1, masks, opts)
	if err != nil {
		return scalar.Zero, r.fail(err)
	}
	if err = sending.Wait(); err != nil {
		return scalar.Zero, r.fail(err)
	}

	return r.exchangeFinalShares(&sending.Share)
}
