package mta

import (
	"context"
	"fmt"

	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"golang.org/x/sync/errgroup"
)

// Receiving is a multiplication in progress on the receiver side.
type Receiving struct {
	eg    errgroup.Group
	share scalar.Scalar
}

// Wait blocks until every transfer completed, and returns the receiver's share.
func (r *Receiving) Wait() (scalar.Scalar, error) {
	if err := r.eg.Wait(); err != nil {
		return scalar.Zero, err
	}
	return r.share, nil
}

// StartReceiver starts a multiplication as the party holding beta.
// The transfers run in the background, over a clone of conn.
func StartReceiver(ctx context.Context, conn stream.Stream, beta *scalar.Scalar, opts *Options) *Receiving {
	r := new(Receiving)
	digits := beta.Bytes()
	cipher, rand, ordering := opts.cipher(), opts.rand(), opts.ordering()

	r.eg.Go(func() error {
		clone, err := conn.Clone()
		if err != nil {
			return &stream.Error{Op: "clone", Err: err}
		}
		var sigma scalar.Scalar
		for k := 0; k < params.MulDigits; k++ {
			if err = ctx.Err(); err != nil {
				return err
			}
			plaintext, err := ot.NewReceiver(clone, cipher, rand).Receive(ordering.digit(&digits, k))
			if err != nil {
				return fmt.Errorf("mta: receiver: digit %d: %w", k, err)
			}
			var v scalar.Scalar
			v.SetBytes((*[params.ScalarBytes]byte)(&plaintext))
			if ordering == Legacy {
				v.NonConstantTimeShift(ordering.weight(k))
			}
			sigma.AddAssign(&v)
		}
		r.share = sigma
		return nil
	})
	return r
}
