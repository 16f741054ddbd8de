package mta

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"golang.org/x/sync/errgroup"
)

// ErrMasksUsed is returned when Masks are given to a second multiplication.
var ErrMasksUsed = errors.New("mta: masks already used")

// Masks holds the sender's randomness for one multiplication.
//
// Everything here is independent of α, so it can be prepared before α is known.
type Masks struct {
	ordering Ordering
	phi      [params.MulDigits]scalar.Scalar
	share    scalar.Scalar
	used     bool
}

// NewMasks samples the masks φᵢ and the resulting sender share -∑φᵢ⋅wᵢ.
func NewMasks(rand io.Reader, ordering Ordering) (*Masks, error) {
	m := &Masks{ordering: ordering}
	var negSigma scalar.Scalar
	for k := range m.phi {
		phi, err := scalar.Random(rand)
		if err != nil {
			return nil, fmt.Errorf("mta: masks: %w", err)
		}
		m.phi[k] = phi
		// the legacy ordering shifts φ here, the scale-free one shifts α instead
		if ordering == Legacy {
			phi.NonConstantTimeShift(ordering.weight(k))
		}
		negSigma.AddAssign(&phi)
	}
	m.share = scalar.Neg(&negSigma)
	return m, nil
}

// Share is the sender's additive share, minus α⋅β's other half.
func (m *Masks) Share() scalar.Scalar {
	return m.share
}

// Sending is a multiplication in progress on the sender side.
type Sending struct {
	// Share is usable immediately, the receiver's half arrives once the transfers complete.
	Share scalar.Scalar
	eg    *errgroup.Group
}

// Wait blocks until every row was transferred, returning the first failure.
func (s *Sending) Wait() error {
	return s.eg.Wait()
}

// StartSender starts a multiplication as the party holding alpha.
func StartSender(ctx context.Context, conn stream.Stream, alpha *scalar.Scalar, opts *Options) (*Sending, error) {
	masks, err := NewMasks(opts.rand(), opts.ordering())
	if err != nil {
		return nil, err
	}
	return StartSenderWithMasks(ctx, conn, alpha, masks, opts)
}

// StartSenderWithMasks is StartSender with masks prepared in advance.
//
// Rows are built in one goroutine and handed, through a bounded channel, to another one
// running the transfers over a clone of conn.
func StartSenderWithMasks(ctx context.Context, conn stream.Stream, alpha *scalar.Scalar, masks *Masks, opts *Options) (*Sending, error) {
	if masks.used {
		return nil, ErrMasksUsed
	}
	if masks.ordering != opts.ordering() {
		return nil, fmt.Errorf("mta: masks prepared for ordering %s, not %s", masks.ordering, opts.ordering())
	}
	masks.used = true

	clone, err := conn.Clone()
	if err != nil {
		return nil, &stream.Error{Op: "clone", Err: err}
	}
	cipher, rand, ordering := opts.cipher(), opts.rand(), opts.ordering()
	a := *alpha

	eg, ctx := errgroup.WithContext(ctx)
	rows := make(chan *ot.Table, params.PipelineDepth)

	eg.Go(func() error {
		defer close(rows)
		var base [params.OTChoices]scalar.Scalar
		if ordering == Legacy {
			base = scalar.MulBy256(&a)
		}
		for k := 0; k < params.MulDigits; k++ {
			var row [params.OTChoices]scalar.Scalar
			if ordering == Legacy {
				row = base
			} else {
				if k > 0 {
					a.NonConstantTimeShift(1)
				}
				row = scalar.MulBy256(&a)
			}
			scalar.AddToTable(&row, &masks.phi[k])
			select {
			case rows <- toTable(&row):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	eg.Go(func() error {
		for k := 0; k < params.MulDigits; k++ {
			var row *ot.Table
			select {
			case r, ok := <-rows:
				if !ok {
					return ctx.Err()
				}
				row = r
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := ot.NewSender(clone, cipher, rand).Send(row); err != nil {
				return fmt.Errorf("mta: sender: digit %d: %w", k, err)
			}
		}
		return nil
	})

	return &Sending{Share: masks.share, eg: eg}, nil
}
