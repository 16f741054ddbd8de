// Package nonce provides signing nonces together with their inverses.
//
// Inverting a scalar is the most expensive arithmetic of a signing run, so the
// inverse is computed in the background while the run talks to its peer.
package nonce

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"sync"

	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/pool"
)

// ErrClosed is returned by a Service after Close.
var ErrClosed = errors.New("nonce: service closed")

// Pair is a nonce k, usable immediately, and k⁻¹, available once computed.
type Pair struct {
	Nonce   scalar.Scalar
	done    chan struct{}
	inverse scalar.Scalar
}

// NewPair starts computing the inverse of k, which must not be 0.
func NewPair(k scalar.Scalar) *Pair {
	p := &Pair{Nonce: k, done: make(chan struct{})}
	go func() {
		p.inverse = scalar.Inverse(&p.Nonce)
		close(p.done)
	}()
	return p
}

// Generate samples a fresh non-zero nonce from rand, defaulting to crypto/rand,
// and starts computing its inverse.
func Generate(r io.Reader) (*Pair, error) {
	if r == nil {
		r = rand.Reader
	}
	k, err := scalar.Random(r)
	if err != nil {
		return nil, err
	}
	return NewPair(k), nil
}

func computed(k scalar.Scalar) *Pair {
	p := &Pair{Nonce: k, done: make(chan struct{}), inverse: scalar.Inverse(&k)}
	close(p.done)
	return p
}

// Inverse blocks until k⁻¹ is available, or ctx is done.
func (p *Pair) Inverse(ctx context.Context) (scalar.Scalar, error) {
	select {
	case <-p.done:
		return p.inverse, nil
	case <-ctx.Done():
		return scalar.Zero, ctx.Err()
	}
}

// Source hands out one Pair per signing run.
type Source interface {
	Next(ctx context.Context) (*Pair, error)
}

// Fresh is a Source generating each Pair on demand.
type Fresh struct {
	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// Next implements Source.
func (f Fresh) Next(context.Context) (*Pair, error) {
	return Generate(f.Rand)
}

// Service is a Source keeping a buffer of pairs whose inverses are already computed.
//
// Batches are computed in parallel on a pool, whenever there is room in the buffer.
type Service struct {
	pairs chan *Pair
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

// NewService starts filling a buffer of size pairs.
//
// A nil pool computes inverses on the service's own goroutine. rand defaults to
// crypto/rand, and is locked so that the pool's workers can share it.
func NewService(size int, pl *pool.Pool, r io.Reader) *Service {
	if size <= 0 {
		size = 1
	}
	if r == nil {
		r = rand.Reader
	}
	s := &Service{
		pairs: make(chan *Pair, size),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.fill(pl, pool.NewLockedReader(r))
	return s
}

func (s *Service) fill(pl *pool.Pool, r io.Reader) {
	defer close(s.done)
	defer close(s.pairs)
	batch := pl.Workers()
	if batch > cap(s.pairs) {
		batch = cap(s.pairs)
	}
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		type result struct {
			pair *Pair
			err  error
		}
		results := pool.Map(pl, batch, func(int) result {
			k, err := scalar.Random(r)
			if err != nil {
				return result{err: err}
			}
			return result{pair: computed(k)}
		})
		for _, res := range results {
			if res.err != nil {
				s.mu.Lock()
				s.err = res.err
				s.mu.Unlock()
				return
			}
			select {
			case s.pairs <- res.pair:
			case <-s.stop:
				return
			}
		}
	}
}

// Next implements Source, waiting for a pair if the buffer is empty.
func (s *Service) Next(ctx context.Context) (*Pair, error) {
	select {
	case p, ok := <-s.pairs:
		if !ok {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.err != nil {
				return nil, s.err
			}
			return nil, ErrClosed
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the service, and waits for its background goroutine to exit.
// Pairs still buffered can be consumed afterwards.
func (s *Service) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
