package mta

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

func randomScalar(t testing.TB) scalar.Scalar {
	s, err := scalar.Random(rand.Reader)
	require.NoError(t, err)
	return s
}

func multiply(t testing.TB, alpha, beta *scalar.Scalar, opts *Options) (scalar.Scalar, scalar.Scalar) {
	ctx := context.Background()
	a, b := stream.Pipe()
	sending, err := StartSender(ctx, a, alpha, opts)
	require.NoError(t, err)
	receiving := StartReceiver(ctx, b, beta, opts)
	shareB, err := receiving.Wait()
	require.NoError(t, err)
	require.NoError(t, sending.Wait())
	return sending.Share, shareB
}

func TestMultiplyShares(t *testing.T) {
	orderings := []Ordering{ScaleFree, Legacy}
	ciphers := map[string]ot.Cipher{"xor": ot.XOR{}, "chacha20": ot.ChaCha20{}}
	for _, ordering := range orderings {
		for name, cipher := range ciphers {
			t.Run(ordering.String()+"/"+name, func(t *testing.T) {
				opts := &Options{Ordering: ordering, Cipher: cipher}
				for i := 0; i < 3; i++ {
					alpha, beta := randomScalar(t), randomScalar(t)
					shareA, shareB := multiply(t, &alpha, &beta, opts)
					sum, _ := scalar.Add(&shareA, &shareB)
					assert.Equal(t, scalar.Mul(&alpha, &beta), sum)
				}
			})
		}
	}
}

func TestMultiplyEdgeValues(t *testing.T) {
	var small scalar.Scalar
	small.SetUint64(0xFF01)
	values := []scalar.Scalar{scalar.Zero, scalar.One, scalar.NegOne, small}
	for _, ordering := range []Ordering{ScaleFree, Legacy} {
		opts := &Options{Ordering: ordering}
		for _, alpha := range values {
			beta := randomScalar(t)
			for _, pair := range [][2]scalar.Scalar{{alpha, beta}, {beta, alpha}} {
				shareA, shareB := multiply(t, &pair[0], &pair[1], opts)
				sum, _ := scalar.Add(&shareA, &shareB)
				require.Equal(t, scalar.Mul(&pair[0], &pair[1]), sum, "%s: %v * %v", ordering, pair[0], pair[1])
			}
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	alpha, beta := randomScalar(t), randomScalar(t)
	shareA, shareB := multiply(t, &alpha, &beta, nil)
	sum, _ := scalar.Add(&shareA, &shareB)
	assert.Equal(t, scalar.Mul(&alpha, &beta), sum)
}

func TestPrecomputedMasks(t *testing.T) {
	for _, ordering := range []Ordering{ScaleFree, Legacy} {
		opts := &Options{Ordering: ordering}
		masks, err := NewMasks(rand.Reader, ordering)
		require.NoError(t, err)
		share := masks.Share()

		alpha, beta := randomScalar(t), randomScalar(t)
		a, b := stream.Pipe()
		sending, err := StartSenderWithMasks(context.Background(), a, &alpha, masks, opts)
		require.NoError(t, err)
		assert.Equal(t, share, sending.Share)

		shareB, err := StartReceiver(context.Background(), b, &beta, opts).Wait()
		require.NoError(t, err)
		require.NoError(t, sending.Wait())
		sum, _ := scalar.Add(&sending.Share, &shareB)
		assert.Equal(t, scalar.Mul(&alpha, &beta), sum)

		_, err = StartSenderWithMasks(context.Background(), a, &alpha, masks, opts)
		assert.ErrorIs(t, err, ErrMasksUsed)
	}
}

func TestMasksOrderingMismatch(t *testing.T) {
	masks, err := NewMasks(rand.Reader, Legacy)
	require.NoError(t, err)
	a, _ := stream.Pipe()
	alpha := randomScalar(t)
	_, err = StartSenderWithMasks(context.Background(), a, &alpha, masks, &Options{Ordering: ScaleFree})
	assert.Error(t, err)
}

func TestPeerDisconnect(t *testing.T) {
	a, b := stream.Pipe()
	beta := randomScalar(t)
	receiving := StartReceiver(context.Background(), b, &beta, nil)
	require.NoError(t, a.(interface{ Close() error }).Close())
	_, err := receiving.Wait()
	require.Error(t, err)
	assert.True(t, stream.IsTransport(err))
}

func TestParseOrdering(t *testing.T) {
	for _, o := range []Ordering{ScaleFree, Legacy} {
		parsed, err := ParseOrdering(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}
	_, err := ParseOrdering("sideways")
	assert.Error(t, err)
}

func benchmarkMultiply(b *testing.B, ordering Ordering) {
	opts := &Options{Ordering: ordering}
	alpha, beta := randomScalar(b), randomScalar(b)
	for i := 0; i < b.N; i++ {
		multiply(b, &alpha, &beta, opts)
	}
}

func BenchmarkMultiplyScaleFree(b *testing.B) { benchmarkMultiply(b, ScaleFree) }

func BenchmarkMultiplyLegacy(b *testing.B) { benchmarkMultiply(b, Legacy) }
