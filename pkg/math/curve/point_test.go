package curve

import (
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
)

func randomScalar(t *testing.T) scalar.Scalar {
	s, err := scalar.Random(rand.Reader)
	require.NoError(t, err)
	return s
}

func TestPointArithmetic(t *testing.T) {
	a, b := randomScalar(t), randomScalar(t)
	sum, _ := scalar.Add(&a, &b)
	prod := scalar.Mul(&a, &b)

	A, B := BaseMult(&a), BaseMult(&b)
	assert.True(t, A.Add(B).Equal(BaseMult(&sum)))
	assert.True(t, A.Mul(&b).Equal(BaseMult(&prod)))
	assert.True(t, B.Mul(&a).Equal(A.Mul(&b)))
	assert.True(t, A.Add(A.Negate()).IsIdentity())
	assert.True(t, BaseMult(&scalar.Zero).IsIdentity())
	assert.False(t, A.IsIdentity())
	assert.True(t, Generator().Equal(BaseMult(&scalar.One)))
}

func TestPointEncoding(t *testing.T) {
	for i := 0; i < 20; i++ {
		k := randomScalar(t)
		P := BaseMult(&k)
		data, err := P.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, 33)

		priv := secp256k1.PrivKeyFromBytes(func() []byte { b := k.Bytes(); return b[:] }())
		assert.Equal(t, priv.PubKey().SerializeCompressed(), data)

		Q := new(Point)
		require.NoError(t, Q.UnmarshalBinary(data))
		assert.True(t, P.Equal(Q))
		assert.Equal(t, 0, P.Compare(Q))

		x, err := P.XBytes()
		require.NoError(t, err)
		assert.Equal(t, data[1:], x[:])

		pub, err := P.PublicKey()
		require.NoError(t, err)
		assert.True(t, FromPublicKey(pub).Equal(P))
	}
}

func TestPointUnmarshalRejects(t *testing.T) {
	k := randomScalar(t)
	data, err := BaseMult(&k).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"short", data[:32]},
		{"uncompressed prefix", append([]byte{0x04}, data[1:]...)},
		{"zero", make([]byte, 33)},
		{"x out of range", append([]byte{0x02}, bytesOf(0xFF, 32)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, new(Point).UnmarshalBinary(tt.data), ErrInvalidPoint)
		})
	}

	_, err = new(Point).MarshalBinary()
	assert.ErrorIs(t, err, ErrIdentity)
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestOracle(t *testing.T) {
	k := randomScalar(t)
	S := BaseMult(&k)
	T1, err := Oracle(S)
	require.NoError(t, err)
	T2, err := Oracle(S)
	require.NoError(t, err)
	assert.True(t, T1.Equal(T2))
	assert.False(t, T1.Equal(S))

	enc, err := T1.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), enc[0])

	_, err = Oracle(new(Point))
	assert.ErrorIs(t, err, ErrIdentity)
}
