package ot

import (
	"crypto/rand"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"golang.org/x/sync/errgroup"
)

func randomTable(t testing.TB) *Table {
	var table Table
	for i := range table {
		_, err := rand.Read(table[i][:])
		require.NoError(t, err)
	}
	return &table
}

func runOT(cipher Cipher, table *Table, choice byte) (Plaintext, error) {
	a, b := stream.Pipe()
	var eg errgroup.Group
	eg.Go(func() error {
		return NewSender(a, cipher, nil).Send(table)
	})
	out, err := NewReceiver(b, cipher, nil).Receive(choice)
	if err != nil {
		return out, err
	}
	return out, eg.Wait()
}

func TestOTEveryChoice(t *testing.T) {
	table := randomTable(t)
	for c := 0; c < params.OTChoices; c++ {
		out, err := runOT(XOR{}, table, byte(c))
		require.NoError(t, err)
		require.Equal(t, table[c], out, "choice %d", c)
	}
}

func TestOTChaCha20(t *testing.T) {
	check := func(choice byte) bool {
		table := randomTable(t)
		out, err := runOT(ChaCha20{}, table, choice)
		return err == nil && out == table[choice]
	}
	require.NoError(t, quick.Check(check, &quick.Config{MaxCount: 20}))
}

func TestOTCipherMismatch(t *testing.T) {
	a, b := stream.Pipe()
	table := randomTable(t)
	var eg errgroup.Group
	eg.Go(func() error {
		return NewSender(a, ChaCha20{}, nil).Send(table)
	})
	out, err := NewReceiver(b, XOR{}, nil).Receive(7)
	require.NoError(t, err)
	require.NoError(t, eg.Wait())
	assert.NotEqual(t, table[7], out)
}

func TestCipherByName(t *testing.T) {
	for _, name := range []string{"", "xor", "chacha20"} {
		_, err := CipherByName(name)
		assert.NoError(t, err)
	}
	_, err := CipherByName("rot13")
	assert.Error(t, err)
}

func TestOutOfOrder(t *testing.T) {
	a, b := stream.Pipe()
	sender := NewSender(a, nil, nil)
	assert.ErrorIs(t, sender.ReceiveR(), ErrOutOfOrder)
	assert.ErrorIs(t, sender.SendCiphertexts(randomTable(t)), ErrOutOfOrder)

	receiver := NewReceiver(b, nil, nil)
	assert.ErrorIs(t, receiver.SendR(1), ErrOutOfOrder)
	_, err := receiver.ReceiveChosen()
	assert.ErrorIs(t, err, ErrOutOfOrder)

	require.NoError(t, sender.SendS())
	assert.Equal(t, SenderSentS, sender.State())
	assert.ErrorIs(t, sender.SendS(), ErrOutOfOrder)
	require.NoError(t, receiver.ReceiveS())
	assert.Equal(t, ReceiverGotS, receiver.State())
}

func TestReceiverRejectsGenerator(t *testing.T) {
	a, b := stream.Pipe()
	G, err := curve.Generator().MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, stream.WriteFlush(a, "S", G))
	assert.ErrorIs(t, NewReceiver(b, nil, nil).ReceiveS(), ErrDegenerateKey)
}

func TestReceiverRejectsMalformedS(t *testing.T) {
	a, b := stream.Pipe()
	bad := make([]byte, params.PointBytes)
	bad[0] = 0x05
	require.NoError(t, stream.WriteFlush(a, "S", bad))
	assert.ErrorIs(t, NewReceiver(b, nil, nil).ReceiveS(), curve.ErrInvalidPoint)
}

func TestShortCiphertextBlock(t *testing.T) {
	a, b := stream.Pipe()
	receiver := NewReceiver(b, nil, nil)

	y, err := scalar.Random(rand.Reader)
	require.NoError(t, err)
	S, err := curve.BaseMult(&y).MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, stream.WriteFlush(a, "S", S))
	require.NoError(t, receiver.ReceiveS())
	require.NoError(t, receiver.SendR(3))
	require.NoError(t, stream.WriteFlush(a, "partial", make([]byte, 100)))
	require.NoError(t, a.(interface{ Close() error }).Close())

	_, err = receiver.ReceiveChosen()
	assert.True(t, stream.IsTransport(err))
}

func BenchmarkOT(b *testing.B) {
	table := randomTable(b)
	for i := 0; i < b.N; i++ {
		_, _ = runOT(XOR{}, table, byte(i))
	}
}
