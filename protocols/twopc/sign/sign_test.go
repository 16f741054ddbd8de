package sign

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/twopc-ecdsa/internal/mta"
	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/internal/test"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/pool"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
	"github.com/taurusgroup/twopc-ecdsa/protocols/twopc/nonce"
)

func runPair(t testing.TB, network test.Network, m *scalar.Scalar, cfgA, cfgB *Config) (*Result, *Result, error, error) {
	a, b := network(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return test.Both(ctx,
		func(ctx context.Context) (*Result, error) { return Run(ctx, a, m, cfgA) },
		func(ctx context.Context) (*Result, error) { return Run(ctx, b, m, cfgB) },
	)
}

// checkResults verifies both results with an independent implementation.
func checkResults(t testing.TB, m *scalar.Scalar, a, b *Result) {
	require.NotEqual(t, a.Role, b.Role)
	assert.Equal(t, a.Signature, b.Signature)
	assert.True(t, a.PublicKey.Equal(b.PublicKey))
	assert.Equal(t, a.SessionID, b.SessionID)
	require.Len(t, a.SessionID, 32)

	assert.False(t, a.Signature.S.IsHigh(), "s must be in the lower half")
	require.True(t, a.Signature.Verify(a.PublicKey, m))

	keyBytes, err := a.PublicKey.MarshalBinary()
	require.NoError(t, err)
	pub, err := btcec.ParsePubKey(keyBytes)
	require.NoError(t, err)
	var r, s btcec.ModNScalar
	rBytes, sBytes := a.Signature.R.Bytes(), a.Signature.S.Bytes()
	r.SetBytes(&rBytes)
	s.SetBytes(&sBytes)
	digest := m.Bytes()
	assert.True(t, btcecdsa.NewSignature(&r, &s).Verify(digest[:], pub))
}

func TestSignFixedMessage(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	for name, network := range test.Networks() {
		t.Run(name, func(t *testing.T) {
			a, b, errA, errB := runPair(t, network, &m, nil, nil)
			require.NoError(t, errA)
			require.NoError(t, errB)
			checkResults(t, &m, a, b)
		})
	}
}

func TestSignRandom(t *testing.T) {
	trials := 100
	if testing.Short() {
		trials = 10
	}
	for i := 0; i < trials; i++ {
		m, err := scalar.Random(rand.Reader)
		require.NoError(t, err)
		a, b, errA, errB := runPair(t, test.Pipe, &m, nil, nil)
		require.NoError(t, errA)
		require.NoError(t, errB)
		checkResults(t, &m, a, b)
	}
}

func TestSignRoleSymmetry(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	seen := map[Role]bool{}
	for i := 0; i < 64 && len(seen) < 2; i++ {
		a, b, errA, errB := runPair(t, test.Pipe, &m, nil, nil)
		require.NoError(t, errA)
		require.NoError(t, errB)
		checkResults(t, &m, a, b)
		seen[a.Role] = true
	}
	assert.True(t, seen[Leader], "the first party never led")
	assert.True(t, seen[Follower], "the first party never followed")
}

func TestSignOptions(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	pl := pool.NewPool(0)
	defer pl.TearDown()
	service := nonce.NewService(4, pl, nil)
	defer service.Close()

	for _, ordering := range []mta.Ordering{mta.ScaleFree, mta.Legacy} {
		for _, cipher := range []ot.Cipher{ot.XOR{}, ot.ChaCha20{}} {
			cfgA := &Config{Ordering: ordering, Cipher: cipher, Nonces: service}
			cfgB := &Config{Ordering: ordering, Cipher: cipher, Rand: rand.Reader}
			a, b, errA, errB := runPair(t, test.Pipe, &m, cfgA, cfgB)
			require.NoError(t, errA, "%s/%T", ordering, cipher)
			require.NoError(t, errB, "%s/%T", ordering, cipher)
			checkResults(t, &m, a, b)
		}
	}
}

func TestSignMismatch(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	other := scalar.Scalar{4, 3, 2, 1}
	a, b := stream.Pipe()
	ctx := context.Background()
	_, _, errA, errB := test.Both(ctx,
		func(ctx context.Context) (*Result, error) { return Run(ctx, a, &m, nil) },
		func(ctx context.Context) (*Result, error) { return Run(ctx, b, &other, nil) },
	)
	// only the leader's message enters s, so exactly the follower fails
	require.True(t, (errA == nil) != (errB == nil), "a: %v, b: %v", errA, errB)
	err := errA
	if err == nil {
		err = errB
	}
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, KindVerification, KindOf(err))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, StepVerifySignature, e.Step)

	_, _, errA, errB = runPair(t, test.Pipe, &m, &Config{Ordering: mta.Legacy}, &Config{Ordering: mta.ScaleFree})
	assert.True(t, KindOf(errA) == KindVerification || KindOf(errB) == KindVerification)
}

func TestSignTimeout(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	for name, network := range test.Networks() {
		t.Run(name, func(t *testing.T) {
			a, _ := network(t)
			_, err := Run(context.Background(), a, &m, &Config{Timeout: 50 * time.Millisecond})
			require.Error(t, err)
			assert.Equal(t, KindTransport, KindOf(err))
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, StepExchangePubkeys, e.Step)
		})
	}
}

func TestSignCancel(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	a, _ := stream.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := Run(ctx, a, &m, nil)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

// peer runs fn as a scripted peer on b, and fails the test if it returns an error.
func peer(t *testing.T, b stream.Stream, fn func(b stream.Stream) error) {
	done := make(chan error, 1)
	go func() { done <- fn(b) }()
	t.Cleanup(func() { require.NoError(t, <-done) })
}

func TestSignMalformedPeerKey(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	a, b := stream.Pipe()
	peer(t, b, func(b stream.Stream) error {
		var own [params.PointBytes]byte
		if err := stream.ReadFull(b, "key", own[:]); err != nil {
			return err
		}
		bad := own
		bad[0] = 0x04
		return stream.WriteFlush(b, "key", bad[:])
	})
	_, err := Run(context.Background(), a, &m, nil)
	assert.Equal(t, KindMalformed, KindOf(err))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, StepExchangePubkeys, e.Step)
}

func TestSignEqualKeys(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	a, b := stream.Pipe()
	peer(t, b, func(b stream.Stream) error {
		var own [params.PointBytes]byte
		if err := stream.ReadFull(b, "key", own[:]); err != nil {
			return err
		}
		return stream.WriteFlush(b, "key", own[:])
	})
	_, err := Run(context.Background(), a, &m, nil)
	assert.ErrorIs(t, err, ErrDegenerateKeys)
	assert.Equal(t, KindMalformed, KindOf(err))
}

func TestSignPeerDisconnect(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	a, b := stream.Pipe()
	peer(t, b, func(b stream.Stream) error {
		return b.(interface{ Close() error }).Close()
	})
	_, err := Run(context.Background(), a, &m, nil)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, stream.IsTransport(err))
}

func TestResultMarshal(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	a, b, errA, errB := runPair(t, test.Pipe, &m, nil, nil)
	require.NoError(t, errA)
	require.NoError(t, errB)

	data, err := a.MarshalBinary()
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, a.Role, decoded.Role)
	assert.Equal(t, a.Signature, decoded.Signature)
	assert.Equal(t, a.SessionID, decoded.SessionID)
	assert.True(t, b.PublicKey.Equal(decoded.PublicKey))
}

func TestRunLogs(t *testing.T) {
	m := scalar.Scalar{1, 2, 3, 4}
	var bufA, bufB bytes.Buffer
	cfgA := &Config{Logger: zerolog.New(&bufA).Level(zerolog.DebugLevel), RunID: "run-a"}
	cfgB := &Config{Logger: zerolog.New(&bufB), RunID: "run-b"}
	_, _, errA, errB := runPair(t, test.Pipe, &m, cfgA, cfgB)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Contains(t, bufA.String(), `"run":"run-a"`)
	assert.Contains(t, bufA.String(), `"step":"second multiplication"`)
	assert.Contains(t, bufB.String(), `"message":"done"`)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "init", StepInit.String())
	assert.Equal(t, "done", StepDone.String())
	assert.Equal(t, "step(42)", Step(42).String())
	assert.Equal(t, "verification", KindVerification.String())
	assert.Equal(t, KindInternal, KindOf(errors.New("elsewhere")))
}

func BenchmarkSign(b *testing.B) {
	m := scalar.Scalar{1, 2, 3, 4}
	for i := 0; i < b.N; i++ {
		_, _, errA, errB := runPair(b, test.Pipe, &m, nil, nil)
		if errA != nil || errB != nil {
			b.Fatal(errA, errB)
		}
	}
}
