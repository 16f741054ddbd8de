package ot

import (
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// ReceiverState is the step a Receiver has completed.
type ReceiverState uint8

const (
	ReceiverStart ReceiverState = iota
	ReceiverGotS
	ReceiverSentR
	ReceiverGotChosenPlaintext
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverStart:
		return "start"
	case ReceiverGotS:
		return "got S"
	case ReceiverSentR:
		return "sent R"
	case ReceiverGotChosenPlaintext:
		return "got chosen plaintext"
	default:
		return fmt.Sprintf("ReceiverState(%d)", uint8(s))
	}
}

// Receiver is the party learning a single entry of the sender's Table.
type Receiver struct {
	conn   stream.Stream
	cipher Cipher
	rand   io.Reader
	state  ReceiverState

	choice byte
	S      *curve.Point
	sBytes [params.PointBytes]byte
	rBytes [params.PointBytes]byte
	key    Key
}

// NewReceiver creates a Receiver for a single transfer over conn.
//
// cipher must match the sender's. A nil cipher defaults to XOR, a nil rand to crypto/rand.
func NewReceiver(conn stream.Stream, cipher Cipher, rand io.Reader) *Receiver {
	if cipher == nil {
		cipher = XOR{}
	}
	if rand == nil {
		rand = defaultRand
	}
	return &Receiver{conn: conn, cipher: cipher, rand: rand}
}

// State returns the last completed step.
func (o *Receiver) State() ReceiverState {
	return o.state
}

func (o *Receiver) expect(state ReceiverState) error {
	if o.state != state {
		return fmt.Errorf("%w: receiver is in state %q, expected %q", ErrOutOfOrder, o.state, state)
	}
	return nil
}

// ReceiveS reads the sender's S, rejecting the generator.
func (o *Receiver) ReceiveS() error {
	if err := o.expect(ReceiverStart); err != nil {
		return err
	}
	if err := stream.ReadFull(o.conn, "ot S", o.sBytes[:]); err != nil {
		return err
	}
	o.S = new(curve.Point)
	if err := o.S.UnmarshalBinary(o.sBytes[:]); err != nil {
		return fmt.Errorf("ot: receiver: S: %w", err)
	}
	if o.S.Equal(curve.Generator()) {
		return ErrDegenerateKey
	}
	o.state = ReceiverGotS
	return nil
}

// SendR samples x and sends R = c⋅T + x⋅G.
func (o *Receiver) SendR(choice byte) error {
	if err := o.expect(ReceiverGotS); err != nil {
		return err
	}
	T, err := curve.Oracle(o.S)
	if err != nil {
		return fmt.Errorf("ot: receiver: %w", err)
	}
	x, err := scalar.Random(o.rand)
	if err != nil {
		return fmt.Errorf("ot: receiver: %w", err)
	}
	var c scalar.Scalar
	c.SetUint64(uint64(choice))
	R := T.Mul(&c).Add(curve.BaseMult(&x))
	if o.rBytes, err = R.Bytes(); err != nil {
		return fmt.Errorf("ot: receiver: R: %w", err)
	}
	// K_c = H(S ‖ R ‖ x⋅S)
	if o.key, err = deriveKey(&o.sBytes, &o.rBytes, o.S.Mul(&x)); err != nil {
		return fmt.Errorf("ot: receiver: %w", err)
	}
	o.choice = choice

	if err = stream.WriteFlush(o.conn, "ot R", o.rBytes[:]); err != nil {
		return err
	}
	o.state = ReceiverSentR
	return nil
}

// ReceiveChosen reads all ciphertexts and decrypts the chosen one.
//
// Every ciphertext is read, and the chosen one is selected by scanning the whole
// block, so that neither the traffic nor the memory access pattern depend on the choice.
func (o *Receiver) ReceiveChosen() (Plaintext, error) {
	var out Plaintext
	if err := o.expect(ReceiverSentR); err != nil {
		return out, err
	}
	block := make([]byte, params.OTCiphertextBlockBytes)
	if err := stream.ReadFull(o.conn, "ot ciphertexts", block); err != nil {
		return out, err
	}
	var chosen Plaintext
	for i := 0; i < params.OTChoices; i++ {
		entry := block[i*params.OTPlaintextBytes : (i+1)*params.OTPlaintextBytes]
		subtle.ConstantTimeCopy(subtle.ConstantTimeByteEq(uint8(i), o.choice), chosen[:], entry)
	}
	o.cipher.Decrypt(&out, &chosen, &o.key)
	o.key = Key{}
	o.state = ReceiverGotChosenPlaintext
	return out, nil
}

// Receive runs all three steps.
func (o *Receiver) Receive(choice byte) (Plaintext, error) {
	if err := o.ReceiveS(); err != nil {
		return Plaintext{}, err
	}
	if err := o.SendR(choice); err != nil {
		return Plaintext{}, err
	}
	return o.ReceiveChosen()
}
