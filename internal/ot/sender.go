package ot

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// SenderState is the step a Sender has completed.
type SenderState uint8

const (
	SenderStart SenderState = iota
	SenderSentS
	SenderGotR
	SenderSentCiphertexts
)

func (s SenderState) String() string {
	switch s {
	case SenderStart:
		return "start"
	case SenderSentS:
		return "sent S"
	case SenderGotR:
		return "got R"
	case SenderSentCiphertexts:
		return "sent ciphertexts"
	default:
		return fmt.Sprintf("SenderState(%d)", uint8(s))
	}
}

// Sender is the party offering a Table.
//
// Each step must be called once, in order.
type Sender struct {
	conn   stream.Stream
	cipher Cipher
	rand   io.Reader
	state  SenderState

	y      scalar.Scalar
	S      *curve.Point
	sBytes [params.PointBytes]byte
	R      *curve.Point
	rBytes [params.PointBytes]byte
}

// NewSender creates a Sender for a single transfer over conn.
//
// A nil cipher defaults to XOR, a nil rand to crypto/rand.
func NewSender(conn stream.Stream, cipher Cipher, rand io.Reader) *Sender {
	if cipher == nil {
		cipher = XOR{}
	}
	if rand == nil {
		rand = defaultRand
	}
	return &Sender{conn: conn, cipher: cipher, rand: rand}
}

var defaultRand = rand.Reader

// State returns the last completed step.
func (o *Sender) State() SenderState {
	return o.state
}

func (o *Sender) expect(state SenderState) error {
	if o.state != state {
		return fmt.Errorf("%w: sender is in state %q, expected %q", ErrOutOfOrder, o.state, state)
	}
	return nil
}

// SendS samples y and sends S = y⋅G.
func (o *Sender) SendS() error {
	if err := o.expect(SenderStart); err != nil {
		return err
	}
	y, err := scalar.Random(o.rand)
	if err != nil {
		return fmt.Errorf("ot: sender: %w", err)
	}
	o.y = y
	// S = y⋅G
	o.S = curve.BaseMult(&o.y)
	if o.sBytes, err = o.S.Bytes(); err != nil {
		return fmt.Errorf("ot: sender: %w", err)
	}
	if err = stream.WriteFlush(o.conn, "ot S", o.sBytes[:]); err != nil {
		return err
	}
	o.state = SenderSentS
	return nil
}

// ReceiveR reads the receiver's blinded choice R.
func (o *Sender) ReceiveR() error {
	if err := o.expect(SenderSentS); err != nil {
		return err
	}
	if err := stream.ReadFull(o.conn, "ot R", o.rBytes[:]); err != nil {
		return err
	}
	o.R = new(curve.Point)
	if err := o.R.UnmarshalBinary(o.rBytes[:]); err != nil {
		return fmt.Errorf("ot: sender: R: %w", err)
	}
	o.state = SenderGotR
	return nil
}

// SendCiphertexts encrypts every entry of table under its own key and sends them in order.
func (o *Sender) SendCiphertexts(table *Table) error {
	if err := o.expect(SenderGotR); err != nil {
		return err
	}
	T, err := curve.Oracle(o.S)
	if err != nil {
		return fmt.Errorf("ot: sender: %w", err)
	}
	// acc = y⋅R - i⋅y⋅T, for i = 0, 1, …
	negY := scalar.Neg(&o.y)
	negYT := T.Mul(&negY)
	acc := o.R.Mul(&o.y)

	block := make([]byte, params.OTCiphertextBlockBytes)
	var ciphertext Plaintext
	for i := range table {
		key, err := deriveKey(&o.sBytes, &o.rBytes, acc)
		if err != nil {
			return fmt.Errorf("ot: sender: key %d: %w", i, err)
		}
		o.cipher.Encrypt(&ciphertext, &table[i], &key)
		copy(block[i*params.OTPlaintextBytes:], ciphertext[:])
		acc = acc.Add(negYT)
	}
	o.y = scalar.Zero

	if err = stream.WriteFlush(o.conn, "ot ciphertexts", block); err != nil {
		return err
	}
	o.state = SenderSentCiphertexts
	return nil
}

// Send runs all three steps.
func (o *Sender) Send(table *Table) error {
	if err := o.SendS(); err != nil {
		return err
	}
	if err := o.ReceiveR(); err != nil {
		return err
	}
	return o.SendCiphertexts(table)
}
