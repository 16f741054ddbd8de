package sign

import (
	"context"
	"errors"
	"fmt"

	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// Step is a state of a signing run.
type Step uint8

const (
	StepInit Step = iota
	StepExchangePubkeys
	StepRoleDetermined
	StepExchangeNonce
	StepComputeR
	StepFirstMultiplication
	StepSecondMultiplication
	StepExchangeFinalShare
	StepVerifySignature
	StepDone
)

var stepNames = [...]string{
	StepInit:                 "init",
	StepExchangePubkeys:      "exchange pubkeys",
	StepRoleDetermined:       "role determined",
	StepExchangeNonce:        "exchange nonce",
	StepComputeR:             "compute r",
	StepFirstMultiplication:  "first multiplication",
	StepSecondMultiplication: "second multiplication",
	StepExchangeFinalShare:   "exchange final share",
	StepVerifySignature:      "verify signature",
	StepDone:                 "done",
}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// Kind classifies why a run failed.
type Kind uint8

const (
	// KindInternal is a local failure, such as the randomness source failing.
	KindInternal Kind = iota
	// KindTransport is a failure of the connection, or of the run's context.
	KindTransport
	// KindMalformed means the peer sent data that cannot belong to an honest run.
	KindMalformed
	// KindVerification means the joint signature did not verify.
	// Between semi-honest parties this is a bug, never a network condition.
	KindVerification
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	case KindVerification:
		return "verification"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

var (
	// ErrDegenerateKeys is returned when both parties use the same public key,
	// or when their joint key is the identity.
	ErrDegenerateKeys = errors.New("sign: degenerate public keys")
	// ErrVerificationFailed is returned when the assembled signature does not verify.
	ErrVerificationFailed = errors.New("sign: signature does not verify under the joint key")
	// ErrZeroR is returned when the nonce point's x coordinate is 0 mod n.
	ErrZeroR = errors.New("sign: r is zero")
)

// Error is returned by Run, and records the step in which the run was aborted.
type Error struct {
	// Step in which the error occurred
	Step Step
	// Kind of failure
	Kind Kind
	// Err is the underlying error
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sign: %s: %s: %v", e.Step, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a failed run, and KindInternal for errors not returned by Run.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrVerificationFailed):
		return KindVerification
	case stream.IsTransport(err),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, curve.ErrInvalidPoint),
		errors.Is(err, curve.ErrIdentity),
		errors.Is(err, ot.ErrDegenerateKey),
		errors.Is(err, ErrDegenerateKeys),
		errors.Is(err, ErrZeroR):
		return KindMalformed
	}
	return KindInternal
}
