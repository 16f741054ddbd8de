package sign

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/twopc-ecdsa/internal/hash"
	"github.com/taurusgroup/twopc-ecdsa/pkg/ecdsa"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
)

// Result is what both parties obtain from a successful run.
type Result struct {
	// Signature is normalized to low s, and verifies under PublicKey.
	Signature *ecdsa.Signature
	// PublicKey is the joint key h_L⋅P_L + h_F⋅P_F.
	PublicKey *curve.Point
	// Role this party played.
	Role Role
	// SessionID is identical for both parties, and binds the public values of the run.
	SessionID []byte
}

func (r *run) result(sig *ecdsa.Signature) (*Result, error) {
	h := hash.New()
	if err := h.WriteAny(r.keys.leader, r.keys.follower, r.keys.joint, &r.r); err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	return &Result{
		Signature: sig,
		PublicKey: r.keys.joint,
		Role:      r.keys.role,
		SessionID: h.Sum(),
	}, nil
}

type resultMarshal struct {
	Signature *ecdsa.Signature
	PublicKey *curve.Point
	Role      string
	SessionID []byte
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Result) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(&resultMarshal{
		Signature: r.Signature,
		PublicKey: r.PublicKey,
		Role:      r.Role.String(),
		SessionID: r.SessionID,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Result) UnmarshalBinary(data []byte) error {
	rm := &resultMarshal{
		Signature: new(ecdsa.Signature),
		PublicKey: new(curve.Point),
	}
	if err := cbor.Unmarshal(data, rm); err != nil {
		return fmt.Errorf("result: %w", err)
	}
	switch rm.Role {
	case Leader.String():
		r.Role = Leader
	case Follower.String():
		r.Role = Follower
	default:
		return fmt.Errorf("result: unknown role %q", rm.Role)
	}
	r.Signature = rm.Signature
	r.PublicKey = rm.PublicKey
	r.SessionID = rm.SessionID
	return nil
}
