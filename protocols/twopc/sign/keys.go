package sign

import (
	"crypto/sha256"
	"fmt"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/curve"
	"github.com/taurusgroup/twopc-ecdsa/pkg/math/scalar"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// Role of a party in a run.
type Role uint8

const (
	// Leader is the party with the larger public key. It sends the first nonce point.
	Leader Role = iota
	// Follower completes the nonce point, and starts the first multiplication as sender.
	Follower
)

func (r Role) String() string {
	if r == Leader {
		return "leader"
	}
	return "follower"
}

// keys is the outcome of the key exchange, seen from one party.
type keys struct {
	role Role
	// tweaked is h⋅key, this party's share of the joint secret.
	tweaked scalar.Scalar
	// leader and follower public keys, before tweaking.
	leader, follower *curve.Point
	joint            *curve.Point
}

// exchangeKeys sends key⋅G, receives the peer's public key, and aggregates both.
func exchangeKeys(conn stream.Stream, key *scalar.Scalar) (*keys, error) {
	own := curve.BaseMult(key)
	ownBytes, err := own.Bytes()
	if err != nil {
		return nil, err
	}
	if err = stream.WriteFlush(conn, "public key", ownBytes[:]); err != nil {
		return nil, err
	}
	var peerBytes [params.PointBytes]byte
	if err = stream.ReadFull(conn, "public key", peerBytes[:]); err != nil {
		return nil, err
	}
	peer := new(curve.Point)
	if err = peer.UnmarshalBinary(peerBytes[:]); err != nil {
		return nil, fmt.Errorf("peer public key: %w", err)
	}
	if own.Equal(peer) {
		return nil, ErrDegenerateKeys
	}

	k := &keys{leader: own, follower: peer}
	if own.Compare(peer) < 0 {
		k.role = Follower
		k.leader, k.follower = peer, own
	}
	hLeader, hFollower := aggregationCoefficients(k.leader, k.follower)
	h := hLeader
	if k.role == Follower {
		h = hFollower
	}
	k.tweaked = scalar.Mul(&h, key)
	k.joint = k.leader.Mul(&hLeader).Add(k.follower.Mul(&hFollower))
	if k.joint.IsIdentity() {
		return nil, ErrDegenerateKeys
	}
	return k, nil
}

// aggregationCoefficients returns hᵢ = H(L ∥ Pᵢ) with L = H(P_leader ∥ P_follower).
//
// Weighting each key by a coefficient bound to both keys keeps a party from choosing
// its key as a function of the other's.
func aggregationCoefficients(leader, follower *curve.Point) (hLeader, hFollower scalar.Scalar) {
	leaderBytes, _ := leader.Bytes()
	followerBytes, _ := follower.Bytes()
	l := sha256.New()
	l.Write(leaderBytes[:])
	l.Write(followerBytes[:])
	var L [sha256.Size]byte
	l.Sum(L[:0])

	coefficient := func(p *[params.PointBytes]byte) scalar.Scalar {
		h := sha256.New()
		h.Write(L[:])
		h.Write(p[:])
		var digest [params.ScalarBytes]byte
		h.Sum(digest[:0])
		return scalar.FromBytes(&digest)
	}
	return coefficient(&leaderBytes), coefficient(&followerBytes)
}
