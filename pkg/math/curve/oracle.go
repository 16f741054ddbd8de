package curve

import (
	"crypto/sha256"
	"errors"

	"github.com/taurusgroup/twopc-ecdsa/internal/params"
)

// ErrOracleExhausted is returned when no candidate encoding decoded to a point.
// With overwhelming probability this never happens.
var ErrOracleExhausted = errors.New("curve: hash to curve found no point")

const oracleTag = "twopc-ecdsa/ot-oracle"

// Oracle maps p to a point whose discrete logarithm is unknown.
//
// The candidate 0x02 ‖ SHA-256(tag ‖ p) is decoded, incrementing its last byte
// after each failure, for at most params.OracleAttempts tries.
func Oracle(p *Point) (*Point, error) {
	enc, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	_, _ = h.Write([]byte(oracleTag))
	_, _ = h.Write(enc[:])

	var candidate [params.PointBytes]byte
	candidate[0] = 0x02
	h.Sum(candidate[1:1])

	out := new(Point)
	for i := 0; i < params.OracleAttempts; i++ {
		if out.UnmarshalBinary(candidate[:]) == nil {
			return out, nil
		}
		candidate[params.PointBytes-1]++
	}
	return nil, ErrOracleExhausted
}
