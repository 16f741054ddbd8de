package sign

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/twopc-ecdsa/internal/mta"
	"github.com/taurusgroup/twopc-ecdsa/internal/ot"
	"github.com/taurusgroup/twopc-ecdsa/pkg/pool"
	"github.com/taurusgroup/twopc-ecdsa/protocols/twopc/nonce"
)

// Config parametrizes a signing run. The zero value is usable.
//
// Both parties must agree on Ordering and Cipher, nothing else needs to match.
type Config struct {
	// Logger receives the progress of the run. Secrets are never logged.
	Logger zerolog.Logger
	// Nonces provides the run's nonce, defaulting to a fresh one.
	Nonces nonce.Source
	// Ordering of the digits in both multiplications.
	Ordering mta.Ordering
	// Cipher used by the oblivious transfers, defaulting to ot.XOR.
	Cipher ot.Cipher
	// Rand is the source of every secret, defaulting to crypto/rand.
	Rand io.Reader
	// Timeout bounds the whole run, if positive.
	Timeout time.Duration
	// RunID tags the log lines of the run, and is generated if empty.
	RunID string
}

// DefaultConfig returns a Config which logs nothing.
func DefaultConfig() *Config {
	return &Config{Logger: zerolog.Nop()}
}

// normalized fills in the defaults of a copy of c.
func (c *Config) normalized() *Config {
	var out Config
	if c != nil {
		out = *c
	} else {
		out.Logger = zerolog.Nop()
	}
	if out.Rand == nil {
		out.Rand = rand.Reader
	} else {
		// the multiplications draw from Rand in the background
		out.Rand = pool.NewLockedReader(out.Rand)
	}
	if out.Nonces == nil {
		out.Nonces = nonce.Fresh{Rand: out.Rand}
	}
	if out.Cipher == nil {
		out.Cipher = ot.XOR{}
	}
	if out.RunID == "" {
		out.RunID = uuid.NewString()
	}
	return &out
}

func (c *Config) mtaOptions() *mta.Options {
	return &mta.Options{Ordering: c.Ordering, Cipher: c.Cipher, Rand: c.Rand}
}
