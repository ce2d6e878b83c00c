// guard.go - Resource guards: input-size validation and the op-count ceiling.
//
// Both checks are cheap and synchronous and run before any expensive group
// operation. The op-count ceiling is a complexity-attack circuit breaker, not
// an exact cost ledger.

package holo

import (
	"fmt"
	"math/big"
)

// MaxInputLen is the byte ceiling applied to every externally supplied string
// (agent ids, domains, numeric strings, hashes) before parsing.
const MaxInputLen = 4096

// DefaultMaxOpLimit is the default ceiling on group operations per instance.
const DefaultMaxOpLimit = 1_000_000

// validateInput rejects oversized external strings before any parsing.
func validateInput(name, s string) error {
	if len(s) > MaxInputLen {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrInputTooLarge, name, len(s), MaxInputLen)
	}
	return nil
}

// parseDec parses a non-negative base-10 integer from an already
// length-validated string.
func parseDec(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNumericFormat, name)
	}
	return v, nil
}

// checkOpLimit trips once opCount has passed the ceiling. State is not
// corrupted; only further mutation is blocked.
func (a *Accumulator) checkOpLimit() error {
	if a.opCount > a.maxOpLimit {
		return fmt.Errorf("%w: %d ops performed, limit %d", ErrOpLimitExceeded, a.opCount, a.maxOpLimit)
	}
	return nil
}
