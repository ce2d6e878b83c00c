// errors.go - Typed failure taxonomy for the accumulator.
//
// Every fallible path returns one of these sentinels (wrapped with context via
// fmt.Errorf and %w) so callers can classify failures with errors.Is. Input
// reaching numeric parsing is attacker-controlled; nothing in this package
// panics on it.

package holo

import "errors"

var (
	// ErrInputTooLarge is returned when an externally supplied string exceeds
	// MaxInputLen before any parsing is attempted.
	ErrInputTooLarge = errors.New("input exceeds maximum safety limit")

	// ErrInvalidNumericFormat is returned when a numeric string does not parse
	// as a non-negative base-10 integer, or a modulus is not positive.
	ErrInvalidNumericFormat = errors.New("invalid numeric format")

	// ErrStateMismatch is returned when the supplied expected_prev_t does not
	// equal the current state. It signals a stale read, a replay, or a
	// rollback attempt; the state is left byte-for-byte unchanged.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrOpLimitExceeded is returned once the instance's operation counter has
	// passed its ceiling. The instance stays readable but rejects every
	// further mutating call; the counter never auto-resets.
	ErrOpLimitExceeded = errors.New("operation count exceeded limit")

	// ErrPrimeSearchExhausted is returned when the hash-to-prime nonce search
	// hits its configured bound without finding a prime.
	ErrPrimeSearchExhausted = errors.New("prime search exhausted")
)
