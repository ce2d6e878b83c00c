// powmod.go - Stateless modular exponentiation with full input validation.

package holo

import (
	"fmt"
	"math/big"
)

// SafePowMod computes base^exp mod modulus over base-10 strings. All three
// inputs are attacker-reachable, so size and format are checked before any
// arithmetic; a non-positive modulus is rejected because an unbounded
// exponentiation would be a trivial DoS.
func SafePowMod(baseDec, expDec, modulusDec string) (string, error) {
	if err := validateInput("base", baseDec); err != nil {
		return "", err
	}
	if err := validateInput("exponent", expDec); err != nil {
		return "", err
	}
	if err := validateInput("modulus", modulusDec); err != nil {
		return "", err
	}

	base, err := parseDec("base", baseDec)
	if err != nil {
		return "", err
	}
	exp, err := parseDec("exponent", expDec)
	if err != nil {
		return "", err
	}
	m, err := parseDec("modulus", modulusDec)
	if err != nil {
		return "", err
	}
	if m.Sign() <= 0 {
		return "", fmt.Errorf("%w: modulus must be positive", ErrInvalidNumericFormat)
	}

	return new(big.Int).Exp(base, exp, m).Text(10), nil
}
