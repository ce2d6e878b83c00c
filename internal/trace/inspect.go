// inspect.go - Replay verification of claimed agent paths.
//
// An Inspector re-derives the fingerprint a claimed witness list would have
// produced and compares it to the target. Because every transition binds both
// the agent prime and the depth digest, agent substitution and position
// replay both surface as a mismatch.

package trace

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strconv"

	"holopass/internal/holo"
)

// PrimeSource resolves agent names to derived primes (base-10 strings).
type PrimeSource interface {
	Prime(agentID string) (string, error)
}

// Inspector replays witness paths against the group parameters of the chain
// it audits.
type Inspector struct {
	modulus   *big.Int
	generator *big.Int
	primes    PrimeSource
}

// NewInspector creates an inspector over the given group parameters.
func NewInspector(modulusDec, generatorDec string, primes PrimeSource) (*Inspector, error) {
	m, ok := new(big.Int).SetString(modulusDec, 10)
	if !ok || m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus", holo.ErrInvalidNumericFormat)
	}
	g, ok := new(big.Int).SetString(generatorDec, 10)
	if !ok || g.Sign() < 0 {
		return nil, fmt.Errorf("%w: generator", holo.ErrInvalidNumericFormat)
	}
	return &Inspector{modulus: m, generator: g.Mod(g, m), primes: primes}, nil
}

// VerifyPath replays witnesses from the starting fingerprint and reports
// whether the result matches targetTDec. The replay mirrors the accumulator
// transition exactly: T' = (T^P(agent) * G^H(depth)) mod N with H the SHA-256
// of the decimal depth.
func (i *Inspector) VerifyPath(targetTDec string, witnesses []string) (bool, error) {
	t := big.NewInt(2)
	depth := uint64(0)

	for _, agent := range witnesses {
		pStr, err := i.primes.Prime(agent)
		if err != nil {
			return false, fmt.Errorf("unknown agent %q: %w", agent, err)
		}
		p, _ := new(big.Int).SetString(pStr, 10)

		pathTerm := new(big.Int).Exp(t, p, i.modulus)

		depthDigest := sha256.Sum256([]byte(strconv.FormatUint(depth, 10)))
		depthTerm := new(big.Int).Exp(i.generator, new(big.Int).SetBytes(depthDigest[:]), i.modulus)

		t = pathTerm.Mul(pathTerm, depthTerm)
		t.Mod(t, i.modulus)
		depth++
	}

	return t.Text(10) == targetTDec, nil
}
