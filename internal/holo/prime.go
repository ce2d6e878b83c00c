// prime.go - Deterministic, domain-bound hash-to-prime derivation.
//
// A 1024-bit candidate is assembled from four SHA-256 digests of
// (domain ":" agent_id, nonce, block_index), the top and bottom bits are
// forced to 1, and the candidate is tested with 64 Miller-Rabin rounds
// (error probability below 2^-128). The nonce search is a pure function of
// the inputs, so any third party who knows the domain and agent id can
// recompute and verify the prime independently.

package holo

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
)

const (
	// PrimeBits is the exact bit length of every derived prime.
	PrimeBits = 1024

	// millerRabinRounds is the confidence parameter for primality testing.
	millerRabinRounds = 64

	// DefaultPrimeSearchBound is the default ceiling on the nonce search.
	// Observed agent ids converge after a handful of nonces; the bound exists
	// so an adversarial id cannot pin a core indefinitely.
	DefaultPrimeSearchBound = 200_000
)

// HashToPrime derives the prime for agentID within this accumulator's domain.
// Jitter is injected first because derivation timing is observable.
func (a *Accumulator) HashToPrime(agentID string) (string, error) {
	if err := validateInput("agent_id", agentID); err != nil {
		return "", err
	}
	injectJitter(a.jitter)
	p, err := hashToPrimeInt(a.domain, agentID, a.primeSearchBound)
	if err != nil {
		return "", err
	}
	return p.Text(10), nil
}

// DerivePrime is the stateless form of hash-to-prime, for registries and for
// auditors recomputing a prime outside any accumulator instance. A bound of 0
// selects DefaultPrimeSearchBound.
func DerivePrime(domain, agentID string, bound uint64) (string, error) {
	if err := validateInput("domain", domain); err != nil {
		return "", err
	}
	if err := validateInput("agent_id", agentID); err != nil {
		return "", err
	}
	if bound == 0 {
		bound = DefaultPrimeSearchBound
	}
	injectJitter(DefaultJitter)
	p, err := hashToPrimeInt(domain, agentID, bound)
	if err != nil {
		return "", err
	}
	return p.Text(10), nil
}

// hashToPrimeInt runs the deterministic nonce search. No external state may
// influence it: for fixed (domain, agentID) it always converges to the same
// prime.
func hashToPrimeInt(domain, agentID string, bound uint64) (*big.Int, error) {
	prefix := []byte(domain + ":")
	id := []byte(agentID)

	var nonceBuf [8]byte
	var idxBuf [4]byte
	candidateBytes := make([]byte, 0, PrimeBits/8)

	for nonce := uint64(0); ; nonce++ {
		binary.LittleEndian.PutUint64(nonceBuf[:], nonce)
		candidateBytes = candidateBytes[:0]
		for i := uint32(0); i < 4; i++ {
			binary.LittleEndian.PutUint32(idxBuf[:], i)
			h := sha256.New()
			h.Write(prefix)
			h.Write(id)
			h.Write(nonceBuf[:])
			h.Write(idxBuf[:])
			candidateBytes = h.Sum(candidateBytes)
		}

		// Force bit 1023 (exact bit length) and bit 0 (oddness).
		candidateBytes[0] |= 0x80
		candidateBytes[len(candidateBytes)-1] |= 0x01

		candidate := new(big.Int).SetBytes(candidateBytes)
		if candidate.ProbablyPrime(millerRabinRounds) {
			return candidate, nil
		}

		if nonce >= bound {
			return nil, fmt.Errorf("%w: no prime within %d nonces for agent id", ErrPrimeSearchExhausted, bound)
		}
	}
}
