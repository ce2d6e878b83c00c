// scope.go - Swarm sub-task tracking and re-injection into a global chain.
//
// A swarm runs its own lightweight local tracker seeded at T=2, accumulates
// sub-task transitions, then seals the result into a compact work proof. The
// proof is merged back into the global fingerprint as a single step, so the
// main chain records "this swarm did work of this complexity" without
// replaying every sub-task.

package scope

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"holopass/internal/holo"
)

// PrimeSource resolves agent names to derived primes (base-10 strings). A
// *registry.Registry satisfies it.
type PrimeSource interface {
	Prime(agentID string) (string, error)
}

// WorkProof is the sealed export of a swarm's local activity.
type WorkProof struct {
	SwarmPrime string `json:"swarm_prime"`
	Proof      string `json:"work_proof"`
	Complexity uint64 `json:"complexity"`
}

// SwarmScope tracks sub-task activity for one named swarm.
type SwarmScope struct {
	name       string
	modulus    *big.Int
	generator  *big.Int
	localT     *big.Int
	localDepth uint64
	swarmPrime *big.Int
	primes     PrimeSource
}

// NewSwarmScope creates a local tracker bound to the group parameters of the
// global accumulator. The swarm's own prime is derived up front so a sealed
// proof always carries a verifiable identity.
func NewSwarmScope(name, modulusDec, generatorDec string, primes PrimeSource) (*SwarmScope, error) {
	m, ok := new(big.Int).SetString(modulusDec, 10)
	if !ok || m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus", holo.ErrInvalidNumericFormat)
	}
	g, ok := new(big.Int).SetString(generatorDec, 10)
	if !ok || g.Sign() < 0 {
		return nil, fmt.Errorf("%w: generator", holo.ErrInvalidNumericFormat)
	}

	pStr, err := primes.Prime(name)
	if err != nil {
		return nil, fmt.Errorf("swarm prime derivation failed: %w", err)
	}
	p, _ := new(big.Int).SetString(pStr, 10)

	return &SwarmScope{
		name:       name,
		modulus:    m,
		generator:  g.Mod(g, m),
		localT:     big.NewInt(2),
		swarmPrime: p,
		primes:     primes,
	}, nil
}

// TrackSubTask folds one sub-agent into the local fingerprint:
//
//	T_local = (T_local^P(sub) * G^(depth+1)) mod N
//
// The local chain uses the plain depth exponent rather than the hashed one;
// it never leaves the swarm unsealed, so the cheaper form suffices.
func (s *SwarmScope) TrackSubTask(subAgent string) error {
	pStr, err := s.primes.Prime(subAgent)
	if err != nil {
		return err
	}
	p, _ := new(big.Int).SetString(pStr, 10)

	pathTerm := new(big.Int).Exp(s.localT, p, s.modulus)
	depthTerm := new(big.Int).Exp(s.generator, new(big.Int).SetUint64(s.localDepth+1), s.modulus)

	s.localT = pathTerm.Mul(pathTerm, depthTerm)
	s.localT.Mod(s.localT, s.modulus)
	s.localDepth++
	return nil
}

// Depth returns the number of sub-tasks tracked so far.
func (s *SwarmScope) Depth() uint64 {
	return s.localDepth
}

// SealAndExport closes the scope and emits the work proof:
// SHA256("name:local_t:depth") as a decimal integer, alongside the swarm's
// identity prime and the sub-task count.
func (s *SwarmScope) SealAndExport() WorkProof {
	payload := fmt.Sprintf("%s:%s:%d", s.name, s.localT.Text(10), s.localDepth)
	digest := sha256.Sum256([]byte(payload))
	return WorkProof{
		SwarmPrime: s.swarmPrime.Text(10),
		Proof:      new(big.Int).SetBytes(digest[:]).Text(10),
		Complexity: s.localDepth,
	}
}

// MergeGlobal injects a sealed work proof into a global fingerprint:
//
//	T' = (T^P_swarm * G^(proof + depth + complexity)) mod N
//
// The identity term binds who did the work; the perturbation term binds what
// was done and at which effective depth. Returns the new fingerprint and the
// advanced depth (one step, regardless of swarm size). Pure computation: the
// caller owns the global state and decides whether to adopt the result.
func MergeGlobal(globalTDec string, globalDepth uint64, modulusDec, generatorDec string, wp WorkProof) (string, uint64, error) {
	m, ok := new(big.Int).SetString(modulusDec, 10)
	if !ok || m.Sign() <= 0 {
		return "", 0, fmt.Errorf("%w: modulus", holo.ErrInvalidNumericFormat)
	}
	g, ok := new(big.Int).SetString(generatorDec, 10)
	if !ok || g.Sign() < 0 {
		return "", 0, fmt.Errorf("%w: generator", holo.ErrInvalidNumericFormat)
	}
	t, ok := new(big.Int).SetString(globalTDec, 10)
	if !ok || t.Sign() < 0 {
		return "", 0, fmt.Errorf("%w: global_t", holo.ErrInvalidNumericFormat)
	}
	p, ok := new(big.Int).SetString(wp.SwarmPrime, 10)
	if !ok || p.Sign() <= 0 {
		return "", 0, fmt.Errorf("%w: swarm_prime", holo.ErrInvalidNumericFormat)
	}
	proof, ok := new(big.Int).SetString(wp.Proof, 10)
	if !ok || proof.Sign() < 0 {
		return "", 0, fmt.Errorf("%w: work_proof", holo.ErrInvalidNumericFormat)
	}

	identity := new(big.Int).Exp(t, p, m)

	effectiveDepth := new(big.Int).SetUint64(globalDepth + wp.Complexity)
	perturbExp := new(big.Int).Add(proof, effectiveDepth)
	perturbation := new(big.Int).Exp(g, perturbExp, m)

	newT := identity.Mul(identity, perturbation)
	newT.Mod(newT, m)
	return newT.Text(10), globalDepth + 1, nil
}
