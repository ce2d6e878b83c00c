// accumulator.go - The accumulator state machine.
//
// A single mutable instance owned exclusively by its caller: no internal
// synchronization, all operations synchronous and CPU-bound. Mutating calls
// commit current_t and depth only after every validation and computation has
// succeeded; a failure at any stage leaves them unchanged. The op counter is
// a monotone ceiling, not an exact ledger, so counts tied to already-completed
// sub-steps may advance on a failed call.

package holo

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// initialState is the group element every session starts from.
const initialState = 2

// Config carries construction parameters. Modulus, Generator and numeric
// results cross the boundary as base-10 strings to avoid precision loss.
type Config struct {
	Modulus   string
	Generator string
	MaxDepth  uint64
	Domain    string

	// PrimeSearchBound caps the hash-to-prime nonce search; 0 selects
	// DefaultPrimeSearchBound.
	PrimeSearchBound uint64
	// MaxOpLimit caps total group operations; 0 selects DefaultMaxOpLimit.
	MaxOpLimit uint64
	// Jitter bounds the inert side-channel workload; zero selects
	// DefaultJitter.
	Jitter JitterConfig
}

// Accumulator holds the evolving holographic state for one session.
type Accumulator struct {
	modulus   *big.Int
	generator *big.Int
	currentT  *big.Int
	depth     uint64
	maxDepth  uint64
	opCount   uint64
	domain    string

	maxOpLimit       uint64
	primeSearchBound uint64
	jitter           JitterConfig
}

// New constructs an accumulator with default guard and jitter settings.
func New(modulusDec, generatorDec string, maxDepth uint64, domain string) (*Accumulator, error) {
	return NewFromConfig(Config{
		Modulus:   modulusDec,
		Generator: generatorDec,
		MaxDepth:  maxDepth,
		Domain:    domain,
	})
}

// NewFromConfig constructs an accumulator, validating every input before any
// parsing. current_t starts at 2 and always stays in [0, modulus).
func NewFromConfig(cfg Config) (*Accumulator, error) {
	if err := validateInput("modulus", cfg.Modulus); err != nil {
		return nil, err
	}
	if err := validateInput("generator", cfg.Generator); err != nil {
		return nil, err
	}
	if err := validateInput("domain", cfg.Domain); err != nil {
		return nil, err
	}
	m, err := parseDec("modulus", cfg.Modulus)
	if err != nil {
		return nil, err
	}
	if m.Sign() <= 0 {
		return nil, fmt.Errorf("%w: modulus must be positive", ErrInvalidNumericFormat)
	}
	g, err := parseDec("generator", cfg.Generator)
	if err != nil {
		return nil, err
	}
	if cfg.MaxDepth == 0 {
		return nil, fmt.Errorf("%w: max_depth must be at least 1", ErrInvalidNumericFormat)
	}

	a := &Accumulator{
		modulus:          m,
		generator:        g.Mod(g, m),
		currentT:         big.NewInt(initialState),
		maxDepth:         cfg.MaxDepth,
		domain:           cfg.Domain,
		maxOpLimit:       cfg.MaxOpLimit,
		primeSearchBound: cfg.PrimeSearchBound,
		jitter:           cfg.Jitter,
	}
	if a.maxOpLimit == 0 {
		a.maxOpLimit = DefaultMaxOpLimit
	}
	if a.primeSearchBound == 0 {
		a.primeSearchBound = DefaultPrimeSearchBound
	}
	a.currentT.Mod(a.currentT, m)
	return a, nil
}

// State returns the current fingerprint as a base-16 string.
func (a *Accumulator) State() string {
	return a.currentT.Text(16)
}

// StateDecimal returns the current fingerprint as a base-10 string, in the
// form expected_prev_t must take on the next mutating call.
func (a *Accumulator) StateDecimal() string {
	return a.currentT.Text(10)
}

// Depth returns the position within the current checkpoint segment.
func (a *Accumulator) Depth() uint64 {
	return a.depth
}

// OpCount returns the monotone count of group operations performed.
func (a *Accumulator) OpCount() uint64 {
	return a.opCount
}

// Domain returns the domain-separation tag bound at construction.
func (a *Accumulator) Domain() string {
	return a.domain
}

// Modulus returns the group modulus as a base-10 string.
func (a *Accumulator) Modulus() string {
	return a.modulus.Text(10)
}

// Generator returns the group generator as a base-10 string.
func (a *Accumulator) Generator() string {
	return a.generator.Text(10)
}

// checkRollback is the compare-and-swap gate: a caller that read a stale
// state cannot apply an update, and cannot force the state backward to a
// previously seen value without detection.
func (a *Accumulator) checkRollback(expectedPrevT string) error {
	prev, err := parseDec("expected_prev_t", expectedPrevT)
	if err != nil {
		return err
	}
	if a.currentT.Cmp(prev) != 0 {
		return fmt.Errorf("%w: expected %s, have %s", ErrStateMismatch, prev.Text(16), a.currentT.Text(16))
	}
	return nil
}

// computeTransition derives the agent prime and applies one step:
//
//	next_t = (current_t^P * generator^H(depth)) mod modulus
//
// where H is SHA-256 of the decimal depth string. Consumes two group
// operations. Does not commit.
func (a *Accumulator) computeTransition(agentID string) (*big.Int, uint64, error) {
	injectJitter(a.jitter)
	p, err := hashToPrimeInt(a.domain, agentID, a.primeSearchBound)
	if err != nil {
		return nil, 0, err
	}

	pathTerm := new(big.Int).Exp(a.currentT, p, a.modulus)
	a.opCount++

	depthDigest := sha256.Sum256([]byte(strconv.FormatUint(a.depth, 10)))
	depthExp := new(big.Int).SetBytes(depthDigest[:])
	depthTerm := new(big.Int).Exp(a.generator, depthExp, a.modulus)
	a.opCount++

	nextT := pathTerm.Mul(pathTerm, depthTerm)
	nextT.Mod(nextT, a.modulus)
	return nextT, a.depth + 1, nil
}

// UpdateState applies one rollback-protected transition for agentID and
// returns the new state as a base-10 string.
func (a *Accumulator) UpdateState(agentID, expectedPrevT string) (string, error) {
	if err := validateInput("agent_id", agentID); err != nil {
		return "", err
	}
	if err := validateInput("expected_prev_t", expectedPrevT); err != nil {
		return "", err
	}
	if err := a.checkOpLimit(); err != nil {
		return "", err
	}
	if err := a.checkRollback(expectedPrevT); err != nil {
		return "", err
	}

	nextT, nextDepth, err := a.computeTransition(agentID)
	if err != nil {
		return "", err
	}

	a.currentT = nextT
	a.depth = nextDepth
	return nextT.Text(10), nil
}

// UpdateWithSnapshot applies one rollback-protected transition and, when the
// segment is full (next_depth >= max_depth), folds it into a chained
// checkpoint: the state reseeds from the snapshot hash, depth resets to 0 and
// a SnapshotRecord is emitted as JSON. Returns the committed state, whether a
// snapshot was taken, and the snapshot payload (empty when none).
func (a *Accumulator) UpdateWithSnapshot(agentID string, segmentID uint64, prevSnapshotHash, expectedPrevT string) (string, bool, string, error) {
	if err := validateInput("agent_id", agentID); err != nil {
		return "", false, "", err
	}
	if err := validateInput("prev_snapshot_hash", prevSnapshotHash); err != nil {
		return "", false, "", err
	}
	if err := validateInput("expected_prev_t", expectedPrevT); err != nil {
		return "", false, "", err
	}
	if err := a.checkOpLimit(); err != nil {
		return "", false, "", err
	}
	if err := a.checkRollback(expectedPrevT); err != nil {
		return "", false, "", err
	}

	nextT, nextDepth, err := a.computeTransition(agentID)
	if err != nil {
		return "", false, "", err
	}

	if nextDepth < a.maxDepth {
		a.currentT = nextT
		a.depth = nextDepth
		return nextT.Text(10), false, "", nil
	}

	finalT := nextT.Text(10)
	snapshotHash := ChainHash(finalT, prevSnapshotHash)

	// Reseed from the chained digest; hex decode of our own SHA-256 output
	// cannot fail.
	seed, _ := new(big.Int).SetString(snapshotHash, 16)
	seed.Mod(seed, a.modulus)

	record := SnapshotRecord{
		SegmentID:    segmentID,
		FinalT:       finalT,
		SnapshotHash: snapshotHash,
		PrevHash:     prevSnapshotHash,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return "", false, "", fmt.Errorf("snapshot encoding failed: %w", err)
	}

	a.currentT = seed
	a.depth = 0
	return seed.Text(10), true, string(payload), nil
}

// SafeMergeBranches folds an ordered list of branch primes into baseT using
// an order-sensitive cascade: each prime exponentiates the running term, then
// a structural perturbation exponent derived from (next_depth, index) is
// mixed in. Permuting the same primes yields, in general, a different final
// term, which closes the reordering equivalence a commutative
// product-of-exponents would admit.
//
// The call does not touch current_t or depth; it returns the final term, the
// resulting depth and the operations consumed (2 per prime), which are also
// charged against this instance's ceiling so distributed merges stay
// accountable.
func (a *Accumulator) SafeMergeBranches(baseT string, primes []string, baseDepth uint64) (string, uint64, uint64, error) {
	if err := validateInput("base_t", baseT); err != nil {
		return "", 0, 0, err
	}
	if err := a.checkOpLimit(); err != nil {
		return "", 0, 0, err
	}
	injectJitter(a.jitter)

	current, err := parseDec("base_t", baseT)
	if err != nil {
		return "", 0, 0, err
	}

	var opsConsumed uint64
	nextDepth := baseDepth
	var idxBuf [4]byte

	for idx, primeDec := range primes {
		if err := validateInput("prime", primeDec); err != nil {
			return "", 0, 0, err
		}
		p, err := parseDec("prime", primeDec)
		if err != nil {
			return "", 0, 0, err
		}

		// Path evolution: T = T^P mod N.
		current.Exp(current, p, a.modulus)
		opsConsumed++

		// Structural perturbation: the index is mixed into the digest so
		// equal primes at different positions perturb differently.
		nextDepth++
		h := sha256.New()
		h.Write([]byte(strconv.FormatUint(nextDepth, 10)))
		binary.LittleEndian.PutUint32(idxBuf[:], uint32(idx))
		h.Write(idxBuf[:])
		perturbExp := new(big.Int).SetBytes(h.Sum(nil))

		depthTerm := new(big.Int).Exp(a.generator, perturbExp, a.modulus)
		current.Mul(current, depthTerm)
		current.Mod(current, a.modulus)
		opsConsumed++
	}

	a.opCount += opsConsumed
	return current.Text(10), nextDepth, opsConsumed, nil
}
