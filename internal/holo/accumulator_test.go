package holo

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
)

// testModulus is 61*53: tiny on purpose so transitions stay fast. The group
// math is identical at any size.
const (
	testModulus   = "3233"
	testGenerator = "4"
	testDomain    = "test"
)

func newTestAccumulator(t *testing.T, maxDepth uint64) *Accumulator {
	t.Helper()
	acc, err := New(testModulus, testGenerator, maxDepth, testDomain)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return acc
}

// =============================================================================
// 1. CONSTRUCTION
// =============================================================================

func TestConstruction(t *testing.T) {
	t.Run("Initial State", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		if acc.State() != "2" {
			t.Errorf("initial state = %q, want 2", acc.State())
		}
		if acc.StateDecimal() != "2" {
			t.Errorf("initial decimal state = %q, want 2", acc.StateDecimal())
		}
		if acc.Depth() != 0 || acc.OpCount() != 0 {
			t.Errorf("fresh instance has depth=%d ops=%d", acc.Depth(), acc.OpCount())
		}
	})

	t.Run("Invalid Modulus Format", func(t *testing.T) {
		if _, err := New("not-a-number", testGenerator, 10, testDomain); !errors.Is(err, ErrInvalidNumericFormat) {
			t.Errorf("expected ErrInvalidNumericFormat, got %v", err)
		}
	})

	t.Run("Non-Positive Modulus", func(t *testing.T) {
		if _, err := New("0", testGenerator, 10, testDomain); !errors.Is(err, ErrInvalidNumericFormat) {
			t.Errorf("expected ErrInvalidNumericFormat for zero modulus, got %v", err)
		}
		if _, err := New("-7", testGenerator, 10, testDomain); !errors.Is(err, ErrInvalidNumericFormat) {
			t.Errorf("expected ErrInvalidNumericFormat for negative modulus, got %v", err)
		}
	})

	t.Run("Zero Max Depth", func(t *testing.T) {
		if _, err := New(testModulus, testGenerator, 0, testDomain); !errors.Is(err, ErrInvalidNumericFormat) {
			t.Errorf("expected ErrInvalidNumericFormat for max_depth 0, got %v", err)
		}
	})

	t.Run("Oversized Inputs", func(t *testing.T) {
		huge := strings.Repeat("9", MaxInputLen+1)
		if _, err := New(huge, testGenerator, 10, testDomain); !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("expected ErrInputTooLarge for modulus, got %v", err)
		}
		if _, err := New(testModulus, testGenerator, 10, strings.Repeat("d", MaxInputLen+1)); !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("expected ErrInputTooLarge for domain, got %v", err)
		}
	})
}

// =============================================================================
// 2. STATE TRANSITIONS AND ROLLBACK PROTECTION
// =============================================================================

func TestUpdateState(t *testing.T) {
	t.Run("Successful Update", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		newT, err := acc.UpdateState("Agent_A", "2")
		if err != nil {
			t.Fatalf("UpdateState failed: %v", err)
		}
		v, ok := new(big.Int).SetString(newT, 10)
		if !ok {
			t.Fatalf("returned state %q is not decimal", newT)
		}
		m, _ := new(big.Int).SetString(testModulus, 10)
		if v.Sign() < 0 || v.Cmp(m) >= 0 {
			t.Errorf("state %s outside [0, modulus)", newT)
		}
		if acc.Depth() != 1 {
			t.Errorf("depth = %d, want 1", acc.Depth())
		}
		if acc.OpCount() != 2 {
			t.Errorf("op count = %d, want 2 per transition", acc.OpCount())
		}
	})

	t.Run("Deterministic Across Instances", func(t *testing.T) {
		a1 := newTestAccumulator(t, 10)
		a2 := newTestAccumulator(t, 10)
		t1, err := a1.UpdateState("Agent_A", "2")
		if err != nil {
			t.Fatal(err)
		}
		t2, err := a2.UpdateState("Agent_A", "2")
		if err != nil {
			t.Fatal(err)
		}
		if t1 != t2 {
			t.Errorf("identical updates diverged: %s vs %s", t1, t2)
		}
	})

	t.Run("Stale Expected State Rejected", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		first, err := acc.UpdateState("Agent_A", "2")
		if err != nil {
			t.Fatalf("first update failed: %v", err)
		}
		// Replaying the pre-first value must fail and leave state untouched.
		_, err = acc.UpdateState("Agent_B", "2")
		if !errors.Is(err, ErrStateMismatch) {
			t.Fatalf("expected ErrStateMismatch, got %v", err)
		}
		if acc.StateDecimal() != first {
			t.Errorf("state changed after rejected update: %s != %s", acc.StateDecimal(), first)
		}
		if acc.Depth() != 1 {
			t.Errorf("depth changed after rejected update: %d", acc.Depth())
		}
	})

	t.Run("Invalid Expected Format", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		if _, err := acc.UpdateState("Agent_A", "0x2"); !errors.Is(err, ErrInvalidNumericFormat) {
			t.Errorf("expected ErrInvalidNumericFormat, got %v", err)
		}
		if acc.StateDecimal() != "2" {
			t.Errorf("state changed after rejected update")
		}
	})

	t.Run("Oversized Agent ID", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		huge := strings.Repeat("a", MaxInputLen+1)
		if _, err := acc.UpdateState(huge, "2"); !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("expected ErrInputTooLarge, got %v", err)
		}
	})
}

// =============================================================================
// 3. SNAPSHOT CHECKPOINTING
// =============================================================================

func TestUpdateWithSnapshot(t *testing.T) {
	acc := newTestAccumulator(t, 3)

	prevT := acc.StateDecimal()
	agents := []string{"Agent_A", "Agent_B", "Agent_C"}

	var lastPayload string
	var lastIsSnapshot bool
	for i, agent := range agents {
		newT, isSnapshot, payload, err := acc.UpdateWithSnapshot(agent, 0, "genesis", prevT)
		if err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
		wantSnapshot := i == len(agents)-1
		if isSnapshot != wantSnapshot {
			t.Fatalf("update %d: is_snapshot = %v, want %v", i, isSnapshot, wantSnapshot)
		}
		if !isSnapshot && payload != "" {
			t.Errorf("update %d: non-snapshot call returned payload %q", i, payload)
		}
		prevT = newT
		lastPayload = payload
		lastIsSnapshot = isSnapshot
	}

	if !lastIsSnapshot {
		t.Fatal("segment never folded")
	}
	if acc.Depth() != 0 {
		t.Errorf("depth = %d after snapshot, want 0", acc.Depth())
	}

	var rec SnapshotRecord
	if err := json.Unmarshal([]byte(lastPayload), &rec); err != nil {
		t.Fatalf("snapshot payload is not valid JSON: %v", err)
	}
	if rec.SegmentID != 0 || rec.PrevHash != "genesis" {
		t.Errorf("unexpected record fields: %+v", rec)
	}
	if len(rec.SnapshotHash) != 64 {
		t.Errorf("snapshot hash length = %d, want 64 hex chars", len(rec.SnapshotHash))
	}
	if rec.SnapshotHash != ChainHash(rec.FinalT, rec.PrevHash) {
		t.Error("snapshot hash does not match SHA256(final_t || prev_hash)")
	}

	// The committed state must be the chained digest reduced mod n.
	seed, _ := new(big.Int).SetString(rec.SnapshotHash, 16)
	m, _ := new(big.Int).SetString(testModulus, 10)
	seed.Mod(seed, m)
	if acc.StateDecimal() != seed.Text(10) {
		t.Errorf("reseeded state = %s, want %s", acc.StateDecimal(), seed.Text(10))
	}
}

func TestSnapshotChainBinding(t *testing.T) {
	// Two folds over the same transitions but different prev hashes must
	// produce different snapshot hashes.
	run := func(prevHash string) SnapshotRecord {
		acc := newTestAccumulator(t, 1)
		_, isSnapshot, payload, err := acc.UpdateWithSnapshot("Agent_A", 7, prevHash, "2")
		if err != nil || !isSnapshot {
			t.Fatalf("fold failed: snapshot=%v err=%v", isSnapshot, err)
		}
		var rec SnapshotRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			t.Fatal(err)
		}
		return rec
	}

	r1 := run("chain-a")
	r2 := run("chain-b")
	if r1.FinalT != r2.FinalT {
		t.Fatal("identical transitions produced different final terms")
	}
	if r1.SnapshotHash == r2.SnapshotHash {
		t.Error("different prev hashes produced equal snapshot hashes")
	}
}

// =============================================================================
// 4. ORDER-SENSITIVE MERGE
// =============================================================================

func TestSafeMergeBranches(t *testing.T) {
	p1, err := DerivePrime(testDomain, "Worker_A", 0)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := DerivePrime(testDomain, "Worker_B", 0)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Order Sensitivity", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		fwd, depthFwd, opsFwd, err := acc.SafeMergeBranches("2", []string{p1, p2}, 5)
		if err != nil {
			t.Fatal(err)
		}
		rev, depthRev, opsRev, err := acc.SafeMergeBranches("2", []string{p2, p1}, 5)
		if err != nil {
			t.Fatal(err)
		}
		if fwd == rev {
			t.Error("permuting branch primes did not change the final term")
		}
		if depthFwd != 7 || depthRev != 7 {
			t.Errorf("depths = %d/%d, want 7", depthFwd, depthRev)
		}
		if opsFwd != 4 || opsRev != 4 {
			t.Errorf("ops = %d/%d, want 2 per prime", opsFwd, opsRev)
		}
	})

	t.Run("Does Not Touch Accumulator State", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		before := acc.StateDecimal()
		if _, _, _, err := acc.SafeMergeBranches("17", []string{p1}, 3); err != nil {
			t.Fatal(err)
		}
		if acc.StateDecimal() != before || acc.Depth() != 0 {
			t.Error("merge mutated current_t or depth")
		}
		if acc.OpCount() != 2 {
			t.Errorf("merge consumed %d ops from the instance budget, want 2", acc.OpCount())
		}
	})

	t.Run("Empty Branch List", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		final, depth, ops, err := acc.SafeMergeBranches("42", nil, 9)
		if err != nil {
			t.Fatal(err)
		}
		if final != "42" || depth != 9 || ops != 0 {
			t.Errorf("empty merge = (%s, %d, %d), want identity", final, depth, ops)
		}
	})

	t.Run("Invalid Prime Format", func(t *testing.T) {
		acc := newTestAccumulator(t, 10)
		if _, _, _, err := acc.SafeMergeBranches("2", []string{p1, "xyz"}, 0); !errors.Is(err, ErrInvalidNumericFormat) {
			t.Errorf("expected ErrInvalidNumericFormat, got %v", err)
		}
	})
}

// =============================================================================
// 5. RESOURCE GUARDS
// =============================================================================

func TestOpLimitCircuitBreaker(t *testing.T) {
	acc, err := NewFromConfig(Config{
		Modulus:    testModulus,
		Generator:  testGenerator,
		MaxDepth:   100,
		Domain:     testDomain,
		MaxOpLimit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}

	prev := acc.StateDecimal()
	// Two transitions bring the counter to 4, past the ceiling of 3.
	for i := 0; i < 2; i++ {
		prev, err = acc.UpdateState("Agent_A", prev)
		if err != nil {
			t.Fatalf("update %d failed early: %v", i, err)
		}
	}
	if acc.OpCount() != 4 {
		t.Fatalf("op count = %d, want 4", acc.OpCount())
	}

	_, err = acc.UpdateState("Agent_A", prev)
	if !errors.Is(err, ErrOpLimitExceeded) {
		t.Fatalf("expected ErrOpLimitExceeded, got %v", err)
	}
	// Tripped instance stays readable and uncorrupted.
	if acc.StateDecimal() != prev {
		t.Error("state changed after tripped circuit breaker")
	}
	if _, _, _, err := acc.SafeMergeBranches("2", nil, 0); !errors.Is(err, ErrOpLimitExceeded) {
		t.Errorf("merge should also be blocked, got %v", err)
	}
}

func TestInputValidationAtEveryEntry(t *testing.T) {
	huge := strings.Repeat("1", MaxInputLen+1)
	acc := newTestAccumulator(t, 10)

	if _, err := acc.HashToPrime(huge); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("HashToPrime accepted oversized input: %v", err)
	}
	if _, err := acc.UpdateState("a", huge); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("UpdateState accepted oversized expected_prev_t: %v", err)
	}
	if _, _, _, err := acc.UpdateWithSnapshot("a", 0, huge, "2"); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("UpdateWithSnapshot accepted oversized prev hash: %v", err)
	}
	if _, _, _, err := acc.SafeMergeBranches(huge, nil, 0); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("SafeMergeBranches accepted oversized base: %v", err)
	}
	if _, err := SafePowMod(huge, "1", "7"); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("SafePowMod accepted oversized base: %v", err)
	}
	if _, err := DerivePrime(testDomain, huge, 0); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("DerivePrime accepted oversized agent id: %v", err)
	}
}

// =============================================================================
// 6. STATELESS HELPERS
// =============================================================================

func TestSafePowMod(t *testing.T) {
	t.Run("Known Value", func(t *testing.T) {
		got, err := SafePowMod("4", "13", "497")
		if err != nil {
			t.Fatal(err)
		}
		if got != "445" {
			t.Errorf("4^13 mod 497 = %s, want 445", got)
		}
	})

	t.Run("Garbage Input Returns Typed Error", func(t *testing.T) {
		for _, args := range [][3]string{
			{"abc", "1", "7"},
			{"4", "-1", "7"},
			{"4", "1", "0"},
			{"4", "1", "banana"},
		} {
			if _, err := SafePowMod(args[0], args[1], args[2]); !errors.Is(err, ErrInvalidNumericFormat) {
				t.Errorf("SafePowMod(%q,%q,%q): expected ErrInvalidNumericFormat, got %v", args[0], args[1], args[2], err)
			}
		}
	})

	t.Run("Max Length Accepted", func(t *testing.T) {
		base := strings.Repeat("9", MaxInputLen)
		if _, err := SafePowMod(base, "1", "7"); err != nil {
			t.Errorf("boundary-length input rejected: %v", err)
		}
	})
}

// =============================================================================
// 7. SCENARIO: FULL SEGMENT LIFECYCLE OVER A GENERATED MODULUS
// =============================================================================

func TestEndToEndSegmentFold(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 2048-bit setup in short mode")
	}
	t.Setenv("HOLOPASS_INSECURE_MEMORY", "true")

	modulus, err := GenerateSafeModulus(2048)
	if err != nil {
		t.Fatalf("GenerateSafeModulus failed: %v", err)
	}
	acc, err := New(modulus, "65537", 4, "test")
	if err != nil {
		t.Fatal(err)
	}

	prevT := acc.StateDecimal()
	agents := []string{"orchestrator", "planner", "executor", "reviewer"}
	for i, agent := range agents {
		newT, isSnapshot, payload, err := acc.UpdateWithSnapshot(agent, 0, "genesis", prevT)
		if err != nil {
			t.Fatalf("update %d (%s) failed: %v", i, agent, err)
		}
		if i < 3 && isSnapshot {
			t.Fatalf("premature snapshot at depth %d", i+1)
		}
		if i == 3 {
			if !isSnapshot || payload == "" {
				t.Fatal("fourth update did not fold the segment")
			}
			if acc.Depth() != 0 {
				t.Errorf("depth = %d after fold, want 0", acc.Depth())
			}
		}
		prevT = newT
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkUpdateState(b *testing.B) {
	acc, err := NewFromConfig(Config{
		Modulus:   testModulus,
		Generator: testGenerator,
		MaxDepth:  1 << 62,
		Domain:    testDomain,
		// Jitter dominates otherwise.
		Jitter:     JitterConfig{MinLoops: 1, MaxLoops: 2},
		MaxOpLimit: 1 << 62,
	})
	if err != nil {
		b.Fatal(err)
	}
	prev := acc.StateDecimal()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prev, err = acc.UpdateState("bench-agent", prev)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSafeMergeBranches(b *testing.B) {
	acc, err := NewFromConfig(Config{
		Modulus:    testModulus,
		Generator:  testGenerator,
		MaxDepth:   10,
		Domain:     testDomain,
		Jitter:     JitterConfig{MinLoops: 1, MaxLoops: 2},
		MaxOpLimit: 1 << 62,
	})
	if err != nil {
		b.Fatal(err)
	}
	primes := make([]string, 3)
	for i, name := range []string{"Worker_A", "Worker_B", "Worker_C"} {
		primes[i], err = DerivePrime(testDomain, name, 0)
		if err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, err := acc.SafeMergeBranches("2", primes, 0); err != nil {
			b.Fatal(err)
		}
	}
}
