package attest

import (
	"path/filepath"
	"testing"

	"holopass/internal/holo"
)

func testRecord() holo.SnapshotRecord {
	finalT := "123456789"
	prev := "genesis"
	return holo.SnapshotRecord{
		SegmentID:    0,
		FinalT:       finalT,
		SnapshotHash: holo.ChainHash(finalT, prev),
		PrevHash:     prev,
	}
}

func newTestAttestor(t *testing.T) *Attestor {
	t.Helper()
	dir := t.TempDir()
	a, err := NewAttestor(filepath.Join(dir, "attest.pk"), filepath.Join(dir, "attest.vk"))
	if err != nil {
		t.Fatalf("attestor setup failed: %v", err)
	}
	return a
}

// ===== 1. PROVE AND VERIFY =====

func TestAttestRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Groth16 setup in short mode")
	}
	a := newTestAttestor(t)
	rec := testRecord()

	attestation, proof, err := a.Attest(rec)
	if err != nil {
		t.Fatalf("attest failed: %v", err)
	}
	if attestation != AttestationValue(rec) {
		t.Fatal("attestation does not match the native recomputation")
	}
	if err := a.VerifyAttestation(attestation, proof); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
}

// ===== 2. TAMPER REJECTION =====

func TestAttestTamperRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Groth16 setup in short mode")
	}
	a := newTestAttestor(t)
	rec := testRecord()

	attestation, proof, err := a.Attest(rec)
	if err != nil {
		t.Fatalf("attest failed: %v", err)
	}

	t.Run("foreign attestation value", func(t *testing.T) {
		other := rec
		other.FinalT = "987654321"
		if err := a.VerifyAttestation(AttestationValue(other), proof); err == nil {
			t.Fatal("proof verified against a different record's attestation")
		}
	})

	t.Run("corrupted proof bytes", func(t *testing.T) {
		corrupted := append([]byte(nil), proof...)
		corrupted[len(corrupted)/2] ^= 0xFF
		if err := a.VerifyAttestation(attestation, corrupted); err == nil {
			t.Fatal("corrupted proof verified")
		}
	})
}

// ===== 3. KEY PERSISTENCE =====

func TestKeyReuseAcrossAttestors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Groth16 setup in short mode")
	}
	dir := t.TempDir()
	pkPath := filepath.Join(dir, "attest.pk")
	vkPath := filepath.Join(dir, "attest.vk")

	first, err := NewAttestor(pkPath, vkPath)
	if err != nil {
		t.Fatalf("first attestor setup failed: %v", err)
	}
	rec := testRecord()
	attestation, proof, err := first.Attest(rec)
	if err != nil {
		t.Fatalf("attest failed: %v", err)
	}

	// A second attestor must load the persisted keys, not regenerate them,
	// so proofs remain verifiable across process restarts.
	second, err := NewAttestor(pkPath, vkPath)
	if err != nil {
		t.Fatalf("second attestor setup failed: %v", err)
	}
	if err := second.VerifyAttestation(attestation, proof); err != nil {
		t.Fatalf("cross-instance verification failed: %v", err)
	}
}
